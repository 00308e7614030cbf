package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMissingKey(t *testing.T) {
	s := New()
	value, found, err := s.Get(context.Background(), "products")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func TestSetCopiesValue(t *testing.T) {
	s := New()
	ctx := context.Background()
	payload := []byte(`[1,2]`)
	require.NoError(t, s.Set(ctx, "k", payload))
	payload[0] = 'x'

	value, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `[1,2]`, string(value))

	value[0] = 'y'
	again, _, _ := s.Get(ctx, "k")
	assert.Equal(t, `[1,2]`, string(again))
	assert.Equal(t, []string{"k"}, s.Keys())
}
