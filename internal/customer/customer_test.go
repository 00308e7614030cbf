package customer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kirana/backend/internal/domain"
	"kirana/backend/internal/store"
	"kirana/backend/internal/store/memory"
)

func TestUpsertAndLookup(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New())

	created, err := s.Upsert(ctx, domain.Customer{Name: " Asha ", Mobile: "9800000001"})
	require.NoError(t, err)
	assert.Equal(t, "Asha", created.Name)
	require.NotEmpty(t, created.ID)

	created.Address = "Lane 4"
	_, err = s.Upsert(ctx, *created)
	require.NoError(t, err)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Lane 4", all[0].Address)

	byMobile, err := s.FindByMobile(ctx, "9800000001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byMobile.ID)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertRequiresName(t *testing.T) {
	_, err := New(memory.New()).Upsert(context.Background(), domain.Customer{Mobile: "1"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
