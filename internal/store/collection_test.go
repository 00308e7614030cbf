package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kirana/backend/internal/store"
	"kirana/backend/internal/store/memory"
	"kirana/backend/internal/store/storetest"
)

type row struct {
	ID  string `json:"id"`
	Qty int    `json:"qty"`
}

func TestCollectionMissingKeyLoadsEmpty(t *testing.T) {
	c := store.NewCollection[row](memory.New(), "rows")
	items, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestCollectionUpdatePersists(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	c := store.NewCollection[row](kv, "rows")

	require.NoError(t, c.Update(ctx, func(items []row) ([]row, error) {
		return append(items, row{ID: "a", Qty: 2}), nil
	}))

	reopened := store.NewCollection[row](kv, "rows")
	items, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []row{{ID: "a", Qty: 2}}, items)
}

func TestCollectionUpdateErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	c := store.NewCollection[row](memory.New(), "rows")
	require.NoError(t, c.Save(ctx, []row{{ID: "a"}}))

	boom := errors.New("boom")
	err := c.Update(ctx, func(items []row) ([]row, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	items, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCollectionReadFailureIsUnavailable(t *testing.T) {
	kv := storetest.NewFlaky(memory.New())
	kv.FailGet("rows")
	c := store.NewCollection[row](kv, "rows")

	items, err := c.Load(context.Background())
	assert.Nil(t, items)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestCollectionWriteFailureIsUnavailable(t *testing.T) {
	kv := storetest.NewFlaky(memory.New())
	kv.FailSet("rows")
	c := store.NewCollection[row](kv, "rows")

	err := c.Save(context.Background(), []row{{ID: "a"}})
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestCollectionCorruptPayload(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	require.NoError(t, kv.Set(ctx, "rows", []byte(`{not json`)))
	c := store.NewCollection[row](kv, "rows")

	_, err := c.Load(ctx)
	assert.ErrorIs(t, err, store.ErrCorrupt)
}
