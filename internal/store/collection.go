package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Collection stores a slice of T as one JSON document under a single key.
// Update serializes read-modify-write cycles issued through the same value.
type Collection[T any] struct {
	kv  KV
	key string
	mu  sync.Mutex
}

func NewCollection[T any](kv KV, key string) *Collection[T] {
	return &Collection[T]{kv: kv, key: key}
}

// Load returns the stored records. A key that was never written loads as empty.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	raw, found, err := c.kv.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, c.key, err)
	}
	if !found || len(raw) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCorrupt, c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(ctx, items)
}

// Update loads the records, applies fn and persists the result. When fn
// returns an error nothing is written.
func (c *Collection[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.Load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(items)
	if err != nil {
		return err
	}
	return c.save(ctx, next)
}

func (c *Collection[T]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.kv.Set(ctx, c.key, payload); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrUnavailable, c.key, err)
	}
	return nil
}
