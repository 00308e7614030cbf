package cache

import (
	"context"
	"sync"
	"time"

	"kirana/backend/internal/domain"
)

type memoryItem struct {
	stats     domain.DailyStats
	expiresAt time.Time
}

// MemoryStatsCache is an in-process StatsCache used with the memory backend.
type MemoryStatsCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryStatsCache() *MemoryStatsCache {
	return &MemoryStatsCache{items: make(map[string]memoryItem), now: time.Now}
}

func (c *MemoryStatsCache) Get(_ context.Context, day string) (*domain.DailyStats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[day]
	if !ok {
		return nil, false, nil
	}
	if !item.expiresAt.IsZero() && !c.now().Before(item.expiresAt) {
		delete(c.items, day)
		return nil, false, nil
	}
	stats := item.stats
	return &stats, true, nil
}

func (c *MemoryStatsCache) Set(_ context.Context, day string, value *domain.DailyStats, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	item := memoryItem{stats: *value}
	if ttl > 0 {
		item.expiresAt = c.now().Add(ttl)
	}
	c.items[day] = item
	return nil
}

func (c *MemoryStatsCache) Delete(_ context.Context, day string) error {
	c.mu.Lock()
	delete(c.items, day)
	c.mu.Unlock()
	return nil
}
