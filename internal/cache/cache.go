package cache

import (
	"context"
	"time"

	"kirana/backend/internal/domain"
)

// StatsCache holds computed daily stats keyed by calendar day.
type StatsCache interface {
	Get(ctx context.Context, day string) (*domain.DailyStats, bool, error)
	Set(ctx context.Context, day string, value *domain.DailyStats, ttl time.Duration) error
	Delete(ctx context.Context, day string) error
}

type NoopStatsCache struct{}

func (NoopStatsCache) Get(_ context.Context, _ string) (*domain.DailyStats, bool, error) {
	return nil, false, nil
}

func (NoopStatsCache) Set(_ context.Context, _ string, _ *domain.DailyStats, _ time.Duration) error {
	return nil
}

func (NoopStatsCache) Delete(_ context.Context, _ string) error {
	return nil
}
