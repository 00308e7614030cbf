package stats

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"kirana/backend/internal/cache"
	"kirana/backend/internal/domain"
)

type BillSource interface {
	ListByDay(ctx context.Context, day string, loc *time.Location) ([]domain.Bill, error)
}

type KhataSource interface {
	EntriesOnDay(ctx context.Context, day string, loc *time.Location) ([]domain.KhataEntry, error)
}

// Aggregator derives read-only day figures from bills and khata entries.
type Aggregator struct {
	bills  BillSource
	khata  KhataSource
	cache  cache.StatsCache
	ttl    time.Duration
	loc    *time.Location
	logger *zap.Logger

	// gen counts invalidations per day. A read only writes back to the
	// cache when no invalidation landed while it was listing bills.
	mu  sync.Mutex
	gen map[string]uint64
}

type Options struct {
	Cache    cache.StatsCache
	TTL      time.Duration
	Location *time.Location
	Logger   *zap.Logger
}

func New(bills BillSource, khata KhataSource, opts Options) *Aggregator {
	if opts.Cache == nil {
		opts.Cache = cache.NoopStatsCache{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Aggregator{
		bills:  bills,
		khata:  khata,
		cache:  opts.Cache,
		ttl:    opts.TTL,
		loc:    opts.Location,
		logger: opts.Logger.Named("stats"),
		gen:    make(map[string]uint64),
	}
}

func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// StatsFor sums the non-cancelled bills dated on day.
func (a *Aggregator) StatsFor(ctx context.Context, day string) (domain.DailyStats, error) {
	cached, found, err := a.cache.Get(ctx, day)
	if err != nil {
		a.logger.Warn("stats cache read failed", zap.String("day", day), zap.Error(err))
	} else if found {
		return *cached, nil
	}

	start := a.generation(day)
	stats, err := a.FreshStatsFor(ctx, day)
	if err != nil {
		return domain.DailyStats{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen[day] != start {
		return stats, nil
	}
	if err := a.cache.Set(ctx, day, &stats, a.ttl); err != nil {
		a.logger.Warn("stats cache write failed", zap.String("day", day), zap.Error(err))
	}
	return stats, nil
}

// FreshStatsFor sums day from the ledger without touching the cache.
func (a *Aggregator) FreshStatsFor(ctx context.Context, day string) (domain.DailyStats, error) {
	bills, err := a.bills.ListByDay(ctx, day, a.loc)
	if err != nil {
		return domain.DailyStats{}, err
	}
	return Summarize(day, bills), nil
}

func (a *Aggregator) generation(day string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gen[day]
}

// Summarize folds a day's bills into its sales figures.
func Summarize(day string, bills []domain.Bill) domain.DailyStats {
	stats := domain.DailyStats{
		Date:        day,
		GrossSales:  decimal.Zero,
		OnlineSales: decimal.Zero,
		CreditSales: decimal.Zero,
	}
	for _, b := range bills {
		if b.Status == domain.BillCancelled {
			stats.CancelledCount++
			continue
		}
		stats.BillCount++
		stats.GrossSales = stats.GrossSales.Add(b.GrandTotal)
		switch b.PaymentMode {
		case domain.PaymentUPI:
			stats.OnlineSales = stats.OnlineSales.Add(b.GrandTotal)
		case domain.PaymentMixed:
			if b.UPIAmount != nil {
				stats.OnlineSales = stats.OnlineSales.Add(*b.UPIAmount)
			}
		case domain.PaymentCredit:
			stats.CreditSales = stats.CreditSales.Add(b.GrandTotal)
		}
	}
	return stats
}

// LiveCash reports the cash taken over the counter and khata payments received on day.
func (a *Aggregator) LiveCash(ctx context.Context, day string) (domain.LiveCash, error) {
	stats, err := a.StatsFor(ctx, day)
	if err != nil {
		return domain.LiveCash{}, err
	}
	entries, err := a.khata.EntriesOnDay(ctx, day, a.loc)
	if err != nil {
		return domain.LiveCash{}, err
	}

	received := decimal.Zero
	for _, e := range entries {
		if e.Type == domain.KhataCredit && !e.Reversal {
			received = received.Add(e.Amount)
		}
	}
	return domain.LiveCash{
		Date:           day,
		CashSales:      stats.GrossSales.Sub(stats.OnlineSales).Sub(stats.CreditSales),
		CreditReceived: received,
	}, nil
}

func (a *Aggregator) Invalidate(ctx context.Context, day string) {
	a.mu.Lock()
	a.gen[day]++
	a.mu.Unlock()
	if err := a.cache.Delete(ctx, day); err != nil {
		a.logger.Warn("stats cache invalidation failed", zap.String("day", day), zap.Error(err))
	}
}
