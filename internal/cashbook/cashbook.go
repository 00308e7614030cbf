package cashbook

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"kirana/backend/internal/clock"
	"kirana/backend/internal/domain"
	"kirana/backend/internal/store"
)

type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

func (m Mode) IsValid() bool {
	return m == ModeAuto || m == ModeManual
}

// StatsSource reports a day's sales straight from the ledger, never from a cache.
type StatsSource interface {
	FreshStatsFor(ctx context.Context, day string) (domain.DailyStats, error)
}

// Figures are the sales inputs of a ledger row that manual mode may override.
type Figures struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	GrossSales     decimal.Decimal `json:"gross_sales"`
	OnlineSales    decimal.Decimal `json:"online_sales"`
	CreditSales    decimal.Decimal `json:"credit_sales"`
}

func figuresOf(e domain.LedgerEntry) Figures {
	return Figures{
		OpeningBalance: e.OpeningBalance,
		GrossSales:     e.GrossSales,
		OnlineSales:    e.OnlineSales,
		CreditSales:    e.CreditSales,
	}
}

func (f Figures) validate() error {
	if f.OpeningBalance.IsNegative() || f.GrossSales.IsNegative() || f.OnlineSales.IsNegative() || f.CreditSales.IsNegative() {
		return domain.ErrNegativeCash
	}
	return nil
}

func (f Figures) apply(e *domain.LedgerEntry) {
	e.OpeningBalance = f.OpeningBalance
	e.GrossSales = f.GrossSales
	e.OnlineSales = f.OnlineSales
	e.CreditSales = f.CreditSales
}

type CloseRequest struct {
	Day        string
	ActualCash decimal.Decimal
	Deposited  decimal.Decimal
	Expenses   decimal.Decimal
	Notes      string
	Mode       Mode
	// Figures is used only in manual mode.
	Figures Figures
}

// Book is the chained daily cash ledger. Each closed day's closing balance
// opens the next day.
type Book struct {
	rows   *store.Collection[domain.LedgerEntry]
	stats  StatsSource
	clock  clock.Clock
	logger *zap.Logger

	mu sync.Mutex
}

func New(kv store.KV, stats StatsSource, clk clock.Clock, logger *zap.Logger) *Book {
	return &Book{
		rows:   store.NewCollection[domain.LedgerEntry](kv, store.KeyLedger),
		stats:  stats,
		clock:  clk,
		logger: logger.Named("cashbook"),
	}
}

// Get returns the stored row for day verbatim, or an unstored row opened
// from the latest stored row before day.
func (b *Book) Get(ctx context.Context, day string) (domain.LedgerEntry, error) {
	day, err := domain.ParseDay(day)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	rows, err := b.rows.Load(ctx)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	return entryFor(rows, day), nil
}

func entryFor(rows []domain.LedgerEntry, day string) domain.LedgerEntry {
	for _, r := range rows {
		if r.Date == day {
			return r
		}
	}
	entry := domain.LedgerEntry{
		Date:            day,
		OpeningBalance:  openingFor(rows, day),
		GrossSales:      decimal.Zero,
		OnlineSales:     decimal.Zero,
		CreditSales:     decimal.Zero,
		Expenses:        decimal.Zero,
		ActualCash:      decimal.Zero,
		DepositedToBank: decimal.Zero,
		IsAutoMode:      true,
	}
	entry.Recompute()
	return entry
}

// openingFor finds the closing balance of the latest row dated before day.
func openingFor(rows []domain.LedgerEntry, day string) decimal.Decimal {
	sorted := append([]domain.LedgerEntry(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date > sorted[j].Date })
	for _, r := range sorted {
		if r.Date < day {
			return r.ClosingBalance
		}
	}
	return decimal.Zero
}

// Open starts a draft for day. Drafts of closed days are read-only.
func (b *Book) Open(ctx context.Context, day string) (*Draft, error) {
	entry, err := b.Get(ctx, day)
	if err != nil {
		return nil, err
	}
	d := &Draft{book: b, entry: entry, mode: ModeAuto, closed: entry.IsClosed}
	if entry.IsClosed {
		if !entry.IsAutoMode {
			d.mode = ModeManual
		}
		return d, nil
	}
	if err := d.pull(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (b *Book) Close(ctx context.Context, req CloseRequest) (domain.LedgerEntry, error) {
	day, err := domain.ParseDay(req.Day)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	if req.Mode == "" {
		req.Mode = ModeAuto
	}
	if !req.Mode.IsValid() {
		return domain.LedgerEntry{}, domain.ErrValidation
	}
	if req.ActualCash.IsNegative() || req.Deposited.IsNegative() || req.Expenses.IsNegative() {
		return domain.LedgerEntry{}, domain.ErrNegativeCash
	}
	if req.Deposited.GreaterThan(req.ActualCash) {
		return domain.LedgerEntry{}, domain.ErrDepositExceedsCash
	}
	if req.Mode == ModeManual {
		if err := req.Figures.validate(); err != nil {
			return domain.LedgerEntry{}, err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var closed domain.LedgerEntry
	err = b.rows.Update(ctx, func(rows []domain.LedgerEntry) ([]domain.LedgerEntry, error) {
		entry := entryFor(rows, day)
		if entry.IsClosed {
			return nil, domain.ErrDayClosed
		}

		if req.Mode == ModeAuto {
			stats, err := b.stats.FreshStatsFor(ctx, day)
			if err != nil {
				return nil, err
			}
			entry.OpeningBalance = openingFor(rows, day)
			entry.GrossSales = stats.GrossSales
			entry.OnlineSales = stats.OnlineSales
			entry.CreditSales = stats.CreditSales
		} else {
			req.Figures.apply(&entry)
		}
		entry.Expenses = req.Expenses
		entry.ActualCash = req.ActualCash
		entry.DepositedToBank = req.Deposited
		entry.Notes = req.Notes
		entry.IsAutoMode = req.Mode == ModeAuto
		entry.IsClosed = true
		closedAt := b.clock.Now()
		entry.ClosedAt = &closedAt
		entry.Recompute()
		closed = entry

		for i := range rows {
			if rows[i].Date == day {
				rows[i] = entry
				return rows, nil
			}
		}
		return append(rows, entry), nil
	})
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	b.logger.Info("day closed",
		zap.String("day", day),
		zap.String("mode", string(req.Mode)),
		zap.String("difference", closed.Difference.String()))
	return closed, nil
}

// History returns stored rows in date order. Empty bounds are open.
func (b *Book) History(ctx context.Context, from string, to string) ([]domain.LedgerEntry, error) {
	rows, err := b.rows.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		if from != "" && r.Date < from {
			continue
		}
		if to != "" && r.Date > to {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
