package cashbook

import (
	"context"

	"github.com/shopspring/decimal"

	"kirana/backend/internal/domain"
)

// Draft is an open day being edited before close. A Draft is not safe for
// concurrent use.
type Draft struct {
	book   *Book
	entry  domain.LedgerEntry
	mode   Mode
	closed bool
}

func (d *Draft) Mode() Mode {
	return d.mode
}

func (d *Draft) Closed() bool {
	return d.closed
}

func (d *Draft) Entry() domain.LedgerEntry {
	e := d.entry
	if !d.closed {
		e.IsAutoMode = d.mode == ModeAuto
		e.Recompute()
	}
	return e
}

// pull replaces opening and sales figures with live values.
func (d *Draft) pull(ctx context.Context) error {
	base, err := d.book.Get(ctx, d.entry.Date)
	if err != nil {
		return err
	}
	stats, err := d.book.stats.FreshStatsFor(ctx, d.entry.Date)
	if err != nil {
		return err
	}
	d.entry.OpeningBalance = base.OpeningBalance
	d.entry.GrossSales = stats.GrossSales
	d.entry.OnlineSales = stats.OnlineSales
	d.entry.CreditSales = stats.CreditSales
	return nil
}

// SwitchToManual keeps the last auto figures as the starting point for edits.
func (d *Draft) SwitchToManual() error {
	if d.closed {
		return domain.ErrDayClosed
	}
	d.mode = ModeManual
	return nil
}

// SwitchToAuto discards manual figure edits and re-pulls live values.
func (d *Draft) SwitchToAuto(ctx context.Context) error {
	if d.closed {
		return domain.ErrDayClosed
	}
	if err := d.pull(ctx); err != nil {
		return err
	}
	d.mode = ModeAuto
	return nil
}

// Refresh re-derives the figures in auto mode and does nothing in manual mode.
func (d *Draft) Refresh(ctx context.Context) error {
	if d.closed {
		return domain.ErrDayClosed
	}
	if d.mode != ModeAuto {
		return nil
	}
	return d.pull(ctx)
}

func (d *Draft) Override(f Figures) error {
	if d.closed {
		return domain.ErrDayClosed
	}
	if d.mode != ModeManual {
		return domain.ErrManualOnly
	}
	if err := f.validate(); err != nil {
		return err
	}
	f.apply(&d.entry)
	return nil
}

func (d *Draft) SetExpenses(amount decimal.Decimal) error {
	if d.closed {
		return domain.ErrDayClosed
	}
	if amount.IsNegative() {
		return domain.ErrNegativeCash
	}
	d.entry.Expenses = amount
	return nil
}

func (d *Draft) Close(ctx context.Context, actual decimal.Decimal, deposited decimal.Decimal, notes string) (domain.LedgerEntry, error) {
	if d.closed {
		return domain.LedgerEntry{}, domain.ErrDayClosed
	}
	closed, err := d.book.Close(ctx, CloseRequest{
		Day:        d.entry.Date,
		ActualCash: actual,
		Deposited:  deposited,
		Expenses:   d.entry.Expenses,
		Notes:      notes,
		Mode:       d.mode,
		Figures:    figuresOf(d.entry),
	})
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	d.entry = closed
	d.closed = true
	return closed, nil
}
