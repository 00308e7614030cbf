package billing

import (
	"context"
	"errors"
	"time"

	"kirana/backend/internal/domain"
	"kirana/backend/internal/store"
)

// errNoChange aborts an Update without writing.
var errNoChange = errors.New("no change")

// Ledger is the append-only bill collection. Bills are never deleted; the
// only mutation after Record is cancellation.
type Ledger struct {
	bills *store.Collection[domain.Bill]
}

func NewLedger(kv store.KV) *Ledger {
	return &Ledger{bills: store.NewCollection[domain.Bill](kv, store.KeyBills)}
}

func (l *Ledger) Record(ctx context.Context, bill domain.Bill) error {
	if len(bill.Items) == 0 {
		return domain.ErrEmptyBill
	}
	return l.bills.Update(ctx, func(bills []domain.Bill) ([]domain.Bill, error) {
		for _, b := range bills {
			if b.ID == bill.ID {
				return nil, domain.ErrDuplicateBill
			}
		}
		return append(bills, bill), nil
	})
}

func (l *Ledger) List(ctx context.Context) ([]domain.Bill, error) {
	return l.bills.Load(ctx)
}

func (l *Ledger) FindByID(ctx context.Context, id string) (*domain.Bill, error) {
	bills, err := l.bills.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range bills {
		if bills[i].ID == id {
			b := bills[i]
			return &b, nil
		}
	}
	return nil, store.ErrNotFound
}

// ListByDay returns bills dated on day in loc, cancelled ones included.
func (l *Ledger) ListByDay(ctx context.Context, day string, loc *time.Location) ([]domain.Bill, error) {
	bills, err := l.bills.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Bill, 0, len(bills))
	for _, b := range bills {
		if b.Day(loc) == day {
			out = append(out, b)
		}
	}
	return out, nil
}

// Cancel moves a bill to CANCELLED. changed is false when it already was.
func (l *Ledger) Cancel(ctx context.Context, id string) (*domain.Bill, bool, error) {
	var (
		result  domain.Bill
		changed bool
	)
	err := l.bills.Update(ctx, func(bills []domain.Bill) ([]domain.Bill, error) {
		for i := range bills {
			if bills[i].ID != id {
				continue
			}
			if bills[i].Status == domain.BillCancelled {
				result = bills[i]
				return nil, errNoChange
			}
			if !bills[i].Status.CanTransitionTo(domain.BillCancelled) {
				return nil, domain.ErrInvalidTransition
			}
			bills[i].Status = domain.BillCancelled
			result = bills[i]
			changed = true
			return bills, nil
		}
		return nil, store.ErrNotFound
	})
	if errors.Is(err, errNoChange) {
		return &result, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &result, changed, nil
}
