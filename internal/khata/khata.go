package khata

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kirana/backend/internal/domain"
	"kirana/backend/internal/store"
	"kirana/backend/internal/xid"
)

// ReversalPolicy selects how a cancelled credit bill is taken off the khata.
type ReversalPolicy string

const (
	// ReverseDelete removes the bill's entries. Payments stay, so a customer
	// who paid part of the bill ends up with a negative balance.
	ReverseDelete ReversalPolicy = "delete"
	// ReverseOffset appends a compensating CREDIT per debit and keeps history.
	ReverseOffset ReversalPolicy = "offset"
)

func (p ReversalPolicy) IsValid() bool {
	return p == ReverseDelete || p == ReverseOffset
}

const paymentDescription = "payment received"

type CustomerUpserter interface {
	Upsert(ctx context.Context, c domain.Customer) (*domain.Customer, error)
}

type CustomerLister interface {
	List(ctx context.Context) ([]domain.Customer, error)
}

type Customers interface {
	CustomerUpserter
	CustomerLister
}

type ReversalResult struct {
	Removed int `json:"removed"`
	Offsets int `json:"offsets"`
}

type Ledger struct {
	entries   *store.Collection[domain.KhataEntry]
	customers Customers
	policy    ReversalPolicy
}

func New(kv store.KV, customers Customers, policy ReversalPolicy) *Ledger {
	if !policy.IsValid() {
		policy = ReverseDelete
	}
	return &Ledger{
		entries:   store.NewCollection[domain.KhataEntry](kv, store.KeyKhata),
		customers: customers,
		policy:    policy,
	}
}

func (l *Ledger) Policy() ReversalPolicy {
	return l.policy
}

// AddSaleDebit books a credit sale. A second call for the same bill returns
// the existing entry so replayed sales are not double charged.
func (l *Ledger) AddSaleDebit(ctx context.Context, billID string, customerID string, amount decimal.Decimal, at time.Time) (*domain.KhataEntry, error) {
	if customerID == "" {
		return nil, domain.ErrCustomerRequired
	}
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	entry := domain.KhataEntry{
		ID:          xid.New("kh"),
		BillID:      billID,
		CustomerID:  customerID,
		Amount:      amount,
		Type:        domain.KhataDebit,
		Date:        at,
		Description: fmt.Sprintf("credit sale, bill %s", billID),
	}
	err := l.entries.Update(ctx, func(entries []domain.KhataEntry) ([]domain.KhataEntry, error) {
		for _, e := range entries {
			if e.BillID == billID && e.Type == domain.KhataDebit {
				entry = e
				return entries, nil
			}
		}
		return append(entries, entry), nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (l *Ledger) AddPayment(ctx context.Context, customerID string, amount decimal.Decimal, at time.Time) (*domain.KhataEntry, error) {
	if customerID == "" {
		return nil, domain.ErrCustomerRequired
	}
	return l.append(ctx, domain.KhataEntry{
		CustomerID:  customerID,
		Amount:      amount,
		Type:        domain.KhataCredit,
		Date:        at,
		Description: paymentDescription,
	})
}

// AddManualDebit upserts the customer and then books a debit against them.
func (l *Ledger) AddManualDebit(ctx context.Context, c domain.Customer, amount decimal.Decimal, at time.Time, description string) (*domain.KhataEntry, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	saved, err := l.customers.Upsert(ctx, c)
	if err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = "manual debit"
	}
	return l.append(ctx, domain.KhataEntry{
		CustomerID:  saved.ID,
		Amount:      amount,
		Type:        domain.KhataDebit,
		Date:        at,
		Description: description,
	})
}

func (l *Ledger) append(ctx context.Context, entry domain.KhataEntry) (*domain.KhataEntry, error) {
	if !entry.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	entry.ID = xid.New("kh")
	err := l.entries.Update(ctx, func(entries []domain.KhataEntry) ([]domain.KhataEntry, error) {
		return append(entries, entry), nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ReverseForBill takes a cancelled bill's debit off the khata under the
// configured policy. Both policies are safe to repeat.
func (l *Ledger) ReverseForBill(ctx context.Context, billID string, at time.Time) (ReversalResult, error) {
	var result ReversalResult
	err := l.entries.Update(ctx, func(entries []domain.KhataEntry) ([]domain.KhataEntry, error) {
		result = ReversalResult{}
		if l.policy == ReverseDelete {
			kept := make([]domain.KhataEntry, 0, len(entries))
			for _, e := range entries {
				if e.BillID == billID {
					result.Removed++
					continue
				}
				kept = append(kept, e)
			}
			return kept, nil
		}

		for _, e := range entries {
			if e.BillID == billID && e.Reversal {
				return entries, nil
			}
		}
		for _, e := range entries {
			if e.BillID != billID || e.Type != domain.KhataDebit {
				continue
			}
			entries = append(entries, domain.KhataEntry{
				ID:          xid.New("kh"),
				BillID:      billID,
				CustomerID:  e.CustomerID,
				Amount:      e.Amount,
				Type:        domain.KhataCredit,
				Date:        at,
				Description: fmt.Sprintf("reversal of bill %s", billID),
				Reversal:    true,
			})
			result.Offsets++
		}
		return entries, nil
	})
	if err != nil {
		return ReversalResult{}, err
	}
	return result, nil
}

// Entries returns the customer's entries in date order.
func (l *Ledger) Entries(ctx context.Context, customerID string) ([]domain.KhataEntry, error) {
	entries, err := l.entries.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.KhataEntry, 0)
	for _, e := range entries {
		if e.CustomerID == customerID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (l *Ledger) BalanceFor(ctx context.Context, customerID string) (decimal.Decimal, error) {
	entries, err := l.Entries(ctx, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	balance := decimal.Zero
	for _, e := range entries {
		balance = balance.Add(e.Signed())
	}
	return balance, nil
}

// Balances summarizes every customer that has at least one entry.
func (l *Ledger) Balances(ctx context.Context) ([]domain.CustomerBalance, error) {
	entries, err := l.entries.Load(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := l.customers.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.Name
	}

	byCustomer := make(map[string]*domain.CustomerBalance)
	for _, e := range entries {
		b, ok := byCustomer[e.CustomerID]
		if !ok {
			b = &domain.CustomerBalance{
				CustomerID:  e.CustomerID,
				Name:        names[e.CustomerID],
				TotalDebit:  decimal.Zero,
				TotalCredit: decimal.Zero,
				Balance:     decimal.Zero,
			}
			byCustomer[e.CustomerID] = b
		}
		if e.Type == domain.KhataDebit {
			b.TotalDebit = b.TotalDebit.Add(e.Amount)
		} else {
			b.TotalCredit = b.TotalCredit.Add(e.Amount)
		}
		b.Balance = b.Balance.Add(e.Signed())
		b.EntryCount++
	}

	out := make([]domain.CustomerBalance, 0, len(byCustomer))
	for _, b := range byCustomer {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

// EntriesOnDay returns every entry dated on day in loc.
func (l *Ledger) EntriesOnDay(ctx context.Context, day string, loc *time.Location) ([]domain.KhataEntry, error) {
	entries, err := l.entries.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.KhataEntry, 0)
	for _, e := range entries {
		if domain.DayOf(e.Date, loc) == day {
			out = append(out, e)
		}
	}
	return out, nil
}
