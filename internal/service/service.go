package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kirana/backend/internal/billing"
	"kirana/backend/internal/cashbook"
	"kirana/backend/internal/clock"
	"kirana/backend/internal/customer"
	"kirana/backend/internal/domain"
	"kirana/backend/internal/inventory"
	"kirana/backend/internal/journal"
	"kirana/backend/internal/khata"
	"kirana/backend/internal/metrics"
	"kirana/backend/internal/stats"
	"kirana/backend/internal/store"
	"kirana/backend/internal/xid"
)

// Service is the application facade used by the HTTP layer.
type Service struct {
	inventory   *inventory.Store
	customers   *customer.Store
	bills       *billing.Ledger
	khata       *khata.Ledger
	stats       *stats.Aggregator
	cashbook    *cashbook.Book
	coordinator *Coordinator
	clock       clock.Clock
	loc         *time.Location
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

type Deps struct {
	Inventory   *inventory.Store
	Customers   *customer.Store
	Bills       *billing.Ledger
	Khata       *khata.Ledger
	Stats       *stats.Aggregator
	Cashbook    *cashbook.Book
	Coordinator *Coordinator
	Clock       clock.Clock
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		inventory:   d.Inventory,
		customers:   d.Customers,
		bills:       d.Bills,
		khata:       d.Khata,
		stats:       d.Stats,
		cashbook:    d.Cashbook,
		coordinator: d.Coordinator,
		clock:       d.Clock,
		loc:         d.Stats.Location(),
		metrics:     d.Metrics,
		logger:      d.Logger.Named("service"),
	}
}

// Today is the current calendar day in the store's time zone.
func (s *Service) Today() string {
	return domain.DayOf(s.clock.Now(), s.loc)
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.inventory.List(ctx)
}

func (s *Service) UpsertProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	return s.inventory.Upsert(ctx, p)
}

func (s *Service) ImportProducts(ctx context.Context, rows []domain.Product) (inventory.ImportResult, error) {
	result, err := s.inventory.Import(ctx, rows)
	if err != nil {
		return inventory.ImportResult{}, err
	}
	s.logger.Info("products imported", zap.Int("created", result.Created), zap.Int("updated", result.Updated))
	return result, nil
}

func (s *Service) RemoveProduct(ctx context.Context, id string) error {
	return s.inventory.Remove(ctx, id)
}

// AdjustStock applies a manual stock correction outside of a sale.
func (s *Service) AdjustStock(ctx context.Context, id string, req StockAdjustRequest) (inventory.StockChange, error) {
	if req.Delta == 0 {
		return inventory.StockChange{}, fmt.Errorf("%w: delta must not be zero", domain.ErrValidation)
	}
	change, err := s.inventory.AdjustStock(ctx, id, req.Delta)
	if err != nil {
		return inventory.StockChange{}, err
	}
	if !change.Found {
		return change, store.ErrNotFound
	}
	if change.Clamped {
		s.metrics.StockClamped()
	}
	return change, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.customers.List(ctx)
}

func (s *Service) UpsertCustomer(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	return s.customers.Upsert(ctx, c)
}

func (s *Service) CustomerKhata(ctx context.Context, customerID string) (KhataStatement, error) {
	c, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return KhataStatement{}, err
	}
	entries, err := s.khata.Entries(ctx, customerID)
	if err != nil {
		return KhataStatement{}, err
	}
	balance, err := s.khata.BalanceFor(ctx, customerID)
	if err != nil {
		return KhataStatement{}, err
	}
	return KhataStatement{Customer: *c, Entries: entries, Balance: balance}, nil
}

func (s *Service) RecordPayment(ctx context.Context, req PaymentRequest) (*domain.KhataEntry, error) {
	if _, err := s.customers.Get(ctx, req.CustomerID); err != nil {
		return nil, err
	}
	return s.khata.AddPayment(ctx, req.CustomerID, req.Amount, s.clock.Now())
}

func (s *Service) AddManualDebit(ctx context.Context, req ManualDebitRequest) (*domain.KhataEntry, error) {
	return s.khata.AddManualDebit(ctx, req.Customer, req.Amount, s.clock.Now(), req.Description)
}

func (s *Service) KhataBalances(ctx context.Context) ([]domain.CustomerBalance, error) {
	return s.khata.Balances(ctx)
}

// CreateSale prices the cart from current product records and records it.
func (s *Service) CreateSale(ctx context.Context, req SaleRequest) (*domain.Bill, error) {
	if len(req.Items) == 0 {
		return nil, domain.ErrEmptyBill
	}

	items := make([]domain.CartItem, 0, len(req.Items))
	for _, line := range req.Items {
		p, err := s.inventory.Get(ctx, line.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown product %s", domain.ErrInvalidProduct, line.ProductID)
		}
		if err != nil {
			return nil, err
		}
		items = append(items, domain.SnapshotItem(*p, line.Qty, line.Discount))
	}

	customerID := req.CustomerID
	var cust *domain.Customer
	if req.Customer != nil {
		copied := *req.Customer
		if copied.ID == "" {
			copied.ID = customerID
		}
		if copied.ID == "" {
			copied.ID = xid.New("cus")
		}
		customerID = copied.ID
		cust = &copied
	} else if customerID != "" {
		if _, err := s.customers.Get(ctx, customerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown customer %s", domain.ErrInvalidCustomer, customerID)
			}
			return nil, err
		}
	}

	bill, err := billing.NewBill(billing.NewBillParams{
		ID:          req.ID,
		Items:       items,
		PaymentMode: req.PaymentMode,
		CustomerID:  customerID,
		CashAmount:  req.CashAmount,
		At:          s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	recorded, err := s.coordinator.RecordSale(ctx, bill, cust)
	s.stats.Invalidate(ctx, bill.Day(s.loc))
	if err != nil {
		return nil, err
	}
	s.metrics.SaleRecorded(string(recorded.PaymentMode))
	return recorded, nil
}

// ListBills returns all bills, or only those of day when it is set.
func (s *Service) ListBills(ctx context.Context, day string) ([]domain.Bill, error) {
	if day == "" {
		return s.bills.List(ctx)
	}
	day, err := domain.ParseDay(day)
	if err != nil {
		return nil, err
	}
	return s.bills.ListByDay(ctx, day, s.loc)
}

func (s *Service) GetBill(ctx context.Context, id string) (*domain.Bill, error) {
	return s.bills.FindByID(ctx, id)
}

// CancelSale returns store.ErrNotFound for an unknown bill so callers can
// tell it apart from a successful cancel.
func (s *Service) CancelSale(ctx context.Context, id string) (*domain.Bill, error) {
	before, err := s.bills.FindByID(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	bill, err := s.coordinator.CancelSale(ctx, id)
	if bill != nil {
		s.stats.Invalidate(ctx, bill.Day(s.loc))
	}
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, store.ErrNotFound
	}
	if before != nil && before.Status != domain.BillCancelled {
		s.metrics.SaleCancelled()
	}
	return bill, nil
}

func (s *Service) DailyStats(ctx context.Context, day string) (domain.DailyStats, error) {
	if day == "" {
		day = s.Today()
	}
	day, err := domain.ParseDay(day)
	if err != nil {
		return domain.DailyStats{}, err
	}
	return s.stats.StatsFor(ctx, day)
}

func (s *Service) LiveCash(ctx context.Context) (domain.LiveCash, error) {
	return s.stats.LiveCash(ctx, s.Today())
}

// LedgerDraft opens day in the requested mode for display before close.
func (s *Service) LedgerDraft(ctx context.Context, day string, mode cashbook.Mode) (LedgerView, error) {
	if mode == "" {
		mode = cashbook.ModeAuto
	}
	if !mode.IsValid() {
		return LedgerView{}, fmt.Errorf("%w: mode must be auto or manual", domain.ErrValidation)
	}
	draft, err := s.cashbook.Open(ctx, day)
	if err != nil {
		return LedgerView{}, err
	}
	if !draft.Closed() && mode == cashbook.ModeManual {
		if err := draft.SwitchToManual(); err != nil {
			return LedgerView{}, err
		}
	}
	return LedgerView{Entry: draft.Entry(), Mode: draft.Mode(), Closed: draft.Closed()}, nil
}

func (s *Service) CloseDay(ctx context.Context, day string, req CloseDayRequest) (domain.LedgerEntry, error) {
	mode := req.Mode
	if mode == "" {
		mode = cashbook.ModeAuto
	}
	closeReq := cashbook.CloseRequest{
		Day:        day,
		ActualCash: req.ActualCash,
		Deposited:  req.DepositedToBank,
		Expenses:   req.Expenses,
		Notes:      req.Notes,
		Mode:       mode,
	}
	if mode == cashbook.ModeManual {
		if req.Figures == nil {
			return domain.LedgerEntry{}, fmt.Errorf("%w: manual close requires figures", domain.ErrValidation)
		}
		closeReq.Figures = *req.Figures
	}

	entry, err := s.cashbook.Close(ctx, closeReq)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	s.metrics.DayClosed(string(mode))
	return entry, nil
}

func (s *Service) LedgerHistory(ctx context.Context, from string, to string) ([]domain.LedgerEntry, error) {
	for _, bound := range []string{from, to} {
		if bound == "" {
			continue
		}
		if _, err := domain.ParseDay(bound); err != nil {
			return nil, err
		}
	}
	return s.cashbook.History(ctx, from, to)
}

func (s *Service) PendingIntents(ctx context.Context) ([]journal.Intent, error) {
	return s.coordinator.Pending(ctx)
}

func (s *Service) ResumeIntent(ctx context.Context, id string) (*domain.Bill, error) {
	bill, err := s.coordinator.Resume(ctx, id)
	if bill != nil {
		s.stats.Invalidate(ctx, bill.Day(s.loc))
	}
	return bill, err
}

// Recover replays intents left by an interrupted process.
func (s *Service) Recover(ctx context.Context) (RecoveryReport, error) {
	pending, err := s.coordinator.Pending(ctx)
	if err != nil {
		return RecoveryReport{}, err
	}
	report, err := s.coordinator.Recover(ctx)
	if err != nil {
		return report, err
	}
	for _, intent := range pending {
		if bill, err := s.bills.FindByID(ctx, intent.Ref); err == nil {
			s.stats.Invalidate(ctx, bill.Day(s.loc))
		}
	}
	return report, nil
}
