package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"kirana/backend/internal/billing"
	"kirana/backend/internal/cache"
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
	"kirana/backend/internal/store/memory"
	"kirana/backend/internal/store/storetest"
)

type harness struct {
	kv          *storetest.Flaky
	clock       *clock.Fixed
	inventory   *inventory.Store
	customers   *customer.Store
	bills       *billing.Ledger
	khata       *khata.Ledger
	journal     *journal.Journal
	coordinator *Coordinator
	service     *Service
	logs        *observer.ObservedLogs
}

type harnessOptions struct {
	stock    inventory.StockPolicy
	reversal khata.ReversalPolicy
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	if opts.stock == "" {
		opts.stock = inventory.StockClamp
	}
	if opts.reversal == "" {
		opts.reversal = khata.ReverseDelete
	}

	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)
	kv := storetest.NewFlaky(memory.New())
	clk := clock.NewFixed(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	m := metrics.New()

	h := &harness{kv: kv, clock: clk, logs: logs}
	h.inventory = inventory.New(kv, opts.stock, logger)
	h.customers = customer.New(kv)
	h.bills = billing.NewLedger(kv)
	h.khata = khata.New(kv, h.customers, opts.reversal)
	h.journal = journal.New(kv, clk)
	h.coordinator = NewCoordinator(CoordinatorDeps{
		Bills:     h.bills,
		Inventory: h.inventory,
		Customers: h.customers,
		Khata:     h.khata,
		Journal:   h.journal,
		Clock:     clk,
		Metrics:   m,
		Logger:    logger,
	})
	agg := stats.New(h.bills, h.khata, stats.Options{Cache: cache.NewMemoryStatsCache(), TTL: time.Minute, Location: time.UTC, Logger: logger})
	h.service = New(Deps{
		Inventory:   h.inventory,
		Customers:   h.customers,
		Bills:       h.bills,
		Khata:       h.khata,
		Stats:       agg,
		Cashbook:    cashbook.New(kv, agg, clk, logger),
		Coordinator: h.coordinator,
		Clock:       clk,
		Metrics:     m,
		Logger:      logger,
	})
	return h
}

func (h *harness) product(t *testing.T, name string, price int64, stock int) domain.Product {
	t.Helper()
	p, err := h.inventory.Upsert(context.Background(), domain.Product{
		Name:         name,
		Code:         name,
		SellingPrice: decimal.NewFromInt(price),
		Stock:        stock,
		GSTPercent:   decimal.Zero,
	})
	require.NoError(t, err)
	return *p
}

func (h *harness) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := h.inventory.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func creditBill(t *testing.T, p domain.Product, qty int, customerID string, at time.Time) domain.Bill {
	t.Helper()
	bill, err := billing.NewBill(billing.NewBillParams{
		Items:       []domain.CartItem{domain.SnapshotItem(p, qty, decimal.Zero)},
		PaymentMode: domain.PaymentCredit,
		CustomerID:  customerID,
		At:          at,
	})
	require.NoError(t, err)
	return bill
}

func TestCreditSaleAndCancelRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{})
	p := h.product(t, "Atta", 250, 10)
	asha := &domain.Customer{Name: "Asha", Mobile: "9800000001"}

	bill := creditBill(t, p, 2, "placeholder", h.clock.Now())
	bill.CustomerID = ""
	recorded, err := h.coordinator.RecordSale(ctx, bill, asha)
	require.NoError(t, err)
	require.NotEmpty(t, recorded.CustomerID)
	assert.Equal(t, 8, h.stock(t, p.ID))

	entries, err := h.khata.Entries(ctx, recorded.CustomerID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.KhataDebit, entries[0].Type)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(500)))

	balance, err := h.khata.BalanceFor(ctx, recorded.CustomerID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(500)))

	saved, err := h.customers.Get(ctx, recorded.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", saved.Name)

	cancelled, err := h.coordinator.CancelSale(ctx, recorded.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BillCancelled, cancelled.Status)
	assert.Equal(t, 10, h.stock(t, p.ID))

	balance, err = h.khata.BalanceFor(ctx, recorded.CustomerID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	pending, err := h.journal.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{reversal: khata.ReverseOffset})
	p := h.product(t, "Oil", 100, 5)

	bill := creditBill(t, p, 3, "c1", h.clock.Now())
	_, err := h.coordinator.RecordSale(ctx, bill, nil)
	require.NoError(t, err)

	_, err = h.coordinator.CancelSale(ctx, bill.ID)
	require.NoError(t, err)
	again, err := h.coordinator.CancelSale(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BillCancelled, again.Status)

	assert.Equal(t, 5, h.stock(t, p.ID), "second cancel must not restock again")
	entries, err := h.khata.Entries(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, entries, 2, "one debit and one offset")
}

func TestCancelUnknownBillWarns(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	bill, err := h.coordinator.CancelSale(context.Background(), "bill-ghost")
	require.NoError(t, err)
	assert.Nil(t, bill)
	assert.Equal(t, 1, h.logs.FilterMessage("cancel for unknown bill ignored").Len())
}

func TestCancelRejectsPartialStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{})
	p := h.product(t, "Salt", 20, 5)
	require.NoError(t, h.bills.Record(ctx, domain.Bill{
		ID:          "bill-partial",
		Date:        h.clock.Now(),
		Items:       []domain.CartItem{domain.SnapshotItem(p, 1, decimal.Zero)},
		PaymentMode: domain.PaymentCash,
		Status:      domain.BillPartial,
	}))

	_, err := h.coordinator.CancelSale(ctx, "bill-partial")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 5, h.stock(t, p.ID))
}

func TestRecordSaleValidationTouchesNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{})
	p := h.product(t, "Sugar", 40, 5)

	bill := creditBill(t, p, 1, "c1", h.clock.Now())
	bill.CustomerID = ""
	_, err := h.coordinator.RecordSale(ctx, bill, nil)
	assert.ErrorIs(t, err, domain.ErrCustomerRequired)

	bills, err := h.bills.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, bills)
	assert.Equal(t, 5, h.stock(t, p.ID))
}

func TestRejectPolicyPrechecksStock(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{stock: inventory.StockReject})
	p := h.product(t, "Ghee", 500, 1)

	bill := creditBill(t, p, 2, "c1", h.clock.Now())
	_, err := h.coordinator.RecordSale(ctx, bill, nil)
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	bills, err := h.bills.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, bills)
}

func TestClampPolicyKeepsSaleAvailable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{})
	p := h.product(t, "Tea", 120, 1)

	bill := creditBill(t, p, 3, "c1", h.clock.Now())
	_, err := h.coordinator.RecordSale(ctx, bill, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, h.stock(t, p.ID))
	assert.Equal(t, 1, h.logs.FilterMessage("stock clamped at zero").Len())
}

func TestFirstStepFailureIsPlainError(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{})
	p := h.product(t, "Rice", 60, 5)
	h.kv.FailSet(store.KeyBills)

	_, err := h.coordinator.RecordSale(ctx, creditBill(t, p, 1, "c1", h.clock.Now()), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.NotErrorIs(t, err, store.ErrPartialCommit)

	pending, err := h.journal.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPartialCommitThenResume(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{})
	p := h.product(t, "Dal", 90, 10)
	h.kv.FailSet(store.KeyKhata)

	bill := creditBill(t, p, 2, "c1", h.clock.Now())
	_, err := h.coordinator.RecordSale(ctx, bill, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrPartialCommit)
	assert.ErrorIs(t, err, store.ErrUnavailable)

	var partial *PartialCommitError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, journal.OpRecordSale, partial.Op)
	assert.Equal(t, []string{"bill", "stock:0"}, partial.Completed)
	assert.Equal(t, "khata", partial.Failed)

	pending, err := h.coordinator.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.NotEmpty(t, pending[0].LastError)

	h.kv.Heal()
	resumed, err := h.coordinator.Resume(ctx, partial.IntentID)
	require.NoError(t, err)
	assert.Equal(t, bill.ID, resumed.ID)

	assert.Equal(t, 8, h.stock(t, p.ID), "resume must not repeat completed steps")
	balance, err := h.khata.BalanceFor(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(180)))

	pending, err = h.coordinator.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRecoverReplaysPendingCancel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{})
	p := h.product(t, "Soap", 30, 4)

	bill := creditBill(t, p, 1, "c1", h.clock.Now())
	_, err := h.coordinator.RecordSale(ctx, bill, nil)
	require.NoError(t, err)

	// The cancel step lands, restock does not.
	h.kv.FailSet(store.KeyProducts)
	_, err = h.coordinator.CancelSale(ctx, bill.ID)
	require.ErrorIs(t, err, store.ErrPartialCommit)

	h.kv.Heal()
	report, err := h.coordinator.Recover(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Resumed, 1)
	assert.Empty(t, report.Failed)

	assert.Equal(t, 4, h.stock(t, p.ID))
	balance, err := h.khata.BalanceFor(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestStockConservation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{})
	p := h.product(t, "Biscuit", 10, 7)

	for qty := 1; qty <= 7; qty++ {
		bill, err := billing.NewBill(billing.NewBillParams{
			Items:       []domain.CartItem{domain.SnapshotItem(p, qty, decimal.Zero)},
			PaymentMode: domain.PaymentCash,
			At:          h.clock.Now(),
		})
		require.NoError(t, err)
		_, err = h.coordinator.RecordSale(ctx, bill, nil)
		require.NoError(t, err)
		assert.Equal(t, 7-qty, h.stock(t, p.ID))
		_, err = h.coordinator.CancelSale(ctx, bill.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, h.stock(t, p.ID))
	}
}
