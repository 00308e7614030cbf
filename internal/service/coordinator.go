package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"kirana/backend/internal/billing"
	"kirana/backend/internal/clock"
	"kirana/backend/internal/customer"
	"kirana/backend/internal/domain"
	"kirana/backend/internal/inventory"
	"kirana/backend/internal/journal"
	"kirana/backend/internal/khata"
	"kirana/backend/internal/metrics"
	"kirana/backend/internal/store"
	"kirana/backend/internal/xid"
)

const (
	stepBill     = "bill"
	stepStock    = "stock:"
	stepCustomer = "customer"
	stepKhata    = "khata"
	stepCancel   = "cancel"
	stepRestock  = "restock:"
)

// PartialCommitError reports a compound operation that applied some of its
// steps. The journal intent keeps the remainder for Resume.
type PartialCommitError struct {
	IntentID  string
	Op        journal.Op
	Ref       string
	Completed []string
	Failed    string
	Err       error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("%s %s: step %q failed after [%s] (intent %s): %v",
		e.Op, e.Ref, e.Failed, strings.Join(e.Completed, ", "), e.IntentID, e.Err)
}

func (e *PartialCommitError) Unwrap() []error {
	return []error{store.ErrPartialCommit, e.Err}
}

type salePayload struct {
	Bill     domain.Bill      `json:"bill"`
	Customer *domain.Customer `json:"customer,omitempty"`
}

type cancelPayload struct {
	Bill domain.Bill `json:"bill"`
}

// Coordinator applies sales and cancellations across the bill, stock,
// customer and khata collections as one serialized, journaled unit.
type Coordinator struct {
	mu sync.Mutex

	bills     *billing.Ledger
	inventory *inventory.Store
	customers *customer.Store
	khata     *khata.Ledger
	journal   *journal.Journal
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

type CoordinatorDeps struct {
	Bills     *billing.Ledger
	Inventory *inventory.Store
	Customers *customer.Store
	Khata     *khata.Ledger
	Journal   *journal.Journal
	Clock     clock.Clock
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

func NewCoordinator(d CoordinatorDeps) *Coordinator {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Coordinator{
		bills:     d.Bills,
		inventory: d.Inventory,
		customers: d.Customers,
		khata:     d.Khata,
		journal:   d.Journal,
		clock:     d.Clock,
		metrics:   d.Metrics,
		logger:    d.Logger.Named("coordinator"),
	}
}

// RecordSale appends the bill, takes its lines out of stock, upserts the
// customer when one is given and books the khata debit for credit sales.
func (c *Coordinator) RecordSale(ctx context.Context, bill domain.Bill, cust *domain.Customer) (*domain.Bill, error) {
	if len(bill.Items) == 0 {
		return nil, domain.ErrEmptyBill
	}
	if cust != nil {
		copied := *cust
		if strings.TrimSpace(copied.Name) == "" {
			return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidCustomer)
		}
		if copied.ID == "" {
			copied.ID = xid.New("cus")
		}
		if bill.CustomerID == "" {
			bill.CustomerID = copied.ID
		}
		cust = &copied
	}
	if bill.IsCredit() && bill.CustomerID == "" {
		return nil, domain.ErrCustomerRequired
	}
	if bill.IsCredit() && !bill.GrandTotal.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inventory.Policy() == inventory.StockReject {
		if err := c.inventory.CheckStock(ctx, stockNeeds(bill)); err != nil {
			return nil, err
		}
	}

	steps := []string{stepBill}
	for i := range bill.Items {
		steps = append(steps, stepStock+strconv.Itoa(i))
	}
	if cust != nil {
		steps = append(steps, stepCustomer)
	}
	if bill.IsCredit() {
		steps = append(steps, stepKhata)
	}

	payload := salePayload{Bill: bill, Customer: cust}
	intent, err := c.journal.Begin(ctx, journal.OpRecordSale, bill.ID, steps, payload)
	if err != nil {
		return nil, err
	}
	if err := c.run(ctx, intent, c.saleStep(payload, false)); err != nil {
		return nil, err
	}
	return &bill, nil
}

// CancelSale cancels a bill, restocks its lines and reverses its khata
// debit. A missing bill is logged and ignored; a cancelled one is returned
// unchanged.
func (c *Coordinator) CancelSale(ctx context.Context, billID string) (*domain.Bill, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bill, err := c.bills.FindByID(ctx, billID)
	if errors.Is(err, store.ErrNotFound) {
		c.logger.Warn("cancel for unknown bill ignored", zap.String("bill_id", billID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if bill.Status == domain.BillCancelled {
		return bill, nil
	}
	if !bill.Status.CanTransitionTo(domain.BillCancelled) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, bill.Status, domain.BillCancelled)
	}

	steps := []string{stepCancel}
	for i := range bill.Items {
		steps = append(steps, stepRestock+strconv.Itoa(i))
	}
	if bill.IsCredit() {
		steps = append(steps, stepKhata)
	}

	payload := cancelPayload{Bill: *bill}
	intent, err := c.journal.Begin(ctx, journal.OpCancelSale, bill.ID, steps, payload)
	if err != nil {
		return nil, err
	}
	if err := c.run(ctx, intent, c.cancelStep(payload)); err != nil {
		return nil, err
	}
	bill.Status = domain.BillCancelled
	return bill, nil
}

func (c *Coordinator) Pending(ctx context.Context) ([]journal.Intent, error) {
	return c.journal.Pending(ctx)
}

// Resume applies the remaining steps of a pending intent and returns the bill it concerns.
func (c *Coordinator) Resume(ctx context.Context, intentID string) (*domain.Bill, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	intent, err := c.journal.Get(ctx, intentID)
	if err != nil {
		return nil, err
	}
	return c.resume(ctx, *intent)
}

func (c *Coordinator) resume(ctx context.Context, intent journal.Intent) (*domain.Bill, error) {
	switch intent.Op {
	case journal.OpRecordSale:
		var payload salePayload
		if err := json.Unmarshal(intent.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: intent %s payload: %v", store.ErrCorrupt, intent.ID, err)
		}
		if err := c.run(ctx, intent, c.saleStep(payload, true)); err != nil {
			return nil, err
		}
		return &payload.Bill, nil
	case journal.OpCancelSale:
		var payload cancelPayload
		if err := json.Unmarshal(intent.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: intent %s payload: %v", store.ErrCorrupt, intent.ID, err)
		}
		if err := c.run(ctx, intent, c.cancelStep(payload)); err != nil {
			return nil, err
		}
		bill := payload.Bill
		bill.Status = domain.BillCancelled
		return &bill, nil
	}
	return nil, fmt.Errorf("%w: intent %s has unknown op %q", store.ErrCorrupt, intent.ID, intent.Op)
}

type RecoveryReport struct {
	Resumed []string          `json:"resumed"`
	Failed  map[string]string `json:"failed"`
}

// Recover resumes every pending intent, oldest first. Individual failures
// are collected in the report rather than stopping the scan.
func (c *Coordinator) Recover(ctx context.Context) (RecoveryReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := RecoveryReport{Resumed: []string{}, Failed: map[string]string{}}
	pending, err := c.journal.Pending(ctx)
	if err != nil {
		return report, err
	}
	for _, intent := range pending {
		if _, err := c.resume(ctx, intent); err != nil {
			c.logger.Warn("intent recovery failed",
				zap.String("intent_id", intent.ID), zap.String("op", string(intent.Op)), zap.Error(err))
			report.Failed[intent.ID] = err.Error()
			continue
		}
		report.Resumed = append(report.Resumed, intent.ID)
	}
	if len(pending) > 0 {
		c.logger.Info("journal recovery finished",
			zap.Int("resumed", len(report.Resumed)), zap.Int("failed", len(report.Failed)))
	}
	return report, nil
}

type stepFunc func(ctx context.Context, step string) error

// run applies the intent's pending steps in order. A failure before any step
// has taken effect discards the intent and returns the plain error.
func (c *Coordinator) run(ctx context.Context, intent journal.Intent, apply stepFunc) error {
	completed := intent.Completed()
	for _, step := range intent.Remaining() {
		if err := apply(ctx, step); err != nil {
			return c.fail(ctx, intent, completed, step, err)
		}
		completed = append(completed, step)
		if err := c.journal.MarkStep(ctx, intent.ID, step); err != nil {
			return c.fail(ctx, intent, completed, "journal:"+step, err)
		}
	}

	if err := c.journal.Complete(ctx, intent.ID); err != nil {
		c.logger.Warn("complete intent failed", zap.String("intent_id", intent.ID), zap.Error(err))
	}
	return nil
}

func (c *Coordinator) fail(ctx context.Context, intent journal.Intent, completed []string, step string, err error) error {
	if len(completed) == 0 {
		if discardErr := c.journal.Discard(ctx, intent.ID); discardErr != nil {
			c.logger.Warn("discard intent failed", zap.String("intent_id", intent.ID), zap.Error(discardErr))
		}
		return err
	}

	if recordErr := c.journal.RecordFailure(ctx, intent.ID, err); recordErr != nil {
		c.logger.Warn("record intent failure failed", zap.String("intent_id", intent.ID), zap.Error(recordErr))
	}
	c.metrics.PartialCommit(string(intent.Op))
	c.logger.Error("partial commit",
		zap.String("intent_id", intent.ID),
		zap.String("op", string(intent.Op)),
		zap.String("ref", intent.Ref),
		zap.String("failed_step", step),
		zap.Strings("completed", completed),
		zap.Error(err))
	return &PartialCommitError{
		IntentID:  intent.ID,
		Op:        intent.Op,
		Ref:       intent.Ref,
		Completed: completed,
		Failed:    step,
		Err:       err,
	}
}

func (c *Coordinator) saleStep(p salePayload, resuming bool) stepFunc {
	return func(ctx context.Context, step string) error {
		switch {
		case step == stepBill:
			err := c.bills.Record(ctx, p.Bill)
			if resuming && errors.Is(err, domain.ErrDuplicateBill) {
				return nil
			}
			return err
		case strings.HasPrefix(step, stepStock):
			item, err := lineFor(p.Bill, strings.TrimPrefix(step, stepStock))
			if err != nil {
				return err
			}
			return c.adjust(ctx, item.ProductID, -item.Qty)
		case step == stepCustomer:
			if p.Customer == nil {
				return nil
			}
			_, err := c.customers.Upsert(ctx, *p.Customer)
			return err
		case step == stepKhata:
			_, err := c.khata.AddSaleDebit(ctx, p.Bill.ID, p.Bill.CustomerID, p.Bill.GrandTotal, p.Bill.Date)
			return err
		}
		return fmt.Errorf("%w: unknown sale step %q", store.ErrCorrupt, step)
	}
}

func (c *Coordinator) cancelStep(p cancelPayload) stepFunc {
	return func(ctx context.Context, step string) error {
		switch {
		case step == stepCancel:
			_, _, err := c.bills.Cancel(ctx, p.Bill.ID)
			return err
		case strings.HasPrefix(step, stepRestock):
			item, err := lineFor(p.Bill, strings.TrimPrefix(step, stepRestock))
			if err != nil {
				return err
			}
			return c.adjust(ctx, item.ProductID, item.Qty)
		case step == stepKhata:
			_, err := c.khata.ReverseForBill(ctx, p.Bill.ID, c.clock.Now())
			return err
		}
		return fmt.Errorf("%w: unknown cancel step %q", store.ErrCorrupt, step)
	}
}

func (c *Coordinator) adjust(ctx context.Context, productID string, delta int) error {
	change, err := c.inventory.AdjustStock(ctx, productID, delta)
	if err != nil {
		return err
	}
	if change.Clamped {
		c.metrics.StockClamped()
	}
	return nil
}

func lineFor(bill domain.Bill, index string) (domain.CartItem, error) {
	i, err := strconv.Atoi(index)
	if err != nil || i < 0 || i >= len(bill.Items) {
		return domain.CartItem{}, fmt.Errorf("%w: bill %s has no line %q", store.ErrCorrupt, bill.ID, index)
	}
	return bill.Items[i], nil
}

func stockNeeds(bill domain.Bill) map[string]int {
	needs := make(map[string]int, len(bill.Items))
	for _, item := range bill.Items {
		needs[item.ProductID] += item.Qty
	}
	return needs
}
