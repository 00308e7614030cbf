package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"kirana/backend/internal/domain"
	"kirana/backend/internal/xid"
)

var hundred = decimal.NewFromInt(100)

type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalGST      decimal.Decimal `json:"total_gst"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

type LineTax struct {
	Gross   decimal.Decimal
	Taxable decimal.Decimal
	Tax     decimal.Decimal
}

// TaxForLine splits the line gross into taxable value and GST. For inclusive
// prices taxable+tax equals the gross exactly.
func TaxForLine(item domain.CartItem) LineTax {
	gross := item.SellingPrice.Mul(decimal.NewFromInt(int64(item.Qty)))
	rate := item.GSTPercent.Div(hundred)
	if item.GSTIncluded {
		taxable := gross.Div(decimal.NewFromInt(1).Add(rate)).Round(2)
		return LineTax{Gross: gross, Taxable: taxable, Tax: gross.Sub(taxable)}
	}
	return LineTax{Gross: gross, Taxable: gross, Tax: gross.Mul(rate).Round(2)}
}

// ComputeTotals sums per-line taxable value, GST and discount. The grand
// total is rounded to a whole currency unit.
func ComputeTotals(items []domain.CartItem) Totals {
	t := Totals{
		Subtotal:      decimal.Zero,
		TotalGST:      decimal.Zero,
		TotalDiscount: decimal.Zero,
	}
	for _, item := range items {
		line := TaxForLine(item)
		t.Subtotal = t.Subtotal.Add(line.Taxable)
		t.TotalGST = t.TotalGST.Add(line.Tax)
		t.TotalDiscount = t.TotalDiscount.Add(item.Discount)
	}
	t.GrandTotal = t.Subtotal.Add(t.TotalGST).Sub(t.TotalDiscount).Round(0)
	return t
}

type NewBillParams struct {
	ID          string
	Items       []domain.CartItem
	PaymentMode domain.PaymentMode
	CustomerID  string
	CashAmount  *decimal.Decimal
	At          time.Time
}

// NewBill validates a cart and produces a bill ready to be recorded.
func NewBill(p NewBillParams) (domain.Bill, error) {
	if len(p.Items) == 0 {
		return domain.Bill{}, domain.ErrEmptyBill
	}
	if !p.PaymentMode.IsValid() {
		return domain.Bill{}, domain.ErrInvalidPaymentMode
	}
	if p.PaymentMode == domain.PaymentCredit && p.CustomerID == "" {
		return domain.Bill{}, domain.ErrCustomerRequired
	}
	for _, item := range p.Items {
		if item.Qty < 1 {
			return domain.Bill{}, domain.ErrInvalidQty
		}
		if item.Discount.IsNegative() || item.Discount.GreaterThan(TaxForLine(item).Gross) {
			return domain.Bill{}, domain.ErrInvalidDiscount
		}
	}

	totals := ComputeTotals(p.Items)
	bill := domain.Bill{
		ID:            p.ID,
		Date:          p.At,
		Timestamp:     p.At.UnixMilli(),
		Items:         append([]domain.CartItem(nil), p.Items...),
		Subtotal:      totals.Subtotal,
		TotalGST:      totals.TotalGST,
		TotalDiscount: totals.TotalDiscount,
		GrandTotal:    totals.GrandTotal,
		PaymentMode:   p.PaymentMode,
		CustomerID:    p.CustomerID,
		Status:        domain.StatusFor(p.PaymentMode),
	}
	if bill.ID == "" {
		bill.ID = xid.New("bill")
	}

	if p.PaymentMode == domain.PaymentMixed {
		if p.CashAmount == nil || p.CashAmount.IsNegative() || p.CashAmount.GreaterThan(totals.GrandTotal) {
			return domain.Bill{}, domain.ErrInvalidCashSplit
		}
		cash := *p.CashAmount
		upi := totals.GrandTotal.Sub(cash)
		bill.CashAmount = &cash
		bill.UPIAmount = &upi
	}
	return bill, nil
}
