package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayLayout is the calendar-day key used by bills, khata scans and the cash ledger.
const DayLayout = "2006-01-02"

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Code          string          `json:"code"`
	Category      string          `json:"category"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	Stock         int             `json:"stock"`
	StockUnit     string          `json:"stock_unit"`
	GSTPercent    decimal.Decimal `json:"gst_percent"`
	GSTIncluded   bool            `json:"gst_included"`
}

type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Mobile  string `json:"mobile"`
	Address string `json:"address,omitempty"`
	GST     string `json:"gst,omitempty"`
}

// CartItem freezes the product fields a bill depends on at sale time.
type CartItem struct {
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	Code         string          `json:"code"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	GSTPercent   decimal.Decimal `json:"gst_percent"`
	GSTIncluded  bool            `json:"gst_included"`
	StockUnit    string          `json:"stock_unit"`
	Qty          int             `json:"qty"`
	Discount     decimal.Decimal `json:"discount"`
}

func SnapshotItem(p Product, qty int, discount decimal.Decimal) CartItem {
	return CartItem{
		ProductID:    p.ID,
		Name:         p.Name,
		Code:         p.Code,
		SellingPrice: p.SellingPrice,
		GSTPercent:   p.GSTPercent,
		GSTIncluded:  p.GSTIncluded,
		StockUnit:    p.StockUnit,
		Qty:          qty,
		Discount:     discount,
	}
}

type PaymentMode string

const (
	PaymentCash   PaymentMode = "CASH"
	PaymentUPI    PaymentMode = "UPI"
	PaymentCredit PaymentMode = "CREDIT"
	PaymentMixed  PaymentMode = "MIXED"
)

func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentCash, PaymentUPI, PaymentCredit, PaymentMixed:
		return true
	}
	return false
}

type Bill struct {
	ID            string           `json:"id"`
	Date          time.Time        `json:"date"`
	Timestamp     int64            `json:"timestamp"`
	Items         []CartItem       `json:"items"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	TotalGST      decimal.Decimal  `json:"total_gst"`
	TotalDiscount decimal.Decimal  `json:"total_discount"`
	GrandTotal    decimal.Decimal  `json:"grand_total"`
	PaymentMode   PaymentMode      `json:"payment_mode"`
	CustomerID    string           `json:"customer_id,omitempty"`
	CashAmount    *decimal.Decimal `json:"cash_amount,omitempty"`
	UPIAmount     *decimal.Decimal `json:"upi_amount,omitempty"`
	Status        BillStatus       `json:"status"`
}

// IsCredit reports whether the bill opened a khata debit when it was recorded.
func (b Bill) IsCredit() bool {
	return b.PaymentMode == PaymentCredit
}

// Day returns the calendar day of the bill in loc.
func (b Bill) Day(loc *time.Location) string {
	return DayOf(b.Date, loc)
}

type KhataEntryType string

const (
	KhataDebit  KhataEntryType = "DEBIT"
	KhataCredit KhataEntryType = "CREDIT"
)

type KhataEntry struct {
	ID          string          `json:"id"`
	BillID      string          `json:"bill_id,omitempty"`
	CustomerID  string          `json:"customer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        KhataEntryType  `json:"type"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Reversal    bool            `json:"reversal,omitempty"`
}

// Signed returns the entry amount as it contributes to the customer's balance.
func (e KhataEntry) Signed() decimal.Decimal {
	if e.Type == KhataCredit {
		return e.Amount.Neg()
	}
	return e.Amount
}

type CustomerBalance struct {
	CustomerID  string          `json:"customer_id"`
	Name        string          `json:"name,omitempty"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Balance     decimal.Decimal `json:"balance"`
	EntryCount  int             `json:"entry_count"`
}

type LedgerEntry struct {
	Date            string          `json:"date"`
	OpeningBalance  decimal.Decimal `json:"opening_balance"`
	GrossSales      decimal.Decimal `json:"gross_sales"`
	OnlineSales     decimal.Decimal `json:"online_sales"`
	CreditSales     decimal.Decimal `json:"credit_sales"`
	Expenses        decimal.Decimal `json:"expenses"`
	ExpectedCash    decimal.Decimal `json:"expected_cash"`
	ActualCash      decimal.Decimal `json:"actual_cash"`
	DepositedToBank decimal.Decimal `json:"deposited_to_bank"`
	ClosingBalance  decimal.Decimal `json:"closing_balance"`
	Difference      decimal.Decimal `json:"difference"`
	IsClosed        bool            `json:"is_closed"`
	IsAutoMode      bool            `json:"is_auto_mode"`
	Notes           string          `json:"notes,omitempty"`
	ClosedAt        *time.Time      `json:"closed_at,omitempty"`
}

// Recompute derives the expected, closing and difference figures from the inputs.
func (e *LedgerEntry) Recompute() {
	deductions := e.OnlineSales.Add(e.CreditSales).Add(e.Expenses)
	e.ExpectedCash = e.OpeningBalance.Add(e.GrossSales).Sub(deductions)
	e.ClosingBalance = e.ActualCash.Sub(e.DepositedToBank)
	e.Difference = e.ActualCash.Sub(e.ExpectedCash)
}

type DailyStats struct {
	Date           string          `json:"date"`
	GrossSales     decimal.Decimal `json:"gross_sales"`
	OnlineSales    decimal.Decimal `json:"online_sales"`
	CreditSales    decimal.Decimal `json:"credit_sales"`
	BillCount      int             `json:"bill_count"`
	CancelledCount int             `json:"cancelled_count"`
}

type LiveCash struct {
	Date           string          `json:"date"`
	CashSales      decimal.Decimal `json:"cash_sales"`
	CreditReceived decimal.Decimal `json:"credit_received"`
}

// DayOf formats t as a calendar day in loc. A nil loc keeps t's own zone.
func DayOf(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DayLayout)
}

// ParseDay validates a YYYY-MM-DD key and returns it normalized.
func ParseDay(raw string) (string, error) {
	parsed, err := time.Parse(DayLayout, raw)
	if err != nil {
		return "", ErrInvalidDay
	}
	return parsed.Format(DayLayout), nil
}
