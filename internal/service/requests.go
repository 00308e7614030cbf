package service

import (
	"github.com/shopspring/decimal"

	"kirana/backend/internal/cashbook"
	"kirana/backend/internal/domain"
)

type SaleLine struct {
	ProductID string          `json:"product_id" validate:"required"`
	Qty       int             `json:"qty" validate:"gte=1"`
	Discount  decimal.Decimal `json:"discount"`
}

// SaleRequest is a cart at checkout. Customer creates or updates a customer
// as part of the sale; CustomerID refers to an existing one.
type SaleRequest struct {
	ID          string             `json:"id,omitempty" validate:"omitempty,max=64"`
	Items       []SaleLine         `json:"items" validate:"required,min=1,dive"`
	PaymentMode domain.PaymentMode `json:"payment_mode" validate:"required,oneof=CASH UPI CREDIT MIXED"`
	CashAmount  *decimal.Decimal   `json:"cash_amount,omitempty"`
	CustomerID  string             `json:"customer_id,omitempty"`
	Customer    *domain.Customer   `json:"customer,omitempty"`
}

type PaymentRequest struct {
	CustomerID string          `json:"customer_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
}

type ManualDebitRequest struct {
	Customer    domain.Customer `json:"customer"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=200"`
}

type StockAdjustRequest struct {
	Delta int `json:"delta" validate:"ne=0"`
}

type CloseDayRequest struct {
	ActualCash      decimal.Decimal   `json:"actual_cash"`
	DepositedToBank decimal.Decimal   `json:"deposited_to_bank"`
	Expenses        decimal.Decimal   `json:"expenses"`
	Notes           string            `json:"notes" validate:"max=500"`
	Mode            cashbook.Mode     `json:"mode" validate:"omitempty,oneof=auto manual"`
	Figures         *cashbook.Figures `json:"figures,omitempty"`
}

type LedgerView struct {
	Entry  domain.LedgerEntry `json:"entry"`
	Mode   cashbook.Mode      `json:"mode"`
	Closed bool               `json:"closed"`
}

type KhataStatement struct {
	Customer domain.Customer     `json:"customer"`
	Entries  []domain.KhataEntry `json:"entries"`
	Balance  decimal.Decimal     `json:"balance"`
}
