package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every rejection that happens before a store is touched.
var ErrValidation = errors.New("validation failed")

var (
	ErrCustomerRequired   = fmt.Errorf("%w: credit sale requires a customer", ErrValidation)
	ErrEmptyBill          = fmt.Errorf("%w: bill has no items", ErrValidation)
	ErrInvalidQty         = fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	ErrInvalidAmount      = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidDiscount    = fmt.Errorf("%w: discount out of range", ErrValidation)
	ErrInvalidPaymentMode = fmt.Errorf("%w: unsupported payment mode", ErrValidation)
	ErrInvalidCashSplit   = fmt.Errorf("%w: cash amount must be between 0 and the grand total", ErrValidation)
	ErrInvalidProduct     = fmt.Errorf("%w: invalid product", ErrValidation)
	ErrInvalidCustomer    = fmt.Errorf("%w: invalid customer", ErrValidation)
	ErrDuplicateBill      = fmt.Errorf("%w: bill id already recorded", ErrValidation)
	ErrDepositExceedsCash = fmt.Errorf("%w: deposited to bank exceeds actual cash", ErrValidation)
	ErrNegativeCash       = fmt.Errorf("%w: cash figures must not be negative", ErrValidation)
	ErrInvalidDay         = fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	ErrManualOnly         = fmt.Errorf("%w: figures can only be edited in manual mode", ErrValidation)
)

var (
	ErrDayClosed         = errors.New("day already closed")
	ErrInvalidTransition = errors.New("invalid bill status transition")
)
