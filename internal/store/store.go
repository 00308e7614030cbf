package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnavailable       = errors.New("storage unavailable")
	ErrCorrupt           = errors.New("stored payload is corrupt")
	ErrPartialCommit     = errors.New("compound operation partially committed")
)

// Collection keys. Each one holds a JSON array of records.
const (
	KeyProducts  = "products"
	KeyBills     = "bills"
	KeyCustomers = "customers"
	KeyKhata     = "khata"
	KeyLedger    = "ledger"
	KeyJournal   = "journal"
)

// KV is the keyed persistence primitive every collection is stored on.
// Get reports found=false with a nil error when the key was never written.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}
