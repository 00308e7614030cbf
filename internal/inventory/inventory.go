package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"kirana/backend/internal/domain"
	"kirana/backend/internal/store"
	"kirana/backend/internal/xid"
)

// StockPolicy decides what happens when an adjustment would take stock below zero.
type StockPolicy string

const (
	StockClamp         StockPolicy = "clamp"
	StockAllowNegative StockPolicy = "allow_negative"
	StockReject        StockPolicy = "reject"
)

func (p StockPolicy) IsValid() bool {
	switch p {
	case StockClamp, StockAllowNegative, StockReject:
		return true
	}
	return false
}

type StockChange struct {
	ProductID string `json:"product_id"`
	Before    int    `json:"before"`
	After     int    `json:"after"`
	Clamped   bool   `json:"clamped"`
	Found     bool   `json:"found"`
}

type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

var hundred = decimal.NewFromInt(100)

type Store struct {
	products *store.Collection[domain.Product]
	policy   StockPolicy
	logger   *zap.Logger
}

func New(kv store.KV, policy StockPolicy, logger *zap.Logger) *Store {
	if !policy.IsValid() {
		policy = StockClamp
	}
	return &Store{
		products: store.NewCollection[domain.Product](kv, store.KeyProducts),
		policy:   policy,
		logger:   logger.Named("inventory"),
	}
}

func (s *Store) Policy() StockPolicy {
	return s.policy
}

func (s *Store) List(ctx context.Context) ([]domain.Product, error) {
	return s.products.Load(ctx)
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Product, error) {
	products, err := s.products.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			p := products[i]
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

// FindByCode returns the first product whose code matches, ignoring case.
func (s *Store) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, store.ErrNotFound
	}
	products, err := s.products.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if strings.EqualFold(products[i].Code, code) {
			p := products[i]
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(&product); err != nil {
		return nil, err
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}

	err := s.products.Update(ctx, func(products []domain.Product) ([]domain.Product, error) {
		for i := range products {
			if products[i].ID == product.ID {
				products[i] = product
				return products, nil
			}
		}
		return append(products, product), nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Remove drops the product with id. Removing an unknown id is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.products.Update(ctx, func(products []domain.Product) ([]domain.Product, error) {
		kept := products[:0]
		for _, p := range products {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		return kept, nil
	})
}

// Import upserts parsed rows in one write. Rows without an id are matched to
// an existing product by code before being appended as new.
func (s *Store) Import(ctx context.Context, rows []domain.Product) (ImportResult, error) {
	for i := range rows {
		if err := validateProduct(&rows[i]); err != nil {
			return ImportResult{}, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	var result ImportResult
	err := s.products.Update(ctx, func(products []domain.Product) ([]domain.Product, error) {
		result = ImportResult{}
		for _, row := range rows {
			idx := -1
			for i := range products {
				if row.ID != "" && products[i].ID == row.ID {
					idx = i
					break
				}
				if row.ID == "" && row.Code != "" && strings.EqualFold(products[i].Code, row.Code) {
					idx = i
					break
				}
			}
			if idx >= 0 {
				row.ID = products[idx].ID
				products[idx] = row
				result.Updated++
				continue
			}
			if row.ID == "" {
				row.ID = xid.New("prd")
			}
			products = append(products, row)
			result.Created++
		}
		return products, nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return result, nil
}

// CheckStock reports ErrInsufficientStock when qty exceeds the stock on hand.
// Unknown products pass; their adjustment is a logged no-op.
func (s *Store) CheckStock(ctx context.Context, needs map[string]int) error {
	products, err := s.products.Load(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		if qty, ok := needs[p.ID]; ok && p.Stock < qty {
			return fmt.Errorf("%w: %s has %d, needs %d", store.ErrInsufficientStock, p.Name, p.Stock, qty)
		}
	}
	return nil
}

// AdjustStock adds delta to the product's stock under the configured policy.
func (s *Store) AdjustStock(ctx context.Context, id string, delta int) (StockChange, error) {
	change := StockChange{ProductID: id}
	err := s.products.Update(ctx, func(products []domain.Product) ([]domain.Product, error) {
		for i := range products {
			if products[i].ID != id {
				continue
			}
			change.Found = true
			change.Before = products[i].Stock
			next := change.Before + delta
			if next < 0 {
				switch s.policy {
				case StockReject:
					return nil, fmt.Errorf("%w: %s has %d, delta %d", store.ErrInsufficientStock, products[i].Name, change.Before, delta)
				case StockClamp:
					next = 0
					change.Clamped = true
				}
			}
			products[i].Stock = next
			change.After = next
			return products, nil
		}
		return products, nil
	})
	if err != nil {
		return StockChange{ProductID: id}, err
	}

	if !change.Found {
		s.logger.Warn("stock adjustment for unknown product ignored",
			zap.String("product_id", id), zap.Int("delta", delta))
	} else if change.Clamped {
		s.logger.Warn("stock clamped at zero",
			zap.String("product_id", id), zap.Int("before", change.Before), zap.Int("delta", delta))
	}
	return change, nil
}

func validateProduct(p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Code = strings.TrimSpace(p.Code)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidProduct)
	}
	if p.GSTPercent.IsNegative() || p.GSTPercent.GreaterThan(hundred) {
		return fmt.Errorf("%w: gst_percent must be between 0 and 100", domain.ErrInvalidProduct)
	}
	if p.SellingPrice.IsNegative() || p.PurchasePrice.IsNegative() {
		return fmt.Errorf("%w: prices must not be negative", domain.ErrInvalidProduct)
	}
	return nil
}
