package customer

import (
	"context"
	"fmt"
	"strings"

	"kirana/backend/internal/domain"
	"kirana/backend/internal/store"
	"kirana/backend/internal/xid"
)

type Store struct {
	customers *store.Collection[domain.Customer]
}

func New(kv store.KV) *Store {
	return &Store{customers: store.NewCollection[domain.Customer](kv, store.KeyCustomers)}
}

func (s *Store) List(ctx context.Context) ([]domain.Customer, error) {
	return s.customers.Load(ctx)
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Customer, error) {
	customers, err := s.customers.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range customers {
		if customers[i].ID == id {
			c := customers[i]
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindByMobile(ctx context.Context, mobile string) (*domain.Customer, error) {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return nil, store.ErrNotFound
	}
	customers, err := s.customers.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range customers {
		if customers[i].Mobile == mobile {
			c := customers[i]
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

// Upsert replaces the customer with the same id or appends a new one.
func (s *Store) Upsert(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Mobile = strings.TrimSpace(c.Mobile)
	if c.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidCustomer)
	}
	if c.ID == "" {
		c.ID = xid.New("cus")
	}

	err := s.customers.Update(ctx, func(customers []domain.Customer) ([]domain.Customer, error) {
		for i := range customers {
			if customers[i].ID == c.ID {
				customers[i] = c
				return customers, nil
			}
		}
		return append(customers, c), nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}
