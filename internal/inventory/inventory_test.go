package inventory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"kirana/backend/internal/domain"
	"kirana/backend/internal/store"
	"kirana/backend/internal/store/memory"
	"kirana/backend/internal/store/storetest"
)

func rice() domain.Product {
	return domain.Product{
		Name:         "Rice 1kg",
		Code:         "RICE1",
		Category:     "grocery",
		SellingPrice: decimal.NewFromInt(100),
		Stock:        10,
		StockUnit:    "pcs",
		GSTPercent:   decimal.NewFromInt(5),
	}
}

func newStore(t *testing.T, policy StockPolicy) (*Store, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	return New(memory.New(), policy, zap.New(core)), logs
}

func TestUpsertAssignsIDAndReplaces(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, StockClamp)

	created, err := s.Upsert(ctx, rice())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	created.SellingPrice = decimal.NewFromInt(110)
	_, err = s.Upsert(ctx, *created)
	require.NoError(t, err)

	products, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, products[0].SellingPrice.Equal(decimal.NewFromInt(110)))
}

func TestUpsertValidation(t *testing.T) {
	s, _ := newStore(t, StockClamp)
	bad := rice()
	bad.GSTPercent = decimal.NewFromInt(120)
	_, err := s.Upsert(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrValidation)

	bad = rice()
	bad.Name = "  "
	_, err = s.Upsert(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)
}

func TestFindByCodeIgnoresCase(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, StockClamp)
	created, err := s.Upsert(ctx, rice())
	require.NoError(t, err)

	found, err := s.FindByCode(ctx, "rice1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = s.FindByCode(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, StockClamp)
	created, err := s.Upsert(ctx, rice())
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, "nope"))
	require.NoError(t, s.Remove(ctx, created.ID))
	products, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestImportMatchesByCode(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, StockClamp)
	existing, err := s.Upsert(ctx, rice())
	require.NoError(t, err)

	updated := rice()
	updated.Stock = 40
	dal := domain.Product{Name: "Dal", Code: "DAL1", SellingPrice: decimal.NewFromInt(90)}

	result, err := s.Import(ctx, []domain.Product{updated, dal})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 1, Updated: 1}, result)

	got, err := s.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Stock)

	products, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestImportRejectsInvalidRow(t *testing.T) {
	s, _ := newStore(t, StockClamp)
	_, err := s.Import(context.Background(), []domain.Product{rice(), {Code: "X"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "row 2")
}

func TestAdjustStockPolicies(t *testing.T) {
	tests := []struct {
		policy    StockPolicy
		delta     int
		wantAfter int
		clamped   bool
		wantErr   error
	}{
		{StockClamp, -3, 7, false, nil},
		{StockClamp, -15, 0, true, nil},
		{StockAllowNegative, -15, -5, false, nil},
		{StockReject, -15, 10, false, store.ErrInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			ctx := context.Background()
			s, _ := newStore(t, tt.policy)
			p, err := s.Upsert(ctx, rice())
			require.NoError(t, err)

			change, err := s.AdjustStock(ctx, p.ID, tt.delta)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.True(t, change.Found)
				assert.Equal(t, 10, change.Before)
				assert.Equal(t, tt.clamped, change.Clamped)
			}

			got, err := s.Get(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAfter, got.Stock)
		})
	}
}

func TestAdjustStockUnknownProductWarns(t *testing.T) {
	s, logs := newStore(t, StockClamp)
	change, err := s.AdjustStock(context.Background(), "ghost", -1)
	require.NoError(t, err)
	assert.False(t, change.Found)
	assert.Equal(t, 1, logs.FilterMessage("stock adjustment for unknown product ignored").Len())
}

func TestCheckStock(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, StockReject)
	p, err := s.Upsert(ctx, rice())
	require.NoError(t, err)

	require.NoError(t, s.CheckStock(ctx, map[string]int{p.ID: 10, "ghost": 3}))
	assert.ErrorIs(t, s.CheckStock(ctx, map[string]int{p.ID: 11}), store.ErrInsufficientStock)
}

func TestListSurfacesUnavailable(t *testing.T) {
	kv := storetest.NewFlaky(memory.New())
	kv.FailGet(store.KeyProducts)
	s := New(kv, StockClamp, zap.NewNop())

	products, err := s.List(context.Background())
	assert.Nil(t, products)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}
