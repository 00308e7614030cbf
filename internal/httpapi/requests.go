package httpapi

import (
	"github.com/shopspring/decimal"

	"kirana/backend/internal/domain"
)

type productRequest struct {
	ID            string          `json:"id" validate:"omitempty,max=64"`
	Name          string          `json:"name" validate:"required,max=120"`
	Code          string          `json:"code" validate:"omitempty,max=64"`
	Category      string          `json:"category" validate:"omitempty,max=60"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	Stock         int             `json:"stock"`
	StockUnit     string          `json:"stock_unit" validate:"omitempty,max=20"`
	GSTPercent    decimal.Decimal `json:"gst_percent"`
	GSTIncluded   bool            `json:"gst_included"`
}

func (p productRequest) toProduct() domain.Product {
	return domain.Product{
		ID:            p.ID,
		Name:          p.Name,
		Code:          p.Code,
		Category:      p.Category,
		PurchasePrice: p.PurchasePrice,
		SellingPrice:  p.SellingPrice,
		Stock:         p.Stock,
		StockUnit:     p.StockUnit,
		GSTPercent:    p.GSTPercent,
		GSTIncluded:   p.GSTIncluded,
	}
}

type importRequest struct {
	Products []productRequest `json:"products" validate:"required,min=1,dive"`
}

func (r importRequest) toProducts() []domain.Product {
	out := make([]domain.Product, 0, len(r.Products))
	for _, p := range r.Products {
		out = append(out, p.toProduct())
	}
	return out
}

type customerRequest struct {
	ID      string `json:"id" validate:"omitempty,max=64"`
	Name    string `json:"name" validate:"required,max=120"`
	Mobile  string `json:"mobile" validate:"omitempty,max=20"`
	Address string `json:"address" validate:"omitempty,max=200"`
	GST     string `json:"gst" validate:"omitempty,max=20"`
}

func (c customerRequest) toCustomer() domain.Customer {
	return domain.Customer{ID: c.ID, Name: c.Name, Mobile: c.Mobile, Address: c.Address, GST: c.GST}
}
