package catalog

import (
	"context"
	"github.com/shopspring/decimal"
)

// Product is the read model of a vendor product. Stock is only meaningful
// when HasVariations is false; otherwise each SKU carries its own stock.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	SellPrice     decimal.Decimal `json:"sell_price"`
	Stock         int             `json:"stock"`
	HasVariations bool            `json:"has_variations"`
	SKUs          []SKU           `json:"skus,omitempty"`
}

type SKU struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	ImageURL  string          `json:"image_url,omitempty"`
	Active    bool            `json:"active"` // false once soft-deleted
}

// Reader is the catalog read model the core consumes. Missing ids are simply
// absent from the returned map.
type Reader interface {
	Products(ctx context.Context, ids []string) (map[string]Product, error)
}
