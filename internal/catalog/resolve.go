package catalog

import (
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/shopspring/decimal"
)

// Resolution is the effective price and stock pool for one requested line.
type Resolution struct {
	Pool      stock.Pool
	UnitPrice decimal.Decimal
	Available int
	SKUName   string
}

// Resolve picks the pool a line draws from. It never mutates p.
//
// A product with variations only sells through an active SKU of its own; a
// product without variations never accepts a SKU id.
func Resolve(p Product, skuID string) (Resolution, error) {
	if skuID == "" {
		if p.HasVariations {
			return Resolution{}, stock.Violation{
				Kind:      stock.KindVariantRequired,
				ProductID: p.ID,
				Message:   "product has variations, a sku must be chosen",
			}
		}
		return Resolution{
			Pool:      stock.Pool{ProductID: p.ID},
			UnitPrice: p.SellPrice,
			Available: p.Stock,
		}, nil
	}

	invalid := stock.Violation{Kind: stock.KindInvalidVariant, ProductID: p.ID, SKUID: skuID}
	if !p.HasVariations {
		invalid.Message = "product has no variations"
		return Resolution{}, invalid
	}
	for _, s := range p.SKUs {
		if s.ID != skuID {
			continue
		}
		if s.ProductID != "" && s.ProductID != p.ID {
			break
		}
		if !s.Active {
			invalid.Message = "sku is no longer available"
			return Resolution{}, invalid
		}
		return Resolution{
			Pool:      stock.Pool{ProductID: p.ID, SKUID: s.ID},
			UnitPrice: s.Price,
			Available: s.Stock,
			SKUName:   s.Name,
		}, nil
	}
	invalid.Message = "sku does not belong to product"
	return Resolution{}, invalid
}
