package orders

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/mitra-storefront/internal/catalog"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/shopspring/decimal"
)

// Composer turns a Request into priced canonical lines.
type Composer struct {
	Catalog catalog.Reader
}

// Compose resolves every requested line against the catalog. Problems on any
// line are collected and returned together as stock.Violations; no lines are
// returned in that case. Repeated (product, sku) pairs stay separate lines.
func (c *Composer) Compose(ctx context.Context, req Request) ([]Line, error) {
	lines, _, err := c.compose(ctx, req)
	return lines, err
}

// compose also returns the unlocked stock snapshot seen while resolving.
func (c *Composer) compose(ctx context.Context, req Request) ([]Line, map[stock.Pool]int, error) {
	items := req.Items()
	if req.Kind() == 0 || len(items) == 0 {
		return nil, nil, stock.Violations{{Kind: stock.KindEmptyOrder, Message: "no items requested"}}
	}
	if req.Kind() == KindBuyNow && len(items) != 1 {
		return nil, nil, fmt.Errorf("buy now request must carry exactly one item, got %d", len(items))
	}

	ids := make([]string, 0, len(items))
	seen := map[string]bool{}
	for _, it := range items {
		if it.ProductID != "" && !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	products, err := c.Catalog.Products(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}

	snapshot := make(map[stock.Pool]int, len(items))
	var bad stock.Violations
	lines := make([]Line, 0, len(items))
	for i, it := range items {
		lineNo := i + 1
		p, ok := products[it.ProductID]
		if !ok {
			bad = append(bad, stock.Violation{
				Kind: stock.KindProductNotFound, Line: lineNo,
				ProductID: it.ProductID, SKUID: it.SKUID,
				Message: "product not found",
			})
			continue
		}
		res, err := catalog.Resolve(p, it.SKUID)
		if err != nil {
			var v stock.Violation
			if !errors.As(err, &v) {
				return nil, nil, err
			}
			v.Line = lineNo
			bad = append(bad, v)
			continue
		}
		if it.Qty <= 0 {
			bad = append(bad, stock.Violation{
				Kind: stock.KindInvalidQuantity, Line: lineNo,
				ProductID: it.ProductID, SKUID: it.SKUID, Requested: it.Qty,
				Message: "quantity must be greater than zero",
			})
			continue
		}
		snapshot[res.Pool] = res.Available
		lines = append(lines, Line{
			LineNo:      lineNo,
			ProductID:   p.ID,
			SKUID:       res.Pool.SKUID,
			ProductName: p.Name,
			SKUName:     res.SKUName,
			Qty:         it.Qty,
			UnitPrice:   res.UnitPrice,
			Subtotal:    res.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))),
		})
	}
	if len(bad) > 0 {
		return nil, nil, bad
	}
	return lines, snapshot, nil
}
