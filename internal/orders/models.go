package orders

import (
	"github.com/ariefcatur/mitra-storefront/internal/shipping"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/shopspring/decimal"
	"time"
)

// ItemInput is one requested (product, optional sku, quantity) as submitted.
type ItemInput struct {
	ProductID string `json:"product_id"`
	SKUID     string `json:"sku_id,omitempty"`
	Qty       int    `json:"qty"`
}

// Line is a composed order line. UnitPrice is the price seen at composition.
type Line struct {
	LineNo      int             `json:"line_no"`
	ProductID   string          `json:"product_id"`
	SKUID       string          `json:"sku_id,omitempty"`
	ProductName string          `json:"product_name"`
	SKUName     string          `json:"sku_name,omitempty"`
	Qty         int             `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

func (l Line) Pool() stock.Pool { return stock.Pool{ProductID: l.ProductID, SKUID: l.SKUID} }

type Order struct {
	ID            string          `json:"order_id"`
	ExternalID    string          `json:"external_id,omitempty"`
	BuyerID       string          `json:"buyer_id,omitempty"`
	DestinationID string          `json:"destination_id,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Lines         []Line          `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	Total         decimal.Decimal `json:"total"`
	Shipping      shipping.Quote  `json:"shipping"`
	Status        Status          `json:"status"`
	StockRestored bool            `json:"stock_restored"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// StatusChange is one row of an order's status history.
type StatusChange struct {
	OrderID   string    `json:"order_id"`
	From      Status    `json:"from,omitempty"`
	To        Status    `json:"to"`
	Note      string    `json:"note,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// SumLines returns the sum of line subtotals.
func SumLines(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}
