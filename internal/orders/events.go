package orders

import (
	"encoding/json"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"time"
)

const (
	EventOrderCreated         = "OrderCreated"
	EventOrderStatusChanged   = "OrderStatusChanged"
	EventOrderStatusRequested = "OrderStatusRequested"
	EventSalesLedgerUpdated   = "SalesLedgerUpdated"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order or assignment id
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	SKUID     string `json:"sku_id,omitempty"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID       string          `json:"order_id"`
	ExternalID    string          `json:"external_id,omitempty"`
	BuyerID       string          `json:"buyer_id,omitempty"`
	DestinationID string          `json:"destination_id,omitempty"`
	Items         []ItemQty       `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	Total         decimal.Decimal `json:"total"`
}

type OrderStatusChangedPayload struct {
	OrderID       string `json:"order_id"`
	Status        Status `json:"status"`
	StockRestored bool   `json:"stock_restored"`
}

// OrderStatusRequestedPayload is sent by payment and delivery collaborators
// (e.g. a confirmed transfer moves validation -> paid).
type OrderStatusRequestedPayload struct {
	OrderID string `json:"order_id"`
	Status  Status `json:"status"`
	Note    string `json:"note,omitempty"`
}

type SalesLedgerUpdatedPayload struct {
	AssignmentID string     `json:"assignment_id"`
	AgentID      string     `json:"agent_id"`
	Pool         stock.Pool `json:"pool"`
	Movement     string     `json:"movement"` // assign | sale | return
	Quantity     int        `json:"quantity"`
	Borrowed     int        `json:"borrowed"`
	Sold         int        `json:"sold"`
	Returned     int        `json:"returned"`
	Current      int        `json:"current"`
}

func CreatedPayload(o *Order) OrderCreatedPayload {
	items := make([]ItemQty, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, ItemQty{ProductID: l.ProductID, SKUID: l.SKUID, Qty: l.Qty})
	}
	return OrderCreatedPayload{
		OrderID:       o.ID,
		ExternalID:    o.ExternalID,
		BuyerID:       o.BuyerID,
		DestinationID: o.DestinationID,
		Items:         items,
		Subtotal:      o.Subtotal,
		ShippingCost:  o.ShippingCost,
		Total:         o.Total,
	}
}

// NewEnvelope wraps payload as a version 1 event.
func NewEnvelope(eventType, producer, traceID, correlationID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       b,
	}, nil
}
