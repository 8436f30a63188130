// Package events publishes domain events in the envelope format.
package events

import (
	"context"
	kafkax "github.com/ariefcatur/mitra-storefront/internal/kafka"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/ariefcatur/mitra-storefront/internal/sales"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"log"
)

// Emitter wraps payloads in an Envelope and hands them to the publisher.
// A nil Emitter, or one without a publisher, drops every event.
type Emitter struct {
	Pub     kafkax.Publisher
	Service string
}

func (e *Emitter) emit(ctx context.Context, topic, eventType, key string, payload any) {
	if e == nil || e.Pub == nil {
		return
	}
	env, err := orders.NewEnvelope(eventType, e.Service, traceID(ctx), key, payload)
	if err != nil {
		log.Printf("[events] build %s for %s: %v", eventType, key, err)
		return
	}
	e.Pub.Publish(topic, orders.PartitionKey(key), kafkax.MustMarshal(env), kafkax.EventHeaders(eventType, env.EventVersion)...)
}

func (e *Emitter) OrderCreated(ctx context.Context, o *orders.Order) {
	e.emit(ctx, orders.TopicOrderCreated, orders.EventOrderCreated, o.ID, orders.CreatedPayload(o))
}

func (e *Emitter) OrderStatusChanged(ctx context.Context, o *orders.Order) {
	e.emit(ctx, orders.TopicOrderStatusChanged, orders.EventOrderStatusChanged, o.ID, orders.OrderStatusChangedPayload{
		OrderID:       o.ID,
		Status:        o.Status,
		StockRestored: o.StockRestored,
	})
}

func (e *Emitter) LedgerUpdated(ctx context.Context, a sales.Assignment, kind sales.MovementKind, qty int) {
	e.emit(ctx, orders.TopicSalesLedgerUpdated, orders.EventSalesLedgerUpdated, a.ID, orders.SalesLedgerUpdatedPayload{
		AssignmentID: a.ID,
		AgentID:      a.AgentID,
		Pool:         a.Pool(),
		Movement:     string(kind),
		Quantity:     qty,
		Borrowed:     a.Borrowed,
		Sold:         a.Sold,
		Returned:     a.Returned,
		Current:      a.Current(),
	})
}

// traceID prefers the active span, then the chi request id.
func traceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return middleware.GetReqID(ctx)
}
