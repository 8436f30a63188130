// Package lifecycle applies status changes requested over Kafka by the payment
// and delivery collaborators.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ariefcatur/mitra-storefront/internal/events"
	kafkax "github.com/ariefcatur/mitra-storefront/internal/kafka"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/ariefcatur/mitra-storefront/internal/redisx"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	kafkago "github.com/segmentio/kafka-go"
	"log"
)

type Handler struct {
	Orders  *orders.Service
	Cache   *redisx.Cache
	Events  *events.Emitter
	Service string
}

// HandleStatusRequested is installed as the consumer handler. A request the
// order cannot accept is logged and committed. Any other error is returned;
// the consumer retries the same message and commits nothing after it on that
// partition until it succeeds.
func (h *Handler) HandleStatusRequested(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		log.Printf("[lifecycle] drop undecodable message offset=%d: %v", m.Offset, err)
		return nil
	}
	if env.EventType != orders.EventOrderStatusRequested {
		return nil
	}

	first, err := h.Cache.FirstSeen(ctx, h.Service, env.EventID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderStatusRequestedPayload](env.Payload)
	if err != nil {
		log.Printf("[lifecycle] drop event=%s: bad payload: %v", env.EventID, err)
		return nil
	}

	o, changed, err := h.Orders.Transition(ctx, p.OrderID, p.Status, p.Note)
	switch {
	case err == nil:
	case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, orders.ErrNotFound):
		log.Printf("[lifecycle] reject event=%s order=%s to=%s: %v", env.EventID, p.OrderID, p.Status, err)
		return nil
	default:
		if _, ok := stock.AsViolations(err); ok {
			log.Printf("[lifecycle] reject event=%s order=%s: %v", env.EventID, p.OrderID, err)
			return nil
		}
		h.Cache.Release(ctx, h.Service, env.EventID)
		return err
	}
	if changed {
		h.Cache.DropStatus(ctx, o.ID)
		h.Events.OrderStatusChanged(ctx, o)
	}
	return nil
}
