package events

import (
	"context"
	"encoding/json"
	kafkax "github.com/ariefcatur/mitra-storefront/internal/kafka"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/ariefcatur/mitra-storefront/internal/sales"
	"github.com/segmentio/kafka-go"
	"sync"
	"testing"
)

type published struct {
	topic   string
	key     string
	env     orders.Envelope
	headers []kafka.Header
}

type recorder struct {
	mu   sync.Mutex
	msgs []published
}

func (r *recorder) Publish(topic string, key, value []byte, headers ...kafka.Header) {
	var env orders.Envelope
	_ = json.Unmarshal(value, &env)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, published{topic: topic, key: string(key), env: env, headers: headers})
}

func TestEmitter_OrderEvents(t *testing.T) {
	rec := &recorder{}
	e := &Emitter{Pub: rec, Service: "storefront-api"}
	o := &orders.Order{ID: "o-1", Status: orders.StatusCancelled, StockRestored: true,
		Lines: []orders.Line{{ProductID: "Q", SKUID: "A", Qty: 2}}}

	e.OrderCreated(context.Background(), o)
	e.OrderStatusChanged(context.Background(), o)

	if len(rec.msgs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(rec.msgs))
	}
	created := rec.msgs[0]
	if created.topic != orders.TopicOrderCreated || created.key != "o-1" || created.env.EventType != orders.EventOrderCreated {
		t.Fatalf("unexpected created event %+v", created)
	}
	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](created.env.Payload)
	if err != nil || len(p.Items) != 1 || p.Items[0].SKUID != "A" {
		t.Fatalf("payload %+v err=%v", p, err)
	}
	changed, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](rec.msgs[1].env.Payload)
	if err != nil || changed.Status != orders.StatusCancelled || !changed.StockRestored {
		t.Fatalf("status payload %+v err=%v", changed, err)
	}
	if string(rec.msgs[1].headers[0].Value) != orders.EventOrderStatusChanged {
		t.Fatalf("missing event type header")
	}
}

func TestEmitter_LedgerUpdated(t *testing.T) {
	rec := &recorder{}
	e := &Emitter{Pub: rec}
	a := sales.Assignment{ID: "as-1", AgentID: "agent-1", ProductID: "P", Borrowed: 20, Sold: 5, Returned: 15}
	e.LedgerUpdated(context.Background(), a, sales.MovementReturn, 15)

	p, err := kafkax.UnwrapPayload[orders.SalesLedgerUpdatedPayload](rec.msgs[0].env.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if p.Current != 0 || p.Movement != "return" || rec.msgs[0].topic != orders.TopicSalesLedgerUpdated {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestEmitter_NilDropsEvents(t *testing.T) {
	var e *Emitter
	e.OrderCreated(context.Background(), &orders.Order{ID: "o-1"})
	(&Emitter{}).OrderCreated(context.Background(), &orders.Order{ID: "o-1"})
}
