package orders

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/mitra-storefront/internal/shipping"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"log"
	"time"
)

var tracer = otel.Tracer("github.com/ariefcatur/mitra-storefront/internal/orders")

// PlaceInput is a checkout request from a buyer.
type PlaceInput struct {
	ExternalID    string
	BuyerID       string
	DestinationID string
	Notes         string
	Request       Request
}

// Service composes, validates and persists orders and drives their lifecycle.
type Service struct {
	Store    Store
	Composer *Composer
	Now      func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		Store:    store,
		Composer: &Composer{Catalog: store},
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Quote prices a request without writing anything. Stock shortages seen in the
// unlocked catalog read are reported the same way Place would report them.
func (s *Service) Quote(ctx context.Context, in PlaceInput) (*Order, error) {
	lines, snapshot, err := s.Composer.compose(ctx, in.Request)
	if err != nil {
		return nil, err
	}
	if err := Validate(lines, snapshot); err != nil {
		return nil, err
	}
	q, err := s.priceShipping(ctx, in.DestinationID)
	if err != nil {
		return nil, err
	}
	return s.draft(in, lines, q), nil
}

// Place creates the order and takes its stock in one transaction. It returns
// existed=true when ExternalID was already used; the stored order is returned
// unchanged in that case.
func (s *Service) Place(ctx context.Context, in PlaceInput) (o *Order, existed bool, err error) {
	ctx, span := tracer.Start(ctx, "orders.Place", trace.WithAttributes(
		attribute.String("order.request_kind", in.Request.Kind().String()),
		attribute.Int("order.items", len(in.Request.Items())),
	))
	defer func() { endSpan(span, err) }()

	if in.ExternalID != "" {
		if prev, err := s.Store.FindByExternalID(ctx, in.ExternalID); err == nil {
			return prev, true, nil
		} else if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
	}

	lines, err := s.Composer.Compose(ctx, in.Request)
	if err != nil {
		return nil, false, err
	}
	q, err := s.priceShipping(ctx, in.DestinationID)
	if err != nil {
		return nil, false, err
	}
	draft := s.draft(in, lines, q)
	draft.ID = uuid.NewString()
	draft.Status = StatusPending

	err = s.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		available, err := tx.LockPools(ctx, Pools(draft.Lines))
		if err != nil {
			return onLines(err, draft.Lines)
		}
		if err := Validate(draft.Lines, available); err != nil {
			return err
		}
		for _, l := range draft.Lines {
			if err := tx.AdjustPool(ctx, l.Pool(), -l.Qty); err != nil {
				return fmt.Errorf("decrement %s: %w", l.Pool(), err)
			}
		}
		if err := tx.InsertOrder(ctx, draft); err != nil {
			return err
		}
		return tx.AppendStatus(ctx, StatusChange{OrderID: draft.ID, To: StatusPending, ChangedAt: draft.CreatedAt})
	})
	if errors.Is(err, ErrDuplicateExternalID) {
		prev, ferr := s.Store.FindByExternalID(ctx, in.ExternalID)
		if ferr != nil {
			return nil, false, ferr
		}
		return prev, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	span.SetAttributes(attribute.String("order.id", draft.ID))
	log.Printf("[orders] placed order=%s lines=%d total=%s", draft.ID, len(draft.Lines), draft.Total)
	return draft, false, nil
}

// Cancel moves the order to cancelled and restores its stock. Cancelling an
// already cancelled order succeeds without touching stock again.
func (s *Service) Cancel(ctx context.Context, id, note string) (*Order, error) {
	o, _, err := s.Transition(ctx, id, StatusCancelled, note)
	return o, err
}

// Transition applies one status change. changed=false means the order was
// already in a stock-restoring status equal to `to` and nothing was written.
func (s *Service) Transition(ctx context.Context, id string, to Status, note string) (o *Order, changed bool, err error) {
	ctx, span := tracer.Start(ctx, "orders.Transition", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.to", string(to)),
	))
	defer func() { endSpan(span, err) }()

	if !to.Valid() {
		return nil, false, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	err = s.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		o = cur
		if cur.Status == to && to.RestoresStock() {
			return nil
		}
		if !CanTransition(cur.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, to)
		}
		if to.RestoresStock() && !cur.StockRestored {
			if _, err := tx.LockPools(ctx, Pools(cur.Lines)); err != nil {
				return err
			}
			for _, l := range cur.Lines {
				if err := tx.AdjustPool(ctx, l.Pool(), l.Qty); err != nil {
					return fmt.Errorf("restore %s: %w", l.Pool(), err)
				}
			}
			cur.StockRestored = true
		}
		from := cur.Status
		cur.Status = to
		cur.UpdatedAt = s.Now()
		if err := tx.UpdateOrder(ctx, cur); err != nil {
			return err
		}
		changed = true
		return tx.AppendStatus(ctx, StatusChange{OrderID: id, From: from, To: to, Note: note, ChangedAt: cur.UpdatedAt})
	})
	if err != nil {
		return nil, false, err
	}
	if changed {
		log.Printf("[orders] order=%s status=%s restored=%t", id, o.Status, o.StockRestored)
	}
	return o, changed, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) History(ctx context.Context, id string) ([]StatusChange, error) {
	return s.Store.History(ctx, id)
}

// ShippingQuote prices delivery to destinationID under the current setting.
func (s *Service) ShippingQuote(ctx context.Context, destinationID string) (shipping.Quote, error) {
	return s.priceShipping(ctx, destinationID)
}

// priceShipping reads the destination and the current setting exactly once.
func (s *Service) priceShipping(ctx context.Context, destinationID string) (shipping.Quote, error) {
	setting, err := s.Store.ShippingSetting(ctx)
	if err != nil {
		return shipping.Quote{}, fmt.Errorf("shipping setting: %w", err)
	}
	var dest *shipping.Destination
	if destinationID != "" {
		dest, err = s.Store.Destination(ctx, destinationID)
		if err != nil {
			return shipping.Quote{}, err
		}
	}
	q, err := shipping.Price(dest, setting)
	if err != nil {
		return shipping.Quote{}, stock.Violations{asViolation(err)}
	}
	return q, nil
}

func (s *Service) draft(in PlaceInput, lines []Line, q shipping.Quote) *Order {
	now := s.Now()
	subtotal := SumLines(lines)
	return &Order{
		ExternalID:    in.ExternalID,
		BuyerID:       in.BuyerID,
		DestinationID: in.DestinationID,
		Notes:         in.Notes,
		Lines:         lines,
		Subtotal:      subtotal,
		ShippingCost:  q.Cost,
		Total:         subtotal.Add(q.Cost),
		Shipping:      q,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func asViolation(err error) stock.Violation {
	var v stock.Violation
	if errors.As(err, &v) {
		return v
	}
	return stock.Violation{Kind: stock.KindInvalidShippingInput, Message: err.Error()}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
