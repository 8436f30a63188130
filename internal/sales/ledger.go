package sales

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/mitra-storefront/internal/catalog"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"log"
	"time"
)

var tracer = otel.Tracer("github.com/ariefcatur/mitra-storefront/internal/sales")

type AssignInput struct {
	AgentID   string
	ProductID string
	SKUID     string
	Quantity  int
}

type TransactionInput struct {
	AgentID       string
	DestinationID string
	Notes         string
	Items         []orders.ItemInput
}

// Ledger accounts for units lent to field sales agents. Units leave store
// stock on Assign and come back only through RecordReturn.
type Ledger struct {
	Store    Store
	Composer *orders.Composer
	Now      func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{
		Store:    store,
		Composer: &orders.Composer{Catalog: store},
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Assign moves quantity units from store stock to the agent.
func (l *Ledger) Assign(ctx context.Context, in AssignInput) (a *Assignment, err error) {
	ctx, span := tracer.Start(ctx, "sales.Assign", trace.WithAttributes(
		attribute.String("sales.agent_id", in.AgentID),
		attribute.Int("sales.quantity", in.Quantity),
	))
	defer func() { endSpan(span, err) }()

	if in.AgentID == "" {
		return nil, errors.New("agent id is required")
	}
	if in.Quantity <= 0 {
		return nil, invalidQuantity(in.ProductID, in.SKUID, in.Quantity)
	}
	products, err := l.Store.Products(ctx, []string{in.ProductID})
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	p, ok := products[in.ProductID]
	if !ok {
		return nil, stock.Violations{{Kind: stock.KindProductNotFound, ProductID: in.ProductID, SKUID: in.SKUID, Message: "product not found"}}
	}
	res, err := catalog.Resolve(p, in.SKUID)
	if err != nil {
		return nil, stock.Violations{asViolation(err)}
	}
	pool := res.Pool

	err = l.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		avail, err := tx.LockPools(ctx, []stock.Pool{pool})
		if err != nil {
			return err
		}
		if in.Quantity > avail[pool] {
			return stock.Violations{stock.Shortage(stock.KindInsufficientStoreStock, 0, pool, in.Quantity, avail[pool])}
		}
		held, err := tx.LockAgentAssignments(ctx, in.AgentID, []stock.Pool{pool})
		if err != nil {
			return err
		}
		now := l.Now()
		cur := held[pool]
		if cur == nil {
			cur = &Assignment{
				ID:        uuid.NewString(),
				AgentID:   in.AgentID,
				ProductID: pool.ProductID,
				SKUID:     pool.SKUID,
				CreatedAt: now,
			}
		}
		cur.Borrowed += in.Quantity
		cur.Status = StatusBorrowed
		cur.UpdatedAt = now
		if err := cur.check(); err != nil {
			return err
		}
		if err := tx.AdjustPool(ctx, pool, -in.Quantity); err != nil {
			return err
		}
		if err := tx.SaveAssignment(ctx, cur); err != nil {
			return err
		}
		a = cur
		return tx.AppendMovement(ctx, Movement{AssignmentID: cur.ID, Kind: MovementAssign, Quantity: in.Quantity, At: now})
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[sales] assign agent=%s pool=%s qty=%d borrowed=%d", a.AgentID, pool, in.Quantity, a.Borrowed)
	return a, nil
}

// RecordSale books quantity units of the assignment as sold by the agent.
func (l *Ledger) RecordSale(ctx context.Context, assignmentID string, quantity int) (a *Assignment, err error) {
	ctx, span := tracer.Start(ctx, "sales.RecordSale", trace.WithAttributes(
		attribute.String("sales.assignment_id", assignmentID),
		attribute.Int("sales.quantity", quantity),
	))
	defer func() { endSpan(span, err) }()

	err = l.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.LockAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if quantity <= 0 {
			return invalidQuantity(cur.ProductID, cur.SKUID, quantity)
		}
		if quantity > cur.Current() {
			return stock.Violations{stock.Shortage(stock.KindInsufficientAssignedStock, 0, cur.Pool(), quantity, cur.Current())}
		}
		cur.Sold += quantity
		cur.UpdatedAt = l.Now()
		if err := cur.check(); err != nil {
			return err
		}
		if err := tx.SaveAssignment(ctx, cur); err != nil {
			return err
		}
		a = cur
		return tx.AppendMovement(ctx, Movement{AssignmentID: cur.ID, Kind: MovementSale, Quantity: quantity, At: cur.UpdatedAt})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// RecordReturn gives units back to store stock. The status flips to returned
// exactly when nothing is left with the agent. It reports how many units moved.
func (l *Ledger) RecordReturn(ctx context.Context, assignmentID string, r Return) (a *Assignment, moved int, err error) {
	ctx, span := tracer.Start(ctx, "sales.RecordReturn", trace.WithAttributes(
		attribute.String("sales.assignment_id", assignmentID),
		attribute.String("sales.return_mode", string(r.Mode)),
	))
	defer func() { endSpan(span, err) }()

	switch r.Mode {
	case ReturnAll:
		if r.Quantity != 0 {
			return nil, 0, fmt.Errorf("%w: quantity must be empty when returning all", ErrInvalidReturn)
		}
	case ReturnPartial:
	default:
		return nil, 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidReturn, r.Mode)
	}

	// The pool never changes for an assignment, so an unlocked read is enough
	// to know which store row to lock first.
	peek, err := l.Store.Get(ctx, assignmentID)
	if err != nil {
		return nil, 0, err
	}
	if r.Mode == ReturnPartial && r.Quantity <= 0 {
		return nil, 0, invalidQuantity(peek.ProductID, peek.SKUID, r.Quantity)
	}

	err = l.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.LockPools(ctx, []stock.Pool{peek.Pool()}); err != nil {
			return err
		}
		cur, err := tx.LockAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		a = cur
		qty := r.Quantity
		if r.Mode == ReturnAll {
			if cur.Status == StatusReturned && cur.Current() == 0 {
				return nil
			}
			qty = cur.Current()
		} else if qty > cur.Current() {
			return stock.Violations{stock.Shortage(stock.KindInsufficientAssignedStock, 0, cur.Pool(), qty, cur.Current())}
		}

		cur.Returned += qty
		if cur.Current() == 0 {
			cur.Status = StatusReturned
		}
		cur.UpdatedAt = l.Now()
		if err := cur.check(); err != nil {
			return err
		}
		if qty > 0 {
			if err := tx.AdjustPool(ctx, cur.Pool(), qty); err != nil {
				return err
			}
		}
		if err := tx.SaveAssignment(ctx, cur); err != nil {
			return err
		}
		moved = qty
		if qty == 0 {
			return nil
		}
		return tx.AppendMovement(ctx, Movement{AssignmentID: cur.ID, Kind: MovementReturn, Quantity: qty, At: cur.UpdatedAt})
	})
	if err != nil {
		return nil, 0, err
	}
	log.Printf("[sales] return assignment=%s moved=%d status=%s", a.ID, moved, a.Status)
	return a, moved, nil
}

// RecordTransaction sells explicit lines out of the agent's assignments.
// Store stock is not consulted; each line draws from the agent's holding.
func (l *Ledger) RecordTransaction(ctx context.Context, in TransactionInput) (t *Transaction, touched []Assignment, err error) {
	ctx, span := tracer.Start(ctx, "sales.RecordTransaction", trace.WithAttributes(
		attribute.String("sales.agent_id", in.AgentID),
		attribute.Int("sales.items", len(in.Items)),
	))
	defer func() { endSpan(span, err) }()

	if in.AgentID == "" {
		return nil, nil, errors.New("agent id is required")
	}
	lines, err := l.Composer.Compose(ctx, orders.Explicit(in.AgentID, in.Items))
	if err != nil {
		return nil, nil, err
	}

	now := l.Now()
	t = &Transaction{
		ID:            uuid.NewString(),
		AgentID:       in.AgentID,
		DestinationID: in.DestinationID,
		Notes:         in.Notes,
		Lines:         lines,
		Total:         orders.SumLines(lines),
		CreatedAt:     now,
	}
	err = l.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		pools := orders.Pools(lines)
		held, err := tx.LockAgentAssignments(ctx, in.AgentID, pools)
		if err != nil {
			return err
		}
		available := make(map[stock.Pool]int, len(pools))
		for _, p := range pools {
			if a := held[p]; a != nil {
				available[p] = a.Current()
			}
		}
		if err := orders.ValidateAgainst(lines, available, stock.KindInsufficientAssignedStock); err != nil {
			return err
		}
		for _, ln := range lines {
			a := held[ln.Pool()]
			a.Sold += ln.Qty
			a.UpdatedAt = now
			if err := tx.AppendMovement(ctx, Movement{AssignmentID: a.ID, Kind: MovementSale, Quantity: ln.Qty, TransactionID: t.ID, At: now}); err != nil {
				return err
			}
		}
		touched = touched[:0]
		for _, p := range pools {
			a := held[p]
			if err := a.check(); err != nil {
				return err
			}
			if err := tx.SaveAssignment(ctx, a); err != nil {
				return err
			}
			touched = append(touched, *a)
		}
		return tx.InsertTransaction(ctx, t)
	})
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[sales] transaction=%s agent=%s lines=%d total=%s", t.ID, t.AgentID, len(t.Lines), t.Total)
	return t, touched, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (*Assignment, error) {
	return l.Store.Get(ctx, id)
}

func (l *Ledger) ListByAgent(ctx context.Context, agentID string) ([]Assignment, error) {
	return l.Store.ListByAgent(ctx, agentID)
}

func (l *Ledger) Movements(ctx context.Context, assignmentID string) ([]Movement, error) {
	return l.Store.Movements(ctx, assignmentID)
}

func invalidQuantity(productID, skuID string, qty int) stock.Violations {
	return stock.Violations{{
		Kind: stock.KindInvalidQuantity, ProductID: productID, SKUID: skuID,
		Requested: qty, Message: "quantity must be greater than zero",
	}}
}

func asViolation(err error) stock.Violation {
	var v stock.Violation
	if errors.As(err, &v) {
		return v
	}
	return stock.Violation{Kind: stock.KindInvalidVariant, Message: err.Error()}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
