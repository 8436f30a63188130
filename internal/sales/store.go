package sales

import (
	"context"
	"errors"
	"github.com/ariefcatur/mitra-storefront/internal/catalog"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
)

var (
	ErrNotFound        = errors.New("assignment not found")
	ErrLedgerInvariant = errors.New("sales ledger invariant violated")
	ErrInvalidReturn   = errors.New("invalid return request")
)

type Store interface {
	catalog.Reader
	Get(ctx context.Context, id string) (*Assignment, error)
	ListByAgent(ctx context.Context, agentID string) ([]Assignment, error)
	Movements(ctx context.Context, assignmentID string) ([]Movement, error)
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx locks store pools before assignments; every caller keeps that order.
type Tx interface {
	stock.Locker
	LockAssignment(ctx context.Context, id string) (*Assignment, error)
	// LockAgentAssignments returns the agent's assignments for pools, locked.
	// Pools the agent never borrowed are absent from the map.
	LockAgentAssignments(ctx context.Context, agentID string, pools []stock.Pool) (map[stock.Pool]*Assignment, error)
	SaveAssignment(ctx context.Context, a *Assignment) error
	AppendMovement(ctx context.Context, m Movement) error
	InsertTransaction(ctx context.Context, t *Transaction) error
}
