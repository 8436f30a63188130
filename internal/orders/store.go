package orders

import (
	"context"
	"errors"
	"github.com/ariefcatur/mitra-storefront/internal/catalog"
	"github.com/ariefcatur/mitra-storefront/internal/shipping"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
)

var (
	ErrNotFound            = errors.New("order not found")
	ErrDestinationNotFound = errors.New("destination not found")
	ErrDuplicateExternalID = errors.New("order with external id already exists")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// Store is everything the order service needs from persistence. Reads outside
// InTx take no locks; they serve composition and price display.
type Store interface {
	catalog.Reader
	Destination(ctx context.Context, id string) (*shipping.Destination, error)
	ShippingSetting(ctx context.Context) (shipping.Setting, error)
	FindByExternalID(ctx context.Context, externalID string) (*Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	History(ctx context.Context, id string) ([]StatusChange, error)

	// InTx runs fn in one transaction: committed if fn returns nil, rolled
	// back otherwise. Nothing fn wrote is visible to others before commit.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	stock.Locker
	InsertOrder(ctx context.Context, o *Order) error
	// LockOrder reads the order and holds it until the transaction ends.
	LockOrder(ctx context.Context, id string) (*Order, error)
	UpdateOrder(ctx context.Context, o *Order) error
	AppendStatus(ctx context.Context, c StatusChange) error
}
