package sales

import (
	"fmt"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/shopspring/decimal"
	"time"
)

type Status string

const (
	StatusBorrowed Status = "borrowed"
	StatusReturned Status = "returned"
)

// Assignment is the stock a field agent holds for one pool.
// Borrowed = Sold + Returned + Current at all times.
type Assignment struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	ProductID string    `json:"product_id"`
	SKUID     string    `json:"sku_id,omitempty"`
	Borrowed  int       `json:"borrowed"`
	Sold      int       `json:"sold"`
	Returned  int       `json:"returned"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a Assignment) Pool() stock.Pool { return stock.Pool{ProductID: a.ProductID, SKUID: a.SKUID} }

// Current is what the agent still holds.
func (a Assignment) Current() int { return a.Borrowed - a.Sold - a.Returned }

func (a Assignment) check() error {
	if a.Borrowed < 0 || a.Sold < 0 || a.Returned < 0 || a.Current() < 0 {
		return fmt.Errorf("%w: assignment=%s borrowed=%d sold=%d returned=%d",
			ErrLedgerInvariant, a.ID, a.Borrowed, a.Sold, a.Returned)
	}
	return nil
}

type MovementKind string

const (
	MovementAssign MovementKind = "assign"
	MovementSale   MovementKind = "sale"
	MovementReturn MovementKind = "return"
)

// Movement is an append-only record of one ledger mutation.
type Movement struct {
	AssignmentID  string       `json:"assignment_id"`
	Kind          MovementKind `json:"kind"`
	Quantity      int          `json:"quantity"`
	TransactionID string       `json:"transaction_id,omitempty"`
	At            time.Time    `json:"at"`
}

// ReturnMode says how much of the assignment goes back to the store.
type ReturnMode string

const (
	ReturnPartial ReturnMode = "partial"
	ReturnAll     ReturnMode = "all"
)

func ParseReturnMode(s string) (ReturnMode, error) {
	switch ReturnMode(s) {
	case ReturnPartial, ReturnAll:
		return ReturnMode(s), nil
	}
	return "", fmt.Errorf("unknown return mode %q", s)
}

// Return is a return request. Quantity is only read for ReturnPartial and
// must be left zero for ReturnAll.
type Return struct {
	Mode     ReturnMode `json:"mode"`
	Quantity int        `json:"quantity,omitempty"`
}

// Transaction is a sale an agent made out of their borrowed stock.
type Transaction struct {
	ID            string          `json:"transaction_id"`
	AgentID       string          `json:"agent_id"`
	DestinationID string          `json:"destination_id,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Lines         []orders.Line   `json:"lines"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
}
