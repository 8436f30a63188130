package postgres

import (
	"context"
	"errors"
	"github.com/ariefcatur/mitra-storefront/internal/catalog"
	"github.com/ariefcatur/mitra-storefront/internal/sales"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SalesStore struct{ db *pgxpool.Pool }

var _ sales.Store = (*SalesStore)(nil)

const assignmentColumns = `id, agent_id, product_id, sku_id, borrowed, sold, returned, status, created_at, updated_at`

func (s *SalesStore) Products(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	return readProducts(ctx, s.db, ids)
}

func (s *SalesStore) Get(ctx context.Context, id string) (*sales.Assignment, error) {
	return scanAssignment(s.db.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM sales_assignments WHERE id=$1`, id))
}

func (s *SalesStore) ListByAgent(ctx context.Context, agentID string) ([]sales.Assignment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+assignmentColumns+` FROM sales_assignments
		WHERE agent_id=$1 ORDER BY product_id, sku_id`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]sales.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *SalesStore) Movements(ctx context.Context, assignmentID string) ([]sales.Movement, error) {
	if _, err := s.Get(ctx, assignmentID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT assignment_id, kind, quantity, COALESCE(transaction_id, ''), at
		FROM sales_movements WHERE assignment_id=$1 ORDER BY id`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []sales.Movement
	for rows.Next() {
		var m sales.Movement
		var kind string
		if err := rows.Scan(&m.AssignmentID, &kind, &m.Quantity, &m.TransactionID, &m.At); err != nil {
			return nil, err
		}
		m.Kind = sales.MovementKind(kind)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SalesStore) InTx(ctx context.Context, fn func(ctx context.Context, tx sales.Tx) error) error {
	return inTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(ctx, salesTx{poolTx{tx}})
	})
}

type salesTx struct{ poolTx }

func (t salesTx) LockAssignment(ctx context.Context, id string) (*sales.Assignment, error) {
	return scanAssignment(t.tx.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM sales_assignments WHERE id=$1 FOR UPDATE`, id))
}

func (t salesTx) LockAgentAssignments(ctx context.Context, agentID string, pools []stock.Pool) (map[stock.Pool]*sales.Assignment, error) {
	out := make(map[stock.Pool]*sales.Assignment, len(pools))
	for _, p := range stock.SortedUnique(pools) {
		a, err := scanAssignment(t.tx.QueryRow(ctx, `
			SELECT `+assignmentColumns+` FROM sales_assignments
			WHERE agent_id=$1 AND product_id=$2 AND sku_id=$3 FOR UPDATE`,
			agentID, p.ProductID, p.SKUID))
		if errors.Is(err, sales.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[p] = a
	}
	return out, nil
}

func (t salesTx) SaveAssignment(ctx context.Context, a *sales.Assignment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO sales_assignments (`+assignmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			borrowed = EXCLUDED.borrowed,
			sold = EXCLUDED.sold,
			returned = EXCLUDED.returned,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		a.ID, a.AgentID, a.ProductID, a.SKUID, a.Borrowed, a.Sold, a.Returned, string(a.Status), a.CreatedAt, a.UpdatedAt)
	if isCheckViolation(err) {
		return sales.ErrLedgerInvariant
	}
	return err
}

func (t salesTx) AppendMovement(ctx context.Context, m sales.Movement) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO sales_movements (assignment_id, kind, quantity, transaction_id, at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)`,
		m.AssignmentID, string(m.Kind), m.Quantity, m.TransactionID, m.At)
	return err
}

func (t salesTx) InsertTransaction(ctx context.Context, tr *sales.Transaction) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO sales_transactions (id, agent_id, destination_id, notes, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		tr.ID, tr.AgentID, tr.DestinationID, tr.Notes, tr.Total, tr.CreatedAt)
	if err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, l := range tr.Lines {
		batch.Queue(`
			INSERT INTO sales_transaction_lines (transaction_id, line_no, product_id, sku_id, product_name, sku_name, qty, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			tr.ID, l.LineNo, l.ProductID, l.SKUID, l.ProductName, l.SKUName, l.Qty, l.UnitPrice, l.Subtotal)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func scanAssignment(row pgx.Row) (*sales.Assignment, error) {
	var a sales.Assignment
	var status string
	err := row.Scan(&a.ID, &a.AgentID, &a.ProductID, &a.SKUID, &a.Borrowed, &a.Sold, &a.Returned, &status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sales.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Status = sales.Status(status)
	return &a, nil
}
