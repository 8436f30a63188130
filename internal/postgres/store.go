package postgres

import (
	"context"
	"errors"
	"github.com/ariefcatur/mitra-storefront/internal/catalog"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed storefront. Orders and Sales return the views
// the order service and the sales ledger depend on.
type Store struct{ DB *pgxpool.Pool }

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

func (s *Store) Orders() *OrderStore { return &OrderStore{db: s.DB} }

func (s *Store) Sales() *SalesStore { return &SalesStore{db: s.DB} }

// inTx commits when fn returns nil and rolls back otherwise.
func inTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return mapErr(err)
	}
	return mapErr(tx.Commit(ctx))
}

func readProducts(ctx context.Context, q querier, ids []string) (map[string]catalog.Product, error) {
	out := make(map[string]catalog.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, `
		SELECT id, name, sell_price, stock, has_variations
		FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SellPrice, &p.Stock, &p.HasVariations); err != nil {
			rows.Close()
			return nil, err
		}
		out[p.ID] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx, `
		SELECT product_id, id, name, price, stock, image_url, active
		FROM product_skus WHERE product_id = ANY($1)
		ORDER BY product_id, id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sku catalog.SKU
		if err := rows.Scan(&sku.ProductID, &sku.ID, &sku.Name, &sku.Price, &sku.Stock, &sku.ImageURL, &sku.Active); err != nil {
			return nil, err
		}
		p := out[sku.ProductID]
		p.SKUs = append(p.SKUs, sku)
		out[sku.ProductID] = p
	}
	return out, rows.Err()
}

// poolTx locks and moves stock counters. Rows are locked FOR UPDATE in
// stock.SortedUnique order.
type poolTx struct{ tx pgx.Tx }

// A pool whose row is gone is reported as a stock.Gone violation; the rest are
// still locked so every missing pool shows up in one batch.
func (t poolTx) LockPools(ctx context.Context, pools []stock.Pool) (map[stock.Pool]int, error) {
	out := make(map[stock.Pool]int, len(pools))
	var gone stock.Violations
	for _, p := range stock.SortedUnique(pools) {
		var n int
		var err error
		if p.IsSKU() {
			err = t.tx.QueryRow(ctx, `SELECT stock FROM product_skus WHERE product_id=$1 AND id=$2 FOR UPDATE`, p.ProductID, p.SKUID).Scan(&n)
		} else {
			err = t.tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, p.ProductID).Scan(&n)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			gone = append(gone, stock.Gone(0, p))
			continue
		}
		if err != nil {
			return nil, err
		}
		out[p] = n
	}
	if len(gone) > 0 {
		return nil, gone
	}
	return out, nil
}

// AdjustPool applies delta. The guarded update never lets a counter go
// negative, even if a caller skipped LockPools.
func (t poolTx) AdjustPool(ctx context.Context, p stock.Pool, delta int) error {
	var (
		sql  string
		args []any
	)
	if p.IsSKU() {
		sql = `UPDATE product_skus SET stock = stock + $3, updated_at = now()
		       WHERE product_id=$1 AND id=$2 AND stock + $3 >= 0`
		args = []any{p.ProductID, p.SKUID, delta}
	} else {
		sql = `UPDATE products SET stock = stock + $2, updated_at = now()
		       WHERE id=$1 AND stock + $2 >= 0`
		args = []any{p.ProductID, delta}
	}
	ct, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		if isCheckViolation(err) {
			return stock.Violations{stock.Shortage(stock.KindInsufficientStock, 0, p, -delta, 0)}
		}
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	cur, err := t.LockPools(ctx, []stock.Pool{p})
	if err != nil {
		return err
	}
	return stock.Violations{stock.Shortage(stock.KindInsufficientStock, 0, p, -delta, cur[p])}
}
