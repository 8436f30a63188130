package postgres

import (
	"context"
	"errors"
	"github.com/ariefcatur/mitra-storefront/internal/catalog"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/ariefcatur/mitra-storefront/internal/shipping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type OrderStore struct{ db *pgxpool.Pool }

var (
	_ orders.Store       = (*OrderStore)(nil)
	_ shipping.Publisher = (*OrderStore)(nil)
)

const orderColumns = `
	id, COALESCE(external_id, ''), buyer_id, destination_id, notes,
	subtotal, shipping_cost, total,
	shipping_distance_meters, shipping_price_per_km, shipping_setting_version,
	status, stock_restored, created_at, updated_at`

func (s *OrderStore) Products(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	return readProducts(ctx, s.db, ids)
}

func (s *OrderStore) Destination(ctx context.Context, id string) (*shipping.Destination, error) {
	var d shipping.Destination
	err := s.db.QueryRow(ctx, `SELECT id, name, distance_meters FROM destinations WHERE id=$1`, id).
		Scan(&d.ID, &d.Name, &d.DistanceMeters)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrDestinationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ShippingSetting returns the newest setting version.
func (s *OrderStore) ShippingSetting(ctx context.Context) (shipping.Setting, error) {
	var st shipping.Setting
	err := s.db.QueryRow(ctx, `
		SELECT version, price_per_km, updated_at
		FROM shipping_settings ORDER BY version DESC LIMIT 1`).
		Scan(&st.Version, &st.PricePerKm, &st.UpdatedAt)
	return st, err
}

func (s *OrderStore) PublishSetting(ctx context.Context, pricePerKm decimal.Decimal) (shipping.Setting, error) {
	if err := shipping.CheckPrice(pricePerKm); err != nil {
		return shipping.Setting{}, err
	}
	var st shipping.Setting
	err := s.db.QueryRow(ctx, `
		INSERT INTO shipping_settings (price_per_km) VALUES ($1)
		RETURNING version, price_per_km, updated_at`, pricePerKm).
		Scan(&st.Version, &st.PricePerKm, &st.UpdatedAt)
	return st, err
}

func (s *OrderStore) FindByExternalID(ctx context.Context, externalID string) (*orders.Order, error) {
	return loadOrder(ctx, s.db, `SELECT `+orderColumns+` FROM orders WHERE external_id=$1`, externalID)
}

func (s *OrderStore) Get(ctx context.Context, id string) (*orders.Order, error) {
	return loadOrder(ctx, s.db, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (s *OrderStore) History(ctx context.Context, id string) ([]orders.StatusChange, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, orders.ErrNotFound
	}
	rows, err := s.db.Query(ctx, `
		SELECT order_id, from_status, to_status, note, changed_at
		FROM order_status_history WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []orders.StatusChange
	for rows.Next() {
		var c orders.StatusChange
		var from, to string
		if err := rows.Scan(&c.OrderID, &from, &to, &c.Note, &c.ChangedAt); err != nil {
			return nil, err
		}
		c.From, c.To = orders.Status(from), orders.Status(to)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *OrderStore) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	return inTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(ctx, orderTx{poolTx{tx}})
	})
}

type orderTx struct{ poolTx }

func (t orderTx) InsertOrder(ctx context.Context, o *orders.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (id, external_id, buyer_id, destination_id, notes,
			subtotal, shipping_cost, total,
			shipping_distance_meters, shipping_price_per_km, shipping_setting_version,
			status, stock_restored, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.ID, o.ExternalID, o.BuyerID, o.DestinationID, o.Notes,
		o.Subtotal, o.ShippingCost, o.Total,
		o.Shipping.DistanceMeters, o.Shipping.PricePerKm, o.Shipping.SettingVersion,
		string(o.Status), o.StockRestored, o.CreatedAt, o.UpdatedAt)
	if isUniqueViolation(err, "orders_external_id_key") {
		return orders.ErrDuplicateExternalID
	}
	if err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, l := range o.Lines {
		batch.Queue(`
			INSERT INTO order_items (order_id, line_no, product_id, sku_id, product_name, sku_name, qty, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			o.ID, l.LineNo, l.ProductID, l.SKUID, l.ProductName, l.SKUName, l.Qty, l.UnitPrice, l.Subtotal)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t orderTx) LockOrder(ctx context.Context, id string) (*orders.Order, error) {
	return loadOrder(ctx, t.tx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id)
}

// UpdateOrder writes the mutable part of an order. Lines and prices are
// frozen at insert.
func (t orderTx) UpdateOrder(ctx context.Context, o *orders.Order) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE orders SET status=$2, stock_restored=$3, updated_at=$4 WHERE id=$1`,
		o.ID, string(o.Status), o.StockRestored, o.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}

func (t orderTx) AppendStatus(ctx context.Context, c orders.StatusChange) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_status_history (order_id, from_status, to_status, note, changed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.OrderID, string(c.From), string(c.To), c.Note, c.ChangedAt)
	return err
}

func loadOrder(ctx context.Context, q querier, sql string, arg any) (*orders.Order, error) {
	var o orders.Order
	var status string
	err := q.QueryRow(ctx, sql, arg).Scan(
		&o.ID, &o.ExternalID, &o.BuyerID, &o.DestinationID, &o.Notes,
		&o.Subtotal, &o.ShippingCost, &o.Total,
		&o.Shipping.DistanceMeters, &o.Shipping.PricePerKm, &o.Shipping.SettingVersion,
		&status, &o.StockRestored, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = orders.Status(status)
	o.Shipping.DestinationID = o.DestinationID
	o.Shipping.Cost = o.ShippingCost

	rows, err := q.Query(ctx, `
		SELECT line_no, product_id, sku_id, product_name, sku_name, qty, unit_price, subtotal
		FROM order_items WHERE order_id=$1 ORDER BY line_no`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l orders.Line
		if err := rows.Scan(&l.LineNo, &l.ProductID, &l.SKUID, &l.ProductName, &l.SKUName, &l.Qty, &l.UnitPrice, &l.Subtotal); err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, l)
	}
	return &o, rows.Err()
}
