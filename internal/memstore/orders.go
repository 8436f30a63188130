package memstore

import (
	"context"
	"github.com/ariefcatur/mitra-storefront/internal/catalog"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/ariefcatur/mitra-storefront/internal/shipping"
	"github.com/shopspring/decimal"
)

type OrderStore struct{ s *Store }

var (
	_ orders.Store       = (*OrderStore)(nil)
	_ shipping.Publisher = (*OrderStore)(nil)
)

func (o *OrderStore) Products(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	return o.s.readProducts(ctx, ids)
}

func (o *OrderStore) Destination(_ context.Context, id string) (*shipping.Destination, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	d, ok := o.s.destinations[id]
	if !ok {
		return nil, orders.ErrDestinationNotFound
	}
	return &d, nil
}

func (o *OrderStore) ShippingSetting(_ context.Context) (shipping.Setting, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return o.s.setting, nil
}

func (o *OrderStore) PublishSetting(_ context.Context, pricePerKm decimal.Decimal) (shipping.Setting, error) {
	if err := shipping.CheckPrice(pricePerKm); err != nil {
		return shipping.Setting{}, err
	}
	return o.s.SetPricePerKm(pricePerKm), nil
}

func (o *OrderStore) FindByExternalID(_ context.Context, externalID string) (*orders.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	id, ok := o.s.byExternal[externalID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return copyOrder(o.s.orders[id]), nil
}

func (o *OrderStore) Get(_ context.Context, id string) (*orders.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	ord, ok := o.s.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return copyOrder(ord), nil
}

func (o *OrderStore) History(_ context.Context, id string) ([]orders.StatusChange, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if _, ok := o.s.orders[id]; !ok {
		return nil, orders.ErrNotFound
	}
	return append([]orders.StatusChange(nil), o.s.history[id]...), nil
}

func (o *OrderStore) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	return o.s.inTx(ctx, func(t *txState) error {
		return fn(ctx, orderTx{t})
	})
}

type orderTx struct{ *txState }

func (t orderTx) InsertOrder(_ context.Context, ord *orders.Order) error {
	s := t.s
	if ord.ExternalID != "" {
		if _, dup := s.byExternal[ord.ExternalID]; dup {
			return orders.ErrDuplicateExternalID
		}
		s.byExternal[ord.ExternalID] = ord.ID
		t.undo = append(t.undo, func() { delete(s.byExternal, ord.ExternalID) })
	}
	s.orders[ord.ID] = *copyOrder(*ord)
	t.undo = append(t.undo, func() { delete(s.orders, ord.ID) })
	return nil
}

func (t orderTx) LockOrder(_ context.Context, id string) (*orders.Order, error) {
	ord, ok := t.s.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return copyOrder(ord), nil
}

func (t orderTx) UpdateOrder(_ context.Context, ord *orders.Order) error {
	s := t.s
	prev, ok := s.orders[ord.ID]
	if !ok {
		return orders.ErrNotFound
	}
	s.orders[ord.ID] = *copyOrder(*ord)
	t.undo = append(t.undo, func() { s.orders[ord.ID] = prev })
	return nil
}

func (t orderTx) AppendStatus(_ context.Context, c orders.StatusChange) error {
	s := t.s
	prev := s.history[c.OrderID]
	s.history[c.OrderID] = append(append([]orders.StatusChange(nil), prev...), c)
	t.undo = append(t.undo, func() { s.history[c.OrderID] = prev })
	return nil
}
