// Package memstore keeps the whole storefront state in process memory. It
// backs STORE_DRIVER=memory and the service tests.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/mitra-storefront/internal/catalog"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/ariefcatur/mitra-storefront/internal/sales"
	"github.com/ariefcatur/mitra-storefront/internal/shipping"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/shopspring/decimal"
	"sort"
	"sync"
	"time"
)

var ErrUnknownPool = errors.New("unknown stock pool")

type agentPool struct {
	agentID string
	pool    stock.Pool
}

// Store is one mutex over every map. A transaction holds the mutex from start
// to end, which serializes writers the way row locks would.
type Store struct {
	mu sync.Mutex

	products     map[string]catalog.Product
	destinations map[string]shipping.Destination
	setting      shipping.Setting

	orders     map[string]orders.Order
	byExternal map[string]string
	history    map[string][]orders.StatusChange

	assignments  map[string]sales.Assignment
	byAgentPool  map[agentPool]string
	movements    map[string][]sales.Movement
	transactions map[string]sales.Transaction
}

func New() *Store {
	return &Store{
		products:     make(map[string]catalog.Product),
		destinations: make(map[string]shipping.Destination),
		setting:      shipping.Setting{Version: 1, PricePerKm: decimal.Zero, UpdatedAt: time.Now().UTC()},
		orders:       make(map[string]orders.Order),
		byExternal:   make(map[string]string),
		history:      make(map[string][]orders.StatusChange),
		assignments:  make(map[string]sales.Assignment),
		byAgentPool:  make(map[agentPool]string),
		movements:    make(map[string][]sales.Movement),
		transactions: make(map[string]sales.Transaction),
	}
}

// Orders is the order-service view of the store.
func (s *Store) Orders() *OrderStore { return &OrderStore{s: s} }

// Sales is the sales-ledger view of the store.
func (s *Store) Sales() *SalesStore { return &SalesStore{s: s} }

// PutProduct inserts or replaces a catalog product.
func (s *Store) PutProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = copyProduct(p)
}

func (s *Store) PutDestination(d shipping.Destination) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destinations[d.ID] = d
}

// SetPricePerKm publishes a new shipping setting version.
func (s *Store) SetPricePerKm(price decimal.Decimal) shipping.Setting {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setting = shipping.Setting{Version: s.setting.Version + 1, PricePerKm: price, UpdatedAt: time.Now().UTC()}
	return s.setting
}

// StockOf returns the current level of a pool, or -1 if it does not exist.
func (s *Store) StockOf(pool stock.Pool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.poolStock(pool)
	if err != nil {
		return -1
	}
	return n
}

func (s *Store) readProducts(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = copyProduct(p)
		}
	}
	return out, nil
}

func (s *Store) poolStock(pool stock.Pool) (int, error) {
	p, ok := s.products[pool.ProductID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPool, pool)
	}
	if !pool.IsSKU() {
		return p.Stock, nil
	}
	for _, sku := range p.SKUs {
		if sku.ID == pool.SKUID {
			return sku.Stock, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownPool, pool)
}

func (s *Store) setPoolStock(pool stock.Pool, n int) {
	p := s.products[pool.ProductID]
	if !pool.IsSKU() {
		p.Stock = n
	} else {
		for i := range p.SKUs {
			if p.SKUs[i].ID == pool.SKUID {
				p.SKUs[i].Stock = n
			}
		}
	}
	s.products[pool.ProductID] = p
}

// txState is one open transaction. Every write records how to undo itself.
type txState struct {
	s    *Store
	undo []func()
}

func (s *Store) inTx(ctx context.Context, fn func(t *txState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &txState{s: s}
	if err := fn(t); err != nil {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		return err
	}
	return nil
}

func (t *txState) LockPools(_ context.Context, pools []stock.Pool) (map[stock.Pool]int, error) {
	out := make(map[stock.Pool]int, len(pools))
	var gone stock.Violations
	for _, p := range stock.SortedUnique(pools) {
		n, err := t.s.poolStock(p)
		if err != nil {
			gone = append(gone, stock.Gone(0, p))
			continue
		}
		out[p] = n
	}
	if len(gone) > 0 {
		return nil, gone
	}
	return out, nil
}

func (t *txState) AdjustPool(_ context.Context, pool stock.Pool, delta int) error {
	cur, err := t.s.poolStock(pool)
	if err != nil {
		return stock.Violations{stock.Gone(0, pool)}
	}
	next := cur + delta
	if next < 0 {
		return stock.Violations{stock.Shortage(stock.KindInsufficientStock, 0, pool, -delta, cur)}
	}
	t.s.setPoolStock(pool, next)
	t.undo = append(t.undo, func() { t.s.setPoolStock(pool, cur) })
	return nil
}

func copyProduct(p catalog.Product) catalog.Product {
	p.SKUs = append([]catalog.SKU(nil), p.SKUs...)
	return p
}

func copyOrder(o orders.Order) *orders.Order {
	o.Lines = append([]orders.Line(nil), o.Lines...)
	return &o
}

func sortAssignments(as []sales.Assignment) {
	sort.Slice(as, func(i, j int) bool {
		if as[i].ProductID != as[j].ProductID {
			return as[i].ProductID < as[j].ProductID
		}
		return as[i].SKUID < as[j].SKUID
	})
}
