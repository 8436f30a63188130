package memstore

import (
	"context"
	"errors"
	"github.com/ariefcatur/mitra-storefront/internal/catalog"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/shopspring/decimal"
	"testing"
)

func seed() *Store {
	s := New()
	s.PutProduct(catalog.Product{ID: "P", Name: "Towel", SellPrice: decimal.NewFromInt(10), Stock: 5})
	s.PutProduct(catalog.Product{ID: "Q", Name: "Robe", HasVariations: true, SKUs: []catalog.SKU{
		{ID: "A", ProductID: "Q", Price: decimal.NewFromInt(20), Stock: 3, Active: true},
	}})
	return s
}

func TestInTx_RollbackUndoesEveryWrite(t *testing.T) {
	ctx := context.Background()
	s := seed()
	boom := errors.New("boom")

	err := s.Orders().InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		if err := tx.AdjustPool(ctx, stock.Pool{ProductID: "P"}, -2); err != nil {
			return err
		}
		if err := tx.AdjustPool(ctx, stock.Pool{ProductID: "Q", SKUID: "A"}, -1); err != nil {
			return err
		}
		if err := tx.InsertOrder(ctx, &orders.Order{ID: "o1", ExternalID: "ext-1", Status: orders.StatusPending}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := s.StockOf(stock.Pool{ProductID: "P"}); got != 5 {
		t.Fatalf("P stock expected 5 after rollback, got %d", got)
	}
	if got := s.StockOf(stock.Pool{ProductID: "Q", SKUID: "A"}); got != 3 {
		t.Fatalf("Q/A stock expected 3 after rollback, got %d", got)
	}
	if _, err := s.Orders().Get(ctx, "o1"); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("order must not survive rollback: %v", err)
	}
	if _, err := s.Orders().FindByExternalID(ctx, "ext-1"); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("external id must not survive rollback: %v", err)
	}
}

func TestAdjustPool_NeverNegative(t *testing.T) {
	ctx := context.Background()
	s := seed()
	err := s.Orders().InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		return tx.AdjustPool(ctx, stock.Pool{ProductID: "P"}, -6)
	})
	vs, ok := stock.AsViolations(err)
	if !ok || !vs.Has(stock.KindInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := s.StockOf(stock.Pool{ProductID: "P"}); got != 5 {
		t.Fatalf("stock changed: %d", got)
	}
}

func TestProducts_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := seed()
	ps, _ := s.Orders().Products(ctx, []string{"Q", "missing"})
	if _, ok := ps["missing"]; ok {
		t.Fatalf("missing product must be absent")
	}
	q := ps["Q"]
	q.SKUs[0].Stock = 99
	if got := s.StockOf(stock.Pool{ProductID: "Q", SKUID: "A"}); got != 3 {
		t.Fatalf("caller mutation leaked into store: %d", got)
	}
}
