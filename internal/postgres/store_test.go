package postgres

import (
	"context"
	"errors"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"os"
	"sync"
	"testing"
)

// openTestDB runs against a real database; set POSTGRES_DSN to enable.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	if err := Migrate(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := Connect(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

// seedProducts inserts a plain product and a product with one SKU under fresh
// ids so runs never collide.
func seedProducts(t *testing.T, db *pgxpool.Pool, plainStock, skuStock int) (plain, sku stock.Pool) {
	t.Helper()
	ctx := context.Background()
	plain = stock.Pool{ProductID: "p-" + uuid.NewString()}
	sku = stock.Pool{ProductID: "q-" + uuid.NewString(), SKUID: "A"}
	if _, err := db.Exec(ctx, `INSERT INTO products (id, name, sell_price, stock) VALUES ($1, 'Towel', 15000, $2)`, plain.ProductID, plainStock); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(ctx, `INSERT INTO products (id, name, has_variations) VALUES ($1, 'Robe', TRUE)`, sku.ProductID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(ctx, `INSERT INTO product_skus (product_id, id, name, price, stock) VALUES ($1, $2, 'M', 40000, $3)`, sku.ProductID, sku.SKUID, skuStock); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM products WHERE id = ANY($1)`, []string{plain.ProductID, sku.ProductID})
	})
	return plain, sku
}

func stockOf(t *testing.T, db *pgxpool.Pool, p stock.Pool) int {
	t.Helper()
	var n int
	var err error
	if p.IsSKU() {
		err = db.QueryRow(context.Background(), `SELECT stock FROM product_skus WHERE product_id=$1 AND id=$2`, p.ProductID, p.SKUID).Scan(&n)
	} else {
		err = db.QueryRow(context.Background(), `SELECT stock FROM products WHERE id=$1`, p.ProductID).Scan(&n)
	}
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestPlace_ConcurrentBuyersNeverOversell(t *testing.T) {
	db := openTestDB(t)
	plain, _ := seedProducts(t, db, 10, 0)
	svc := orders.NewService(New(db).Orders())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		placed   []string
		rejected int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, _, err := svc.Place(context.Background(), orders.PlaceInput{
				BuyerID: "buyer",
				Request: orders.BuyNow(orders.ItemInput{ProductID: plain.ProductID, Qty: 1}),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed = append(placed, o.ID)
			case errors.Is(err, stock.ErrConcurrentStockConflict):
				rejected++
			default:
				if vs, ok := stock.AsViolations(err); ok && vs.Has(stock.KindInsufficientStock) {
					rejected++
					return
				}
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM orders WHERE id = ANY($1)`, placed)
	})

	if len(placed) != 10 || rejected != 20 {
		t.Fatalf("placed=%d rejected=%d", len(placed), rejected)
	}
	if got := stockOf(t, db, plain); got != 0 {
		t.Fatalf("stock expected 0, got %d", got)
	}
}

func TestPlace_RejectedCartTakesNothing(t *testing.T) {
	db := openTestDB(t)
	plain, sku := seedProducts(t, db, 10, 1)
	svc := orders.NewService(New(db).Orders())

	_, _, err := svc.Place(context.Background(), orders.PlaceInput{
		Request: orders.Cart([]orders.ItemInput{
			{ProductID: plain.ProductID, Qty: 4},
			{ProductID: sku.ProductID, SKUID: sku.SKUID, Qty: 2},
		}),
	})
	vs, ok := stock.AsViolations(err)
	if !ok || len(vs) != 1 || vs[0].Line != 2 || *vs[0].Available != 1 {
		t.Fatalf("expected one shortage on line 2, got %v", err)
	}
	if stockOf(t, db, plain) != 10 || stockOf(t, db, sku) != 1 {
		t.Fatal("a rejected cart changed stock")
	}
}

func TestCancel_RestoresOnce(t *testing.T) {
	db := openTestDB(t)
	plain, sku := seedProducts(t, db, 5, 3)
	svc := orders.NewService(New(db).Orders())
	ctx := context.Background()

	o, _, err := svc.Place(ctx, orders.PlaceInput{
		Request: orders.Cart([]orders.ItemInput{
			{ProductID: plain.ProductID, Qty: 2},
			{ProductID: sku.ProductID, SKUID: sku.SKUID, Qty: 3},
		}),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _, _ = db.Exec(context.Background(), `DELETE FROM orders WHERE id=$1`, o.ID) })

	for i := 0; i < 2; i++ {
		if _, err := svc.Cancel(ctx, o.ID, ""); err != nil {
			t.Fatalf("cancel %d: %v", i, err)
		}
	}
	if stockOf(t, db, plain) != 5 || stockOf(t, db, sku) != 3 {
		t.Fatal("stock not restored exactly once")
	}
	hist, err := svc.History(ctx, o.ID)
	if err != nil || len(hist) != 2 {
		t.Fatalf("history %+v err=%v", hist, err)
	}
}

func TestAdjustPool_GuardedUpdate(t *testing.T) {
	db := openTestDB(t)
	plain, sku := seedProducts(t, db, 3, 2)
	ctx := context.Background()

	// Without LockPools first, the WHERE guard alone must refuse to go negative.
	err := inTx(ctx, db, func(tx pgx.Tx) error {
		return poolTx{tx}.AdjustPool(ctx, sku, -5)
	})
	vs, ok := stock.AsViolations(err)
	if !ok || !vs.Has(stock.KindInsufficientStock) || *vs[0].Available != 2 {
		t.Fatalf("expected shortage with 2 available, got %v", err)
	}

	err = inTx(ctx, db, func(tx pgx.Tx) error {
		if err := (poolTx{tx}).AdjustPool(ctx, plain, -3); err != nil {
			return err
		}
		return poolTx{tx}.AdjustPool(ctx, sku, -3)
	})
	if _, ok := stock.AsViolations(err); !ok {
		t.Fatalf("expected shortage, got %v", err)
	}
	if stockOf(t, db, plain) != 3 || stockOf(t, db, sku) != 2 {
		t.Fatal("failed transaction left a partial decrement")
	}
}

func TestLockPools_MissingRowIsAViolation(t *testing.T) {
	db := openTestDB(t)
	plain, sku := seedProducts(t, db, 3, 2)
	ctx := context.Background()
	gonePool := stock.Pool{ProductID: sku.ProductID, SKUID: "ZZ"}

	err := inTx(ctx, db, func(tx pgx.Tx) error {
		_, err := poolTx{tx}.LockPools(ctx, []stock.Pool{plain, gonePool})
		return err
	})
	vs, ok := stock.AsViolations(err)
	if !ok || len(vs) != 1 || vs[0].Kind != stock.KindInvalidVariant || vs[0].SKUID != "ZZ" {
		t.Fatalf("expected invalid variant for the missing sku, got %v", err)
	}
}
