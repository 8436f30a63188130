package postgres

import (
	"errors"
	"fmt"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/jackc/pgx/v5/pgconn"
	"testing"
)

func TestMapErr(t *testing.T) {
	for _, code := range []string{"40001", "40P01"} {
		err := mapErr(fmt.Errorf("lock pools: %w", &pgconn.PgError{Code: code, Message: "could not serialize"}))
		if !errors.Is(err, stock.ErrConcurrentStockConflict) {
			t.Fatalf("%s: expected conflict, got %v", code, err)
		}
	}
	other := &pgconn.PgError{Code: "23503"}
	if err := mapErr(other); errors.Is(err, stock.ErrConcurrentStockConflict) {
		t.Fatalf("foreign key error must pass through")
	}
	if mapErr(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "orders_external_id_key"})
	if !isUniqueViolation(err, "orders_external_id_key") || !isUniqueViolation(err, "") {
		t.Fatalf("expected unique violation")
	}
	if isUniqueViolation(err, "orders_pkey") {
		t.Fatalf("constraint name must match")
	}
}

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@db:5432/app?sslmode=disable":   "pgx5://u:p@db:5432/app?sslmode=disable",
		"postgresql://u:p@db:5432/app?sslmode=disable": "pgx5://u:p@db:5432/app?sslmode=disable",
		"pgx5://db/app": "pgx5://db/app",
	}
	for in, want := range cases {
		if got := migrateURL(in); got != want {
			t.Errorf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}
