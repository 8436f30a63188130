package catalog

import (
	"errors"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/shopspring/decimal"
	"testing"
)

func kindOf(t *testing.T, err error) stock.Kind {
	t.Helper()
	var v stock.Violation
	if !errors.As(err, &v) {
		t.Fatalf("expected violation, got %v", err)
	}
	return v.Kind
}

func TestResolve(t *testing.T) {
	plain := Product{ID: "P", SellPrice: decimal.NewFromInt(15000), Stock: 10}
	varied := Product{
		ID:            "Q",
		SellPrice:     decimal.NewFromInt(1),
		HasVariations: true,
		SKUs: []SKU{
			{ID: "A", ProductID: "Q", Name: "Small", Price: decimal.NewFromInt(20000), Stock: 3, Active: true},
			{ID: "B", ProductID: "Q", Name: "Large", Price: decimal.NewFromInt(25000), Stock: 0, Active: true},
			{ID: "C", ProductID: "Q", Price: decimal.NewFromInt(1), Stock: 9, Active: false},
			{ID: "X", ProductID: "other", Price: decimal.NewFromInt(1), Stock: 9, Active: true},
		},
	}

	t.Run("plain product", func(t *testing.T) {
		r, err := Resolve(plain, "")
		if err != nil {
			t.Fatal(err)
		}
		if r.Pool != (stock.Pool{ProductID: "P"}) || r.Available != 10 || !r.UnitPrice.Equal(decimal.NewFromInt(15000)) {
			t.Fatalf("unexpected resolution %+v", r)
		}
	})

	t.Run("sku of varied product", func(t *testing.T) {
		r, err := Resolve(varied, "A")
		if err != nil {
			t.Fatal(err)
		}
		if r.Pool != (stock.Pool{ProductID: "Q", SKUID: "A"}) || r.Available != 3 || r.SKUName != "Small" {
			t.Fatalf("unexpected resolution %+v", r)
		}
		if !r.UnitPrice.Equal(decimal.NewFromInt(20000)) {
			t.Fatalf("sku price must win over product price, got %s", r.UnitPrice)
		}
	})

	cases := []struct {
		name string
		p    Product
		sku  string
		want stock.Kind
	}{
		{"varied without sku", varied, "", stock.KindVariantRequired},
		{"plain with sku", plain, "A", stock.KindInvalidVariant},
		{"unknown sku", varied, "Z", stock.KindInvalidVariant},
		{"inactive sku", varied, "C", stock.KindInvalidVariant},
		{"foreign sku", varied, "X", stock.KindInvalidVariant},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(tc.p, tc.sku)
			if got := kindOf(t, err); got != tc.want {
				t.Fatalf("kind %s, want %s", got, tc.want)
			}
		})
	}
}
