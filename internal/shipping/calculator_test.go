package shipping

import (
	"errors"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/shopspring/decimal"
	"testing"
)

func TestCost(t *testing.T) {
	s := Setting{Version: 3, PricePerKm: decimal.NewFromInt(5000)}

	cases := []struct {
		name string
		dest *Destination
		want int64
	}{
		{"5 km", &Destination{ID: "m1", DistanceMeters: 5000}, 25000},
		{"no destination", nil, 0},
		{"zero distance", &Destination{ID: "m0"}, 0},
		{"partial km rounds", &Destination{ID: "m2", DistanceMeters: 1250}, 6250},
		{"sub rupiah rounds half up", &Destination{ID: "m3", DistanceMeters: 1}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Cost(tc.dest, s)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(decimal.NewFromInt(tc.want)) {
				t.Fatalf("cost %s, want %d", got, tc.want)
			}
		})
	}
}

func TestCost_InvalidInput(t *testing.T) {
	_, err := Cost(&Destination{DistanceMeters: -1}, Setting{PricePerKm: decimal.NewFromInt(1)})
	var v stock.Violation
	if !errors.As(err, &v) || v.Kind != stock.KindInvalidShippingInput {
		t.Fatalf("expected invalid shipping input, got %v", err)
	}
	_, err = Cost(nil, Setting{PricePerKm: decimal.NewFromInt(-1)})
	if !errors.As(err, &v) || v.Kind != stock.KindInvalidShippingInput {
		t.Fatalf("expected invalid shipping input for negative price, got %v", err)
	}
}

func TestPrice_FreezesSetting(t *testing.T) {
	q, err := Price(&Destination{ID: "m1", DistanceMeters: 2000}, Setting{Version: 7, PricePerKm: decimal.NewFromInt(3000)})
	if err != nil {
		t.Fatal(err)
	}
	if q.SettingVersion != 7 || q.DestinationID != "m1" || !q.Cost.Equal(decimal.NewFromInt(6000)) {
		t.Fatalf("unexpected quote %+v", q)
	}
}
