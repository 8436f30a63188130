package shipping

import (
	"context"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"github.com/shopspring/decimal"
	"time"
)

// Destination is a mitra (partner hotel) orders are shipped to.
type Destination struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DistanceMeters int64  `json:"distance_meters"`
}

// Setting is one immutable version of the admin-editable shipping price.
// An edit produces a new version; orders keep the version they were priced with.
type Setting struct {
	Version    int64           `json:"version"`
	PricePerKm decimal.Decimal `json:"price_per_km"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Quote is the priced shipping leg frozen onto an order.
type Quote struct {
	DestinationID  string          `json:"destination_id,omitempty"`
	DistanceMeters int64           `json:"distance_meters"`
	PricePerKm     decimal.Decimal `json:"price_per_km"`
	SettingVersion int64           `json:"setting_version"`
	Cost           decimal.Decimal `json:"cost"`
}

var thousand = decimal.NewFromInt(1000)

// Cost returns (distance/1000) * pricePerKm rounded to whole rupiah.
// A nil destination or zero distance ships free.
func Cost(dest *Destination, s Setting) (decimal.Decimal, error) {
	if err := CheckPrice(s.PricePerKm); err != nil {
		return decimal.Zero, err
	}
	if dest == nil {
		return decimal.Zero, nil
	}
	if dest.DistanceMeters < 0 {
		return decimal.Zero, stock.Violation{Kind: stock.KindInvalidShippingInput, Message: "distance must not be negative"}
	}
	if dest.DistanceMeters == 0 {
		return decimal.Zero, nil
	}
	km := decimal.NewFromInt(dest.DistanceMeters).Div(thousand)
	return km.Mul(s.PricePerKm).Round(0), nil
}

// Price builds the frozen quote for dest under s.
func Price(dest *Destination, s Setting) (Quote, error) {
	cost, err := Cost(dest, s)
	if err != nil {
		return Quote{}, err
	}
	q := Quote{PricePerKm: s.PricePerKm, SettingVersion: s.Version, Cost: cost}
	if dest != nil {
		q.DestinationID = dest.ID
		q.DistanceMeters = dest.DistanceMeters
	}
	return q, nil
}

// CheckPrice rejects a price per km no setting version may carry.
func CheckPrice(pricePerKm decimal.Decimal) error {
	if pricePerKm.IsNegative() {
		return stock.Violation{Kind: stock.KindInvalidShippingInput, Message: "price per km must not be negative"}
	}
	return nil
}

// Publisher stores a new setting version. Earlier versions stay untouched.
type Publisher interface {
	PublishSetting(ctx context.Context, pricePerKm decimal.Decimal) (Setting, error)
}
