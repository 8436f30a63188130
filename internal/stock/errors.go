package stock

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindVariantRequired           Kind = "VARIANT_REQUIRED"
	KindInvalidVariant            Kind = "INVALID_VARIANT"
	KindProductNotFound           Kind = "PRODUCT_NOT_FOUND"
	KindInvalidQuantity           Kind = "INVALID_QUANTITY"
	KindInsufficientStock         Kind = "INSUFFICIENT_STOCK"
	KindInsufficientStoreStock    Kind = "INSUFFICIENT_STORE_STOCK"
	KindInsufficientAssignedStock Kind = "INSUFFICIENT_ASSIGNED_STOCK"
	KindInvalidShippingInput      Kind = "INVALID_SHIPPING_INPUT"
	KindEmptyOrder                Kind = "EMPTY_ORDER"
	KindConcurrentStockConflict   Kind = "CONCURRENT_STOCK_CONFLICT"
)

// ErrConcurrentStockConflict aborts a whole request when the database could not
// serialize it. Callers may resubmit the same input.
var ErrConcurrentStockConflict = errors.New("concurrent stock conflict, retry the request")

// Violation is one per-line rejection. Line is 1-based; 0 means the request as a whole.
type Violation struct {
	Kind      Kind   `json:"kind"`
	Line      int    `json:"line,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	SKUID     string `json:"sku_id,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
	Message   string `json:"message"`
}

func (v Violation) Error() string {
	var b strings.Builder
	b.WriteString(string(v.Kind))
	if v.Line > 0 {
		fmt.Fprintf(&b, " line=%d", v.Line)
	}
	if v.ProductID != "" {
		fmt.Fprintf(&b, " product=%s", v.ProductID)
	}
	if v.SKUID != "" {
		fmt.Fprintf(&b, " sku=%s", v.SKUID)
	}
	if v.Available != nil {
		fmt.Fprintf(&b, " requested=%d available=%d", v.Requested, *v.Available)
	}
	if v.Message != "" {
		b.WriteString(": ")
		b.WriteString(v.Message)
	}
	return b.String()
}

// Violations is the batch error returned whenever validation rejects a request.
type Violations []Violation

func (vs Violations) Error() string {
	if len(vs) == 1 {
		return vs[0].Error()
	}
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		parts = append(parts, v.Error())
	}
	return fmt.Sprintf("%d violations: %s", len(vs), strings.Join(parts, "; "))
}

// Has reports whether any violation in the batch is of kind k.
func (vs Violations) Has(k Kind) bool {
	for _, v := range vs {
		if v.Kind == k {
			return true
		}
	}
	return false
}

// Err returns nil for an empty batch so callers can `return vs.Err()`.
func (vs Violations) Err() error {
	if len(vs) == 0 {
		return nil
	}
	return vs
}

// AsViolations unwraps err into its batch, if it carries one.
func AsViolations(err error) (Violations, bool) {
	var vs Violations
	if errors.As(err, &vs) {
		return vs, true
	}
	var v Violation
	if errors.As(err, &v) {
		return Violations{v}, true
	}
	return nil, false
}

// Shortage builds an insufficient-stock style violation carrying the amount left.
func Shortage(kind Kind, line int, pool Pool, requested, available int) Violation {
	a := available
	return Violation{
		Kind:      kind,
		Line:      line,
		ProductID: pool.ProductID,
		SKUID:     pool.SKUID,
		Requested: requested,
		Available: &a,
		Message:   fmt.Sprintf("only %d available", available),
	}
}

// Gone is the violation for a pool that was resolved at composition but no
// longer exists when its row is locked.
func Gone(line int, pool Pool) Violation {
	if pool.IsSKU() {
		return Violation{Kind: KindInvalidVariant, Line: line, ProductID: pool.ProductID, SKUID: pool.SKUID, Message: "sku no longer exists"}
	}
	return Violation{Kind: KindProductNotFound, Line: line, ProductID: pool.ProductID, Message: "product no longer exists"}
}
