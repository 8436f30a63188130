package orders

import (
	"github.com/ariefcatur/mitra-storefront/internal/stock"
)

// Validate checks every line against the stock available in its pool and
// returns all violations at once. Lines drawing from the same pool are checked
// against what earlier lines left, so their sum can never exceed the pool.
func Validate(lines []Line, available map[stock.Pool]int) error {
	return ValidateAgainst(lines, available, stock.KindInsufficientStock)
}

// ValidateAgainst is Validate with the shortage kind chosen by the caller, so
// the sales ledger reports InsufficientAssignedStock for the same rule.
func ValidateAgainst(lines []Line, available map[stock.Pool]int, shortage stock.Kind) error {
	if len(lines) == 0 {
		return stock.Violations{{Kind: stock.KindEmptyOrder, Message: "no lines"}}
	}
	remaining := make(map[stock.Pool]int, len(available))
	for p, n := range available {
		remaining[p] = n
	}

	var bad stock.Violations
	for _, l := range lines {
		pool := l.Pool()
		if l.Qty <= 0 {
			bad = append(bad, stock.Violation{
				Kind: stock.KindInvalidQuantity, Line: l.LineNo,
				ProductID: l.ProductID, SKUID: l.SKUID, Requested: l.Qty,
				Message: "quantity must be greater than zero",
			})
			continue
		}
		left := remaining[pool]
		if l.Qty > left {
			bad = append(bad, stock.Shortage(shortage, l.LineNo, pool, l.Qty, left))
			continue
		}
		remaining[pool] = left - l.Qty
	}
	return bad.Err()
}

// Pools lists the distinct pools touched by lines, in lock order.
func Pools(lines []Line) []stock.Pool {
	ps := make([]stock.Pool, 0, len(lines))
	for _, l := range lines {
		ps = append(ps, l.Pool())
	}
	return stock.SortedUnique(ps)
}

// onLines copies each pool-wide violation in err onto every line drawing from
// that pool, so the caller sees which lines to fix. Other errors pass through.
func onLines(err error, lines []Line) error {
	vs, ok := stock.AsViolations(err)
	if !ok {
		return err
	}
	out := make(stock.Violations, 0, len(vs))
	for _, v := range vs {
		if v.Line != 0 || v.ProductID == "" {
			out = append(out, v)
			continue
		}
		pool := stock.Pool{ProductID: v.ProductID, SKUID: v.SKUID}
		matched := false
		for _, l := range lines {
			if l.Pool() == pool {
				c := v
				c.Line = l.LineNo
				out = append(out, c)
				matched = true
			}
		}
		if !matched {
			out = append(out, v)
		}
	}
	return out
}
