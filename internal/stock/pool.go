package stock

import (
	"context"
	"sort"
)

// Pool identifies one stock counter: the product row itself, or one of its SKUs.
type Pool struct {
	ProductID string `json:"product_id"`
	SKUID     string `json:"sku_id,omitempty"`
}

func (p Pool) IsSKU() bool { return p.SKUID != "" }

func (p Pool) String() string {
	if p.SKUID == "" {
		return p.ProductID
	}
	return p.ProductID + "/" + p.SKUID
}

// Locker is the slice of a store transaction that touches stock counters.
// LockPools must hold the rows until the surrounding transaction ends.
type Locker interface {
	LockPools(ctx context.Context, pools []Pool) (map[Pool]int, error)
	AdjustPool(ctx context.Context, pool Pool, delta int) error
}

// SortedUnique returns the distinct pools in lock order (product, then sku).
// Every writer locks in this order so two requests never wait on each other crosswise.
func SortedUnique(pools []Pool) []Pool {
	seen := make(map[Pool]struct{}, len(pools))
	out := make([]Pool, 0, len(pools))
	for _, p := range pools {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].SKUID < out[j].SKUID
	})
	return out
}
