package redisx

import "time"

const (
	// idem:order:create:{external_id} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s"

	// order_status:{order_id} -> {"order_id","buyer_id","status","updated_at"}; dropped on consumer-side changes
	KeyOrderStatus = "order_status:%s"

	// dedup:{service}:{event_id}, claimed with SETNX before an event is applied
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
