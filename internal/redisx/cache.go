package redisx

import (
	"context"
	"errors"
	"fmt"
	"github.com/redis/go-redis/v9"
	"log"
)

// Cache is a best-effort accelerator in front of the database. A nil Cache,
// or one without a client, answers every lookup with a miss.
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache { return &Cache{rdb: rdb} }

func (c *Cache) enabled() bool { return c != nil && c.rdb != nil }

func (c *Cache) RememberOrder(ctx context.Context, externalID, orderID string) {
	if !c.enabled() || externalID == "" {
		return
	}
	if err := c.rdb.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, externalID), orderID, TTLIdempotency).Err(); err != nil {
		log.Printf("[redis] remember order %s: %v", externalID, err)
	}
}

// OrderIDFor returns the order created for externalID, if one is cached.
func (c *Cache) OrderIDFor(ctx context.Context, externalID string) (string, bool) {
	if !c.enabled() || externalID == "" {
		return "", false
	}
	id, err := c.rdb.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, externalID)).Result()
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (c *Cache) PutStatus(ctx context.Context, orderID string, body []byte) {
	if !c.enabled() {
		return
	}
	if err := c.rdb.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), body, TTLStatusCache).Err(); err != nil {
		log.Printf("[redis] cache status %s: %v", orderID, err)
	}
}

func (c *Cache) Status(ctx context.Context, orderID string) ([]byte, bool) {
	if !c.enabled() {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if err != nil || len(b) == 0 {
		return nil, false
	}
	return b, true
}

func (c *Cache) DropStatus(ctx context.Context, orderID string) {
	if !c.enabled() {
		return
	}
	_ = c.rdb.Del(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Err()
}

// FirstSeen claims id for service. It reports false when the id was already
// claimed, so the caller can skip a redelivered event.
func (c *Cache) FirstSeen(ctx context.Context, service, id string) (bool, error) {
	if !c.enabled() {
		return true, nil
	}
	ok, err := c.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, service, id), "1", TTLDedup).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return ok, nil
}

// Release drops a claim so a failed event can be processed again.
func (c *Cache) Release(ctx context.Context, service, id string) {
	if !c.enabled() {
		return
	}
	_ = c.rdb.Del(ctx, fmt.Sprintf(KeyDedup, service, id)).Err()
}
