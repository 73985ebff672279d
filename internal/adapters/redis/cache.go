package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Laminito/event-app-pro-backend/internal/domain"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// CacheInventory keeps a short-lived availability snapshot for the public
// event detail page. The ledger remains the source of truth; the snapshot
// only absorbs read bursts.
func (c *Cache) CacheInventory(ctx context.Context, inv *domain.EventInventory, ttl time.Duration) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "inv:"+inv.EventID.String(), data, ttl).Err()
}

func (c *Cache) GetInventory(ctx context.Context, eventID string) (*domain.EventInventory, error) {
	val, err := c.client.Get(ctx, "inv:"+eventID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var inv domain.EventInventory
	if err := json.Unmarshal(val, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *Cache) InvalidateInventory(ctx context.Context, eventID string) error {
	return c.client.Del(ctx, "inv:"+eventID).Err()
}
