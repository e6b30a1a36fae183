package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const deliveryKeyPrefix = "webhook:delivery:"

// DeliveryGuard remembers processed webhook delivery ids so retries from the
// gateway short-circuit before touching the database. It is an optimization
// only; payment confirmation stays idempotent without it.
type DeliveryGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDeliveryGuard returns a guard backed by client. A nil client yields a
// guard that has seen nothing.
func NewDeliveryGuard(client *redis.Client, ttl time.Duration) *DeliveryGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DeliveryGuard{client: client, ttl: ttl}
}

func deliveryKey(deliveryID string) string {
	return deliveryKeyPrefix + deliveryID
}

// Seen reports whether deliveryID was processed within the TTL.
func (g *DeliveryGuard) Seen(ctx context.Context, deliveryID string) (bool, error) {
	if g == nil || g.client == nil || deliveryID == "" {
		return false, nil
	}
	n, err := g.client.Exists(ctx, deliveryKey(deliveryID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Remember marks deliveryID as processed. Call it only after the delivery
// was handled successfully.
func (g *DeliveryGuard) Remember(ctx context.Context, deliveryID string) error {
	if g == nil || g.client == nil || deliveryID == "" {
		return nil
	}
	return g.client.Set(ctx, deliveryKey(deliveryID), time.Now().UTC().Unix(), g.ttl).Err()
}
