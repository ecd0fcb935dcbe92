package idempotency

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/globalpay/payment-orchestrator/internal/models"
	"github.com/globalpay/payment-orchestrator/pkg/redis"
)

// RedisGuard provides leases that hold across processes, using atomic
// SET NX with a TTL. The TTL is a backstop against a crashed holder; it
// must comfortably exceed the provider call budget so a live orchestration
// never loses its lease mid-call.
type RedisGuard struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisGuard(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisGuard {
	return &RedisGuard{
		redis:  client,
		ttl:    ttl,
		logger: logger,
	}
}

func (g *RedisGuard) Acquire(ctx context.Context, provider models.Provider, paymentIntentID string) (*Lease, error) {
	lease := &Lease{Provider: provider, PaymentIntentID: paymentIntentID}

	ok, err := g.redis.SetNX(ctx, g.redisKey(lease), "1", g.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquiring lease: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyInFlight
	}
	return lease, nil
}

func (g *RedisGuard) Release(ctx context.Context, lease *Lease) {
	if lease == nil {
		return
	}
	if err := g.redis.Delete(ctx, g.redisKey(lease)); err != nil {
		// The TTL will reap it; the key just stays locked a bit longer.
		g.logger.Warn("failed to release lease",
			zap.String("provider", string(lease.Provider)),
			zap.String("payment_intent_id", lease.PaymentIntentID),
			zap.Error(err))
	}
}

func (g *RedisGuard) redisKey(lease *Lease) string {
	return fmt.Sprintf("lease:%s", lease.key())
}
