package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/globalpay/payment-orchestrator/internal/models"
)

// ErrAlreadyInFlight means another orchestration currently holds the lease
// for this (provider, payment intent id).
var ErrAlreadyInFlight = errors.New("payment intent already in flight")

// Lease marks exclusive ownership of one orchestration key for the
// duration of a single call.
type Lease struct {
	Provider        models.Provider
	PaymentIntentID string
}

func (l *Lease) key() string {
	return fmt.Sprintf("%s:%s", l.Provider, l.PaymentIntentID)
}

// Guard grants at most one concurrent lease per (provider, payment intent
// id). Acquire is atomic: two concurrent acquisitions of the same key
// resolve to exactly one lease and one ErrAlreadyInFlight.
type Guard interface {
	Acquire(ctx context.Context, provider models.Provider, paymentIntentID string) (*Lease, error)
	Release(ctx context.Context, lease *Lease)
}

// MemoryGuard is the in-process implementation, a lock table keyed by
// (provider, payment intent id).
type MemoryGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		inFlight: make(map[string]struct{}),
	}
}

func (g *MemoryGuard) Acquire(_ context.Context, provider models.Provider, paymentIntentID string) (*Lease, error) {
	lease := &Lease{Provider: provider, PaymentIntentID: paymentIntentID}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.inFlight[lease.key()]; held {
		return nil, ErrAlreadyInFlight
	}
	g.inFlight[lease.key()] = struct{}{}
	return lease, nil
}

func (g *MemoryGuard) Release(_ context.Context, lease *Lease) {
	if lease == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, lease.key())
}
