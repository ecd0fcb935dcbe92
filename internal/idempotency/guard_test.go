package idempotency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/globalpay/payment-orchestrator/internal/models"
)

func TestMemoryGuardAcquireRelease(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	lease, err := g.Acquire(ctx, models.ProviderStripe, "abc123")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if _, err := g.Acquire(ctx, models.ProviderStripe, "abc123"); !errors.Is(err, ErrAlreadyInFlight) {
		t.Fatalf("second Acquire() error = %v, want ErrAlreadyInFlight", err)
	}

	g.Release(ctx, lease)

	if _, err := g.Acquire(ctx, models.ProviderStripe, "abc123"); err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
}

func TestMemoryGuardKeysAreIndependent(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	if _, err := g.Acquire(ctx, models.ProviderStripe, "abc123"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Same intent id under a different provider is a different key.
	if _, err := g.Acquire(ctx, models.ProviderPaypal, "abc123"); err != nil {
		t.Errorf("Acquire() for other provider error = %v", err)
	}
	if _, err := g.Acquire(ctx, models.ProviderStripe, "other"); err != nil {
		t.Errorf("Acquire() for other intent error = %v", err)
	}
}

func TestMemoryGuardConcurrentAcquireOneWinner(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	const workers = 50
	var acquired int32
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Acquire(ctx, models.ProviderStripe, "abc123"); err == nil {
				atomic.AddInt32(&acquired, 1)
			}
		}()
	}
	wg.Wait()

	if acquired != 1 {
		t.Errorf("acquired = %d leases for one key, want 1", acquired)
	}
}

func TestMemoryGuardReleaseNilLease(t *testing.T) {
	g := NewMemoryGuard()
	// Must not panic.
	g.Release(context.Background(), nil)
}
