package provider

import (
	"context"
	"fmt"

	"github.com/globalpay/payment-orchestrator/internal/models"
)

// Adapter translates a normalized payment request into one provider's wire
// call and normalizes the response. Adapters never retry, never write to
// the ledger, and hold no per-request state.
type Adapter interface {
	Name() models.Provider

	// Charge performs at most one outbound call. A business-level decline
	// comes back as a ProviderResult with status failed and a nil error;
	// transport and auth failures come back as a *ProviderError.
	Charge(ctx context.Context, req *models.PaymentRequest) (*models.ProviderResult, error)
}

type ErrorKind string

const (
	KindAuthFailure ErrorKind = "auth_failure"
	KindRejected    ErrorKind = "rejected"
	KindTimeout     ErrorKind = "timeout"
	KindUnreachable ErrorKind = "unreachable"
)

// ProviderError is a failed provider call, as opposed to a provider that
// answered and declined.
type ProviderError struct {
	Provider models.Provider
	Kind     ErrorKind
	Detail   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Detail)
}

// Retryable reports whether the caller may safely retry with a new payment
// intent id. Declines and auth failures are final for this attempt.
func (e *ProviderError) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindUnreachable
}

// Registry maps providers to their adapters.
type Registry struct {
	adapters map[models.Provider]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Provider]Adapter)}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

func (r *Registry) Get(p models.Provider) (Adapter, bool) {
	a, ok := r.adapters[p]
	return a, ok
}
