package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/globalpay/payment-orchestrator/internal/idempotency"
	"github.com/globalpay/payment-orchestrator/internal/metrics"
	"github.com/globalpay/payment-orchestrator/internal/models"
	"github.com/globalpay/payment-orchestrator/internal/provider"
	"github.com/globalpay/payment-orchestrator/internal/repository"
)

var (
	// ErrConflict means this (provider, payment intent id) is either in
	// flight right now or has already been charged. The caller must mint a
	// new payment intent id to try again.
	ErrConflict = errors.New("payment intent conflict")

	// ErrUnknownProvider means the request named a provider this gateway
	// cannot route to.
	ErrUnknownProvider = errors.New("unknown payment provider")

	// ErrPersistence means the ledger write failed after the provider call
	// already succeeded. Money may have moved without a matching ledger
	// row; the settlement audit has to reconcile this key.
	ErrPersistence = errors.New("failed to record transaction")
)

// Ledger is the durable transaction store the engine records into.
type Ledger interface {
	Record(ctx context.Context, txn *models.Transaction) (*models.Transaction, error)
	Find(ctx context.Context, provider models.Provider, paymentIntentID string) (*models.Transaction, error)
	List(ctx context.Context) ([]*models.Transaction, error)
}

// Orchestrator routes one payment request to its provider adapter under an
// idempotency lease and records the outcome. Per request:
//
//	acquire lease -> reject already-charged keys -> charge -> record -> release
//
// A ledger row is only ever written for a provider call that succeeded, and
// the lease is released on every exit path.
type Orchestrator struct {
	registry *provider.Registry
	guard    idempotency.Guard
	ledger   Ledger
	timeout  time.Duration
	logger   *zap.Logger
}

func NewOrchestrator(registry *provider.Registry, guard idempotency.Guard, ledger Ledger, timeout time.Duration, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		guard:    guard,
		ledger:   ledger,
		timeout:  timeout,
		logger:   logger,
	}
}

// Process runs one payment orchestration end to end.
func (o *Orchestrator) Process(ctx context.Context, req *models.PaymentRequest) (*models.Receipt, error) {
	start := time.Now()

	if req.Currency == "" {
		req.Currency = "USD"
	}
	req.Currency = strings.ToUpper(req.Currency)

	adapter, ok := o.registry.Get(req.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, req.Provider)
	}

	lease, err := o.guard.Acquire(ctx, req.Provider, req.PaymentIntentID)
	if err != nil {
		if errors.Is(err, idempotency.ErrAlreadyInFlight) {
			o.count(req.Provider, "conflict")
			return nil, fmt.Errorf("%w: %s in flight", ErrConflict, req.PaymentIntentID)
		}
		return nil, err
	}
	// Release must not be skipped by caller cancellation.
	defer o.guard.Release(context.WithoutCancel(ctx), lease)

	// A key that already produced a charge is never re-dispatched, even
	// though its lease is long gone.
	if existing, err := o.ledger.Find(ctx, req.Provider, req.PaymentIntentID); err == nil {
		if existing.Status != models.StatusFailed {
			o.count(req.Provider, "conflict")
			return nil, fmt.Errorf("%w: %s already recorded as %s",
				ErrConflict, req.PaymentIntentID, existing.Status)
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("checking for prior attempt: %w", err)
	}

	// The provider call runs on its own timeout, detached from the caller:
	// once money may start moving, a dropped client connection must not
	// abandon the orchestration.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()

	result, err := adapter.Charge(callCtx, req)
	if err != nil {
		o.count(req.Provider, "provider_error")
		o.logger.Warn("provider call failed",
			zap.String("provider", string(req.Provider)),
			zap.String("payment_intent_id", req.PaymentIntentID),
			zap.Error(err))
		return nil, err
	}

	if result.Status == models.StatusFailed {
		// A decline is an answer. Nothing is recorded; the key stays free
		// for the caller to retry with a fresh intent id.
		o.count(req.Provider, "declined")
		o.observe(req.Provider, start)
		return &models.Receipt{
			Status:                models.StatusFailed,
			ProviderTransactionID: result.ProviderTransactionID,
		}, nil
	}

	txn := &models.Transaction{
		Provider:              req.Provider,
		PaymentIntentID:       req.PaymentIntentID,
		ProviderTransactionID: result.ProviderTransactionID,
		Amount:                req.Amount,
		Currency:              req.Currency,
		Status:                result.Status,
	}

	recorded, err := o.ledger.Record(context.WithoutCancel(ctx), txn)
	if err != nil {
		// The provider call already succeeded; from here on, every failure
		// is a divergence between money and ledger that must reach an
		// operator.
		metrics.LedgerAnomalies.Inc()
		o.logger.Error("provider charge succeeded but ledger write failed",
			zap.String("provider", string(req.Provider)),
			zap.String("payment_intent_id", req.PaymentIntentID),
			zap.String("provider_transaction_id", result.ProviderTransactionID),
			zap.Error(err))

		if errors.Is(err, repository.ErrDuplicate) {
			o.count(req.Provider, "conflict")
			return nil, fmt.Errorf("%w: concurrent attempt won the record for %s",
				ErrConflict, req.PaymentIntentID)
		}
		o.count(req.Provider, "persistence_error")
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	o.count(req.Provider, string(recorded.Status))
	o.observe(req.Provider, start)

	return &models.Receipt{
		Status:                recorded.Status,
		ProviderTransactionID: recorded.ProviderTransactionID,
		TransactionID:         recorded.ID,
	}, nil
}

// ListTransactions returns the ledger in insertion order.
func (o *Orchestrator) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return o.ledger.List(ctx)
}

// FindTransaction looks up the transaction for one orchestration key.
func (o *Orchestrator) FindTransaction(ctx context.Context, p models.Provider, paymentIntentID string) (*models.Transaction, error) {
	return o.ledger.Find(ctx, p, paymentIntentID)
}

func (o *Orchestrator) count(p models.Provider, outcome string) {
	metrics.PaymentsTotal.WithLabelValues(string(p), outcome).Inc()
}

func (o *Orchestrator) observe(p models.Provider, start time.Time) {
	metrics.PaymentDuration.WithLabelValues(string(p)).Observe(time.Since(start).Seconds())
}
