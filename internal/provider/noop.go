package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/globalpay/payment-orchestrator/internal/models"
)

// NoopAdapter stands in for providers that are not integrated yet (WeChat
// Pay, Alipay). It returns a synthetic succeeded result without any network
// call so the orchestration still runs the full lease/record/release path.
// Not for production use.
type NoopAdapter struct {
	provider models.Provider
}

func NewNoopAdapter(p models.Provider) *NoopAdapter {
	return &NoopAdapter{provider: p}
}

func (a *NoopAdapter) Name() models.Provider {
	return a.provider
}

func (a *NoopAdapter) Charge(_ context.Context, req *models.PaymentRequest) (*models.ProviderResult, error) {
	id := fmt.Sprintf("%s_%s", a.provider, uuid.New().String())
	raw := fmt.Sprintf(`{"simulated":true,"provider":%q,"amount":%.2f,"currency":%q}`,
		a.provider, req.Amount, req.Currency)

	return &models.ProviderResult{
		ProviderTransactionID: id,
		Status:                models.StatusSucceeded,
		Raw:                   []byte(raw),
	}, nil
}
