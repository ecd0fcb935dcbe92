package provider

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/globalpay/payment-orchestrator/internal/config"
	"github.com/globalpay/payment-orchestrator/internal/models"
)

// StripeAdapter charges through the Stripe PaymentIntents API.
type StripeAdapter struct {
	api *client.API
}

func NewStripeAdapter(cfg config.StripeConfig) *StripeAdapter {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeAdapter{api: api}
}

func (a *StripeAdapter) Name() models.Provider {
	return models.ProviderStripe
}

func (a *StripeAdapter) Charge(ctx context.Context, req *models.PaymentRequest) (*models.ProviderResult, error) {
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Amount:   stripe.Int64(MinorUnits(req.Amount, req.Currency)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
	}

	intent, err := a.api.PaymentIntents.New(params)
	if err != nil {
		return a.mapError(err)
	}

	result := &models.ProviderResult{
		ProviderTransactionID: intent.ID,
		Status:                mapIntentStatus(intent.Status),
	}
	if intent.LastResponse != nil {
		result.Raw = intent.LastResponse.RawJSON
	}
	return result, nil
}

// mapError separates business declines from transport and auth failures.
func (a *StripeAdapter) mapError(err error) (*models.ProviderResult, error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Type == stripe.ErrorTypeCard {
			// The card was declined. That is an answer, not a failure.
			result := &models.ProviderResult{
				Status: models.StatusFailed,
				Raw:    []byte(stripeErr.Msg),
			}
			if stripeErr.PaymentIntent != nil {
				result.ProviderTransactionID = stripeErr.PaymentIntent.ID
			}
			return result, nil
		}

		kind := KindRejected
		if stripeErr.HTTPStatusCode == http.StatusUnauthorized || stripeErr.HTTPStatusCode == http.StatusForbidden {
			kind = KindAuthFailure
		}
		return nil, &ProviderError{
			Provider: models.ProviderStripe,
			Kind:     kind,
			Detail:   stripeErr.Msg,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return nil, &ProviderError{
			Provider: models.ProviderStripe,
			Kind:     KindTimeout,
			Detail:   err.Error(),
		}
	}

	return nil, &ProviderError{
		Provider: models.ProviderStripe,
		Kind:     KindUnreachable,
		Detail:   err.Error(),
	}
}

func mapIntentStatus(status stripe.PaymentIntentStatus) models.TransactionStatus {
	switch status {
	case stripe.PaymentIntentStatusProcessing:
		return models.StatusPending
	case stripe.PaymentIntentStatusCanceled:
		return models.StatusFailed
	default:
		// A 2xx create is an accepted charge attempt.
		return models.StatusSucceeded
	}
}

// Currencies Stripe treats as zero-decimal: amounts are already in the
// smallest unit.
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true,
	"KMF": true, "KRW": true, "MGA": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true,
	"XPF": true,
}

// MinorUnits converts a decimal amount to the provider's minor-unit
// convention (cents for two-decimal currencies).
func MinorUnits(amount float64, currency string) int64 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return int64(math.Round(amount))
	}
	return int64(math.Round(amount * 100))
}
