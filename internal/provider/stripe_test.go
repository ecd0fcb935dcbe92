package provider

import (
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v76"

	"github.com/globalpay/payment-orchestrator/internal/config"
	"github.com/globalpay/payment-orchestrator/internal/models"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		currency string
		want     int64
	}{
		{"two-decimal USD", 19.99, "USD", 1999},
		{"whole USD", 100, "USD", 10000},
		{"rounding", 10.005, "EUR", 1001},
		{"zero-decimal JPY", 500, "JPY", 500},
		{"zero-decimal KRW lowercase", 1000, "krw", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinorUnits(tt.amount, tt.currency)
			if got != tt.want {
				t.Errorf("MinorUnits(%v, %q) = %d, want %d", tt.amount, tt.currency, got, tt.want)
			}
		})
	}
}

func TestMapIntentStatus(t *testing.T) {
	tests := []struct {
		status stripe.PaymentIntentStatus
		want   models.TransactionStatus
	}{
		{stripe.PaymentIntentStatusSucceeded, models.StatusSucceeded},
		{stripe.PaymentIntentStatusProcessing, models.StatusPending},
		{stripe.PaymentIntentStatusCanceled, models.StatusFailed},
		{stripe.PaymentIntentStatusRequiresPaymentMethod, models.StatusSucceeded},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := mapIntentStatus(tt.status); got != tt.want {
				t.Errorf("mapIntentStatus(%s) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestStripeErrorMapping(t *testing.T) {
	adapter := NewStripeAdapter(config.StripeConfig{SecretKey: "sk_test_x"})

	t.Run("card decline is a result, not an error", func(t *testing.T) {
		result, err := adapter.mapError(&stripe.Error{
			Type: stripe.ErrorTypeCard,
			Msg:  "Your card was declined.",
		})
		if err != nil {
			t.Fatalf("mapError() error = %v, want nil", err)
		}
		if result.Status != models.StatusFailed {
			t.Errorf("status = %v, want failed", result.Status)
		}
	})

	t.Run("401 is auth failure", func(t *testing.T) {
		_, err := adapter.mapError(&stripe.Error{
			Type:           stripe.ErrorTypeInvalidRequest,
			HTTPStatusCode: 401,
			Msg:            "Invalid API key",
		})

		var providerErr *ProviderError
		if !errors.As(err, &providerErr) || providerErr.Kind != KindAuthFailure {
			t.Fatalf("mapError() = %v, want AuthFailure", err)
		}
		if providerErr.Retryable() {
			t.Error("auth failure should not be retryable")
		}
	})

	t.Run("api error is rejected", func(t *testing.T) {
		_, err := adapter.mapError(&stripe.Error{
			Type:           stripe.ErrorTypeAPI,
			HTTPStatusCode: 400,
			Msg:            "bad request",
		})

		var providerErr *ProviderError
		if !errors.As(err, &providerErr) || providerErr.Kind != KindRejected {
			t.Fatalf("mapError() = %v, want Rejected", err)
		}
	})

	t.Run("transport failure is unreachable", func(t *testing.T) {
		_, err := adapter.mapError(errors.New("dial tcp: connection refused"))

		var providerErr *ProviderError
		if !errors.As(err, &providerErr) || providerErr.Kind != KindUnreachable {
			t.Fatalf("mapError() = %v, want Unreachable", err)
		}
	})
}
