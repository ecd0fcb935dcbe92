package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/globalpay/payment-orchestrator/internal/config"
	"github.com/globalpay/payment-orchestrator/internal/models"
)

func paypalRequest() *models.PaymentRequest {
	return &models.PaymentRequest{
		Amount:          25.50,
		Currency:        "USD",
		Provider:        models.ProviderPaypal,
		PaymentIntentID: "intent-1",
	}
}

func newPaypalServer(t *testing.T, tokenStatus int, orderStatus int, orderBody interface{}) (*httptest.Server, *int32) {
	t.Helper()
	var orderCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(tokenStatus)
		if tokenStatus == http.StatusOK {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "token-1"})
		}
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&orderCalls, 1)
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(orderStatus)
		json.NewEncoder(w).Encode(orderBody)
	})

	return httptest.NewServer(mux), &orderCalls
}

func TestPaypalChargeCreatesOrder(t *testing.T) {
	srv, _ := newPaypalServer(t, http.StatusOK, http.StatusCreated,
		map[string]string{"id": "order-42", "status": "CREATED"})
	defer srv.Close()

	adapter := NewPaypalAdapter(config.PaypalConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		BaseURL:      srv.URL,
	})

	result, err := adapter.Charge(context.Background(), paypalRequest())
	if err != nil {
		t.Fatalf("Charge() error = %v", err)
	}
	if result.ProviderTransactionID != "order-42" {
		t.Errorf("provider transaction id = %q, want order-42", result.ProviderTransactionID)
	}
	if result.Status != models.StatusPending {
		t.Errorf("status = %v, want pending for a CREATED order", result.Status)
	}
	if len(result.Raw) == 0 {
		t.Error("raw response not captured")
	}
}

func TestPaypalChargeCompletedOrder(t *testing.T) {
	srv, _ := newPaypalServer(t, http.StatusOK, http.StatusCreated,
		map[string]string{"id": "order-42", "status": "COMPLETED"})
	defer srv.Close()

	adapter := NewPaypalAdapter(config.PaypalConfig{
		ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL,
	})

	result, err := adapter.Charge(context.Background(), paypalRequest())
	if err != nil {
		t.Fatalf("Charge() error = %v", err)
	}
	if result.Status != models.StatusSucceeded {
		t.Errorf("status = %v, want succeeded", result.Status)
	}
}

func TestPaypalTokenFailureFailsFast(t *testing.T) {
	srv, orderCalls := newPaypalServer(t, http.StatusUnauthorized, http.StatusCreated, nil)
	defer srv.Close()

	adapter := NewPaypalAdapter(config.PaypalConfig{
		ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL,
	})

	_, err := adapter.Charge(context.Background(), paypalRequest())

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) || providerErr.Kind != KindAuthFailure {
		t.Fatalf("Charge() error = %v, want AuthFailure", err)
	}
	if n := atomic.LoadInt32(orderCalls); n != 0 {
		t.Errorf("order endpoint called %d times after failed token exchange, want 0", n)
	}
}

func TestPaypalOrderErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		orderStatus int
		wantKind    ErrorKind
	}{
		{"server error is unreachable", http.StatusInternalServerError, KindUnreachable},
		{"unprocessable is rejected", http.StatusUnprocessableEntity, KindRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newPaypalServer(t, http.StatusOK, tt.orderStatus, map[string]string{})
			defer srv.Close()

			adapter := NewPaypalAdapter(config.PaypalConfig{
				ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL,
			})

			_, err := adapter.Charge(context.Background(), paypalRequest())

			var providerErr *ProviderError
			if !errors.As(err, &providerErr) || providerErr.Kind != tt.wantKind {
				t.Fatalf("Charge() error = %v, want kind %s", err, tt.wantKind)
			}
		})
	}
}

func TestPaypalUnreachableHost(t *testing.T) {
	adapter := NewPaypalAdapter(config.PaypalConfig{
		ClientID: "id", ClientSecret: "secret",
		BaseURL: "http://127.0.0.1:1",
	})

	_, err := adapter.Charge(context.Background(), paypalRequest())

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("Charge() error = %v, want ProviderError", err)
	}
	if providerErr.Kind != KindUnreachable && providerErr.Kind != KindTimeout {
		t.Errorf("kind = %s, want unreachable or timeout", providerErr.Kind)
	}
	if !providerErr.Retryable() {
		t.Error("transport failure should be retryable")
	}
}
