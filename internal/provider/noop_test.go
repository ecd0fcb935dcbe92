package provider

import (
	"context"
	"testing"

	"github.com/globalpay/payment-orchestrator/internal/models"
)

func TestNoopAdapterSyntheticSuccess(t *testing.T) {
	adapter := NewNoopAdapter(models.ProviderWechat)

	if adapter.Name() != models.ProviderWechat {
		t.Errorf("Name() = %v, want wechat", adapter.Name())
	}

	req := &models.PaymentRequest{
		Amount:          12.34,
		Currency:        "USD",
		Provider:        models.ProviderWechat,
		PaymentIntentID: "intent-1",
	}

	first, err := adapter.Charge(context.Background(), req)
	if err != nil {
		t.Fatalf("Charge() error = %v", err)
	}
	if first.Status != models.StatusSucceeded {
		t.Errorf("status = %v, want succeeded", first.Status)
	}
	if first.ProviderTransactionID == "" {
		t.Error("missing synthetic provider transaction id")
	}
	if len(first.Raw) == 0 {
		t.Error("missing synthetic raw payload")
	}

	second, err := adapter.Charge(context.Background(), req)
	if err != nil {
		t.Fatalf("Charge() error = %v", err)
	}
	if second.ProviderTransactionID == first.ProviderTransactionID {
		t.Error("synthetic transaction ids should be unique per charge")
	}
}
