package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/globalpay/payment-orchestrator/internal/config"
	"github.com/globalpay/payment-orchestrator/internal/models"
)

// PaypalAdapter charges through the PayPal Orders API. Every charge is two
// calls: a client-credentials token exchange, then order creation with the
// bearer token. A failed token exchange fails the whole attempt without
// touching the orders endpoint.
type PaypalAdapter struct {
	cfg        config.PaypalConfig
	httpClient *http.Client
}

func NewPaypalAdapter(cfg config.PaypalConfig) *PaypalAdapter {
	return &PaypalAdapter{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

func (a *PaypalAdapter) Name() models.Provider {
	return models.ProviderPaypal
}

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type paypalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (a *PaypalAdapter) Charge(ctx context.Context, req *models.PaymentRequest) (*models.ProviderResult, error) {
	token, err := a.fetchAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return a.createOrder(ctx, token, req)
}

func (a *PaypalAdapter) fetchAccessToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", a.transportError(err)
	}
	httpReq.SetBasicAuth(a.cfg.ClientID, a.cfg.ClientSecret)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", a.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{
			Provider: models.ProviderPaypal,
			Kind:     KindAuthFailure,
			Detail:   fmt.Sprintf("token exchange returned %d", resp.StatusCode),
		}
	}

	var tokenResp paypalTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", &ProviderError{
			Provider: models.ProviderPaypal,
			Kind:     KindUnreachable,
			Detail:   fmt.Sprintf("decoding token response: %v", err),
		}
	}
	if tokenResp.AccessToken == "" {
		return "", &ProviderError{
			Provider: models.ProviderPaypal,
			Kind:     KindAuthFailure,
			Detail:   "token exchange returned no access token",
		}
	}

	return tokenResp.AccessToken, nil
}

func (a *PaypalAdapter) createOrder(ctx context.Context, token string, req *models.PaymentRequest) (*models.ProviderResult, error) {
	order := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": map[string]string{
					"currency_code": strings.ToUpper(req.Currency),
					"value":         fmt.Sprintf("%.2f", req.Amount),
				},
			},
		},
	}

	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("encoding order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.BaseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return nil, a.transportError(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, a.transportError(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &ProviderError{
			Provider: models.ProviderPaypal,
			Kind:     KindAuthFailure,
			Detail:   fmt.Sprintf("order creation returned %d", resp.StatusCode),
		}
	case resp.StatusCode >= 500:
		return nil, &ProviderError{
			Provider: models.ProviderPaypal,
			Kind:     KindUnreachable,
			Detail:   fmt.Sprintf("order creation returned %d", resp.StatusCode),
		}
	case resp.StatusCode >= 400:
		return nil, &ProviderError{
			Provider: models.ProviderPaypal,
			Kind:     KindRejected,
			Detail:   fmt.Sprintf("order creation returned %d: %s", resp.StatusCode, raw),
		}
	}

	var orderResp paypalOrderResponse
	if err := json.Unmarshal(raw, &orderResp); err != nil {
		return nil, &ProviderError{
			Provider: models.ProviderPaypal,
			Kind:     KindUnreachable,
			Detail:   fmt.Sprintf("decoding order response: %v", err),
		}
	}

	return &models.ProviderResult{
		ProviderTransactionID: orderResp.ID,
		Status:                mapOrderStatus(orderResp.Status),
		Raw:                   raw,
	}, nil
}

func (a *PaypalAdapter) transportError(err error) *ProviderError {
	kind := KindUnreachable
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &urlErr) && urlErr.Timeout()) {
		kind = KindTimeout
	}
	return &ProviderError{
		Provider: models.ProviderPaypal,
		Kind:     kind,
		Detail:   err.Error(),
	}
}

func mapOrderStatus(status string) models.TransactionStatus {
	switch status {
	case "COMPLETED":
		return models.StatusSucceeded
	case "VOIDED":
		return models.StatusFailed
	default:
		// CREATED, APPROVED, SAVED: the order exists but money has not
		// settled yet.
		return models.StatusPending
	}
}
