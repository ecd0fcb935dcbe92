package models

import "time"

type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderPaypal Provider = "paypal"
	ProviderWechat Provider = "wechat"
	ProviderAlipay Provider = "alipay"
)

// Valid reports whether the provider is one this gateway can route to.
func (p Provider) Valid() bool {
	switch p {
	case ProviderStripe, ProviderPaypal, ProviderWechat, ProviderAlipay:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusSucceeded TransactionStatus = "succeeded"
	StatusPending   TransactionStatus = "pending"
	StatusFailed    TransactionStatus = "failed"
)

// PaymentRequest is the normalized inbound payment. The payment intent id
// is caller-supplied and acts as the idempotency key for the whole
// orchestration; it is opaque to this service.
type PaymentRequest struct {
	Amount          float64  `json:"amount" binding:"required,gt=0"`
	Currency        string   `json:"currency" binding:"omitempty,len=3"`
	Provider        Provider `json:"provider"`
	PaymentIntentID string   `json:"payment_intent_id" binding:"required"`
}

// ProviderResult is what an adapter hands back after talking to the
// provider. Raw keeps the provider's response body for audit; it is never
// persisted as-is.
type ProviderResult struct {
	ProviderTransactionID string
	Status                TransactionStatus
	Raw                   []byte
}

// Transaction is the durable record of one provider outcome. Rows are
// written once and never mutated.
type Transaction struct {
	ID                    string            `json:"id" db:"id"`
	Provider              Provider          `json:"provider" db:"provider"`
	PaymentIntentID       string            `json:"payment_intent_id" db:"payment_intent_id"`
	ProviderTransactionID string            `json:"provider_transaction_id" db:"provider_transaction_id"`
	Amount                float64           `json:"amount" db:"amount"`
	Currency              string            `json:"currency" db:"currency"`
	Status                TransactionStatus `json:"status" db:"status"`
	CreatedAt             time.Time         `json:"created_at" db:"created_at"`
}

// Receipt is the response body for a processed payment.
type Receipt struct {
	Status                TransactionStatus `json:"status"`
	ProviderTransactionID string            `json:"provider_transaction_id"`
	TransactionID         string            `json:"transaction_id,omitempty"`
}

// Database schema. The partial unique index is what makes "exactly one
// succeeded row per (provider, payment_intent_id)" hold even when two
// processes race past the in-memory guard.
const TransactionSchema = `
CREATE TABLE IF NOT EXISTS transactions (
    id VARCHAR(36) PRIMARY KEY,
    provider VARCHAR(20) NOT NULL,
    payment_intent_id VARCHAR(255) NOT NULL,
    provider_transaction_id VARCHAR(255),
    amount DECIMAL(19, 4) NOT NULL,
    currency VARCHAR(3) NOT NULL,
    status VARCHAR(20) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions (created_at);

CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_success_key
    ON transactions (provider, payment_intent_id)
    WHERE status = 'succeeded';
`
