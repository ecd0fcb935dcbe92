package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/globalpay/payment-orchestrator/internal/models"
)

var (
	// ErrDuplicate means a succeeded transaction already exists for this
	// (provider, payment intent id).
	ErrDuplicate = errors.New("transaction already recorded")

	// ErrNotFound means no transaction exists for the key.
	ErrNotFound = errors.New("transaction not found")
)

const uniqueViolation = "23505"

// TransactionRepository is the durable transaction ledger on postgres.
// Rows are inserted once and never updated; the partial unique index on
// (provider, payment_intent_id) for succeeded rows makes concurrent
// recording resolve to a single winner even across processes.
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Migrate creates the transactions table and its indexes.
func (r *TransactionRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, models.TransactionSchema)
	return err
}

// Record appends a transaction, assigning its surrogate id. The insert is
// a single statement, so a failed write leaves nothing behind.
func (r *TransactionRepository) Record(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO transactions (
			id, provider, payment_intent_id, provider_transaction_id,
			amount, currency, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		txn.ID,
		txn.Provider,
		txn.PaymentIntentID,
		txn.ProviderTransactionID,
		txn.Amount,
		txn.Currency,
		txn.Status,
		txn.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	return txn, nil
}

// Find returns the most recent transaction for the key.
func (r *TransactionRepository) Find(ctx context.Context, provider models.Provider, paymentIntentID string) (*models.Transaction, error) {
	query := `
		SELECT id, provider, payment_intent_id, provider_transaction_id,
			   amount, currency, status, created_at
		FROM transactions
		WHERE provider = $1 AND payment_intent_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	txn := &models.Transaction{}
	err := r.db.QueryRowContext(ctx, query, provider, paymentIntentID).Scan(
		&txn.ID,
		&txn.Provider,
		&txn.PaymentIntentID,
		&txn.ProviderTransactionID,
		&txn.Amount,
		&txn.Currency,
		&txn.Status,
		&txn.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// List returns all transactions in insertion order.
func (r *TransactionRepository) List(ctx context.Context) ([]*models.Transaction, error) {
	query := `
		SELECT id, provider, payment_intent_id, provider_transaction_id,
			   amount, currency, status, created_at
		FROM transactions
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		txn := &models.Transaction{}
		err := rows.Scan(
			&txn.ID,
			&txn.Provider,
			&txn.PaymentIntentID,
			&txn.ProviderTransactionID,
			&txn.Amount,
			&txn.Currency,
			&txn.Status,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}

	return transactions, rows.Err()
}
