package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/globalpay/payment-orchestrator/internal/models"
)

// AuditReport summarizes one settlement audit pass over the ledger.
type AuditReport struct {
	ID                string             `json:"id"`
	TotalTransactions int                `json:"total_transactions"`
	TotalsByProvider  map[string]float64 `json:"totals_by_provider"`
	PendingCount      int                `json:"pending_count"`
	Anomalies         []string           `json:"anomalies"`
	IsClean           bool               `json:"is_clean"`
	CreatedAt         time.Time          `json:"created_at"`
}

// AuditService scans the ledger for keys that violate the single-success
// invariant and for pending rows old enough to need settlement follow-up.
// It backs the reconciliation work the engine hands off when money and
// ledger state diverge.
type AuditService struct {
	ledger     Ledger
	logger     *zap.Logger
	pendingAge time.Duration
}

func NewAuditService(ledger Ledger, logger *zap.Logger) *AuditService {
	return &AuditService{
		ledger:     ledger,
		logger:     logger,
		pendingAge: 24 * time.Hour,
	}
}

// Run performs one audit pass.
func (s *AuditService) Run(ctx context.Context) (*AuditReport, error) {
	transactions, err := s.ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ledger for audit: %w", err)
	}

	report := &AuditReport{
		ID:                uuid.New().String(),
		TotalTransactions: len(transactions),
		TotalsByProvider:  make(map[string]float64),
		CreatedAt:         time.Now().UTC(),
	}

	succeeded := make(map[string]int)
	cutoff := time.Now().Add(-s.pendingAge)

	for _, txn := range transactions {
		key := fmt.Sprintf("%s:%s", txn.Provider, txn.PaymentIntentID)

		switch txn.Status {
		case models.StatusSucceeded:
			succeeded[key]++
			report.TotalsByProvider[string(txn.Provider)] += txn.Amount
		case models.StatusPending:
			report.PendingCount++
			if txn.CreatedAt.Before(cutoff) {
				report.Anomalies = append(report.Anomalies,
					fmt.Sprintf("transaction %s: pending since %s", txn.ID, txn.CreatedAt.Format(time.RFC3339)))
			}
		}
	}

	for key, n := range succeeded {
		if n > 1 {
			report.Anomalies = append(report.Anomalies,
				fmt.Sprintf("key %s: %d succeeded rows, expected 1", key, n))
		}
	}

	report.IsClean = len(report.Anomalies) == 0

	if !report.IsClean {
		s.logger.Warn("settlement audit found anomalies",
			zap.String("report_id", report.ID),
			zap.Int("anomalies", len(report.Anomalies)))
	} else {
		s.logger.Info("settlement audit clean",
			zap.String("report_id", report.ID),
			zap.Int("transactions", report.TotalTransactions))
	}

	return report, nil
}
