package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/globalpay/payment-orchestrator/internal/models"
	"github.com/globalpay/payment-orchestrator/internal/provider"
	"github.com/globalpay/payment-orchestrator/internal/repository"
	"github.com/globalpay/payment-orchestrator/internal/service"
)

// Engine is the orchestration surface the handler drives.
type Engine interface {
	Process(ctx context.Context, req *models.PaymentRequest) (*models.Receipt, error)
	ListTransactions(ctx context.Context) ([]*models.Transaction, error)
	FindTransaction(ctx context.Context, p models.Provider, paymentIntentID string) (*models.Transaction, error)
}

// Auditor runs settlement audits.
type Auditor interface {
	Run(ctx context.Context) (*service.AuditReport, error)
}

type PaymentHandler struct {
	engine  Engine
	auditor Auditor
	logger  *zap.Logger
}

func NewPaymentHandler(engine Engine, auditor Auditor, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		engine:  engine,
		auditor: auditor,
		logger:  logger,
	}
}

// Pay handles POST /pay/:provider
func (h *PaymentHandler) Pay(c *gin.Context) {
	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Provider = models.Provider(c.Param("provider"))
	if !req.Provider.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		return
	}

	receipt, err := h.engine.Process(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if receipt.Status == models.StatusFailed {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"status":                  receipt.Status,
			"provider_transaction_id": receipt.ProviderTransactionID,
			"error":                   "payment declined",
		})
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

// ListTransactions handles GET /transactions
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	transactions, err := h.engine.ListTransactions(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list transactions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}

	if transactions == nil {
		transactions = []*models.Transaction{}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GetTransaction handles GET /transactions/:provider/:intent_id
func (h *PaymentHandler) GetTransaction(c *gin.Context) {
	p := models.Provider(c.Param("provider"))
	if !p.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		return
	}

	txn, err := h.engine.FindTransaction(c.Request.Context(), p, c.Param("intent_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		h.logger.Error("failed to look up transaction", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

// Audit handles GET /audit
func (h *PaymentHandler) Audit(c *gin.Context) {
	report, err := h.auditor.Run(c.Request.Context())
	if err != nil {
		h.logger.Error("settlement audit failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Audit failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *PaymentHandler) writeError(c *gin.Context, err error) {
	var providerErr *provider.ProviderError

	switch {
	case errors.Is(err, service.ErrUnknownProvider):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.As(err, &providerErr):
		status := http.StatusBadGateway
		if providerErr.Kind == provider.KindTimeout {
			status = http.StatusGatewayTimeout
		}
		c.JSON(status, gin.H{
			"error":     providerErr.Error(),
			"kind":      providerErr.Kind,
			"retryable": providerErr.Retryable(),
		})

	case errors.Is(err, service.ErrPersistence):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

	default:
		h.logger.Error("unexpected orchestration error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process payment"})
	}
}
