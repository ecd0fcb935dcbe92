package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/globalpay/payment-orchestrator/internal/config"
	"github.com/globalpay/payment-orchestrator/internal/handler"
	"github.com/globalpay/payment-orchestrator/internal/idempotency"
	"github.com/globalpay/payment-orchestrator/internal/models"
	"github.com/globalpay/payment-orchestrator/internal/provider"
	"github.com/globalpay/payment-orchestrator/internal/repository"
	"github.com/globalpay/payment-orchestrator/internal/service"
	"github.com/globalpay/payment-orchestrator/pkg/database"
	"github.com/globalpay/payment-orchestrator/pkg/logger"
	"github.com/globalpay/payment-orchestrator/pkg/middleware"
	"github.com/globalpay/payment-orchestrator/pkg/redis"
)

func main() {
	// Initialize logger
	log := logger.NewLogger("payment-orchestrator")
	defer log.Sync()

	// Load configuration. Missing provider credentials are fatal here, not
	// on the first request.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	// Initialize database
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize ledger
	ledger := repository.NewTransactionRepository(db.DB)
	if err := ledger.Migrate(context.Background()); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	// Initialize idempotency guard. With redis configured, leases hold
	// across replicas; otherwise they are per-process.
	var guard idempotency.Guard = idempotency.NewMemoryGuard()
	if cfg.RedisURL != "" {
		redisClient := redis.NewRedisClient(cfg.RedisURL)
		defer redisClient.Close()
		guard = idempotency.NewRedisGuard(redisClient, 3*cfg.ProviderTimeout, log)
	}

	// Initialize provider adapters
	registry := provider.NewRegistry(
		provider.NewStripeAdapter(cfg.Stripe),
		provider.NewPaypalAdapter(cfg.Paypal),
		provider.NewNoopAdapter(models.ProviderWechat),
		provider.NewNoopAdapter(models.ProviderAlipay),
	)

	// Initialize services
	orchestrator := service.NewOrchestrator(registry, guard, ledger, cfg.ProviderTimeout, log)
	auditor := service.NewAuditService(ledger, log)

	// Initialize handlers
	paymentHandler := handler.NewPaymentHandler(orchestrator, auditor, log)

	// Setup router
	router := setupRouter(paymentHandler, log)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

func setupRouter(paymentHandler *handler.PaymentHandler, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Health checks
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	router.POST("/pay/:provider", paymentHandler.Pay)
	router.GET("/transactions", paymentHandler.ListTransactions)
	router.GET("/transactions/:provider/:intent_id", paymentHandler.GetTransaction)
	router.GET("/audit", paymentHandler.Audit)

	return router
}
