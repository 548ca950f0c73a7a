package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nmonteiro/checkout-engine/internal/application/services"
	"github.com/nmonteiro/checkout-engine/internal/config"
	"github.com/nmonteiro/checkout-engine/internal/infrastructure/catalog"
	"github.com/nmonteiro/checkout-engine/internal/infrastructure/gateway"
	"github.com/nmonteiro/checkout-engine/internal/infrastructure/kafka"
	"github.com/nmonteiro/checkout-engine/internal/infrastructure/persistence/postgres"
	"github.com/nmonteiro/checkout-engine/internal/interfaces/rest/handlers"
	"github.com/nmonteiro/checkout-engine/internal/interfaces/rest/middleware"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting checkout engine",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	if err := postgres.Migrate(&cfg.Database); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	products, err := catalog.Load(cfg.Catalog, logger)
	if err != nil {
		logger.Error("failed to load product catalog", "error", err)
		os.Exit(1)
	}

	orderHistory := postgres.NewOrderHistoryRepository(db)
	abandonedStore := postgres.NewAbandonedSessionRepository(db)

	gatewayClient := gateway.NewGatewayClient(cfg.Gateway)
	gatewayClient = gateway.NewRetryGatewayClient(gatewayClient, cfg.Retry)
	gatewayClient = gateway.NewBreakerGatewayClient(gatewayClient)

	handoffPublisher := kafka.NewHandoffPublisher(cfg.Kafka, logger)
	defer handoffPublisher.Close()

	handoff := services.NewHandoffFanout(logger, orderHistory, handoffPublisher)

	poller := services.NewConfirmationPoller(gatewayClient, handoff, cfg.Polling, logger)
	payments := services.NewPaymentService(gatewayClient, poller, logger)
	coupons := services.NewCouponService(orderHistory)
	telemetry := services.NewAbandonmentWriter(abandonedStore, cfg.Telemetry, logger)
	checkout := services.NewCheckoutService(coupons, payments, telemetry, logger)

	h := handlers.NewHandlers(checkout, products, logger)

	handler := http.Handler(h.Routes())
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
