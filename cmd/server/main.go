// Package main is the entry point for the Bottleworks API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bottleworks/internal/domain/inventory"
	"bottleworks/internal/domain/production"
	v1 "bottleworks/internal/infrastructure/http/v1"
	"bottleworks/internal/infrastructure/http/v1/middleware"
	"bottleworks/internal/infrastructure/storage/postgres"
	"bottleworks/internal/infrastructure/storage/postgres/inventory_repo"
	"bottleworks/internal/infrastructure/storage/postgres/production_repo"
	"bottleworks/pkg/batchid"
	"bottleworks/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting bottleworks server")

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	accountRepo := inventory_repo.NewAccountRepo(txManager)
	lotRepo := inventory_repo.NewLotRepo(txManager)
	txnRepo := inventory_repo.NewTransactionRepo(txManager)
	batchRepo := production_repo.NewBatchRepo(txManager)

	// --- Infrastructure services ---
	outbox := postgres.NewOutboxPublisher(txManager)

	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}

	batchIDs := batchid.New(pool, batchid.DefaultConfig())

	var idempotency *postgres.IdempotencyStore
	if getEnv("IDEMPOTENCY_ENABLED", "true") == "true" {
		idempotency = postgres.NewIdempotencyStore(txManager, 24*time.Hour)
	}

	// --- Domain services ---
	ledger := inventory.NewLedger(accountRepo, txnRepo, txManager, outbox)
	allocator := inventory.NewLotAllocator(lotRepo)
	inventoryService := inventory.NewService(accountRepo, ledger, allocator, txManager)
	productionService := production.NewService(
		batchRepo, accountRepo, ledger, allocator,
		batchIDs, txManager, outbox, auditService,
	)

	// --- Auth ---
	var verifier middleware.TokenVerifier
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		verifier = middleware.NewHMACVerifier(secret)
	} else {
		log.Warn("JWT_SECRET not set, authentication disabled")
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:          pool,
		Logger:        log,
		TokenVerifier: verifier,
		Idempotency:   idempotency,
		Inventory:     inventoryService,
		Production:    productionService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}
