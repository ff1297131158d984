// Package main is the entry point for the Bottleworks outbox relay worker.
// It drains committed domain events from sys_outbox and forwards them to
// Kafka.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bottleworks/internal/infrastructure/broker"
	"bottleworks/internal/infrastructure/metrics"
	"bottleworks/internal/infrastructure/storage/postgres"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting bottleworks outbox worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	brokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	topic := getEnv("KAFKA_TOPIC", "bottleworks.events")
	producer := broker.NewProducer(brokers, topic)
	defer producer.Close()

	relay := postgres.NewOutboxRelay(pool.Unwrap(), getEnvInt("OUTBOX_BATCH_SIZE", 100), producer)
	interval := getEnvDuration("OUTBOX_POLL_INTERVAL", 5*time.Second)

	txManager := postgres.NewTxManager(pool)
	idempotency := postgres.NewIdempotencyStore(txManager, 24*time.Hour)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		run(ctx, relay, interval, log)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runCleanup(ctx, idempotency, getEnvDuration("IDEMPOTENCY_CLEANUP_INTERVAL", time.Hour), log)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// run polls the outbox until the context is cancelled. Exhausted messages
// move to the dead letter table once per poll cycle.
func run(ctx context.Context, relay *postgres.OutboxRelay, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			processed, err := relay.ProcessBatch(ctx)
			if err != nil {
				log.Errorw("outbox batch failed", "error", err)
				continue
			}
			if processed > 0 {
				metrics.OutboxRelayedTotal.Add(float64(processed))
				log.Infow("outbox batch relayed", "processed", processed)
			}

			moved, err := relay.MoveToDLQ(ctx)
			if err != nil {
				log.Errorw("dead letter sweep failed", "error", err)
				continue
			}
			if moved > 0 {
				log.Warnw("messages moved to dead letter queue", "count", moved)
			}
		}
	}
}

// runCleanup purges expired idempotency records on a slow cadence.
func runCleanup(ctx context.Context, store *postgres.IdempotencyStore, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			removed, err := store.CleanupExpired(ctx)
			if err != nil {
				log.Errorw("idempotency cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				log.Infow("expired idempotency records removed", "count", removed)
			}
		}
	}
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
