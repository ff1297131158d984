// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bottleworks/internal/core/actor"
	"bottleworks/internal/domain/inventory"
	"bottleworks/internal/domain/production"
	"bottleworks/internal/infrastructure/http/v1/handlers"
	"bottleworks/internal/infrastructure/http/v1/middleware"
	"bottleworks/internal/infrastructure/storage/postgres"
	"bottleworks/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool *postgres.Pool

	Logger *logger.Logger

	// TokenVerifier validates bearer tokens; nil disables auth (dev mode).
	TokenVerifier middleware.TokenVerifier

	// Idempotency replays recorded responses for retried mutating requests
	// carrying X-Idempotency-Key; nil disables the guard.
	Idempotency *postgres.IdempotencyStore

	Inventory  *inventory.Service
	Production *production.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler())

	// Health and metrics endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	api := router.Group("/api/v1")
	if cfg.TokenVerifier != nil {
		api.Use(middleware.Auth(cfg.TokenVerifier))
	}
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	// Mutations require a role; reads only need a valid token. With auth
	// disabled (dev mode) there is no actor, so role checks are skipped too.
	requireRole := func(roles ...string) gin.HandlerFunc {
		if cfg.TokenVerifier == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RequireRole(roles...)
	}
	stockWriter := requireRole(actor.RoleStorekeeper, actor.RoleAdmin)
	batchWriter := requireRole(actor.RoleOperator, actor.RoleAdmin)

	inventoryHandler := handlers.NewInventoryHandler(cfg.Inventory)
	accounts := api.Group("/accounts")
	{
		accounts.POST("", stockWriter, inventoryHandler.Create)
		accounts.GET("", inventoryHandler.List)
		accounts.GET("/:id", inventoryHandler.Get)
		accounts.POST("/:id/purchases", stockWriter, inventoryHandler.PostPurchase)
		accounts.POST("/:id/damages", stockWriter, inventoryHandler.PostDamage)
		accounts.GET("/:id/transactions", inventoryHandler.ListTransactions)
		accounts.GET("/:id/lots", inventoryHandler.ListLots)
	}

	productionHandler := handlers.NewProductionHandler(cfg.Production)
	batches := api.Group("/batches")
	{
		batches.POST("", batchWriter, productionHandler.Plan)
		batches.GET("", productionHandler.List)
		batches.GET("/:id", productionHandler.Get)
		batches.POST("/:id/start", batchWriter, productionHandler.Start)
		batches.POST("/:id/complete", batchWriter, productionHandler.Complete)
		batches.POST("/:id/cancel", batchWriter, productionHandler.Cancel)
	}

	return router
}
