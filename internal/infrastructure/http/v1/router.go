// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"pharmapos/internal/domain/auth"
	"pharmapos/internal/domain/catalog"
	"pharmapos/internal/domain/client"
	"pharmapos/internal/domain/ledger"
	"pharmapos/internal/domain/loyalty"
	"pharmapos/internal/domain/reports"
	"pharmapos/internal/domain/sale"
	"pharmapos/internal/infrastructure/http/v1/handlers"
	"pharmapos/internal/infrastructure/http/v1/middleware"
	"pharmapos/internal/infrastructure/storage/postgres"
	"pharmapos/pkg/logger"
)

// RouterConfig holds the wired services the router exposes.
type RouterConfig struct {
	// Pool is the database pool, used by health checks
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	AuthService    *auth.Service
	CatalogService *catalog.Service
	ClientService  *client.Service
	LedgerService  *ledger.Service
	LoyaltyEngine  *loyalty.Engine
	SaleProcessor  *sale.Processor
	SaleCanceller  *sale.CancellationHandler
	ReportsService *reports.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()
	authHandler := handlers.NewAuthHandler(base, cfg.AuthService)

	// API v1
	v1 := router.Group("/api/v1")
	{
		publicAuth := v1.Group("/auth")
		protectedAuth := v1.Group("/auth")
		protectedAuth.Use(middleware.Auth(cfg.JWTValidator))
		authHandler.RegisterRoutes(publicAuth, protectedAuth)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		authHandler.RegisterUserRoutes(protected.Group("/users"))

		medicamentHandler := handlers.NewMedicamentHandler(base, cfg.CatalogService, cfg.LedgerService)
		medicamentHandler.RegisterRoutes(protected.Group("/medicaments"))

		clientHandler := handlers.NewClientHandler(base, cfg.ClientService, cfg.LoyaltyEngine, cfg.SaleProcessor)
		clientHandler.RegisterRoutes(protected.Group("/clients"))

		saleHandler := handlers.NewSaleHandler(base, cfg.SaleProcessor, cfg.SaleCanceller, cfg.LedgerService)
		saleHandler.RegisterRoutes(protected.Group("/sales"))

		stockHandler := handlers.NewStockHandler(base, cfg.LedgerService)
		stockHandler.RegisterRoutes(protected.Group("/stock"))

		loyaltyHandler := handlers.NewLoyaltyHandler(base, cfg.LoyaltyEngine)
		loyaltyHandler.RegisterRoutes(protected.Group("/tiers"))

		reportsHandler := handlers.NewReportsHandler(base, cfg.ReportsService)
		reportsHandler.RegisterRoutes(protected.Group("/reports"))
	}

	return router
}
