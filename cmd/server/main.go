// Package main is the entry point for the pharmapos API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmapos/internal/config"
	"pharmapos/internal/core/types"
	"pharmapos/internal/domain/auth"
	"pharmapos/internal/domain/catalog"
	"pharmapos/internal/domain/client"
	"pharmapos/internal/domain/ledger"
	"pharmapos/internal/domain/loyalty"
	"pharmapos/internal/domain/reports"
	"pharmapos/internal/domain/sale"
	v1 "pharmapos/internal/infrastructure/http/v1"
	"pharmapos/internal/infrastructure/storage/postgres"
	"pharmapos/pkg/logger"
	"pharmapos/pkg/numerator"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting pharmapos server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatalw("failed to run migrations", "error", err)
		}
		log.Info("migrations applied")
	}

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	medicamentRepo := postgres.NewMedicamentRepo(txManager)
	clientRepo := postgres.NewClientRepo(txManager)
	tierRepo := postgres.NewLoyaltyTierRepo(txManager)
	movementRepo := postgres.NewStockMovementRepo(txManager)
	saleRepo := postgres.NewSaleRepo(txManager)
	userRepo := postgres.NewUserRepo(txManager)
	reportRepo := postgres.NewReportRepo(txManager)

	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit store", "error", err)
	}

	// --- Loyalty engine ---
	loyaltyCfg := loyalty.Config{
		PointsPerUnit: cfg.Loyalty.PointsPerUnit,
	}
	loyaltyCfg.PointValue, err = types.NewMoneyFromString(cfg.Loyalty.PointValue)
	if err != nil {
		log.Fatalw("invalid loyalty point value", "value", cfg.Loyalty.PointValue, "error", err)
	}
	if cfg.Loyalty.AccrualRule != "" {
		rule, err := loyalty.CompileAccrualRule(cfg.Loyalty.AccrualRule)
		if err != nil {
			log.Fatalw("invalid loyalty accrual rule", "error", err)
		}
		loyaltyCfg.Rule = rule
		log.Info("custom loyalty accrual rule compiled")
	}
	loyaltyEngine := loyalty.NewEngine(tierRepo, loyaltyCfg)

	// --- Domain services ---
	numeratorService := numerator.New(pool.Pool)
	ledgerService := ledger.NewService(movementRepo, txManager)
	catalogService := catalog.NewService(medicamentRepo, ledgerService, numeratorService, txManager)
	clientService := client.NewService(clientRepo, numeratorService)
	reportsService := reports.NewService(reportRepo, clientRepo, loyaltyEngine, cfg.Stock.ExpiryAlertDays)

	saleProcessor := sale.NewProcessor(
		saleRepo,
		medicamentRepo,
		clientRepo,
		loyaltyEngine,
		ledgerService,
		numeratorService,
		auditStore,
		txManager,
	)
	saleCanceller := sale.NewCancellationHandler(saleRepo, clientRepo, ledgerService, txManager)

	// --- Auth ---
	jwtConfig := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
	jwtConfig.Issuer = cfg.Auth.Issuer
	jwtConfig.AccessTokenTTL = cfg.Auth.TokenTTL
	jwtService := auth.NewJWTService(jwtConfig)
	authService := auth.NewService(userRepo, jwtService, auth.DefaultServiceConfig())

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		Logger:         log,
		JWTValidator:   jwtService,
		AuthService:    authService,
		CatalogService: catalogService,
		ClientService:  clientService,
		LedgerService:  ledgerService,
		LoyaltyEngine:  loyaltyEngine,
		SaleProcessor:  saleProcessor,
		SaleCanceller:  saleCanceller,
		ReportsService: reportsService,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "address", cfg.HTTP.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
