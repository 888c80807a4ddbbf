package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "locar-backend/internal/api/http"
	"locar-backend/internal/config"
	"locar-backend/internal/idempotency"
	"locar-backend/internal/logger"
	"locar-backend/internal/metrics"
	"locar-backend/internal/repository/postgres"
	"locar-backend/internal/service"
	"locar-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Locar Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	logger.Info("Billing configuration", "timezone", cfg.Billing.Timezone, "upcoming_window_days", cfg.Billing.UpcomingWindowDays)

	// Initialize Database
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize attachment storage
	storageCfg := storage.Config{Dir: cfg.Storage.UploadDir, MaxUploadBytes: cfg.MaxUploadBytes()}
	files, err := storage.NewLocalStore(storageCfg.Dir)
	if err != nil {
		logger.Error("Failed to initialize attachment storage", "error", err, "upload_dir", storageCfg.Dir)
		log.Fatalf("Failed to initialize attachment storage: %v", err)
	}
	logger.Info("Attachment storage ready", "upload_dir", storageCfg.Dir, "max_upload_bytes", storageCfg.MaxUploadBytes)

	// Initialize idempotency store
	var idemStore idempotency.Store
	if cfg.Redis.Host != "" {
		redisStore, err := idempotency.NewRedisStore(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		idemStore = redisStore
	} else {
		logger.Warn("Redis not configured, idempotency keys are kept in process memory")
		idemStore = idempotency.NewMemoryStore()
	}
	defer idemStore.Close()
	idem := idempotency.NewService(idemStore, cfg.IdempotencyTTL())

	m := metrics.NewMetrics()
	settings := service.Settings{
		UpcomingWindowDays: cfg.Billing.UpcomingWindowDays,
		WeekdayNames:       cfg.Billing.Names(),
		Location:           cfg.Billing.Location(),
	}

	// Initialize Services
	vehicleSvc := service.NewVehicleService(store.Repositories)
	clientSvc := service.NewClientService(store.Repositories, files)
	rentalSvc := service.NewRentalService(store.Repositories, store, files, m, settings)
	billingSvc := service.NewBillingService(store.Repositories, store, m, settings)
	reportSvc := service.NewReportService(store.Repositories, settings)
	expenseSvc := service.NewExpenseService(store.Repositories, files)

	router := httpapi.NewRouter(httpapi.Dependencies{
		Vehicles:    vehicleSvc,
		Clients:     clientSvc,
		Rentals:     rentalSvc,
		Billing:     billingSvc,
		Reports:     reportSvc,
		Expenses:    expenseSvc,
		Files:       files,
		Idempotency: idem,
		Metrics:     m,
		Money:       cfg.Billing.MoneyFormat(),
		Storage:     storageCfg,
		Health: map[string]httpapi.Pinger{
			"database":    store,
			"idempotency": idem,
		},
	})

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down HTTP server...", "timeout", cfg.ShutdownTimeout())
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped. Goodbye!")
}
