// Package main is the entry point for the bilanco API server.
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

	"bilanco/internal/domain/accounts"
	"bilanco/internal/domain/companies"
	"bilanco/internal/domain/extraction"
	"bilanco/internal/domain/filings"
	"bilanco/internal/domain/match"
	"bilanco/internal/domain/ratios"
	v1 "bilanco/internal/infrastructure/http/v1"
	"bilanco/internal/infrastructure/storage/postgres"
	"bilanco/internal/infrastructure/storage/postgres/catalog_repo"
	"bilanco/internal/infrastructure/storage/postgres/document_repo"
	"bilanco/pkg/logger"
	"bilanco/pkg/numerator"
)

func main() {
	// .env is optional, real deployments use the environment directly
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
	log.Info("starting bilanco server")

	// --- Database ---
	dsn := mustEnv("DATABASE_URL")
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Chart of accounts ---
	registry, err := accounts.Load()
	if err != nil {
		log.Fatalw("failed to load chart of accounts", "error", err)
	}
	log.Infow("chart of accounts loaded", "accounts", registry.Len())

	// --- Services ---
	num := numerator.New(pool)

	companyRepo := catalog_repo.NewCompanyRepo(txManager)
	companyService := companies.NewService(companyRepo, txManager, num)

	archive, err := postgres.NewPayloadArchive(txManager)
	if err != nil {
		log.Fatalw("failed to initialize payload archive", "error", err)
	}

	matcher := match.New(registry)
	if threshold := getEnvFloat("MATCH_THRESHOLD", 0); threshold > 0 {
		matcher = match.NewWithThreshold(registry, threshold)
	}

	filingRepo := document_repo.NewFilingRepo(txManager)
	filingService := filings.NewService(
		filingRepo,
		companyService,
		matcher,
		registry,
		num,
		txManager,
		archive,
	)

	assessor, err := ratios.NewAssessor(ratios.DefaultRules)
	if err != nil {
		log.Fatalw("failed to compile benchmark rules", "error", err)
	}
	calculator := ratios.New(registry, assessor)

	// --- Extraction client (optional) ---
	var extractor extraction.Service
	if extractionURL := getEnv("EXTRACTION_URL", ""); extractionURL != "" {
		extractor = extraction.NewClient(extraction.DefaultClientConfig(extractionURL))
		log.Infow("extraction client configured", "url", extractionURL)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		Logger:         log,
		Registry:       registry,
		CompanyService: companyService,
		FilingService:  filingService,
		Calculator:     calculator,
		Archiver:       archive,
		Extractor:      extractor,
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
