// Package main provides a CLI tool for creating the database schema and
// seeding demo data.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"bilanco/internal/domain/companies"
	"bilanco/internal/infrastructure/storage/postgres"
	"bilanco/internal/infrastructure/storage/postgres/catalog_repo"
	"bilanco/pkg/logger"
	"bilanco/pkg/numerator"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sys_sequences (
		key         TEXT PRIMARY KEY,
		current_val BIGINT NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS cat_companies (
		id            UUID PRIMARY KEY,
		deletion_mark BOOLEAN NOT NULL DEFAULT FALSE,
		version       INT NOT NULL DEFAULT 1,
		code          TEXT NOT NULL,
		name          TEXT NOT NULL,
		tax_id        TEXT,
		full_name     TEXT,
		sector        TEXT,
		address       TEXT,
		email         TEXT,
		comment       TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_cat_companies_code
		ON cat_companies (code) WHERE NOT deletion_mark`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_cat_companies_tax_id
		ON cat_companies (tax_id) WHERE tax_id IS NOT NULL AND NOT deletion_mark`,

	`CREATE TABLE IF NOT EXISTS doc_filings (
		id                    UUID PRIMARY KEY,
		deletion_mark         BOOLEAN NOT NULL DEFAULT FALSE,
		version               INT NOT NULL DEFAULT 1,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		number                TEXT NOT NULL,
		company_id            UUID NOT NULL REFERENCES cat_companies (id),
		declared_company_name TEXT NOT NULL DEFAULT '',
		declared_tax_id       TEXT,
		year                  INT NOT NULL,
		period                TEXT NOT NULL,
		status                TEXT NOT NULL,
		active_total          NUMERIC(20, 2) NOT NULL DEFAULT 0,
		passive_total         NUMERIC(20, 2) NOT NULL DEFAULT 0,
		balance_delta         NUMERIC(20, 2) NOT NULL DEFAULT 0,
		net_sales             NUMERIC(20, 2),
		cost_of_sales         NUMERIC(20, 2),
		operating_profit      NUMERIC(20, 2),
		net_profit            NUMERIC(20, 2)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_doc_filings_number
		ON doc_filings (number)`,
	// one active filing per fiscal slot
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_doc_filings_slot
		ON doc_filings (company_id, year, period)
		WHERE status <> 'superseded' AND NOT deletion_mark`,

	`CREATE TABLE IF NOT EXISTS doc_filing_items (
		filing_id                 UUID NOT NULL REFERENCES doc_filings (id) ON DELETE CASCADE,
		line_no                   INT NOT NULL,
		label                     TEXT NOT NULL,
		suggested_code            TEXT NOT NULL DEFAULT '',
		matched_code              TEXT,
		match_confidence          DOUBLE PRECISION NOT NULL DEFAULT 0,
		account_type              TEXT NOT NULL,
		current_amount            NUMERIC(20, 2) NOT NULL DEFAULT 0,
		previous_amount           NUMERIC(20, 2) NOT NULL DEFAULT 0,
		inflation_adjusted_amount NUMERIC(20, 2) NOT NULL DEFAULT 0,
		source_year               INT NOT NULL DEFAULT 0,
		source_period             TEXT NOT NULL DEFAULT '',
		parse_failed              BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (filing_id, line_no)
	)`,

	`CREATE TABLE IF NOT EXISTS filing_payloads (
		filing_id        UUID PRIMARY KEY REFERENCES doc_filings (id) ON DELETE CASCADE,
		payload          BYTEA NOT NULL,
		compression_algo TEXT NOT NULL DEFAULT 'none',
		original_size    INT NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			log.Fatalw("failed to apply schema", "error", err, "stmt", stmt)
		}
	}
	log.Info("schema applied")

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoCompanies(ctx, pool, log); err != nil {
			log.Fatalw("failed to seed demo companies", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedDemoCompanies(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	txManager := postgres.NewTxManager(pool)
	repo := catalog_repo.NewCompanyRepo(txManager)
	service := companies.NewService(repo, txManager, numerator.New(pool))

	demo := []struct {
		name   string
		taxID  string
		sector string
	}{
		{"Demir Çelik Sanayi A.Ş.", "1234567890", "metal"},
		{"Ege Tekstil Limited Şirketi", "2345678901", "textile"},
		{"Anadolu Gıda Pazarlama A.Ş.", "3456789012", "food"},
	}

	for _, d := range demo {
		if _, err := service.FindByTaxID(ctx, d.taxID); err == nil {
			log.Infow("demo company already exists", "tax_id", d.taxID)
			continue
		}

		c := companies.NewCompany("", d.name)
		c.TaxID = &d.taxID
		c.Sector = &d.sector

		if err := service.Create(ctx, c); err != nil {
			return fmt.Errorf("create %s: %w", d.name, err)
		}
		log.Infow("demo company created", "code", c.Code, "name", c.Name)
	}

	return nil
}
