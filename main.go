package main

import (
	"context"
	"os"
	"time"

	"moto-scraper/config"
	"moto-scraper/scraper/subito"
	"moto-scraper/services"
	"moto-scraper/storage"
	"moto-scraper/utils"
)

func main() {
	cfg := config.Load()

	logger := utils.NewLogger()
	if cfg.LogFile != "" {
		fileLogger, err := utils.NewFileLogger(cfg.LogFile)
		if err != nil {
			logger.Error("Failed to open log file: %v", err)
			os.Exit(1)
		}
		logger = fileLogger
	}
	defer logger.Close()

	logger.Info("=== Moto Listings Scraper starting ===")

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	logger.Info("Config — pages: %d | listings/page: %d | concurrency: %d | delay: %d-%dms",
		cfg.MaxPages, cfg.MaxListingsPerPage, cfg.MaxConcurrency, cfg.DelayMinMs, cfg.DelayMaxMs)

	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	defer csvWriter.Close()

	fetcher := subito.NewChromeFetcher(cfg, logger)
	defer fetcher.Close()

	scraper := subito.New(cfg, logger, fetcher, store)
	stats, rawListings := scraper.Run(context.Background())

	if len(rawListings) > 0 {
		if err := csvWriter.WriteRaw(rawListings); err != nil {
			logger.Error("CSV write failed: %v", err)
		} else {
			logger.Info("Raw listings saved to %s", cfg.CSVOutputPath)
		}
	}

	logger.Info("Run finished — pages: %d | found: %d | processed: %d",
		stats.PagesScraped, stats.ListingsFound, stats.ListingsProcessed)
	logger.Info("Upserts — inserted: %d | updated: %d | skipped: %d | errors: %d",
		stats.Inserted, stats.Updated, stats.Skipped, stats.Errors)

	dbListings, err := store.FetchAll()
	if err != nil {
		logger.Error("Failed to fetch listings for the report: %v", err)
		return
	}

	insightSvc := services.NewInsightService(logger)
	report := insightSvc.Generate(dbListings, time.Now())
	insightSvc.Print(report)
}
