package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"

	"github.com/username/hdbfolio/backend/src/config"
	"github.com/username/hdbfolio/backend/src/database"
	"github.com/username/hdbfolio/backend/src/downloader"
	"github.com/username/hdbfolio/backend/src/importer"
	"github.com/username/hdbfolio/backend/src/ingest"
	"github.com/username/hdbfolio/backend/src/logger"
)

func main() {
	skipImport := flag.Bool("skip-import", false, "write the combined CSVs but do not load them into the database")
	flag.Parse()

	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel, config.Cfg.LogFormat)
	logger.L.Info("HDBfolio ingest pipeline starting...")

	if err := os.MkdirAll(config.Cfg.RawDataDir, 0o755); err != nil {
		logger.L.Error("Failed to create raw data directory", "dir", config.Cfg.RawDataDir, "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(config.Cfg.ProcessedDataDir, 0o755); err != nil {
		logger.L.Error("Failed to create processed data directory", "dir", config.Cfg.ProcessedDataDir, "error", err)
		os.Exit(1)
	}

	client := downloader.NewClient(config.Cfg.DataGovBaseURL, config.Cfg.RawDataDir, config.Cfg.DownloadTimeout, config.Cfg.DownloadRequestsPerSec)
	ctx := context.Background()

	resalePath := filepath.Join(config.Cfg.ProcessedDataDir, config.Cfg.CombinedResaleFilename)
	resaleRows := 0
	resale, err := ingest.NewResaleReconciler(client, ingest.DefaultResaleSources).Run(ctx)
	if err != nil {
		if errors.Is(err, ingest.ErrNoUsableSources) {
			logger.L.Error("No resale source could be processed; combined resale CSV not written", "error", err)
		} else {
			logger.L.Error("Resale reconciliation failed", "error", err)
			os.Exit(1)
		}
	} else {
		if err := ingest.WriteResaleCSV(resalePath, resale); err != nil {
			logger.L.Error("Failed to write combined resale CSV", "path", resalePath, "error", err)
			os.Exit(1)
		}
		resaleRows = len(resale)
		logger.L.Info("Combined resale CSV written", "path", resalePath, "rows", resaleRows)
	}

	completionPath := filepath.Join(config.Cfg.ProcessedDataDir, config.Cfg.CompletionStatusFilename)
	completionRows := 0
	completion, err := ingest.NewCompletionReconciler(client, ingest.CompletionStatusSource).Run(ctx)
	if err != nil {
		logger.L.Error("Completion status reconciliation failed; completion CSV not written", "error", err)
	} else {
		if err := ingest.WriteCompletionCSV(completionPath, completion); err != nil {
			logger.L.Error("Failed to write completion status CSV", "path", completionPath, "error", err)
			os.Exit(1)
		}
		completionRows = len(completion)
		logger.L.Info("Completion status CSV written", "path", completionPath, "rows", completionRows)
	}

	if *skipImport {
		logger.L.Info("Skipping database import (--skip-import).")
		return
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)

	if resaleRows > 0 {
		n, err := importer.ImportResaleCSV(database.DB, resalePath)
		if err != nil {
			logger.L.Error("Failed to import resale prices", "path", resalePath, "error", err)
			os.Exit(1)
		}
		logger.L.Info("Resale prices imported", "rows", n)
	}
	if completionRows > 0 {
		n, err := importer.ImportCompletionCSV(database.DB, completionPath)
		if err != nil {
			logger.L.Error("Failed to import completion status", "path", completionPath, "error", err)
			os.Exit(1)
		}
		logger.L.Info("Completion status imported", "rows", n)
	}

	logger.L.Info("Ingest pipeline finished.")
}
