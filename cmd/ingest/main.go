package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/verdictlabs/verdict/internal/config"
	"github.com/verdictlabs/verdict/internal/database"
	"github.com/verdictlabs/verdict/internal/ingest"
	"github.com/verdictlabs/verdict/pkg/logger"
)

func main() {
	var rawDir, procDir string
	flag.StringVar(&rawDir, "raw", "", "Raw artifact directory (overrides RAW_DIR)")
	flag.StringVar(&procDir, "proc", "", "Processing directory (overrides PROC_DIR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if rawDir != "" {
		cfg.RawDir = rawDir
	}
	if procDir != "" {
		cfg.ProcDir = procDir
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}

	store := database.NewStore(db)
	pipeline := ingest.New(store, log, cfg.RawDir, cfg.ProcDir, cfg.CommitEvery)

	log.Info("Starting bulk ingestion",
		"raw_dir", cfg.RawDir,
		"proc_dir", cfg.ProcDir,
		"database", cfg.DatabasePath,
	)

	report, err := pipeline.Run()
	if err != nil {
		log.Fatal("Ingestion failed", "error", err)
	}

	stats, err := store.Stats()
	if err != nil {
		log.Fatal("Failed to compute statistics", "error", err)
	}

	log.Info("Ingestion report",
		"files", report.Files,
		"archives", report.Archives,
		"inserted", report.Inserted,
		"duplicates", report.Duplicates,
		"errors", report.Errors,
		"elapsed", report.Elapsed.String(),
	)
	log.Info("Database statistics",
		"total_cases", stats.TotalCases,
		"earliest_date", stats.EarliestDate,
		"latest_date", stats.LatestDate,
	)
	for _, court := range stats.TopCourts {
		log.Info("Top court", "court", court.Court, "cases", court.Count)
	}
}
