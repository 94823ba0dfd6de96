package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/verdictlabs/verdict/internal/config"
	"github.com/verdictlabs/verdict/internal/fetcher"
	"github.com/verdictlabs/verdict/pkg/logger"
)

func main() {
	var pages int
	flag.IntVar(&pages, "pages", 0, "Number of result pages to download (overrides FETCH_PAGES)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if pages > 0 {
		cfg.FetchPages = pages
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	client := fetcher.New(cfg.CourtListenerBaseURL, cfg.CourtListenerToken, cfg.FetchMaxRetries, log)

	log.Info("Fetching opinions",
		"base_url", cfg.CourtListenerBaseURL,
		"pages", cfg.FetchPages,
		"page_size", cfg.FetchPageSize,
		"raw_dir", cfg.RawDir,
	)

	saved, err := client.FetchOpinions(context.Background(), cfg.RawDir, cfg.FetchPages, cfg.FetchPageSize)
	if err != nil {
		log.Fatal("Fetch failed", "saved", saved, "error", err)
	}

	log.Info("Fetch complete", "pages_saved", saved, "raw_dir", cfg.RawDir)
}
