package main

import (
	"fmt"
	"os"

	"github.com/verdictlabs/verdict/internal/cache"
	"github.com/verdictlabs/verdict/internal/config"
	"github.com/verdictlabs/verdict/internal/database"
	"github.com/verdictlabs/verdict/internal/server"
	"github.com/verdictlabs/verdict/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
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
	queryCache := cache.New(cfg.StatsCacheTTL)

	srv := server.New(cfg, store, queryCache, log)

	log.Info("Starting Verdict case-law server",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.DatabasePath,
	)

	if err := srv.Run(); err != nil {
		log.Fatal("Server failed", "error", err)
	}
}
