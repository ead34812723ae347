package main

import (
	"context"
	"log"
	"os"

	"github.com/seantiz/forge/internal/api"
	"github.com/seantiz/forge/internal/config"
	"github.com/seantiz/forge/internal/dataset"
	"github.com/seantiz/forge/internal/engine"
	"github.com/seantiz/forge/internal/stats"
	"github.com/seantiz/forge/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel())

	logger.Info("forge: starting",
		"listen_addr", cfg.Server.ListenAddr,
		"dataset", cfg.Dataset.Path,
		"store_driver", cfg.Store.Driver,
	)

	data, err := dataset.Load(cfg.Dataset.Path)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	logger.Info("dataset loaded", "rows", data.Len(), "questions", data.Questions())

	sink, err := store.New(store.Options{
		Driver:     cfg.Store.Driver,
		ResultsDir: cfg.Store.ResultsDir,
		SQLitePath: cfg.Store.SQLitePath,
	})
	if err != nil {
		log.Fatalf("failed to open result store: %v", err)
	}
	defer sink.Close()

	pool := engine.NewPool(engine.Config{
		Workers:      engine.ResolveWorkerCount(cfg.Workers.Count, logger),
		PollInterval: cfg.Workers.PollInterval,
	}, sink, logger)
	if err := pool.Start(); err != nil {
		log.Fatalf("failed to start pool: %v", err)
	}

	srv := api.NewServer(cfg.Server.ListenAddr, pool, stats.DefaultRegistry(), data, logger)
	srv.SetShutdownTimeout(cfg.Server.ShutdownTimeout)

	runErr := srv.Run()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := pool.Shutdown(ctx); err != nil {
		logger.Error("pool shutdown", "error", err)
	}

	if runErr != nil {
		log.Fatalf("server error: %v", runErr)
	}
}
