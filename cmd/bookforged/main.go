// Command bookforged runs the long-lived daemon: it owns the version ledger
// and semantic index, keeps the background index worker running, and serves
// the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bookforge/internal/config"
	"bookforge/internal/daemon"
	"bookforge/internal/logging"
	"bookforge/internal/pipeline"
	"bookforge/internal/reward"
	"bookforge/internal/semindex"
	"bookforge/internal/services/embedder"
	"bookforge/internal/services/generator"
	"bookforge/internal/services/scrape"
	"bookforge/internal/versions"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "", "configuration file path")
	flag.Parse()

	cfg, configPath, found, err := config.Load(*configFlag)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	if found {
		logger.Info("configuration loaded", "path", configPath)
	} else {
		logger.Info("no configuration file found, using defaults")
	}

	store, err := versions.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	indexDB, err := semindex.Open(cfg)
	if err != nil {
		return err
	}
	defer indexDB.Close()

	embed, err := embedder.New(cfg.Embeddings)
	if err != nil {
		return err
	}

	index := semindex.New(indexDB, embed, logging.WithComponent(logger, "semindex"))
	worker := semindex.NewWorker(index, store, cfg.Index, logging.WithComponent(logger, "indexworker"))
	scorer := reward.NewScorer(embed, logging.WithComponent(logger, "reward"))
	fetcher := scrape.NewFetcher(cfg.Scrape, cfg.SnapshotDir())
	gen := generator.NewClient(cfg.Generator)
	pl := pipeline.New(store, index, scorer, fetcher, gen, logging.WithComponent(logger, "pipeline"))

	d, err := daemon.New(cfg, store, index, worker, pl, logging.WithComponent(logger, "daemon"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	d.Stop()
	return nil
}
