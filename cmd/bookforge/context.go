package main

import (
	"context"
	"strings"
	"sync"

	"bookforge/internal/config"
	"bookforge/internal/logging"
	"bookforge/internal/pipeline"
	"bookforge/internal/reward"
	"bookforge/internal/semindex"
	"bookforge/internal/services/embedder"
	"bookforge/internal/services/generator"
	"bookforge/internal/services/scrape"
	"bookforge/internal/versions"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// core bundles the locally opened stores and pipeline for one CLI
// invocation.
type core struct {
	cfg      *config.Config
	store    *versions.Store
	indexDB  *semindex.Store
	index    *semindex.Index
	pipeline *pipeline.Pipeline
}

// openCore opens the stores and wires the pipeline with the configured
// collaborators. Appends made through the CLI are indexed inline,
// best-effort, since no background worker runs in this process.
func (c *commandContext) openCore() (*core, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	store, err := versions.Open(cfg)
	if err != nil {
		return nil, err
	}
	indexDB, err := semindex.Open(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	embed, err := embedder.New(cfg.Embeddings)
	if err != nil {
		_ = indexDB.Close()
		_ = store.Close()
		return nil, err
	}

	indexLog := logging.WithComponent(logger, "semindex")
	index := semindex.New(indexDB, embed, indexLog)
	scorer := reward.NewScorer(embed, logging.WithComponent(logger, "reward"))
	fetcher := scrape.NewFetcher(cfg.Scrape, cfg.SnapshotDir())
	gen := generator.NewClient(cfg.Generator)

	store.Subscribe(func(v versions.Version) {
		// Indexing failures never fail the append; the daemon's bootstrap
		// pass repairs gaps. With a remote embedder this adds its call
		// latency to the append, which is acceptable for a CLI invocation.
		if err := index.IndexVersion(context.Background(), v); err != nil {
			indexLog.Warn("inline indexing failed",
				"chapter", v.ChapterID,
				"sequence", v.Sequence,
				"error", err)
		}
	})

	return &core{
		cfg:      cfg,
		store:    store,
		indexDB:  indexDB,
		index:    index,
		pipeline: pipeline.New(store, index, scorer, fetcher, gen, logging.WithComponent(logger, "pipeline")),
	}, nil
}

func (c *core) Close() {
	_ = c.indexDB.Close()
	_ = c.store.Close()
}
