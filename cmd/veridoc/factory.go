package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/veridoc/veridoc/internal/config"
	"github.com/veridoc/veridoc/internal/detect"
	"github.com/veridoc/veridoc/internal/orchestrator"
	"github.com/veridoc/veridoc/internal/router"
	"github.com/veridoc/veridoc/internal/semantic"
	"github.com/veridoc/veridoc/internal/state"
	"github.com/veridoc/veridoc/internal/truth"
)

// core bundles the assembled validation pipeline for a command invocation.
type core struct {
	store state.Store
	cache *truth.Cache
	orch  *orchestrator.Orchestrator

	// watcher is non-nil when truth.watch is enabled.
	watcher *truth.Watcher
}

// buildCore wires the store, truth cache, detector, router, and orchestrator
// from configuration. The caller owns the returned core and must Close it.
func buildCore(cfg *config.Config) (*core, error) {
	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = state.DefaultDBPath()
	}
	db, err := state.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate state database: %w", err)
	}

	cache := truth.NewCache(cfg.Truth.Dir)

	detector, err := detect.New(detect.Config{
		WindowSize:    cfg.Detector.WindowSize,
		EditWeight:    cfg.Detector.EditWeight,
		TokenWeight:   cfg.Detector.TokenWeight,
		MinConfidence: cfg.Detector.MinConfidence,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("configure detector: %w", err)
	}

	opts := []orchestrator.Option{
		orchestrator.WithWorkflowConfig(cfg.Workflow),
		orchestrator.WithSemanticConfig(cfg.Semantic),
	}
	if cfg.Semantic.Enabled {
		reviewer, err := semantic.NewAnthropicReviewer(semantic.AnthropicConfig{
			APIKey: cfg.Anthropic.APIKey,
			Model:  anthropic.Model(cfg.Anthropic.Model),
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("configure semantic reviewer: %w", err)
		}
		opts = append(opts, orchestrator.WithReviewer(reviewer))
	}

	orch := orchestrator.New(orchestrator.RequiredConfig{
		Store:    db,
		Truth:    cache,
		Detector: detector,
		Router:   router.New(cfg.Router.ValidatorTimeout),
	}, opts...)

	c := &core{store: db, cache: cache, orch: orch}

	if cfg.Truth.Watch {
		w, err := truth.NewWatcher(cache, cfg.Truth.WatchDebounce)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("start truth watcher: %w", err)
		}
		w.Start()
		c.watcher = w
	}

	return c, nil
}

// Close releases the core's resources.
func (c *core) Close() error {
	if c.watcher != nil {
		c.watcher.Stop()
	}
	return c.store.Close()
}
