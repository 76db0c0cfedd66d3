package main

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/memcore"
	"github.com/fyrsmithlabs/memcore/internal/config"
)

// openEngine loads config from configPath (or defaults), constructs an
// Engine with the CLI's deterministic hash embedder, and runs Initialize.
// Callers must Close the returned engine.
func openEngine(ctx context.Context) (*memcore.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	eng, err := memcore.New(ctx, cfg, hashEmbedder{dimension: cfg.Vector.Dimension})
	if err != nil {
		return nil, fmt.Errorf("construct engine: %w", err)
	}
	if err := eng.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize engine: %w", err)
	}
	return eng, nil
}
