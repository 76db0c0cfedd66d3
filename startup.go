package memcore

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memcore/internal/compression"
	"github.com/fyrsmithlabs/memcore/internal/vectorindex"
)

// legacyDumpFilename is the name of a pre-existing vector dump an operator
// may drop into the store's data directory before first startup, in one of
// the shapes vectorindex.LoadLegacyDump recognizes.
const legacyDumpFilename = "legacy_vectors.json"

// validateStartup cross-checks every persisted vector_mappings row against
// the in-process index and logs a warning (never an error) with the count of
// HOT-tier mappings whose vector is missing from the index. Missing vectors
// are not reloaded; mappings at lower tiers are skipped, since demoted
// vectors are not held in the index.
func (e *Engine) validateStartup(ctx context.Context) error {
	mappings, err := e.store.AllVectorMappings(ctx)
	if err != nil {
		return err
	}

	missing := 0
	for _, m := range mappings {
		if e.index.Has(m.Label) {
			continue
		}
		if m.CompressionTier != string(compression.HOT) {
			// Demoted vectors are intentionally absent from the index.
			continue
		}
		missing++
	}
	if missing > 0 {
		e.log.Warn(ctx, "startup validation found HOT-tier mappings missing from the vector index",
			zap.Int("missing_count", missing), zap.Int("total_mappings", len(mappings)))
	}
	return nil
}

// migrateLegacyDumpIfPresent imports a pre-existing vector dump found at
// <data_dir>/legacy_vectors.json into the index, once, on a fresh store
// with no index-resident vectors yet. Recognized shapes are a bare array
// of {label, vector} pairs, one wrapped in a "vectors" object, or a flat
// label->vector map. On success the dump is renamed with a ".migrated"
// suffix so the import does not repeat.
func (e *Engine) migrateLegacyDumpIfPresent(ctx context.Context) error {
	if e.index.Count() > 0 {
		return nil
	}
	path := filepath.Join(e.cfg.Store.DataDir, legacyDumpFilename)
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	n, err := vectorindex.MigrateLegacyDump(e.index, path)
	if err != nil {
		return err
	}
	if err := os.Rename(path, path+".migrated"); err != nil {
		return err
	}
	e.log.Info(ctx, "migrated legacy vector dump", zap.String("path", path), zap.Int("vector_count", n))
	return nil
}
