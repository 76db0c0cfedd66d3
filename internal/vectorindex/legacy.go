package vectorindex

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

// legacyPair is the array-of-objects historical dump shape:
// [{"label": 1, "vector": [...]}, ...]
type legacyPair struct {
	Label  int64     `json:"label"`
	Vector []float32 `json:"vector"`
}

// legacyWrapped is the wrapped-array historical dump shape:
// {"vectors": [{"label": 1, "vector": [...]}, ...]}
type legacyWrapped struct {
	Vectors []legacyPair `json:"vectors"`
}

// LoadLegacyDump recognizes one of three historical JSON vector-dump
// shapes and returns the (label, vector) pairs it contains:
//
//  1. a bare array of {label, vector} objects
//  2. an object with a top-level "vectors" array of the same objects
//  3. a flat object mapping string labels to vectors directly
//
// Anything else fails loudly with ErrUnrecognizedLegacyFormat rather than
// silently skipping data.
func LoadLegacyDump(path string) ([]legacyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read legacy dump: %w", err)
	}

	var asArray []legacyPair
	if err := json.Unmarshal(data, &asArray); err == nil && len(asArray) > 0 {
		return asArray, nil
	}

	var asWrapped legacyWrapped
	if err := json.Unmarshal(data, &asWrapped); err == nil && len(asWrapped.Vectors) > 0 {
		return asWrapped.Vectors, nil
	}

	var asMap map[string][]float32
	if err := json.Unmarshal(data, &asMap); err == nil && len(asMap) > 0 {
		pairs := make([]legacyPair, 0, len(asMap))
		for labelStr, vec := range asMap {
			var label int64
			if _, err := fmt.Sscanf(labelStr, "%d", &label); err != nil {
				return nil, fmt.Errorf("%w: non-integer label %q", memerr.ErrUnrecognizedLegacyFormat, labelStr)
			}
			pairs = append(pairs, legacyPair{Label: label, Vector: vec})
		}
		return pairs, nil
	}

	return nil, memerr.ErrUnrecognizedLegacyFormat
}

// MigrateLegacyDump loads a legacy dump, normalizes every vector, and
// batch-inserts all of them into idx. It is intended to run once at
// startup when idx is empty and the legacy file exists; on success the
// caller renames the legacy file so the migration does not repeat.
func MigrateLegacyDump(idx *Index, path string) (int, error) {
	pairs, err := LoadLegacyDump(path)
	if err != nil {
		return 0, err
	}

	for _, p := range pairs {
		if err := idx.Add(p.Label, p.Vector); err != nil {
			return 0, fmt.Errorf("migrate label %d: %w", p.Label, err)
		}
	}
	return len(pairs), nil
}
