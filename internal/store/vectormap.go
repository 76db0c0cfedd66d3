package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

// VectorMapping is the bidirectional entry<->label record, along with the
// access-tracking fields the compression tier manager reads and writes.
type VectorMapping struct {
	EntryID         string
	Label           int64
	AccessCount     int64
	LastAccessedAt  sql.NullTime
	CompressionTier string
	StoredBytes     int64
}

// InsertVectorMapping persists a new entry<->label mapping within tx, so it
// can share a transaction boundary with the index insert that produced the
// label (per the vector index's durability contract).
func (s *Store) InsertVectorMapping(ctx context.Context, tx *sql.Tx, m *VectorMapping) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO vector_mappings (entry_id, label, access_count, last_accessed_at, compression_tier, stored_bytes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.EntryID, m.Label, m.AccessCount, m.LastAccessedAt, m.CompressionTier, m.StoredBytes)
	if err != nil {
		return fmt.Errorf("insert vector mapping: %w", err)
	}
	return nil
}

// GetVectorMapping loads the mapping for an entry.
func (s *Store) GetVectorMapping(ctx context.Context, entryID string) (*VectorMapping, error) {
	m := &VectorMapping{EntryID: entryID}
	err := s.db.QueryRowContext(ctx, `
		SELECT label, access_count, last_accessed_at, compression_tier, stored_bytes
		FROM vector_mappings WHERE entry_id = ?
	`, entryID).Scan(&m.Label, &m.AccessCount, &m.LastAccessedAt, &m.CompressionTier, &m.StoredBytes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &memerr.NotFound{ID: entryID}
		}
		return nil, fmt.Errorf("scan vector mapping: %w", err)
	}
	return m, nil
}

// MappingByLabel resolves a vector label back to its owning entry ID.
func (s *Store) MappingByLabel(ctx context.Context, label int64) (string, error) {
	var entryID string
	err := s.db.QueryRowContext(ctx, `SELECT entry_id FROM vector_mappings WHERE label = ?`, label).Scan(&entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", &memerr.NotFound{ID: fmt.Sprintf("label:%d", label)}
		}
		return "", fmt.Errorf("scan mapping by label: %w", err)
	}
	return entryID, nil
}

// NextLabel returns the next monotonic integer label to assign, one past
// the current maximum (or 0 if the table is empty).
func (s *Store) NextLabel(ctx context.Context) (int64, error) {
	var maxLabel sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(label) FROM vector_mappings`).Scan(&maxLabel); err != nil {
		return 0, fmt.Errorf("query max label: %w", err)
	}
	if !maxLabel.Valid {
		return 0, nil
	}
	return maxLabel.Int64 + 1, nil
}

// RecordAccess increments the access count and stamps last_accessed_at for
// an entry's vector mapping, returning the new count.
func (s *Store) RecordAccess(ctx context.Context, entryID string) (int64, error) {
	var newCount int64
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE vector_mappings SET access_count = access_count + 1, last_accessed_at = ? WHERE entry_id = ?`,
			now(), entryID)
		if err != nil {
			return fmt.Errorf("record access: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &memerr.NotFound{ID: entryID}
		}
		return tx.QueryRowContext(ctx, `SELECT access_count FROM vector_mappings WHERE entry_id = ?`, entryID).Scan(&newCount)
	})
	return newCount, err
}

// MaxAccessCount returns the highest access_count across all mappings,
// which the frequency-band calculation in the compression tier manager
// divides by.
func (s *Store) MaxAccessCount(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(access_count) FROM vector_mappings`).Scan(&max); err != nil {
		return 0, fmt.Errorf("query max access count: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

// AllVectorMappings returns every mapping, used by a full evaluateTiers
// sweep.
func (s *Store) AllVectorMappings(ctx context.Context) ([]*VectorMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, label, access_count, last_accessed_at, compression_tier, stored_bytes FROM vector_mappings
	`)
	if err != nil {
		return nil, fmt.Errorf("query vector mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*VectorMapping
	for rows.Next() {
		m := &VectorMapping{}
		if err := rows.Scan(&m.EntryID, &m.Label, &m.AccessCount, &m.LastAccessedAt, &m.CompressionTier, &m.StoredBytes); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// UpdateTier updates an entry's compression tier, stored byte count, and the
// compressed byte payload within tx, as part of a demotion re-encode. data
// is nil for HOT, since HOT vectors live only in the vector index.
func (s *Store) UpdateTier(ctx context.Context, tx *sql.Tx, entryID, tier string, storedBytes int64, data []byte) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE vector_mappings SET compression_tier = ?, stored_bytes = ?, compressed_data = ? WHERE entry_id = ?`,
		tier, storedBytes, data, entryID)
	if err != nil {
		return fmt.Errorf("update tier: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &memerr.NotFound{ID: entryID}
	}
	return nil
}

// CompressedData loads the raw compressed payload for an entry currently
// stored below the HOT tier.
func (s *Store) CompressedData(ctx context.Context, entryID string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT compressed_data FROM vector_mappings WHERE entry_id = ?`, entryID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &memerr.NotFound{ID: entryID}
		}
		return nil, fmt.Errorf("load compressed data: %w", err)
	}
	return data, nil
}

// PQCodebook is the serialized form of a trained product-quantization
// codebook for one compression tier (COOL or COLD).
type PQCodebook struct {
	Tier          string
	NumSubvectors int
	NumCentroids  int
	SubvectorDim  int
	Centroids     []byte
	TrainedAt     time.Time
	TrainingSize  int
}

// SaveCodebook upserts a trained codebook for a tier.
func (s *Store) SaveCodebook(ctx context.Context, cb *PQCodebook) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pq_codebooks (tier, num_subvectors, num_centroids, subvector_dim, centroids, trained_at, training_size)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tier) DO UPDATE SET
			num_subvectors = excluded.num_subvectors,
			num_centroids = excluded.num_centroids,
			subvector_dim = excluded.subvector_dim,
			centroids = excluded.centroids,
			trained_at = excluded.trained_at,
			training_size = excluded.training_size
	`, cb.Tier, cb.NumSubvectors, cb.NumCentroids, cb.SubvectorDim, cb.Centroids, cb.TrainedAt, cb.TrainingSize)
	if err != nil {
		return fmt.Errorf("save codebook: %w", err)
	}
	return nil
}

// LoadCodebook fetches a tier's trained codebook, if any.
func (s *Store) LoadCodebook(ctx context.Context, tier string) (*PQCodebook, error) {
	cb := &PQCodebook{Tier: tier}
	err := s.db.QueryRowContext(ctx, `
		SELECT num_subvectors, num_centroids, subvector_dim, centroids, trained_at, training_size
		FROM pq_codebooks WHERE tier = ?
	`, tier).Scan(&cb.NumSubvectors, &cb.NumCentroids, &cb.SubvectorDim, &cb.Centroids, &cb.TrainedAt, &cb.TrainingSize)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, memerr.ErrCodebookNotLoaded
		}
		return nil, fmt.Errorf("load codebook: %w", err)
	}
	return cb, nil
}
