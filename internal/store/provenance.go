package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

// ProvenanceRecord is the persisted L-Score rollup for one entry.
type ProvenanceRecord struct {
	EntryID      string
	LineageDepth int
	Confidence   float64
	Relevance    float64
	LScore       float64
}

// InsertProvenance persists a provenance rollup and its parent links within
// tx. parentIDs must already exist (the DAG invariant is enforced by the
// caller computing L-Score before this call — parents are looked up by ID,
// not validated here again).
func (s *Store) InsertProvenance(ctx context.Context, tx *sql.Tx, p *ProvenanceRecord, parentIDs []string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO provenance (entry_id, lineage_depth, confidence, relevance, l_score)
		VALUES (?, ?, ?, ?, ?)
	`, p.EntryID, p.LineageDepth, p.Confidence, p.Relevance, p.LScore)
	if err != nil {
		return fmt.Errorf("insert provenance: %w", err)
	}

	for _, parentID := range parentIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO provenance_links (child_id, parent_id) VALUES (?, ?)`,
			p.EntryID, parentID,
		); err != nil {
			return fmt.Errorf("insert provenance link %s<-%s: %w", p.EntryID, parentID, err)
		}
	}
	return nil
}

// GetProvenance loads the provenance rollup for an entry.
func (s *Store) GetProvenance(ctx context.Context, entryID string) (*ProvenanceRecord, error) {
	p := &ProvenanceRecord{EntryID: entryID}
	err := s.db.QueryRowContext(ctx, `
		SELECT lineage_depth, confidence, relevance, l_score FROM provenance WHERE entry_id = ?
	`, entryID).Scan(&p.LineageDepth, &p.Confidence, &p.Relevance, &p.LScore)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &memerr.NotFound{ID: entryID}
		}
		return nil, fmt.Errorf("scan provenance: %w", err)
	}
	return p, nil
}

// ParentLScores returns the L-Scores of an entry's direct parents, used to
// compute the child's rollup before insertion.
func (s *Store) ParentLScores(ctx context.Context, parentIDs []string) (map[string]float64, error) {
	scores := make(map[string]float64, len(parentIDs))
	for _, id := range parentIDs {
		p, err := s.GetProvenance(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("parent %s: %w", id, err)
		}
		scores[id] = p.LScore
	}
	return scores, nil
}

// ParentLineageDepths returns the lineage_depth of an entry's direct parents.
func (s *Store) ParentLineageDepths(ctx context.Context, parentIDs []string) (map[string]int, error) {
	depths := make(map[string]int, len(parentIDs))
	for _, id := range parentIDs {
		p, err := s.GetProvenance(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("parent %s: %w", id, err)
		}
		depths[id] = p.LineageDepth
	}
	return depths, nil
}

// Parents returns the direct parent ids of an entry (child -> parent edges).
func (s *Store) Parents(ctx context.Context, entryID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT parent_id FROM provenance_links WHERE child_id = ?`, entryID)
	if err != nil {
		return nil, fmt.Errorf("query parents: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// Children returns the direct child ids of an entry (parent -> child edges),
// the reverse direction of Parents.
func (s *Store) Children(ctx context.Context, entryID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT child_id FROM provenance_links WHERE parent_id = ?`, entryID)
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}
