package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

// PatternTemplate is a named, slotted text template with rolling usage
// statistics that gate auto-pruning.
type PatternTemplate struct {
	ID            string
	Name          string
	Pattern       string
	Slots         string // JSON-encoded slot definitions.
	Priority      int
	CreatedAt     time.Time
	UseCount      int64
	SuccessCount  int64
	LastUsedAt    sql.NullTime
}

// RegisterPattern inserts a new pattern template with zeroed statistics.
func (s *Store) RegisterPattern(ctx context.Context, p *PatternTemplate) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pattern_templates (id, name, pattern, slots, priority, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, p.ID, p.Name, p.Pattern, p.Slots, p.Priority, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("register pattern: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO pattern_stats (pattern_id, use_count, success_count) VALUES (?, 0, 0)
		`, p.ID)
		if err != nil {
			return fmt.Errorf("init pattern stats: %w", err)
		}
		return nil
	})
}

// RecordPatternUse increments use_count and, if succeeded, success_count,
// stamping last_used_at.
func (s *Store) RecordPatternUse(ctx context.Context, patternID string, succeeded bool) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		query := `UPDATE pattern_stats SET use_count = use_count + 1, last_used_at = ?`
		if succeeded {
			query += `, success_count = success_count + 1`
		}
		query += ` WHERE pattern_id = ?`

		res, err := tx.ExecContext(ctx, query, now(), patternID)
		if err != nil {
			return fmt.Errorf("record pattern use: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &memerr.NotFound{ID: patternID}
		}
		return nil
	})
}

// GetPattern loads a pattern template and its rolling statistics.
func (s *Store) GetPattern(ctx context.Context, id string) (*PatternTemplate, error) {
	p := &PatternTemplate{ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT t.name, t.pattern, t.slots, t.priority, t.created_at,
		       s.use_count, s.success_count, s.last_used_at
		FROM pattern_templates t
		JOIN pattern_stats s ON s.pattern_id = t.id
		WHERE t.id = ?
	`, id).Scan(&p.Name, &p.Pattern, &p.Slots, &p.Priority, &p.CreatedAt,
		&p.UseCount, &p.SuccessCount, &p.LastUsedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &memerr.NotFound{ID: id}
		}
		return nil, fmt.Errorf("scan pattern: %w", err)
	}
	return p, nil
}

// PrunablePatterns returns the IDs of patterns eligible for auto-pruning:
// use_count >= 100 AND success_rate < 0.4.
func (s *Store) PrunablePatterns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pattern_id FROM pattern_stats
		WHERE use_count >= 100 AND (CAST(success_count AS REAL) / use_count) < 0.4
	`)
	if err != nil {
		return nil, fmt.Errorf("query prunable patterns: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// PrunePattern deletes a pattern template and its stats.
func (s *Store) PrunePattern(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pattern_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("prune pattern: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &memerr.NotFound{ID: id}
	}
	return nil
}

// AllPatterns returns every registered pattern template, ordered by priority
// descending.
func (s *Store) AllPatterns(ctx context.Context) ([]*PatternTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.pattern, t.slots, t.priority, t.created_at,
		       s.use_count, s.success_count, s.last_used_at
		FROM pattern_templates t
		JOIN pattern_stats s ON s.pattern_id = t.id
		ORDER BY t.priority DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*PatternTemplate
	for rows.Next() {
		p := &PatternTemplate{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Pattern, &p.Slots, &p.Priority, &p.CreatedAt,
			&p.UseCount, &p.SuccessCount, &p.LastUsedAt); err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}
