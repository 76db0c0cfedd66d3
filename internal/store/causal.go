package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

// RelationType is one of the six closed causal-edge kinds.
type RelationType string

const (
	RelationCauses     RelationType = "causes"
	RelationEnables    RelationType = "enables"
	RelationPrevents   RelationType = "prevents"
	RelationCorrelates RelationType = "correlates"
	RelationPrecedes   RelationType = "precedes"
	RelationTriggers   RelationType = "triggers"
)

// ValidRelationTypes is the closed set of causal relation types.
var ValidRelationTypes = map[RelationType]bool{
	RelationCauses: true, RelationEnables: true, RelationPrevents: true,
	RelationCorrelates: true, RelationPrecedes: true, RelationTriggers: true,
}

// CausalRelation is a typed hyperedge from a set of source entries to a set
// of target entries.
type CausalRelation struct {
	ID        string
	Type      RelationType
	Strength  float64
	Metadata  sql.NullString
	CreatedAt time.Time
	TTLMillis sql.NullInt64
	ExpiresAt sql.NullTime
	Sources   []string
	Targets   []string
}

// InsertCausalRelation persists a causal hyperedge and its source/target
// membership. expires_at is derived from created_at + ttl when a TTL is
// given.
func (s *Store) InsertCausalRelation(ctx context.Context, r *CausalRelation) error {
	if !ValidRelationTypes[r.Type] {
		return memerr.ErrUnknownRelationType
	}
	if len(r.Sources) == 0 || len(r.Targets) == 0 {
		return &memerr.ConstraintViolation{What: "causal relation requires at least one source and one target"}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now()
	}
	if r.TTLMillis.Valid {
		r.ExpiresAt = sql.NullTime{
			Time:  r.CreatedAt.Add(time.Duration(r.TTLMillis.Int64) * time.Millisecond),
			Valid: true,
		}
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO causal_relations (id, type, strength, metadata, created_at, ttl_ms, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, r.ID, string(r.Type), r.Strength, r.Metadata, r.CreatedAt, r.TTLMillis, r.ExpiresAt)
		if err != nil {
			return fmt.Errorf("insert causal relation: %w", err)
		}
		for _, id := range r.Sources {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO causal_sources (relation_id, entry_id) VALUES (?, ?)`, r.ID, id,
			); err != nil {
				return fmt.Errorf("insert causal source: %w", err)
			}
		}
		for _, id := range r.Targets {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO causal_targets (relation_id, entry_id) VALUES (?, ?)`, r.ID, id,
			); err != nil {
				return fmt.Errorf("insert causal target: %w", err)
			}
		}
		return nil
	})
}

// RelationsFrom returns all non-expired causal relations where entryID is a
// source (forward traversal edges), optionally filtered to relationTypes.
func (s *Store) RelationsFrom(ctx context.Context, entryID string, relationTypes []RelationType) ([]*CausalRelation, error) {
	return s.relationsByEndpoint(ctx, "causal_sources", entryID, relationTypes)
}

// RelationsTo returns all non-expired causal relations where entryID is a
// target (backward traversal edges), optionally filtered to relationTypes.
func (s *Store) RelationsTo(ctx context.Context, entryID string, relationTypes []RelationType) ([]*CausalRelation, error) {
	return s.relationsByEndpoint(ctx, "causal_targets", entryID, relationTypes)
}

func (s *Store) relationsByEndpoint(ctx context.Context, endpointTable, entryID string, relationTypes []RelationType) ([]*CausalRelation, error) {
	query := fmt.Sprintf(`
		SELECT r.id, r.type, r.strength, r.metadata, r.created_at, r.ttl_ms, r.expires_at
		FROM causal_relations r
		JOIN %s ep ON ep.relation_id = r.id
		WHERE ep.entry_id = ? AND (r.expires_at IS NULL OR r.expires_at > ?)
	`, endpointTable)

	rows, err := s.db.QueryContext(ctx, query, entryID, now())
	if err != nil {
		return nil, fmt.Errorf("query relations: %w", err)
	}
	defer rows.Close()

	typeFilter := make(map[RelationType]bool, len(relationTypes))
	for _, t := range relationTypes {
		typeFilter[t] = true
	}

	var relations []*CausalRelation
	for rows.Next() {
		r := &CausalRelation{}
		var typ string
		if err := rows.Scan(&r.ID, &typ, &r.Strength, &r.Metadata, &r.CreatedAt, &r.TTLMillis, &r.ExpiresAt); err != nil {
			return nil, err
		}
		r.Type = RelationType(typ)
		if len(typeFilter) > 0 && !typeFilter[r.Type] {
			continue
		}
		relations = append(relations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range relations {
		sources, err := s.relationEndpoints(ctx, "causal_sources", r.ID)
		if err != nil {
			return nil, err
		}
		targets, err := s.relationEndpoints(ctx, "causal_targets", r.ID)
		if err != nil {
			return nil, err
		}
		r.Sources, r.Targets = sources, targets
	}
	return relations, nil
}

func (s *Store) relationEndpoints(ctx context.Context, table, relationID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT entry_id FROM %s WHERE relation_id = ?`, table), relationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

// GetCausalRelation loads a single relation by ID regardless of expiry.
func (s *Store) GetCausalRelation(ctx context.Context, id string) (*CausalRelation, error) {
	r := &CausalRelation{ID: id}
	var typ string
	err := s.db.QueryRowContext(ctx, `
		SELECT type, strength, metadata, created_at, ttl_ms, expires_at FROM causal_relations WHERE id = ?
	`, id).Scan(&typ, &r.Strength, &r.Metadata, &r.CreatedAt, &r.TTLMillis, &r.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &memerr.NotFound{ID: id}
		}
		return nil, fmt.Errorf("scan causal relation: %w", err)
	}
	r.Type = RelationType(typ)
	sources, err := s.relationEndpoints(ctx, "causal_sources", id)
	if err != nil {
		return nil, err
	}
	targets, err := s.relationEndpoints(ctx, "causal_targets", id)
	if err != nil {
		return nil, err
	}
	r.Sources, r.Targets = sources, targets
	return r, nil
}

// ExpireCausalRelations deletes all relations whose expires_at has passed
// and returns how many were removed.
func (s *Store) ExpireCausalRelations(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM causal_relations WHERE expires_at IS NOT NULL AND expires_at <= ?`, now())
	if err != nil {
		return 0, fmt.Errorf("expire causal relations: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
