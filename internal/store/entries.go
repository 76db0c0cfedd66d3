package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

// Entry is the persisted representation of a memory entry, independent of
// its embedding or provenance.
type Entry struct {
	ID               string
	Content          string
	Source           string
	Importance       float64
	SessionID        sql.NullString
	AgentID          sql.NullString
	Context          sql.NullString
	PendingEmbedding bool
	Tags             []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ValidSources is the closed set of allowed entry source tags.
var ValidSources = map[string]bool{
	"user": true, "inference": true, "tool": true, "system": true, "external": true,
}

// InsertEntry persists a new entry and its tags within tx. The entry's
// CreatedAt/UpdatedAt are stamped here if zero.
func (s *Store) InsertEntry(ctx context.Context, tx *sql.Tx, e *Entry) error {
	if !ValidSources[e.Source] {
		return &memerr.ConstraintViolation{What: fmt.Sprintf("unknown source %q", e.Source)}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO entries (id, content, source, importance, session_id, agent_id, context, pending_embedding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Content, e.Source, e.Importance, e.SessionID, e.AgentID, e.Context, e.PendingEmbedding, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return mapConstraintErr(err, e.ID)
	}

	for _, tag := range e.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO entry_tags (entry_id, tag) VALUES (?, ?)`, e.ID, tag,
		); err != nil {
			return fmt.Errorf("insert tag %q: %w", tag, err)
		}
	}
	return nil
}

// GetEntry loads a single entry and its tags.
func (s *Store) GetEntry(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, content, source, importance, session_id, agent_id, context, pending_embedding, created_at, updated_at
		FROM entries WHERE id = ?
	`, id)

	e := &Entry{}
	if err := row.Scan(&e.ID, &e.Content, &e.Source, &e.Importance, &e.SessionID, &e.AgentID, &e.Context,
		&e.PendingEmbedding, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &memerr.NotFound{ID: id}
		}
		return nil, fmt.Errorf("scan entry: %w", err)
	}

	tags, err := s.entryTags(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Tags = tags
	return e, nil
}

func (s *Store) entryTags(ctx context.Context, entryID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag FROM entry_tags WHERE entry_id = ?`, entryID)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// UpdateEntryMetadata mutates tags and/or importance of an existing entry.
// Content is immutable after creation per the data model and is not
// accepted here.
func (s *Store) UpdateEntryMetadata(ctx context.Context, id string, importance *float64, tags []string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if importance != nil {
			res, err := tx.ExecContext(ctx, `UPDATE entries SET importance = ?, updated_at = ? WHERE id = ?`,
				*importance, now(), id)
			if err != nil {
				return fmt.Errorf("update importance: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return &memerr.NotFound{ID: id}
			}
		}
		if tags != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM entry_tags WHERE entry_id = ?`, id); err != nil {
				return fmt.Errorf("clear tags: %w", err)
			}
			for _, tag := range tags {
				if _, err := tx.ExecContext(ctx,
					`INSERT OR IGNORE INTO entry_tags (entry_id, tag) VALUES (?, ?)`, id, tag,
				); err != nil {
					return fmt.Errorf("insert tag %q: %w", tag, err)
				}
			}
		}
		return nil
	})
}

// DeleteEntry removes an entry and all dependent rows (tags, provenance,
// vector mapping) via ON DELETE CASCADE. It does not remove the vector
// from the in-memory index — the caller (the engine facade) is responsible
// for deleting the label from the index within the same transaction
// boundary, since the index is not SQL-resident.
func (s *Store) DeleteEntry(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &memerr.NotFound{ID: id}
	}
	return nil
}

// CountEntries returns the total number of stored entries.
func (s *Store) CountEntries(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// FilterEntries returns entry IDs matching all of the given tags (AND
// semantics) and an optional minimum importance, newest first.
func (s *Store) FilterEntries(ctx context.Context, tags []string, minImportance float64) ([]string, error) {
	if len(tags) == 0 {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id FROM entries WHERE importance >= ? ORDER BY created_at DESC`, minImportance)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanIDs(rows)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tags)), ",")
	query := fmt.Sprintf(`
		SELECT e.id FROM entries e
		WHERE e.importance >= ? AND e.id IN (
			SELECT entry_id FROM entry_tags WHERE tag IN (%s)
			GROUP BY entry_id HAVING COUNT(DISTINCT tag) = ?
		)
		ORDER BY e.created_at DESC
	`, placeholders)

	args := make([]any, 0, len(tags)+2)
	args = append(args, minImportance)
	for _, t := range tags {
		args = append(args, t)
	}
	args = append(args, len(tags))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func mapConstraintErr(err error, id string) error {
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "constraint failed") {
		return &memerr.ConstraintViolation{What: fmt.Sprintf("entry %s: %v", id, err)}
	}
	return fmt.Errorf("insert entry: %w", err)
}
