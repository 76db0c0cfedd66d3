// Package queue implements the async write queue: a non-blocking, batched,
// transactional buffer that takes writes off the hot path and applies them
// to the store in the background.
package queue

import "fmt"

// OpType is the kind of mutation an Op applies.
type OpType string

const (
	OpInsert OpType = "insert"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

// Op is a single buffered write: an insert/update/delete against one table,
// identified by ID for update/delete and carrying column values for
// insert/update.
type Op struct {
	Type OpType
	// Table is the destination table name. It is interpolated into the
	// generated SQL as given; update/delete ops address the row by its "id"
	// column.
	Table string
	// Data holds column -> value for insert/update.
	Data map[string]any
	// ID identifies the row for update/delete.
	ID string
}

func (o Op) validate() error {
	switch o.Type {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return fmt.Errorf("queue: unknown op type %q", o.Type)
	}
	if o.Table == "" {
		return fmt.Errorf("queue: op missing table")
	}
	if (o.Type == OpUpdate || o.Type == OpDelete) && o.ID == "" {
		return fmt.Errorf("queue: %s op missing id", o.Type)
	}
	if (o.Type == OpInsert || o.Type == OpUpdate) && len(o.Data) == 0 {
		return fmt.Errorf("queue: %s op missing data", o.Type)
	}
	return nil
}
