package queue

import (
	"database/sql"
	"fmt"
	"sort"
)

// pkColumn is the primary-key column name used to address update/delete ops.
// Every table the queue writes to in this module keys on "id".
const pkColumn = "id"

// apply executes a single op against tx using plain parameterized SQL.
func apply(tx *sql.Tx, o Op) error {
	switch o.Type {
	case OpInsert:
		return applyInsert(tx, o)
	case OpUpdate:
		return applyUpdate(tx, o)
	case OpDelete:
		return applyDelete(tx, o)
	default:
		return fmt.Errorf("queue: unknown op type %q", o.Type)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func applyInsert(tx *sql.Tx, o Op) error {
	cols := sortedKeys(o.Data)
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		placeholders[i] = "?"
		args[i] = o.Data[c]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", o.Table, joinCols(cols), joinCols(placeholders))
	_, err := tx.Exec(query, args...)
	return err
}

func applyUpdate(tx *sql.Tx, o Op) error {
	cols := sortedKeys(o.Data)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = c + " = ?"
		args = append(args, o.Data[c])
	}
	args = append(args, o.ID)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", o.Table, joinCols(sets), pkColumn)
	_, err := tx.Exec(query, args...)
	return err
}

func applyDelete(tx *sql.Tx, o Op) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", o.Table, pkColumn)
	_, err := tx.Exec(query, o.ID)
	return err
}

func joinCols(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
