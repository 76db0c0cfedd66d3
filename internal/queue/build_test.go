package queue

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE widgets (id TEXT PRIMARY KEY, name TEXT NOT NULL, count INTEGER NOT NULL DEFAULT 0)`)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestApplyInsertThenUpdateThenDelete(t *testing.T) {
	db := openMemDB(t)

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, apply(tx, Op{
		Type: OpInsert, Table: "widgets", ID: "w1",
		Data: map[string]any{"id": "w1", "name": "gizmo", "count": 1},
	}))
	require.NoError(t, tx.Commit())

	var name string
	require.NoError(t, db.QueryRow(`SELECT name FROM widgets WHERE id = ?`, "w1").Scan(&name))
	require.Equal(t, "gizmo", name)

	tx, err = db.Begin()
	require.NoError(t, err)
	require.NoError(t, apply(tx, Op{
		Type: OpUpdate, Table: "widgets", ID: "w1",
		Data: map[string]any{"count": 5},
	}))
	require.NoError(t, tx.Commit())

	var count int
	require.NoError(t, db.QueryRow(`SELECT count FROM widgets WHERE id = ?`, "w1").Scan(&count))
	require.Equal(t, 5, count)

	tx, err = db.Begin()
	require.NoError(t, err)
	require.NoError(t, apply(tx, Op{Type: OpDelete, Table: "widgets", ID: "w1"}))
	require.NoError(t, tx.Commit())

	err = db.QueryRow(`SELECT name FROM widgets WHERE id = ?`, "w1").Scan(&name)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestApplyUnknownOpTypeErrors(t *testing.T) {
	db := openMemDB(t)
	tx, err := db.Begin()
	require.NoError(t, err)
	defer tx.Rollback()

	err = apply(tx, Op{Type: "bogus", Table: "widgets", ID: "w1"})
	require.Error(t, err)
}
