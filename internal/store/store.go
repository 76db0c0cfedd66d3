// Package store provides durable, transactional storage for entries, tags,
// provenance edges, causal hyperedges, vector label mappings, and pattern
// templates. It is backed by SQLite (via modernc.org/sqlite, a cgo-free
// driver) under a single-writer/multi-reader concurrency model, and carries
// its own forward-only schema migrations (pressly/goose) that add columns
// with defaults rather than drop data.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/memcore/internal/config"
	"github.com/fyrsmithlabs/memcore/internal/logging"
	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite connection providing ACID access to the memory
// core's relational state. All exported methods are safe for concurrent
// use by multiple readers; writers are serialized by SQLite's own
// journaling under the busy_timeout configured at open.
type Store struct {
	db     *sql.DB
	log    *logging.Logger
	dbPath string
}

// Open creates (if absent) and migrates the database at cfg.DataDir, then
// returns a ready-to-use Store. Migration failure is fatal: the caller
// should abort initialization rather than run against a partially-migrated
// schema.
func Open(ctx context.Context, cfg config.StoreConfig, log *logging.Logger) (*Store, error) {
	dbPath := cfg.DataDir + "/memcore.db"

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		dbPath, cfg.BusyTimeout.Duration().Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer model; readers share the same pooled connection under WAL.

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", memerr.ErrStoreCorrupt, err)
	}

	s := &Store{db: db, log: log, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", memerr.ErrSchemaMigrationFailed, err)
	}

	return s, nil
}

// migrate applies all pending forward migrations embedded in migrations/.
func (s *Store) migrate() error {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, migrations)
	if err != nil {
		return fmt.Errorf("new migration provider: %w", err)
	}

	results, err := provider.Up(context.Background())
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, r := range results {
		s.logf("applied migration %s in %s", r.Source.Path, r.Duration)
	}
	return nil
}

func (s *Store) logf(msg string, args ...any) {
	if s.log == nil {
		return
	}
	s.log.Info(context.Background(), fmt.Sprintf(msg, args...))
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for callers that need to run ad-hoc
// queries outside the Store's own method set (e.g. the async write queue's
// tests, or a stats accessor counting rows in a table the Store doesn't
// otherwise expose).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Health verifies the store can still service a trivial round-trip query.
// It never returns a fatal error — a failure here is reported to the
// caller for a health-check surface, not used to abort the process.
func (s *Store) Health(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("%w: %v", memerr.ErrStoreCorrupt, err)
	}
	return nil
}

// WithTx runs fn inside a single SQL transaction, committing on success and
// rolling back on any error or panic. Vector index mutations that must
// share a transaction boundary with a vector_mappings row are expected to
// call back into the index from within fn using the *sql.Tx it receives.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// now is overridable in tests; production code always uses time.Now.
var now = time.Now
