// Package store persists benchmark suites, runs and the session pointer in
// SQLite.
//
// A Store is the single gateway to the database file. Opening it enables
// foreign keys on every connection and brings the schema up to
// CurrentSchemaVersion, converting the legacy single-document table on the
// way. Two surfaces share the same tables: the entity operations
// (ListSuites, SaveSuite, ListRuns, SaveRun, ...) and the whole-database
// snapshot (ReadSnapshot, WriteSnapshot). Every write goes through one
// mutex and one transaction, so a snapshot write and an entity save never
// interleave.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const memoryPath = ":memory:"

// Logger receives store diagnostics. *logger.ConsoleLogger satisfies it.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
}

type nopLogger struct{}

func (nopLogger) LogDebug(string) {}
func (nopLogger) LogInfo(string)  {}
func (nopLogger) LogWarn(string)  {}

// Option configures a Store at open time
type Option func(*Store)

// WithLogger routes migration progress and read-time decode warnings to l.
func WithLogger(l Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the clock used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store manages the benchmark database
type Store struct {
	db     *sql.DB
	dbPath string

	// mu orders every write: entity saves, deletes, snapshot writes and
	// migrations run one at a time.
	mu sync.Mutex

	logger Logger
	now    func() time.Time
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens (creating if needed) the database at dbPath and applies pending
// migrations. dbPath may be ":memory:".
func Open(dbPath string, opts ...Option) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: database path is empty", ErrStorageUnavailable)
	}

	if dbPath != memoryPath {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: create database directory: %w", ErrStorageUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName(dbPath))
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", ErrStorageUnavailable, err)
	}

	// SQLite has a single writer, and one connection keeps a :memory:
	// database from splitting into several independent databases.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:     db,
		dbPath: dbPath,
		logger: nopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()
	if err := s.enableForeignKeys(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if err := s.ApplyMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return s, nil
}

// dataSourceName builds the go-sqlite3 DSN. Foreign keys are switched on in
// the DSN so that every connection the pool opens enforces them.
func dataSourceName(dbPath string) string {
	if dbPath == memoryPath {
		return memoryPath + "?_foreign_keys=on&_busy_timeout=5000"
	}
	return dbPath + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL"
}

// enableForeignKeys forces and verifies foreign key enforcement. Failing to
// connect at all surfaces here first.
func (s *Store) enableForeignKeys(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	var enabled int
	if err := s.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("read foreign_keys pragma: %w", err)
	}
	if enabled != 1 {
		return errors.New("foreign key enforcement is not available")
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.dbPath
}

// read runs fn in a transaction so multi-query reads see one consistent
// state. It does not take the write mutex.
func (s *Store) read(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withTx(ctx, fn)
}

// write runs fn in a transaction while holding the write mutex.
func (s *Store) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withTx(ctx, fn)
}

// withTx commits when fn succeeds and rolls back everything otherwise.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	if err := fn(tx); err != nil {
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// tableExists checks if a table exists in the database
func tableExists(ctx context.Context, q queryer, tableName string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
	if err := q.QueryRowContext(ctx, query, tableName).Scan(&count); err != nil {
		return false, fmt.Errorf("check table existence: %w", err)
	}
	return count > 0, nil
}

// indexExists checks if an index exists in the database
func indexExists(ctx context.Context, q queryer, indexName string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?`
	if err := q.QueryRowContext(ctx, query, indexName).Scan(&count); err != nil {
		return false, fmt.Errorf("check index existence: %w", err)
	}
	return count > 0, nil
}

// listIDs returns every primary key in table. table is always a constant
// from this package.
func listIDs(ctx context.Context, q queryer, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT id FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("query %s ids: %w", table, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", table, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s ids: %w", table, err)
	}
	return ids, nil
}
