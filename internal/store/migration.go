package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/benchmaker/internal/filelock"
	"github.com/harrison/benchmaker/internal/models"
)

// CurrentSchemaVersion is the schema generation this build writes.
//
// Generation 1 kept the whole database as one JSON document in the
// benchmaker_snapshot table. Generation 2 normalized it into the tables
// below. Nothing creates generation 1 anymore, so it has no entry in
// migrations; its data is carried forward by migrateLegacySnapshot.
const CurrentSchemaVersion = 2

// legacyNormalizationVersion is the first generation with normalized tables.
// A database installed below it may still hold a legacy snapshot.
const legacyNormalizationVersion = 2

// Migration represents a database schema migration
type Migration struct {
	Version     int
	Description string
	SQL         string

	// Upgrade, when set, runs after SQL in the same transaction. installed
	// is the version recorded before this migration pass started.
	Upgrade func(s *Store, ctx context.Context, tx *sql.Tx, installed int) error
}

// migrations is the ordered list of all database migrations
var migrations = []Migration{
	{
		Version:     2,
		Description: "Normalized suites, cases, runs, results and app state",
		SQL: `
CREATE TABLE IF NOT EXISTS test_suites (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    system_prompt TEXT NOT NULL,
    judge_system_prompt TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS test_cases (
    id TEXT PRIMARY KEY,
    test_suite_id TEXT NOT NULL,
    prompt TEXT NOT NULL,
    expected_output TEXT,
    scoring_method TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    category TEXT,
    difficulty TEXT,
    tags TEXT NOT NULL DEFAULT '[]',
    sort_order INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (test_suite_id) REFERENCES test_suites(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    test_suite_id TEXT NOT NULL,
    test_suite_name TEXT NOT NULL,
    models TEXT NOT NULL,
    parameters TEXT NOT NULL,
    status TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    completed_at INTEGER,
    judge_model TEXT
);

CREATE TABLE IF NOT EXISTS test_case_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    test_case_id TEXT NOT NULL,
    model_id TEXT NOT NULL,
    response TEXT NOT NULL DEFAULT '',
    token_count INTEGER,
    latency_ms INTEGER,
    status TEXT NOT NULL,
    error TEXT,
    score TEXT,
    streamed_content TEXT,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS app_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    active_test_suite_id TEXT,
    current_run_id TEXT
);

INSERT OR IGNORE INTO app_state (id, active_test_suite_id, current_run_id) VALUES (1, NULL, NULL);

CREATE INDEX IF NOT EXISTS idx_test_cases_suite ON test_cases(test_suite_id);
CREATE INDEX IF NOT EXISTS idx_results_run ON test_case_results(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_suite ON runs(test_suite_id);
`,
		Upgrade: (*Store).migrateLegacySnapshot,
	},
}

// ApplyMigrations brings the schema up to CurrentSchemaVersion.
//
// All pending migrations and the version bump run in one transaction, so a
// failure leaves the recorded version untouched and the next open retries
// the same work. For file databases an exclusive lock file serializes
// migrations across processes.
func (s *Store) ApplyMigrations(ctx context.Context) error {
	if s.dbPath != memoryPath {
		lock := filelock.ForDatabase(s.dbPath)
		if err := lock.LockContext(ctx); err != nil {
			return fmt.Errorf("lock database for migration: %w", err)
		}
		defer lock.Unlock()
	}

	return s.write(ctx, func(tx *sql.Tx) error {
		if err := ensureSchemaVersionTable(ctx, tx); err != nil {
			return err
		}

		installed, err := schemaVersion(ctx, tx)
		if err != nil {
			return err
		}

		if installed > CurrentSchemaVersion {
			return fmt.Errorf("database schema version %d is newer than supported version %d", installed, CurrentSchemaVersion)
		}
		if installed == CurrentSchemaVersion {
			s.logger.LogDebug(fmt.Sprintf("Schema at version %d, nothing to migrate", installed))
			return nil
		}

		for _, migration := range migrations {
			if migration.Version <= installed {
				continue
			}

			s.logger.LogInfo(fmt.Sprintf("Applying migration %d: %s", migration.Version, migration.Description))

			if migration.SQL != "" {
				if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
					return fmt.Errorf("apply migration %d (%s): %w", migration.Version, migration.Description, err)
				}
			}

			if migration.Upgrade != nil {
				if err := migration.Upgrade(s, ctx, tx, installed); err != nil {
					return fmt.Errorf("apply migration %d (%s): %w", migration.Version, migration.Description, err)
				}
			}
		}

		if err := setSchemaVersion(ctx, tx, CurrentSchemaVersion); err != nil {
			return err
		}

		s.logger.LogInfo(fmt.Sprintf("Schema migrated from version %d to %d", installed, CurrentSchemaVersion))
		return nil
	})
}

// SchemaVersion returns the installed schema version, 0 when none is recorded.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.read(ctx, func(tx *sql.Tx) error {
		exists, err := tableExists(ctx, tx, "schema_version")
		if err != nil || !exists {
			return err
		}
		version, err = schemaVersion(ctx, tx)
		return err
	})
	return version, err
}

// ensureSchemaVersionTable ensures the singleton schema_version table exists
func ensureSchemaVersionTable(ctx context.Context, q queryer) error {
	_, err := q.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_version (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    version INTEGER NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}
	return nil
}

func schemaVersion(ctx context.Context, q queryer) (int, error) {
	var version int
	err := q.QueryRowContext(ctx, `SELECT version FROM schema_version WHERE id = 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query schema version: %w", err)
	}
	return version, nil
}

func setSchemaVersion(ctx context.Context, q queryer, version int) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO schema_version (id, version) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET version = excluded.version`, version)
	if err != nil {
		return fmt.Errorf("record schema version %d: %w", version, err)
	}
	return nil
}

// legacySnapshotTable is the generation-1 single-row table
const legacySnapshotTable = "benchmaker_snapshot"

// migrateLegacySnapshot copies the generation-1 document into the normalized
// tables and drops the legacy table. A document that does not decode aborts
// the migration: the data is left where it is rather than partially copied.
func (s *Store) migrateLegacySnapshot(ctx context.Context, tx *sql.Tx, installed int) error {
	if installed >= legacyNormalizationVersion {
		return nil
	}

	exists, err := tableExists(ctx, tx, legacySnapshotTable)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	var payload sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT payload FROM `+legacySnapshotTable+` WHERE id = 1`).Scan(&payload)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read legacy snapshot: %w", err)
	}

	if payload.Valid && strings.TrimSpace(payload.String) != "" {
		snap, err := decodeLegacySnapshot([]byte(payload.String))
		if err != nil {
			return fmt.Errorf("%w: failed to parse legacy snapshot: %w", ErrDecode, err)
		}

		if err := s.importLegacySnapshot(ctx, tx, snap); err != nil {
			return fmt.Errorf("import legacy snapshot: %w", err)
		}

		s.logger.LogInfo(fmt.Sprintf("Migrated legacy snapshot: %d suites, %d runs",
			len(snap.TestSuites), len(snap.Runs)))
	} else {
		s.logger.LogInfo("Legacy snapshot table is empty, nothing to copy")
	}

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+legacySnapshotTable); err != nil {
		return fmt.Errorf("drop legacy snapshot table: %w", err)
	}
	return nil
}

// importLegacySnapshot upserts every entity of a decoded legacy document.
// Unlike SaveSuite and SaveRun, every column is overwritten so the original
// timestamps survive.
func (s *Store) importLegacySnapshot(ctx context.Context, tx *sql.Tx, snap *models.Snapshot) error {
	for i := range snap.TestSuites {
		suite := &snap.TestSuites[i]
		if err := upsertSuiteRow(ctx, tx, suite, upsertSuiteAllSQL); err != nil {
			return err
		}
		if err := replaceCases(ctx, tx, suite.ID, suite.TestCases, upsertCaseSQL); err != nil {
			return err
		}
	}

	for i := range snap.Runs {
		run := &snap.Runs[i]
		if err := upsertRunRow(ctx, tx, run, upsertRunAllSQL); err != nil {
			return err
		}
		if err := replaceResults(ctx, tx, run.ID, run.Results); err != nil {
			return err
		}
	}

	return saveAppState(ctx, tx, snap.AppState())
}
