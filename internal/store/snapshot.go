package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harrison/benchmaker/internal/models"
)

// ReadSnapshot assembles the whole database into one document. Suites, runs
// and the session pointer are read in a single transaction. Version is the
// installed schema version and UpdatedAt is the read time.
func (s *Store) ReadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	err := s.read(ctx, func(tx *sql.Tx) error {
		version, err := schemaVersion(ctx, tx)
		if err != nil {
			return err
		}

		suites, err := s.listSuitesTx(ctx, tx)
		if err != nil {
			return err
		}

		runs, err := s.listRunsTx(ctx, tx)
		if err != nil {
			return err
		}

		state, err := getAppStateTx(ctx, tx)
		if err != nil {
			return err
		}

		snap.Version = int64(version)
		snap.TestSuites = suites
		snap.Runs = runs
		snap.ActiveTestSuiteID = state.ActiveTestSuiteID
		snap.CurrentRunID = state.CurrentRunID
		return nil
	})
	if err != nil {
		return nil, err
	}

	snap.UpdatedAt = s.now().UnixMilli()
	return snap, nil
}

// WriteSnapshot makes the stored state match snap. Suites and runs are saved
// with the same semantics as SaveSuite and SaveRun, stored suites and runs
// absent from snap are deleted, and the session pointer is overwritten. The
// document's Version and UpdatedAt are ignored. Nothing is written unless
// every step succeeds.
func (s *Store) WriteSnapshot(ctx context.Context, snap *models.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: snapshot is nil", ErrInvalid)
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return s.write(ctx, func(tx *sql.Tx) error {
		keepSuites := make(map[string]bool, len(snap.TestSuites))
		for i := range snap.TestSuites {
			keepSuites[snap.TestSuites[i].ID] = true
		}

		// Clear every case the document may re-insert before inserting any,
		// so a case id can move between suites, including out of a suite
		// the document drops.
		if err := deleteMissing(ctx, tx, "test_suites", keepSuites, deleteSuiteTx); err != nil {
			return err
		}
		for id := range keepSuites {
			if err := clearCases(ctx, tx, id); err != nil {
				return err
			}
		}

		for i := range snap.TestSuites {
			if err := saveSuiteTx(ctx, tx, &snap.TestSuites[i]); err != nil {
				return err
			}
		}

		keepRuns := make(map[string]bool, len(snap.Runs))
		for i := range snap.Runs {
			run := &snap.Runs[i]
			if err := saveRunTx(ctx, tx, run); err != nil {
				return err
			}
			keepRuns[run.ID] = true
		}
		if err := deleteMissing(ctx, tx, "runs", keepRuns, deleteRunTx); err != nil {
			return err
		}

		return saveAppState(ctx, tx, snap.AppState())
	})
}

// deleteMissing deletes every row of table whose id is not in keep. Ids are
// compared in Go so the statement never needs one bind variable per id.
func deleteMissing(ctx context.Context, q queryer, table string, keep map[string]bool,
	del func(ctx context.Context, q queryer, id string) error) error {
	ids, err := listIDs(ctx, q, table)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if keep[id] {
			continue
		}
		if err := del(ctx, q, id); err != nil {
			return err
		}
	}
	return nil
}
