package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harrison/benchmaker/internal/models"
)

// GetAppState returns the session pointer. A missing singleton row is
// recreated empty rather than reported as not found.
func (s *Store) GetAppState(ctx context.Context) (models.AppState, error) {
	var state models.AppState
	err := s.write(ctx, func(tx *sql.Tx) error {
		var err error
		state, err = getAppStateTx(ctx, tx)
		return err
	})
	return state, err
}

// SaveAppState overwrites the session pointer.
func (s *Store) SaveAppState(ctx context.Context, state models.AppState) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		return saveAppState(ctx, tx, state)
	})
}

func getAppStateTx(ctx context.Context, q queryer) (models.AppState, error) {
	var active, current sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT active_test_suite_id, current_run_id FROM app_state WHERE id = 1`,
	).Scan(&active, &current)

	if errors.Is(err, sql.ErrNoRows) {
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO app_state (id, active_test_suite_id, current_run_id) VALUES (1, NULL, NULL)`,
		); err != nil {
			return models.AppState{}, fmt.Errorf("initialize app state: %w", err)
		}
		return models.AppState{}, nil
	}
	if err != nil {
		return models.AppState{}, fmt.Errorf("query app state: %w", err)
	}

	return models.AppState{
		ActiveTestSuiteID: nullToStringPtr(active),
		CurrentRunID:      nullToStringPtr(current),
	}, nil
}

func saveAppState(ctx context.Context, q queryer, state models.AppState) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO app_state (id, active_test_suite_id, current_run_id)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			active_test_suite_id = excluded.active_test_suite_id,
			current_run_id = excluded.current_run_id`,
		stringPtrToNull(state.ActiveTestSuiteID),
		stringPtrToNull(state.CurrentRunID),
	)
	if err != nil {
		return fmt.Errorf("save app state: %w", err)
	}
	return nil
}
