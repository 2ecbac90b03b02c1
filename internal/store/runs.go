package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harrison/benchmaker/internal/models"
)

const (
	// upsertRunSQL only refreshes the fields that change while a run
	// progresses. Everything else is fixed when the run starts.
	upsertRunSQL = `
		INSERT INTO runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at`

	// upsertRunAllSQL overwrites every column.
	upsertRunAllSQL = `
		INSERT INTO runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			test_suite_id = excluded.test_suite_id,
			test_suite_name = excluded.test_suite_name,
			models = excluded.models,
			parameters = excluded.parameters,
			status = excluded.status,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			judge_model = excluded.judge_model`

	insertResultSQL = `
		INSERT INTO test_case_results (` + resultColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

// ListRuns returns every run, most recently started first, each with its
// results in the order they were saved.
func (s *Store) ListRuns(ctx context.Context) ([]models.RunResult, error) {
	var runs []models.RunResult
	err := s.read(ctx, func(tx *sql.Tx) error {
		var err error
		runs, err = s.listRunsTx(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// SaveRun inserts run, or refreshes the status and completion time of an
// existing run, and replaces all of its results with run.Results.
func (s *Store) SaveRun(ctx context.Context, run *models.RunResult) error {
	if run == nil {
		return fmt.Errorf("%w: run is nil", ErrInvalid)
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return s.write(ctx, func(tx *sql.Tx) error {
		return saveRunTx(ctx, tx, run)
	})
}

// DeleteRun removes a run and, by cascade, its results. Deleting an unknown
// id is not an error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		return deleteRunTx(ctx, tx, id)
	})
}

func (s *Store) listRunsTx(ctx context.Context, q queryer) ([]models.RunResult, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	runs := []models.RunResult{}
	index := make(map[string]int)
	for rows.Next() {
		var r runRow
		if err := rows.Scan(r.scanArgs()...); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		index[r.ID] = len(runs)
		runs = append(runs, r.toModel(s.degrade("run", r.ID)))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	rows.Close()

	if len(runs) == 0 {
		return runs, nil
	}

	rows, err = q.QueryContext(ctx, `SELECT `+resultColumns+` FROM test_case_results ORDER BY run_id, id`)
	if err != nil {
		return nil, fmt.Errorf("query test case results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r resultRow
		if err := rows.Scan(r.scanArgs()...); err != nil {
			return nil, fmt.Errorf("scan test case result: %w", err)
		}
		i, ok := index[r.RunID]
		if !ok {
			continue
		}
		result := r.toModel(s.degrade("result of run "+r.RunID+" for case", r.TestCaseID))
		runs[i].Results = append(runs[i].Results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate test case results: %w", err)
	}

	return runs, nil
}

func saveRunTx(ctx context.Context, q queryer, run *models.RunResult) error {
	if err := upsertRunRow(ctx, q, run, upsertRunSQL); err != nil {
		return err
	}
	return replaceResults(ctx, q, run.ID, run.Results)
}

func deleteRunTx(ctx context.Context, q queryer, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	return nil
}

func upsertRunRow(ctx context.Context, q queryer, run *models.RunResult, query string) error {
	modelIDs, err := encodeStringList(run.Models)
	if err != nil {
		return fmt.Errorf("encode models of run %s: %w", run.ID, err)
	}
	params, err := encodeParameters(run.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters of run %s: %w", run.ID, err)
	}

	_, err = q.ExecContext(ctx, query,
		run.ID,
		run.TestSuiteID,
		run.TestSuiteName,
		modelIDs,
		params,
		run.Status,
		run.StartedAt,
		int64PtrToNull(run.CompletedAt),
		stringPtrToNull(run.JudgeModel),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// replaceResults deletes every result of runID and inserts results in slice
// order.
func replaceResults(ctx context.Context, q queryer, runID string, results []models.TestCaseResult) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM test_case_results WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("clear results of run %s: %w", runID, err)
	}

	for i := range results {
		res := &results[i]
		score, err := encodeScore(res.Score)
		if err != nil {
			return fmt.Errorf("encode score of run %s case %s: %w", runID, res.TestCaseID, err)
		}

		_, err = q.ExecContext(ctx, insertResultSQL,
			runID,
			res.TestCaseID,
			res.ModelID,
			res.Response,
			int64PtrToNull(res.TokenCount),
			int64PtrToNull(res.LatencyMs),
			res.Status,
			stringPtrToNull(res.Error),
			score,
			stringPtrToNull(res.StreamedContent),
		)
		if err != nil {
			return fmt.Errorf("save result of run %s case %s: %w", runID, res.TestCaseID, err)
		}
	}
	return nil
}
