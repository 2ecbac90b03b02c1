package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harrison/benchmaker/internal/models"
)

const (
	// upsertSuiteSQL keeps created_at of an existing suite.
	upsertSuiteSQL = `
		INSERT INTO test_suites (` + suiteColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			system_prompt = excluded.system_prompt,
			judge_system_prompt = excluded.judge_system_prompt,
			updated_at = excluded.updated_at`

	// upsertSuiteAllSQL overwrites every column, timestamps included.
	upsertSuiteAllSQL = `
		INSERT INTO test_suites (` + suiteColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			system_prompt = excluded.system_prompt,
			judge_system_prompt = excluded.judge_system_prompt,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`

	insertCaseSQL = `
		INSERT INTO test_cases (` + caseColumns + `, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	// upsertCaseSQL also moves a case id that already belongs to another
	// suite. Only legacy import uses it.
	upsertCaseSQL = insertCaseSQL + `
		ON CONFLICT(id) DO UPDATE SET
			test_suite_id = excluded.test_suite_id,
			prompt = excluded.prompt,
			expected_output = excluded.expected_output,
			scoring_method = excluded.scoring_method,
			weight = excluded.weight,
			category = excluded.category,
			difficulty = excluded.difficulty,
			tags = excluded.tags,
			sort_order = excluded.sort_order`
)

// ListSuites returns every suite, most recently updated first, each with its
// cases in saved order.
func (s *Store) ListSuites(ctx context.Context) ([]models.TestSuite, error) {
	var suites []models.TestSuite
	err := s.read(ctx, func(tx *sql.Tx) error {
		var err error
		suites, err = s.listSuitesTx(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return suites, nil
}

// SaveSuite inserts or updates suite and replaces all of its cases with
// suite.TestCases. The stored order of cases is the order of the slice.
func (s *Store) SaveSuite(ctx context.Context, suite *models.TestSuite) error {
	if suite == nil {
		return fmt.Errorf("%w: test suite is nil", ErrInvalid)
	}
	if err := suite.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return s.write(ctx, func(tx *sql.Tx) error {
		return saveSuiteTx(ctx, tx, suite)
	})
}

// DeleteSuite removes a suite and, by cascade, its cases. Deleting an
// unknown id is not an error.
func (s *Store) DeleteSuite(ctx context.Context, id string) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		return deleteSuiteTx(ctx, tx, id)
	})
}

func (s *Store) listSuitesTx(ctx context.Context, q queryer) ([]models.TestSuite, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+suiteColumns+` FROM test_suites ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query test suites: %w", err)
	}

	suites := []models.TestSuite{}
	index := make(map[string]int)
	for rows.Next() {
		var r suiteRow
		if err := rows.Scan(r.scanArgs()...); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan test suite: %w", err)
		}
		index[r.ID] = len(suites)
		suites = append(suites, r.toModel())
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate test suites: %w", err)
	}
	rows.Close()

	if len(suites) == 0 {
		return suites, nil
	}

	// One query for every case; rows arrive grouped by suite and in saved
	// order within each suite.
	rows, err = q.QueryContext(ctx, `SELECT `+caseColumns+` FROM test_cases ORDER BY test_suite_id, sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("query test cases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r caseRow
		if err := rows.Scan(r.scanArgs()...); err != nil {
			return nil, fmt.Errorf("scan test case: %w", err)
		}
		i, ok := index[r.TestSuiteID]
		if !ok {
			continue
		}
		tc := r.toModel(s.degrade("test case", r.ID))
		suites[i].TestCases = append(suites[i].TestCases, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate test cases: %w", err)
	}

	return suites, nil
}

func saveSuiteTx(ctx context.Context, q queryer, suite *models.TestSuite) error {
	if err := upsertSuiteRow(ctx, q, suite, upsertSuiteSQL); err != nil {
		return err
	}
	return replaceCases(ctx, q, suite.ID, suite.TestCases, insertCaseSQL)
}

func deleteSuiteTx(ctx context.Context, q queryer, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM test_suites WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete test suite %s: %w", id, err)
	}
	return nil
}

func upsertSuiteRow(ctx context.Context, q queryer, suite *models.TestSuite, query string) error {
	_, err := q.ExecContext(ctx, query,
		suite.ID,
		suite.Name,
		stringPtrToNull(suite.Description),
		suite.SystemPrompt,
		stringPtrToNull(suite.JudgeSystemPrompt),
		suite.CreatedAt,
		suite.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save test suite %s: %w", suite.ID, err)
	}
	return nil
}

// replaceCases deletes every case of suiteID and inserts cases with
// sort_order set to the slice index.
func replaceCases(ctx context.Context, q queryer, suiteID string, cases []models.TestCase, query string) error {
	if err := clearCases(ctx, q, suiteID); err != nil {
		return err
	}

	for i := range cases {
		tc := &cases[i]
		tags, err := encodeStringList(tc.Metadata.Tags)
		if err != nil {
			return fmt.Errorf("encode tags of test case %s: %w", tc.ID, err)
		}

		_, err = q.ExecContext(ctx, query,
			tc.ID,
			suiteID,
			tc.Prompt,
			stringPtrToNull(tc.ExpectedOutput),
			tc.ScoringMethod,
			tc.Weight,
			stringPtrToNull(tc.Metadata.Category),
			stringPtrToNull(tc.Metadata.Difficulty),
			tags,
			i,
		)
		if err != nil {
			return fmt.Errorf("save test case %s: %w", tc.ID, err)
		}
	}
	return nil
}

func clearCases(ctx context.Context, q queryer, suiteID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM test_cases WHERE test_suite_id = ?`, suiteID); err != nil {
		return fmt.Errorf("clear test cases of suite %s: %w", suiteID, err)
	}
	return nil
}

// degrade returns a callback that logs a read-time decode fallback for the
// named entity.
func (s *Store) degrade(entity, id string) degradeFunc {
	return func(field string, err error) {
		s.logger.LogWarn(fmt.Sprintf("%s %s: unreadable %s, using default: %v", entity, id, field, err))
	}
}
