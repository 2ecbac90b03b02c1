package store

import (
	"context"
	"testing"

	"github.com/harrison/benchmaker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRun_RoundTripsFields(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	latency := int64(1200)
	confidence := 0.8
	result := newTestResult("c1", "gpt-4o", 0.75)
	result.LatencyMs = &latency
	result.StreamedContent = models.StringPtr("resp")
	result.Score.Confidence = &confidence

	run := newTestRun("r1", 100, result, newTestResult("c2", "gpt-4o", 1))
	run.JudgeModel = models.StringPtr("judge-1")
	require.NoError(t, store.SaveRun(ctx, run))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, *run, runs[0])
}

func TestSaveRun_UpdatesOnlyProgress(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	require.NoError(t, store.SaveRun(ctx, newTestRun("r1", 100)))

	completedAt := int64(500)
	update := newTestRun("r1", 999, newTestResult("c1", "gpt-4o", 1))
	update.Status = models.RunStatusCompleted
	update.CompletedAt = &completedAt
	update.Models = []string{"other"}
	update.Parameters = models.DefaultModelParameters()
	update.TestSuiteName = "renamed"
	require.NoError(t, store.SaveRun(ctx, update))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	original := newTestRun("r1", 100)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, completedAt, *got.CompletedAt)
	assert.Equal(t, original.Models, got.Models)
	assert.Equal(t, original.Parameters, got.Parameters)
	assert.Equal(t, original.StartedAt, got.StartedAt)
	assert.Equal(t, original.TestSuiteName, got.TestSuiteName)

	// results are replaced wholesale
	require.Len(t, got.Results, 1)
	assert.Equal(t, "c1", got.Results[0].TestCaseID)
}

func TestSaveRun_ReplacesResults(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	require.NoError(t, store.SaveRun(ctx, newTestRun("r1", 100,
		newTestResult("c1", "m", 0),
		newTestResult("c2", "m", 0),
		newTestResult("c3", "m", 0),
	)))
	require.NoError(t, store.SaveRun(ctx, newTestRun("r1", 100,
		newTestResult("c3", "m", 1),
		newTestResult("c1", "m", 1),
	)))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Len(t, runs[0].Results, 2)
	assert.Equal(t, "c3", runs[0].Results[0].TestCaseID)
	assert.Equal(t, "c1", runs[0].Results[1].TestCaseID)
	assert.Equal(t, 2, countRows(t, store, "test_case_results"))
}

func TestSaveRun_AllowsRepeatedCaseResults(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	require.NoError(t, store.SaveRun(ctx, newTestRun("r1", 100,
		newTestResult("c1", "m", 0),
		newTestResult("c1", "m", 1),
	)))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs[0].Results, 2)
	assert.Equal(t, 0.0, runs[0].Results[0].Score.Score)
	assert.Equal(t, 1.0, runs[0].Results[1].Score.Score)
}

func TestSaveRun_Invalid(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	err := store.SaveRun(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalid)

	err = store.SaveRun(ctx, newTestRun("", 1))
	assert.ErrorIs(t, err, ErrInvalid)

	assert.Equal(t, 0, countRows(t, store, "runs"))
}

func TestListRuns_OrdersByStartedAt(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	require.NoError(t, store.SaveRun(ctx, newTestRun("first", 100)))
	require.NoError(t, store.SaveRun(ctx, newTestRun("latest", 300)))
	require.NoError(t, store.SaveRun(ctx, newTestRun("middle", 200)))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "latest", runs[0].ID)
	assert.Equal(t, "middle", runs[1].ID)
	assert.Equal(t, "first", runs[2].ID)
}

func TestDeleteRun(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	require.NoError(t, store.SaveRun(ctx, newTestRun("r1", 100, newTestResult("c1", "m", 1), newTestResult("c2", "m", 1))))
	require.NoError(t, store.SaveRun(ctx, newTestRun("r2", 200, newTestResult("c1", "m", 1))))

	require.NoError(t, store.DeleteRun(ctx, "r1"))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r2", runs[0].ID)

	var orphans int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM test_case_results WHERE run_id = 'r1'`).Scan(&orphans))
	assert.Equal(t, 0, orphans)

	require.NoError(t, store.DeleteRun(ctx, "missing"))
}

func TestDeleteSuite_KeepsRuns(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	require.NoError(t, store.SaveSuite(ctx, newTestSuite("s1", 100, "c1")))
	require.NoError(t, store.SaveRun(ctx, newTestRun("r1", 100, newTestResult("c1", "m", 1))))
	require.NoError(t, store.DeleteSuite(ctx, "s1"))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "Suite s1", runs[0].TestSuiteName)
	assert.Len(t, runs[0].Results, 1)
}

func TestListRuns_DegradesUnreadableColumns(t *testing.T) {
	tests := []struct {
		name   string
		update string
		check  func(t *testing.T, run models.RunResult)
	}{
		{
			name:   "unparseable parameters use the default set",
			update: `UPDATE runs SET parameters = 'not json' WHERE id = 'r1'`,
			check: func(t *testing.T, run models.RunResult) {
				assert.Equal(t, models.DefaultModelParameters(), run.Parameters)
			},
		},
		{
			name:   "parameters missing fields take per-field defaults",
			update: `UPDATE runs SET parameters = '{"temperature": 0.3}' WHERE id = 'r1'`,
			check: func(t *testing.T, run models.RunResult) {
				want := models.DefaultModelParameters()
				want.Temperature = 0.3
				assert.Equal(t, want, run.Parameters)
			},
		},
		{
			name:   "unparseable models become empty",
			update: `UPDATE runs SET models = '[unterminated' WHERE id = 'r1'`,
			check: func(t *testing.T, run models.RunResult) {
				assert.Equal(t, []string{}, run.Models)
			},
		},
		{
			name:   "unparseable score becomes absent",
			update: `UPDATE test_case_results SET score = '{"score":' WHERE run_id = 'r1'`,
			check: func(t *testing.T, run models.RunResult) {
				require.Len(t, run.Results, 1)
				assert.Nil(t, run.Results[0].Score)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			logger := &recordingLogger{}
			store := setupTestStore(t, WithLogger(logger))

			require.NoError(t, store.SaveRun(ctx, newTestRun("r1", 100, newTestResult("c1", "m", 1))))
			require.NoError(t, store.SaveRun(ctx, newTestRun("r2", 50)))
			_, err := store.db.Exec(tt.update)
			require.NoError(t, err)

			runs, err := store.ListRuns(ctx)
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, "r1", runs[0].ID)
			tt.check(t, runs[0])

			// the other run is untouched
			assert.Equal(t, newTestRun("r2", 50).Parameters, runs[1].Parameters)
		})
	}
}

func TestListRuns_LogsDegradation(t *testing.T) {
	ctx := context.Background()
	logger := &recordingLogger{}
	store := setupTestStore(t, WithLogger(logger))

	require.NoError(t, store.SaveRun(ctx, newTestRun("r1", 100)))
	_, err := store.db.Exec(`UPDATE runs SET parameters = 'garbage' WHERE id = 'r1'`)
	require.NoError(t, err)

	_, err = store.ListRuns(ctx)
	require.NoError(t, err)

	warnings := logger.warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "r1")
	assert.Contains(t, warnings[0], "parameters")
}
