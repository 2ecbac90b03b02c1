package store

import (
	"context"
	"testing"

	"github.com/harrison/benchmaker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAppState_DefaultsEmpty(t *testing.T) {
	store := setupTestStore(t)

	state, err := store.GetAppState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.AppState{}, state)
}

func TestSaveAppState(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	want := models.AppState{
		ActiveTestSuiteID: models.StringPtr("s1"),
		CurrentRunID:      models.StringPtr("does-not-exist"),
	}
	require.NoError(t, store.SaveAppState(ctx, want))

	got, err := store.GetAppState(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.SaveAppState(ctx, models.AppState{ActiveTestSuiteID: models.StringPtr("s2")}))
	got, err = store.GetAppState(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.ActiveTestSuiteID)
	assert.Equal(t, "s2", *got.ActiveTestSuiteID)
	assert.Nil(t, got.CurrentRunID)

	assert.Equal(t, 1, countRows(t, store, "app_state"))
}

func TestGetAppState_RecreatesMissingRow(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.db.Exec(`DELETE FROM app_state`)
	require.NoError(t, err)

	state, err := store.GetAppState(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.AppState{}, state)
	assert.Equal(t, 1, countRows(t, store, "app_state"))
}

func TestAppState_RejectsSecondRow(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.db.Exec(`INSERT INTO app_state (id) VALUES (2)`)
	require.Error(t, err)
	assert.ErrorIs(t, classify(err), ErrConstraint)
}
