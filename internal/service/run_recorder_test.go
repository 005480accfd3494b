package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/testutil"
)

func TestNewRunID(t *testing.T) {
	a := NewRunID("api")
	b := NewRunID("api")
	assert.Regexp(t, `^run_api_[0-9a-f]{8}$`, a)
	assert.NotEqual(t, a, b)
}

func TestRunRecorderLifecycle(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := NewRunRecorder(store, stepClock(start, 1500*time.Millisecond))

	runID, err := rec.Begin(ctx, "api", map[string]interface{}{"source_type": "api"})
	require.NoError(t, err)

	open, err := store.Runs.GetByRunID(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusInProgress, open.Status)
	assert.Nil(t, open.EndTime)
	assert.Nil(t, open.DurationMs)

	counts := domain.RunCounts{Processed: 3, Inserted: 2, Updated: 1}
	run, err := rec.Finish(ctx, runID, counts, domain.RunStatusSuccess, nil, map[string]interface{}{"raw_inserted": 3})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	require.NotNil(t, run.DurationMs)
	assert.EqualValues(t, 1500, *run.DurationMs)

	stored, err := store.Runs.GetByRunID(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, counts, stored.Counts())
	assert.Equal(t, "api", stored.Metadata["source_type"])
	assert.Equal(t, json.Number("3"), stored.Metadata["raw_inserted"])

	_, err = rec.Finish(ctx, runID, counts, domain.RunStatusFailed, errors.New("late"), nil)
	assert.ErrorIs(t, err, ErrRunFinalized)

	_, err = rec.Finish(ctx, "run_missing_00000000", counts, domain.RunStatusFailed, nil, nil)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunRecorderRecordsFailure(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	rec := NewRunRecorder(store, nil)

	runID, err := rec.Begin(ctx, "csv", nil)
	require.NoError(t, err)
	_, err = rec.Finish(ctx, runID, domain.RunCounts{}, domain.RunStatusFailed, errors.New("file missing"), nil)
	require.NoError(t, err)

	failed, err := store.Runs.LatestWithStatus(ctx, domain.RunStatusFailed)
	require.NoError(t, err)
	require.NotNil(t, failed)
	assert.Equal(t, "file missing", failed.ErrorMessage)
}
