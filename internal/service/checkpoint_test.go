package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/testutil"
)

func TestCheckpointTracker(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker := NewCheckpointTracker(store, stepClock(start, time.Second))

	pos, err := tracker.Position(ctx, "csv")
	require.NoError(t, err)
	assert.Empty(t, pos)

	require.NoError(t, tracker.Advance(ctx, "csv", "2", domain.CheckpointInProgress))
	require.NoError(t, tracker.Advance(ctx, "csv", "", domain.CheckpointFailed))

	cp, err := tracker.Get(ctx, "csv")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "2", cp.Position, "empty position keeps the stored one")
	assert.Equal(t, domain.CheckpointFailed, cp.Status)
	require.NotNil(t, cp.LastProcessedAt)
	assert.True(t, cp.LastProcessedAt.Equal(start.Add(time.Second)))

	require.NoError(t, tracker.Advance(ctx, "csv", "5", domain.CheckpointSuccess))
	pos, err = tracker.Position(ctx, "csv")
	require.NoError(t, err)
	assert.Equal(t, "5", pos)
}

func TestCheckpointTrackerWriteError(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	tracker := NewCheckpointTracker(store, nil)

	sqlDB, err := store.DB().DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = tracker.Advance(ctx, "csv", "1", domain.CheckpointSuccess)
	assert.ErrorIs(t, err, ErrCheckpointWrite)
}
