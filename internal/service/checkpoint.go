package service

import (
	"context"
	"fmt"

	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/repository"
)

// CheckpointTracker reads and advances per-source resume positions. Positions
// are opaque strings; only connectors interpret them.
type CheckpointTracker struct {
	store *repository.Store
	now   Clock
}

// NewCheckpointTracker creates a tracker over store; a nil clock uses the wall clock.
func NewCheckpointTracker(store *repository.Store, now Clock) *CheckpointTracker {
	if now == nil {
		now = utcNow
	}
	return &CheckpointTracker{store: store, now: now}
}

// Get returns the checkpoint of source, or nil if it has never run.
func (t *CheckpointTracker) Get(ctx context.Context, source string) (*domain.Checkpoint, error) {
	cp, err := t.store.Checkpoints.Get(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: read checkpoint %s: %v", ErrStore, source, err)
	}
	return cp, nil
}

// Position returns the resume position of source, empty when it has none.
func (t *CheckpointTracker) Position(ctx context.Context, source string) (string, error) {
	cp, err := t.Get(ctx, source)
	if err != nil || cp == nil {
		return "", err
	}
	return cp.Position, nil
}

// Advance creates or updates the checkpoint of source. Call it only after the
// data up to position is durably stored. An empty position keeps the stored one.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - source: source name.
//   - position: new resume position, or empty to keep the current one.
//   - status: outcome to record.
// Returns:
//   - error: wraps ErrCheckpointWrite on failure.
func (t *CheckpointTracker) Advance(ctx context.Context, source, position string, status domain.CheckpointStatus) error {
	if position == "" {
		cp, err := t.store.Checkpoints.Get(ctx, source)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCheckpointWrite, source, err)
		}
		if cp != nil {
			position = cp.Position
		}
	}

	now := t.now()
	cp := &domain.Checkpoint{
		Source:          source,
		Position:        position,
		LastProcessedAt: &now,
		Status:          status,
		UpdatedAt:       now,
	}
	if err := t.store.Checkpoints.Upsert(ctx, cp); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCheckpointWrite, source, err)
	}
	return nil
}
