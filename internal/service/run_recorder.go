package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/repository"
)

// RunRecorder writes one RunRecord per source per invocation.
type RunRecorder struct {
	store *repository.Store
	now   Clock
}

// NewRunRecorder creates a recorder over store; a nil clock uses the wall clock.
func NewRunRecorder(store *repository.Store, now Clock) *RunRecorder {
	if now == nil {
		now = utcNow
	}
	return &RunRecorder{store: store, now: now}
}

// NewRunID returns "run_<source>_<8 hex chars>".
func NewRunID(source string) string {
	return fmt.Sprintf("run_%s_%s", source, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Begin opens an in-progress run for source.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - source: source name.
//   - metadata: initial metadata, may be nil.
// Returns:
//   - string: run id.
//   - error: wraps ErrStore if the run cannot be created.
func (r *RunRecorder) Begin(ctx context.Context, source string, metadata map[string]interface{}) (string, error) {
	run := &domain.RunRecord{
		RunID:     NewRunID(source),
		Source:    source,
		Status:    domain.RunStatusInProgress,
		StartTime: r.now(),
		Metadata:  domain.JSONMap(metadata),
	}
	if err := r.store.Runs.Create(ctx, run); err != nil {
		return "", fmt.Errorf("%w: begin run for %s: %v", ErrStore, source, err)
	}
	return run.RunID, nil
}

// Finish finalizes a run exactly once, stamping end time and duration.
// Metadata entries are merged over what Begin stored.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - runID: id returned by Begin.
//   - counts: record counters.
//   - status: final status.
//   - runErr: failure cause, nil on success.
//   - metadata: extra metadata, may be nil.
// Returns:
//   - *domain.RunRecord: the finalized run.
//   - error: ErrRunNotFound, ErrRunFinalized, or a wrapped ErrStore.
func (r *RunRecorder) Finish(ctx context.Context, runID string, counts domain.RunCounts, status domain.RunStatus, runErr error, metadata map[string]interface{}) (*domain.RunRecord, error) {
	run, err := r.store.Runs.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: load run %s: %v", ErrStore, runID, err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if run.Status != domain.RunStatusInProgress {
		return nil, fmt.Errorf("%w: %s is %s", ErrRunFinalized, runID, run.Status)
	}

	end := r.now()
	duration := end.Sub(run.StartTime).Milliseconds()
	run.Status = status
	run.EndTime = &end
	run.DurationMs = &duration
	run.RecordsProcessed = counts.Processed
	run.RecordsInserted = counts.Inserted
	run.RecordsUpdated = counts.Updated
	run.RecordsFailed = counts.Failed
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}
	if len(metadata) > 0 {
		if run.Metadata == nil {
			run.Metadata = domain.JSONMap{}
		}
		for k, v := range metadata {
			run.Metadata[k] = v
		}
	}

	if err := r.store.Runs.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("%w: finish run %s: %v", ErrStore, runID, err)
	}
	return run, nil
}
