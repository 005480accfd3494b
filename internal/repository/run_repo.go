package repository

import (
	"context"

	"github.com/timmy/recordhub/internal/domain"
	"gorm.io/gorm"
)

// RunRepository handles run audit records.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run record.
func (r *RunRepository) Create(ctx context.Context, run *domain.RunRecord) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Update saves every column of an existing run record.
func (r *RunRepository) Update(ctx context.Context, run *domain.RunRecord) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// GetByRunID retrieves a run by its public id, or (nil, nil) if unknown.
func (r *RunRepository) GetByRunID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	var run domain.RunRecord
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).Limit(1).Find(&run).Error; err != nil {
		return nil, err
	}
	if run.ID == 0 {
		return nil, nil
	}
	return &run, nil
}

// ListRecent returns the latest runs, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - source: source filter; empty means all sources.
//   - limit: maximum number of runs.
// Returns:
//   - []domain.RunRecord: runs ordered by start time descending.
//   - error: non-nil if the query fails.
func (r *RunRepository) ListRecent(ctx context.Context, source string, limit int) ([]domain.RunRecord, error) {
	q := r.db.WithContext(ctx).Order("start_time DESC, id DESC").Limit(limit)
	if source != "" {
		q = q.Where("source = ?", source)
	}
	var runs []domain.RunRecord
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Latest returns the most recently started run, or (nil, nil) if none exist.
func (r *RunRepository) Latest(ctx context.Context) (*domain.RunRecord, error) {
	runs, err := r.ListRecent(ctx, "", 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// LatestWithStatus returns the most recent run in the given status.
func (r *RunRepository) LatestWithStatus(ctx context.Context, status domain.RunStatus) (*domain.RunRecord, error) {
	var run domain.RunRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("start_time DESC, id DESC").
		Limit(1).Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == 0 {
		return nil, nil
	}
	return &run, nil
}

// RunTotals sums the counters of every recorded run.
type RunTotals struct {
	Processed int64 `json:"total_records_processed"`
	Inserted  int64 `json:"total_records_inserted"`
	Updated   int64 `json:"total_records_updated"`
	Failed    int64 `json:"total_records_failed"`
}

// Totals aggregates counters across all runs.
func (r *RunRepository) Totals(ctx context.Context) (*RunTotals, error) {
	var t RunTotals
	err := r.db.WithContext(ctx).Model(&domain.RunRecord{}).
		Select("COALESCE(SUM(records_processed), 0) AS processed, " +
			"COALESCE(SUM(records_inserted), 0) AS inserted, " +
			"COALESCE(SUM(records_updated), 0) AS updated, " +
			"COALESCE(SUM(records_failed), 0) AS failed").
		Scan(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}
