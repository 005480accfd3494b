package repository

import (
	"context"

	"github.com/timmy/recordhub/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckpointRepository handles per-source resume markers.
type CheckpointRepository struct {
	db *gorm.DB
}

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(db *gorm.DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

// Get returns the checkpoint of a source, or (nil, nil) if it has none.
func (r *CheckpointRepository) Get(ctx context.Context, source string) (*domain.Checkpoint, error) {
	var cp domain.Checkpoint
	if err := r.db.WithContext(ctx).Where("source = ?", source).Limit(1).Find(&cp).Error; err != nil {
		return nil, err
	}
	if cp.ID == 0 {
		return nil, nil
	}
	return &cp, nil
}

// Upsert writes the checkpoint of a source in one statement.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - cp: checkpoint to write, keyed by Source.
// Returns:
//   - error: non-nil if the write fails.
func (r *CheckpointRepository) Upsert(ctx context.Context, cp *domain.Checkpoint) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_processed_position", "last_processed_at", "status", "updated_at"}),
	}).Create(cp).Error
}

// List returns all checkpoints ordered by source.
func (r *CheckpointRepository) List(ctx context.Context) ([]domain.Checkpoint, error) {
	var cps []domain.Checkpoint
	if err := r.db.WithContext(ctx).Order("source").Find(&cps).Error; err != nil {
		return nil, err
	}
	return cps, nil
}
