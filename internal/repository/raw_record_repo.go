package repository

import (
	"context"
	"time"

	"github.com/timmy/recordhub/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RawRecordRepository handles raw record persistence.
type RawRecordRepository struct {
	db *gorm.DB
}

// NewRawRecordRepository creates a new RawRecordRepository.
func NewRawRecordRepository(db *gorm.DB) *RawRecordRepository {
	return &RawRecordRepository{db: db}
}

// InsertIfAbsent stores rec unless (source, external_id) is already present.
// The check and the write are one statement, so concurrent callers cannot
// both insert the same record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rec: raw record to persist; ID is populated on insert.
// Returns:
//   - bool: true if a row was written, false for a duplicate.
//   - error: non-nil if the insert fails.
func (r *RawRecordRepository) InsertIfAbsent(ctx context.Context, rec *domain.RawRecord) (bool, error) {
	if rec.IngestedAt.IsZero() {
		rec.IngestedAt = time.Now().UTC()
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}, {Name: "external_id"}},
		DoNothing: true,
	}).Create(rec)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetBySourceID retrieves a raw record by its natural key; the read API uses it
// to trace a canonical record back to the document it came from.
// Returns (nil, nil) when absent.
func (r *RawRecordRepository) GetBySourceID(ctx context.Context, source, externalID string) (*domain.RawRecord, error) {
	var rec domain.RawRecord
	err := r.db.WithContext(ctx).
		Where("source = ? AND external_id = ?", source, externalID).
		Limit(1).Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, nil
	}
	return &rec, nil
}

// ListUnprocessed returns up to limit unprocessed records of a source with
// id greater than afterID, in id order.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - source: source name.
//   - afterID: keyset cursor; 0 starts from the beginning.
//   - limit: page size.
// Returns:
//   - []domain.RawRecord: page of records.
//   - error: non-nil if the query fails.
func (r *RawRecordRepository) ListUnprocessed(ctx context.Context, source string, afterID uint, limit int) ([]domain.RawRecord, error) {
	var recs []domain.RawRecord
	err := r.db.WithContext(ctx).
		Where("source = ? AND processed = ? AND id > ?", source, false, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// MarkProcessed flags a raw record as normalized.
func (r *RawRecordRepository) MarkProcessed(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.RawRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": at}).Error
}

// Count returns the number of raw records, optionally filtered by source.
func (r *RawRecordRepository) Count(ctx context.Context, source string) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&domain.RawRecord{})
	if source != "" {
		q = q.Where("source = ?", source)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountUnprocessed returns how many raw records still await normalization.
func (r *RawRecordRepository) CountUnprocessed(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.RawRecord{}).
		Where("processed = ?", false).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
