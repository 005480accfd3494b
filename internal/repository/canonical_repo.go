package repository

import (
	"context"
	"time"

	"github.com/timmy/recordhub/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CanonicalRepository handles canonical record operations.
type CanonicalRepository struct {
	db *gorm.DB
}

// NewCanonicalRepository creates a new CanonicalRepository.
func NewCanonicalRepository(db *gorm.DB) *CanonicalRepository {
	return &CanonicalRepository{db: db}
}

// FindBySource retrieves the canonical record a source produced for sourceID,
// including soft-deleted rows.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - source: source name.
//   - sourceID: external id within that source.
// Returns:
//   - *domain.CanonicalRecord: record if found, nil otherwise.
//   - error: non-nil if the lookup fails.
func (r *CanonicalRepository) FindBySource(ctx context.Context, source, sourceID string) (*domain.CanonicalRecord, error) {
	var rec domain.CanonicalRecord
	err := r.db.WithContext(ctx).
		Where("source = ? AND source_id = ?", source, sourceID).
		Limit(1).Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, nil
	}
	return &rec, nil
}

// FindEntityCandidate returns the oldest live record with the given fingerprint
// that is not the (source, sourceID) record itself.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - fingerprint: content fingerprint to match.
//   - source: source of the record being resolved.
//   - sourceID: external id of the record being resolved.
// Returns:
//   - *domain.CanonicalRecord: earliest match, nil when none.
//   - error: non-nil if the lookup fails.
func (r *CanonicalRepository) FindEntityCandidate(ctx context.Context, fingerprint, source, sourceID string) (*domain.CanonicalRecord, error) {
	var rec domain.CanonicalRecord
	err := r.db.WithContext(ctx).
		Where("content_fingerprint = ? AND is_deleted = ?", fingerprint, false).
		Where("NOT (source = ? AND source_id = ?)", source, sourceID).
		Order("created_at ASC, id ASC").
		Limit(1).Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, nil
	}
	return &rec, nil
}

// Upsert creates or updates a canonical record keyed by (source, source_id).
// created_at and the deletion flags of an existing row are left untouched.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rec: record to write.
// Returns:
//   - error: non-nil if the write fails.
func (r *CanonicalRepository) Upsert(ctx context.Context, rec *domain.CanonicalRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}, {Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"entity_id", "content_fingerprint", "data", "updated_at"}),
	}).Create(rec).Error
}

// SoftDelete flags a record as deleted without removing it. The pipeline never
// calls it: deletion belongs to processes outside ingestion, and deleted rows
// stop being entity candidates and disappear from the read API.
func (r *CanonicalRepository) SoftDelete(ctx context.Context, source, sourceID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.CanonicalRecord{}).
		Where("source = ? AND source_id = ?", source, sourceID).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_at": at}).Error
}

// List returns live records newest first, optionally filtered by source.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - source: source filter; empty means all sources.
//   - limit: maximum number of records.
//   - offset: number of records to skip.
// Returns:
//   - []domain.CanonicalRecord: page of records.
//   - int64: total live records matching the filter.
//   - error: non-nil if a query fails.
func (r *CanonicalRepository) List(ctx context.Context, source string, limit, offset int) ([]domain.CanonicalRecord, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.CanonicalRecord{}).Where("is_deleted = ?", false)
	if source != "" {
		q = q.Where("source = ?", source)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recs []domain.CanonicalRecord
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// ListByEntity returns every live record that shares entityID, oldest first.
func (r *CanonicalRepository) ListByEntity(ctx context.Context, entityID string) ([]domain.CanonicalRecord, error) {
	var recs []domain.CanonicalRecord
	err := r.db.WithContext(ctx).
		Where("entity_id = ? AND is_deleted = ?", entityID, false).
		Order("created_at ASC, id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Count returns the number of live canonical records.
func (r *CanonicalRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.CanonicalRecord{}).
		Where("is_deleted = ?", false).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountEntities returns the number of distinct live entities.
func (r *CanonicalRepository) CountEntities(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.CanonicalRecord{}).
		Where("is_deleted = ?", false).
		Distinct("entity_id").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SourceCount is the number of live canonical records for one source.
type SourceCount struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

// CountBySource groups live records by source.
func (r *CanonicalRepository) CountBySource(ctx context.Context) ([]SourceCount, error) {
	var out []SourceCount
	err := r.db.WithContext(ctx).Model(&domain.CanonicalRecord{}).
		Select("source, COUNT(*) AS count").
		Where("is_deleted = ?", false).
		Group("source").
		Order("source").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
