package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Store groups the ETL repositories over one database handle so a caller can
// run several of them inside a single transaction.
type Store struct {
	db          *gorm.DB
	Raw         *RawRecordRepository
	Canonical   *CanonicalRepository
	Checkpoints *CheckpointRepository
	Runs        *RunRepository
}

// NewStore creates a Store bound to db.
// Parameters:
//   - db: GORM database handle, or a transaction handle.
// Returns:
//   - *Store: store whose repositories share db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Raw:         NewRawRecordRepository(db),
		Canonical:   NewCanonicalRepository(db),
		Checkpoints: NewCheckpointRepository(db),
		Runs:        NewRunRepository(db),
	}
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a Store bound to one transaction. Calling it on a
// Store that is already transactional opens a savepoint, so an inner failure
// rolls back only the inner work.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - fn: unit of work; a returned error rolls it back.
// Returns:
//   - error: fn's error, or a commit failure.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Ping verifies that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
