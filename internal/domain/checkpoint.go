package domain

import "time"

// CheckpointStatus is the outcome of the latest sweep over a source.
type CheckpointStatus string

const (
	CheckpointInProgress CheckpointStatus = "in_progress"
	CheckpointSuccess    CheckpointStatus = "success"
	CheckpointFailed     CheckpointStatus = "failed"
)

// Checkpoint is the durable resume marker for one source.
// Position is opaque here: a row index for files, a last-seen id for APIs.
type Checkpoint struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	Source          string           `gorm:"type:text;not null;uniqueIndex:idx_checkpoints_source" json:"source"`
	Position        string           `gorm:"column:last_processed_position;type:text" json:"last_processed_position"`
	LastProcessedAt *time.Time       `json:"last_processed_at,omitempty"`
	Status          CheckpointStatus `gorm:"type:text;not null;default:success" json:"status"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName returns the database table name for Checkpoint.
func (Checkpoint) TableName() string {
	return "etl_checkpoints"
}
