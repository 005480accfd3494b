package domain

import "time"

// RunStatus represents the lifecycle state of a run record.
// Values include RunStatusInProgress, RunStatusSuccess, and RunStatusFailed.
type RunStatus string

const (
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusSuccess    RunStatus = "success"
	RunStatusFailed     RunStatus = "failed"
)

// RunCounts holds the per-run record counters.
type RunCounts struct {
	Processed int `json:"processed"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
}

// Add accumulates other into c.
func (c *RunCounts) Add(other RunCounts) {
	c.Processed += other.Processed
	c.Inserted += other.Inserted
	c.Updated += other.Updated
	c.Failed += other.Failed
}

// RunRecord is one source's processing within one pipeline invocation.
type RunRecord struct {
	ID               uint       `gorm:"primaryKey" json:"-"`
	RunID            string     `gorm:"type:text;not null;uniqueIndex:idx_etl_runs_run_id" json:"run_id"`
	Source           string     `gorm:"type:text;not null;index:idx_etl_runs_source" json:"source"`
	Status           RunStatus  `gorm:"type:text;not null;index:idx_etl_runs_status" json:"status"`
	RecordsProcessed int        `gorm:"default:0" json:"records_processed"`
	RecordsInserted  int        `gorm:"default:0" json:"records_inserted"`
	RecordsUpdated   int        `gorm:"default:0" json:"records_updated"`
	RecordsFailed    int        `gorm:"default:0" json:"records_failed"`
	StartTime        time.Time  `gorm:"index:idx_etl_runs_start" json:"start_time"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	DurationMs       *int64     `json:"duration_ms,omitempty"`
	ErrorMessage     string     `gorm:"type:text" json:"error_message,omitempty"`
	Metadata         JSONMap    `gorm:"type:text" json:"metadata,omitempty"`
}

// TableName returns the database table name for RunRecord.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (RunRecord) TableName() string {
	return "etl_runs"
}

// Counts returns the counters stored on the run.
func (r *RunRecord) Counts() RunCounts {
	return RunCounts{
		Processed: r.RecordsProcessed,
		Inserted:  r.RecordsInserted,
		Updated:   r.RecordsUpdated,
		Failed:    r.RecordsFailed,
	}
}
