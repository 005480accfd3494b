package domain

import "time"

// RawRecord is a source-shaped document exactly as it was fetched.
// (Source, ExternalID) is unique; the payload is never rewritten once stored.
type RawRecord struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SourceType  SourceType `gorm:"type:text;not null;index:idx_raw_records_type" json:"source_type"`
	Source      string     `gorm:"type:text;not null;uniqueIndex:idx_raw_records_source_external" json:"source"`
	ExternalID  string     `gorm:"type:text;not null;uniqueIndex:idx_raw_records_source_external" json:"external_id"`
	Payload     JSONMap    `gorm:"type:text;not null" json:"payload"`
	IngestedAt  time.Time  `gorm:"index:idx_raw_records_ingested" json:"ingested_at"`
	Processed   bool       `gorm:"not null;default:false;index:idx_raw_records_processed" json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// TableName returns the database table name for RawRecord.
func (RawRecord) TableName() string {
	return "raw_records"
}
