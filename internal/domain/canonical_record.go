package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// CanonicalFields is the source-agnostic shape every record is mapped into.
// Metadata keeps the untouched raw document for traceability.
type CanonicalFields struct {
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description,omitempty"`
	Content     string                 `json:"content,omitempty"`
	Author      string                 `json:"author,omitempty"`
	PublishedAt *time.Time             `json:"published_at,omitempty"`
	URL         string                 `json:"url,omitempty"`
	Category    string                 `json:"category,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Value implements the driver.Valuer interface for database serialization.
func (f CanonicalFields) Value() (driver.Value, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (f *CanonicalFields) Scan(value interface{}) error {
	if value == nil {
		*f = CanonicalFields{}
		return nil
	}
	b, err := scanBytes(value)
	if err != nil {
		return errors.New("failed to scan CanonicalFields")
	}
	return decodeJSON(b, f)
}

// CanonicalRecord is one source's view of an entity after normalization.
// (Source, SourceID) is unique; EntityID is shared by every record judged to be
// the same real-world entity; ContentFingerprint is deliberately not unique.
type CanonicalRecord struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	EntityID           string          `gorm:"type:text;not null;index:idx_canonical_entity" json:"entity_id"`
	ContentFingerprint string          `gorm:"type:text;not null;index:idx_canonical_fingerprint" json:"content_fingerprint"`
	Source             string          `gorm:"type:text;not null;uniqueIndex:idx_canonical_source" json:"source"`
	SourceID           string          `gorm:"type:text;not null;uniqueIndex:idx_canonical_source" json:"source_id"`
	Data               CanonicalFields `gorm:"type:text;not null" json:"data"`
	CreatedAt          time.Time       `gorm:"index:idx_canonical_created" json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	IsDeleted          bool            `gorm:"not null;default:false;index:idx_canonical_deleted" json:"is_deleted"`
	DeletedAt          *time.Time      `json:"deleted_at,omitempty"`
}

// TableName returns the database table name for CanonicalRecord.
func (CanonicalRecord) TableName() string {
	return "canonical_records"
}
