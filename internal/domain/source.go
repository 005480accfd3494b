package domain

import (
	"fmt"
	"strings"
)

// SourceType represents the kind of origin a source reads from.
// Values include SourceTypeAPI and SourceTypeFile.
type SourceType string

const (
	SourceTypeAPI  SourceType = "api"
	SourceTypeFile SourceType = "file"
)

// ParseSourceType maps a configured type name onto a SourceType.
// "csv" is accepted as an alias for file sources.
func ParseSourceType(s string) (SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "api":
		return SourceTypeAPI, nil
	case "file", "csv":
		return SourceTypeFile, nil
	default:
		return "", fmt.Errorf("unknown source type %q", s)
	}
}

// SourceConfig describes one configured origin of records.
type SourceConfig struct {
	Name        string            `mapstructure:"name" json:"name"`
	Type        string            `mapstructure:"type" json:"type"`
	Location    string            `mapstructure:"location" json:"location"`
	Description string            `mapstructure:"description" json:"description,omitempty"`
	Headers     map[string]string `mapstructure:"headers" json:"headers,omitempty"`
	Enabled     bool              `mapstructure:"enabled" json:"enabled"`

	// Delimiter overrides the field separator of file sources (default ',').
	Delimiter string `mapstructure:"delimiter" json:"delimiter,omitempty"`
	// ResumeParam, when set on an API source, carries the checkpoint position
	// as a query parameter so the remote side can return only newer records.
	ResumeParam string `mapstructure:"resume_param" json:"resume_param,omitempty"`
}

// SourceType returns the parsed type; unknown types yield an empty value.
func (c SourceConfig) SourceType() SourceType {
	t, _ := ParseSourceType(c.Type)
	return t
}

// Validate checks that the source configuration has all required fields.
// Returns an error describing the first validation failure, or nil if valid.
func (c SourceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("source config: name is required")
	}
	if _, err := ParseSourceType(c.Type); err != nil {
		return fmt.Errorf("source %q: %w", c.Name, err)
	}
	if c.Location == "" {
		return fmt.Errorf("source %q: location is required", c.Name)
	}
	if c.Delimiter != "" && len([]rune(c.Delimiter)) != 1 {
		return fmt.Errorf("source %q: delimiter must be a single character", c.Name)
	}
	return nil
}
