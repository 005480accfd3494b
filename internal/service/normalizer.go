package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/timmy/recordhub/internal/domain"
)

// fieldMapping lists, per canonical field, the raw keys to try in order.
type fieldMapping struct {
	Title       []string
	Description []string
	Content     []string
	Author      []string
	PublishedAt []string
	URL         []string
	Category    []string
}

var defaultMapping = fieldMapping{
	Title:       []string{"title", "name"},
	Description: []string{"description", "summary"},
	Content:     []string{"content", "body"},
	Author:      []string{"author", "creator"},
	PublishedAt: []string{"published_at", "created_at"},
	URL:         []string{"url", "link"},
	Category:    []string{"category", "type"},
}

// Both source types currently share one mapping; the table keeps them separable.
var fieldMappings = map[domain.SourceType]fieldMapping{
	domain.SourceTypeAPI:  defaultMapping,
	domain.SourceTypeFile: defaultMapping,
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

// Normalize maps a raw document into canonical fields. It performs no I/O and
// never fails: missing or unusable values are left empty. The raw document is
// kept as metadata.
// Parameters:
//   - sourceType: type of the source the document came from.
//   - raw: document as fetched.
// Returns:
//   - domain.CanonicalFields: mapped fields.
func Normalize(sourceType domain.SourceType, raw map[string]interface{}) domain.CanonicalFields {
	m, ok := fieldMappings[sourceType]
	if !ok {
		m = defaultMapping
	}

	fields := domain.CanonicalFields{
		Title:       pick(raw, m.Title),
		Description: pick(raw, m.Description),
		Content:     pick(raw, m.Content),
		Author:      pick(raw, m.Author),
		URL:         pick(raw, m.URL),
		Category:    pick(raw, m.Category),
		Metadata:    make(map[string]interface{}, len(raw)),
	}
	for k, v := range raw {
		fields.Metadata[k] = v
	}
	if ts := pick(raw, m.PublishedAt); ts != "" {
		fields.PublishedAt = parseTime(ts)
	}
	return fields
}

// pick returns the first non-empty value among keys.
func pick(raw map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(stringify(raw[k])); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// parseTime accepts the common ISO-8601 shapes and Unix seconds.
func parseTime(s string) *time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		t := time.Unix(secs, 0).UTC()
		return &t
	}
	return nil
}
