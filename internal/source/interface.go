package source

import (
	"context"
	"errors"

	"github.com/timmy/recordhub/internal/domain"
)

// ErrSourceUnavailable means a connector could not obtain data: the network
// failed or timed out, the response was not 2xx or not parseable, or the file
// could not be read. Connectors never retry on their own.
var ErrSourceUnavailable = errors.New("source unavailable")

// Record is one raw document fetched from a source.
type Record struct {
	ExternalID string                 // Unique ID within the source
	Payload    map[string]interface{} // Document as delivered
	Position   string                 // Resume position once this record is stored
}

// Page is the result of one fetch.
type Page struct {
	Records []Record
	// NextPosition resumes after the last record of the page; it equals the
	// requested position when the page is empty.
	NextPosition string
}

// Connector fetches raw records from one configured source.
type Connector interface {
	// Name returns the configured source name.
	Name() string

	// Type returns the kind of origin the connector reads.
	Type() domain.SourceType

	// Fetch reads the records available after resumePosition.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - resumePosition: checkpoint position, empty for a first run.
	// Returns:
	//   - *Page: fetched records in source order.
	//   - error: wraps ErrSourceUnavailable when no data could be obtained.
	Fetch(ctx context.Context, resumePosition string) (*Page, error)
}
