// Package file reads records from delimited text files on disk or in object storage.
package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/logger"
	"github.com/timmy/recordhub/internal/source"
	"github.com/timmy/recordhub/internal/storage"
)

const idColumn = "id"

// Adapter implements source.Connector for a delimited file with a header row.
// The resume position is the number of data rows already consumed.
type Adapter struct {
	cfg       domain.SourceConfig
	opener    *storage.Opener
	delimiter rune
}

// NewAdapter creates a new file adapter.
// Parameters:
//   - cfg: source configuration; Location is a path or s3://bucket/key.
//   - opener: resolves the location to a reader.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(cfg domain.SourceConfig, opener *storage.Opener) *Adapter {
	delim := ','
	if cfg.Delimiter != "" {
		delim, _ = utf8.DecodeRuneInString(cfg.Delimiter)
	}
	return &Adapter{cfg: cfg, opener: opener, delimiter: delim}
}

// Factory returns a source.Factory that builds file adapters reading through opener.
func Factory(opener *storage.Opener) source.Factory {
	return func(cfg domain.SourceConfig) (source.Connector, error) {
		return NewAdapter(cfg, opener), nil
	}
}

func (a *Adapter) Name() string {
	return a.cfg.Name
}

func (a *Adapter) Type() domain.SourceType {
	return domain.SourceTypeFile
}

// Fetch streams the rows after resumePosition.
func (a *Adapter) Fetch(ctx context.Context, resumePosition string) (*source.Page, error) {
	skip := 0
	if resumePosition != "" {
		n, err := strconv.Atoi(resumePosition)
		if err != nil || n < 0 {
			logger.CtxWarn(ctx, "Ignoring invalid resume position %q for %s, reading from the start", resumePosition, a.cfg.Name)
		} else {
			skip = n
		}
	}

	rc, err := a.opener.Open(ctx, a.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", source.ErrSourceUnavailable, a.cfg.Name, err)
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.Comma = a.delimiter
	r.FieldsPerRecord = -1
	r.ReuseRecord = false

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &source.Page{NextPosition: strconv.Itoa(skip)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read header: %v", source.ErrSourceUnavailable, a.cfg.Name, err)
	}
	header = cleanHeader(header)

	page := &source.Page{NextPosition: strconv.Itoa(skip)}
	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: row %d: %v", source.ErrSourceUnavailable, a.cfg.Name, idx, err)
		}
		if idx < skip {
			continue
		}

		payload := make(map[string]interface{}, len(header))
		for i, col := range header {
			if col == "" || i >= len(row) {
				continue
			}
			payload[col] = row[i]
		}

		id, _ := payload[idColumn].(string)
		if strings.TrimSpace(id) == "" {
			id = fmt.Sprintf("%s_%d", a.cfg.Name, idx)
		}
		pos := strconv.Itoa(idx + 1)
		page.Records = append(page.Records, source.Record{ExternalID: id, Payload: payload, Position: pos})
		page.NextPosition = pos
	}
	return page, nil
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}
