// Package api reads records from remote JSON endpoints.
package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/source"
)

const defaultTimeout = 30 * time.Second

// Options are the settings shared by every API source.
type Options struct {
	Timeout   time.Duration
	APIKey    string // sent as a bearer token when set
	UserAgent string
}

// Adapter implements source.Connector for one JSON endpoint.
type Adapter struct {
	cfg    domain.SourceConfig
	client *resty.Client
}

// NewAdapter creates a new API adapter.
// Parameters:
//   - cfg: source configuration; Location is the endpoint URL.
//   - opts: shared timeout and authentication settings.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(cfg domain.SourceConfig, opts Options) *Adapter {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.APIKey != "" {
		client.SetAuthToken(opts.APIKey)
	}
	if len(cfg.Headers) > 0 {
		client.SetHeaders(cfg.Headers)
	}

	return &Adapter{cfg: cfg, client: client}
}

// Factory returns a source.Factory that builds API adapters with opts.
func Factory(opts Options) source.Factory {
	return func(cfg domain.SourceConfig) (source.Connector, error) {
		return NewAdapter(cfg, opts), nil
	}
}

func (a *Adapter) Name() string {
	return a.cfg.Name
}

func (a *Adapter) Type() domain.SourceType {
	return domain.SourceTypeAPI
}

// Fetch issues one GET against the endpoint. When the source has a resume
// parameter the position is passed along; otherwise the full list is fetched
// and the raw layer drops what it has already seen.
func (a *Adapter) Fetch(ctx context.Context, resumePosition string) (*source.Page, error) {
	req := a.client.R().SetContext(ctx)
	if a.cfg.ResumeParam != "" && resumePosition != "" {
		req.SetQueryParam(a.cfg.ResumeParam, resumePosition)
	}

	resp, err := req.Get(a.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: request failed: %v", source.ErrSourceUnavailable, a.cfg.Name, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: %s: unexpected status %d", source.ErrSourceUnavailable, a.cfg.Name, resp.StatusCode())
	}

	docs, err := decodeDocuments(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", source.ErrSourceUnavailable, a.cfg.Name, err)
	}

	page := &source.Page{Records: make([]source.Record, 0, len(docs)), NextPosition: resumePosition}
	for _, doc := range docs {
		id, err := externalID(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", source.ErrSourceUnavailable, a.cfg.Name, err)
		}
		page.Records = append(page.Records, source.Record{ExternalID: id, Payload: doc, Position: id})
	}
	if n := len(page.Records); n > 0 {
		page.NextPosition = page.Records[n-1].Position
	}
	return page, nil
}

// decodeDocuments accepts a bare list, an object wrapping the list under
// "results" or "data", or a single object.
func decodeDocuments(body []byte) ([]map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("malformed body: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("malformed body: trailing data")
	}

	switch t := v.(type) {
	case []interface{}:
		return toObjects(t)
	case map[string]interface{}:
		for _, key := range []string{"results", "data"} {
			inner, ok := t[key]
			if !ok {
				continue
			}
			switch w := inner.(type) {
			case []interface{}:
				return toObjects(w)
			case nil:
				return nil, nil
			case map[string]interface{}:
				return []map[string]interface{}{w}, nil
			default:
				return nil, fmt.Errorf("malformed body: %q is neither a list nor an object", key)
			}
		}
		return []map[string]interface{}{t}, nil
	default:
		return nil, fmt.Errorf("malformed body: expected a JSON object or list")
	}
}

func toObjects(items []interface{}) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("malformed body: element %d is not an object", i)
		}
		out = append(out, obj)
	}
	return out, nil
}

// externalID prefers "id", then "pk"; records carrying neither are keyed by a
// hash of their content so re-fetches still deduplicate.
func externalID(doc map[string]interface{}) (string, error) {
	for _, key := range []string{"id", "pk"} {
		if v, ok := doc[key]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s, nil
			}
		}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("hash record: %w", err)
	}
	sum := sha256.Sum256(b)
	return "sha_" + hex.EncodeToString(sum[:])[:16], nil
}
