package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNoObjectStorage is returned when an s3:// location is opened without a
// configured object store.
var ErrNoObjectStorage = errors.New("object storage is not configured")

const s3Scheme = "s3://"

// Location is a parsed file source location.
type Location struct {
	Bucket string
	Key    string
	Path   string // local path when the location is not an object
}

// IsObject reports whether the location points into object storage.
func (l Location) IsObject() bool {
	return l.Key != ""
}

func (l Location) String() string {
	if l.IsObject() {
		return s3Scheme + l.Bucket + "/" + l.Key
	}
	return l.Path
}

// ParseLocation splits "s3://bucket/key" into its parts; anything else is a
// local filesystem path.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, errors.New("empty location")
	}
	if !strings.HasPrefix(strings.ToLower(raw), s3Scheme) {
		return Location{Path: raw}, nil
	}

	rest := raw[len(s3Scheme):]
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || key == "" {
		return Location{}, fmt.Errorf("location %q has no object key", raw)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// Opener reads file locations from disk or from object storage.
type Opener struct {
	objects ObjectStorage
}

// NewOpener creates an Opener; objects may be nil when only local paths are used.
func NewOpener(objects ObjectStorage) *Opener {
	return &Opener{objects: objects}
}

// Open returns a reader for raw. The caller closes it.
// Parameters:
//   - ctx: context for cancellation of remote reads.
//   - raw: local path or s3://bucket/key.
// Returns:
//   - io.ReadCloser: object or file contents.
//   - error: non-nil if the location is invalid or cannot be read; wraps
//     os.ErrNotExist for missing files and objects alike.
func (o *Opener) Open(ctx context.Context, raw string) (io.ReadCloser, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}
	if !loc.IsObject() {
		f, err := os.Open(loc.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", loc.Path, err)
		}
		return f, nil
	}
	if o == nil || o.objects == nil {
		return nil, fmt.Errorf("%s: %w", loc, ErrNoObjectStorage)
	}
	ok, err := o.objects.Exists(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", loc, os.ErrNotExist)
	}
	return o.objects.Download(ctx, loc.Bucket, loc.Key)
}
