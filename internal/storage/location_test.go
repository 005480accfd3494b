package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockObjects struct {
	mock.Mock
}

func (m *mockObjects) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key)
	if rc, ok := args.Get(0).(io.ReadCloser); ok {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockObjects) Exists(ctx context.Context, bucket, key string) (bool, error) {
	args := m.Called(ctx, bucket, key)
	return args.Bool(0), args.Error(1)
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Location
		wantErr bool
	}{
		{name: "local path", raw: "./data/products.csv", want: Location{Path: "./data/products.csv"}},
		{name: "s3 object", raw: "s3://exports/2024/products.csv", want: Location{Bucket: "exports", Key: "2024/products.csv"}},
		{name: "upper-case scheme", raw: "S3://b/k.csv", want: Location{Bucket: "b", Key: "k.csv"}},
		{name: "missing key", raw: "s3://bucket", wantErr: true},
		{name: "trailing slash only", raw: "s3://bucket/", wantErr: true},
		{name: "empty", raw: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocation(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenerLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,title\n1,A\n"), 0o644))

	rc, err := NewOpener(nil).Open(context.Background(), path)
	require.NoError(t, err)
	defer rc.Close()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "id,title\n1,A\n", string(b))
}

func TestOpenerObject(t *testing.T) {
	objects := &mockObjects{}
	objects.On("Exists", mock.Anything, "exports", "products.csv").Return(true, nil)
	objects.On("Exists", mock.Anything, "exports", "gone.csv").Return(false, nil)
	objects.On("Download", mock.Anything, "exports", "products.csv").
		Return(io.NopCloser(strings.NewReader("id\n1\n")), nil)

	rc, err := NewOpener(objects).Open(context.Background(), "s3://exports/products.csv")
	require.NoError(t, err)
	rc.Close()

	_, err = NewOpener(objects).Open(context.Background(), "s3://exports/gone.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)
	objects.AssertExpectations(t)
	objects.AssertNotCalled(t, "Download", mock.Anything, "exports", "gone.csv")

	_, err = NewOpener(nil).Open(context.Background(), "s3://exports/products.csv")
	assert.ErrorIs(t, err, ErrNoObjectStorage)
}

func TestDetectStorageType(t *testing.T) {
	assert.Equal(t, StorageTypeR2, detectStorageType("https://acct.r2.cloudflarestorage.com"))
	assert.Equal(t, StorageTypeS3, detectStorageType(""))
	assert.Equal(t, StorageTypeS3Compatible, detectStorageType("localhost:9000"))
	assert.Equal(t, "localhost:9000", normalizeEndpoint("http://localhost:9000/path"))
}
