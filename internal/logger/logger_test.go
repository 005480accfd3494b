package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "test"})

	ctx := l.WithContext(context.Background())
	ctx = SetRunID(ctx, "run_api_1234abcd")
	ctx = SetSource(ctx, "api")

	With(Fields{FieldCount: 3}).WithCounts(3, 2, 1, 0).Info(ctx, "done %s", "api")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "done api", line["message"])
	assert.Equal(t, "run_api_1234abcd", line[FieldRunID])
	assert.Equal(t, "api", line[FieldSource])
	assert.Equal(t, "test", line["service"])
	assert.EqualValues(t, 2, line[FieldInserted])
	assert.Equal(t, "run_api_1234abcd", GetRunID(ctx))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, GetDefault(), FromContext(context.Background()))
	assert.Same(t, GetDefault(), FromContext(nil)) //nolint:staticcheck
}
