package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMapScanKeepsNumbersExact(t *testing.T) {
	in := JSONMap{"id": json.Number("9007199254740993"), "title": "A"}
	v, err := in.Value()
	require.NoError(t, err)

	var out JSONMap
	require.NoError(t, out.Scan(v))
	assert.Equal(t, json.Number("9007199254740993"), out["id"])
	assert.Equal(t, "A", out["title"])

	var fromBytes JSONMap
	require.NoError(t, fromBytes.Scan([]byte(`{"n":1.5}`)))
	assert.Equal(t, json.Number("1.5"), fromBytes["n"])

	var empty JSONMap
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)
	assert.Error(t, empty.Scan(42))
}

func TestCanonicalFieldsScanKeepsMetadataNumbersExact(t *testing.T) {
	in := CanonicalFields{Title: "A", Metadata: map[string]interface{}{"id": json.Number("18446744073709551615")}}
	v, err := in.Value()
	require.NoError(t, err)

	var out CanonicalFields
	require.NoError(t, out.Scan(v))
	assert.Equal(t, "A", out.Title)
	assert.Equal(t, json.Number("18446744073709551615"), out.Metadata["id"])
}
