package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVParsesUnixAndRFC3339Timestamps(t *testing.T) {
	input := "1104537600,1.0\n2005-01-02T00:00:00Z,2.5\n"
	points, err := CSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(1104537600), points[0].Timestamp)
	assert.Equal(t, 1.0, points[0].Value)
	assert.Equal(t, int64(1104537600+86400), points[1].Timestamp)
	assert.Equal(t, 2.5, points[1].Value)
}

func TestCSVSkipsShortRows(t *testing.T) {
	points, err := CSV(strings.NewReader("1104537600\n1104537600,1.0\n"))
	require.NoError(t, err)
	assert.Len(t, points, 1, "rows without both fields should be skipped")
}

func TestCSVRejectsUnparseableValue(t *testing.T) {
	_, err := CSV(strings.NewReader("1104537600,not-a-number\n"))
	assert.Error(t, err)
}

func TestJSONParsesArrayOfPoints(t *testing.T) {
	input := `[{"timestamp": 1104537600, "value": 1.0}, {"timestamp": "2005-01-02T00:00:00Z", "value": 2.5}]`
	points, err := JSON(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(1104537600), points[0].Timestamp)
	assert.Equal(t, 1.0, points[0].Value)
	assert.Equal(t, int64(1104537600+86400), points[1].Timestamp)
	assert.Equal(t, 2.5, points[1].Value)
}

func TestJSONRejectsMalformedInput(t *testing.T) {
	_, err := JSON(strings.NewReader(`not json`))
	assert.Error(t, err)
}
