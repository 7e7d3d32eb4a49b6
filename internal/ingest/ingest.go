// Package ingest parses ordered (timestamp, value) pairs from CSV and
// JSON input into the points a Write call accepts. It does no
// calendar-alignment or validation beyond basic parsing; that is the
// storage engine's job.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/amacd31/hydrotsdb/internal/calendar"
)

// Point is one parsed (timestamp, value) input pair.
type Point = calendar.Point

// CSV parses rows of "<timestamp>,<value>" from r. A timestamp is either
// an RFC3339 string or a bare unix-seconds integer. Rows with fewer than
// two fields are skipped.
func CSV(r io.Reader) ([]Point, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ingest: parse csv: %w", err)
	}

	points := make([]Point, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		ts, value, err := parseTimestampValue(row[0], row[1])
		if err != nil {
			return nil, err
		}
		points = append(points, Point{Timestamp: ts, Value: value})
	}
	return points, nil
}

// jsonPoint mirrors one element of the JSON array format: either a unix
// timestamp or an RFC3339 string is accepted for "timestamp".
type jsonPoint struct {
	Timestamp json.RawMessage `json:"timestamp"`
	Value     float64         `json:"value"`
}

// JSON parses a JSON array of {"timestamp": ..., "value": ...} objects
// from r.
func JSON(r io.Reader) ([]Point, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []jsonPoint
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("ingest: parse json: %w", err)
	}

	points := make([]Point, 0, len(raw))
	for _, p := range raw {
		tsField := string(p.Timestamp)
		var s string
		if err := json.Unmarshal(p.Timestamp, &s); err == nil {
			tsField = s
		}
		ts, err := parseTimestamp(tsField)
		if err != nil {
			return nil, err
		}
		points = append(points, Point{Timestamp: ts, Value: p.Value})
	}
	return points, nil
}

func parseTimestamp(tsField string) (int64, error) {
	if parsed, err := time.Parse(time.RFC3339, tsField); err == nil {
		return parsed.Unix(), nil
	}
	if n, err := strconv.ParseInt(tsField, 10, 64); err == nil {
		return n, nil
	}
	return 0, fmt.Errorf("ingest: unrecognised timestamp %q", tsField)
}

func parseTimestampValue(tsField, valueField string) (int64, float64, error) {
	ts, err := parseTimestamp(tsField)
	if err != nil {
		return 0, 0, err
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(valueField), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("ingest: unrecognised value %q: %w", valueField, err)
	}
	return ts, value, nil
}
