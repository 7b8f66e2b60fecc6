package transformer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseFloat interprets a cell as a float64.
//
// Empty cells, nil and the usual NA spellings are absent (ok=false, err=nil).
// Anything else that does not parse returns an error; callers treat the field
// as absent and count the error.
func ParseFloat(v any) (f float64, ok bool, err error) {
	switch t := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		if math.IsNaN(t) {
			return 0, false, nil
		}
		return t, true, nil
	case int64:
		return float64(t), true, nil
	case int:
		return float64(t), true, nil
	case string:
		s := strings.TrimSpace(t)
		if isNA(s) {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("parse number %q: %w", s, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false, nil
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("parse number: unsupported type %T", v)
	}
}

func isNA(s string) bool {
	switch strings.ToLower(s) {
	case "", "na", "nan", "null", "none", "n/a", "-":
		return true
	}
	return false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseTimestamp parses the timestamp spellings found in OPSD exports. Values
// without a zone are read as UTC; the result is always in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("parse timestamp: empty")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: unrecognized layout", s)
}

// ParseZoned parses a local wall-clock timestamp (e.g. cet_cest_timestamp)
// keeping its offset. Values without a zone are read as UTC.
func ParseZoned(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: unrecognized layout", s)
}

// ParseDate parses a YYYY-MM-DD command-line date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t.UTC(), nil
}
