package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"1/2/2006",
	"1/2/06",
}

// ParseDate accepts the date shapes seen in API keys and CSV exports and
// truncates the result to a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// coerceCount converts a JSON value to a non-negative integer. ok is false
// when the value is present but unusable; the caller stores null.
func coerceCount(v any) (n int64, ok bool) {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0, false
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return nonNegative(i)
		}
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = val
	case int:
		return nonNegative(int64(val))
	case int64:
		return nonNegative(val)
	case string:
		s := strings.TrimSpace(val)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return nonNegative(i)
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f > math.MaxInt64 {
		return 0, false
	}
	return nonNegative(int64(f))
}

func nonNegative(i int64) (int64, bool) {
	if i < 0 {
		return 0, false
	}
	return i, true
}

// coerceNumber parses a CSV cell. Empty cells are null without a warning.
func coerceNumber(s string) (v *float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return &f, true
}
