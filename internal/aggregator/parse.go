package aggregator

import (
	"strconv"
	"strings"
	"time"
)

// Parsing helpers for backend rows. Numeric coercion defaults to 0 and
// string coercion to "" so malformed cells never abort a batch.

// cell returns the idx-th column of a positional row, "" when absent.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func floatCell(row []string, idx int) float64 {
	v, err := strconv.ParseFloat(cell(row, idx), 64)
	if err != nil {
		return 0
	}
	return v
}

func intCell(row []string, idx int) int64 {
	s := cell(row, idx)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	// Aggregate columns sometimes come back as floats.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

// timeCell accepts RFC3339(Nano) or epoch seconds/milliseconds.
func timeCell(row []string, idx int) time.Time {
	s := cell(row, idx)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n >= 1_000_000_000_000 {
			return time.UnixMilli(n).UTC()
		}
		return time.Unix(n, 0).UTC()
	}
	return time.Time{}
}

// Named-row coercion for SQL results.

func fieldFloat(row map[string]any, name string) float64 {
	switch v := row[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func fieldInt(row map[string]any, name string) int64 {
	switch v := row[name].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func fieldString(row map[string]any, name string) string {
	if v, ok := row[name].(string); ok {
		return v
	}
	return ""
}
