package timerange

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DefaultHours is the fallback range applied when a token cannot be parsed.
const DefaultHours = 24

// TimeRange is a user-supplied relative range resolved into every
// representation the backends need. It is immutable; construct a fresh one
// per request via Parse.
type TimeRange struct {
	Raw   string
	Hours float64

	// LogDuration is the relative duration token used by the log query
	// engine, e.g. "7d", "36h", "30m".
	LogDuration string
	// SQLInterval is the interval literal used in SQL predicates,
	// e.g. "7 days", "5 hours", "30 minutes".
	SQLInterval string
	// Granularity is the bucket width requested from the resource-metrics
	// API, one of PT5M, PT15M, PT1H, PT6H, P1D.
	Granularity string
	// ISODuration is the whole range as an ISO-8601 duration,
	// e.g. "P7D" or "PT12H".
	ISODuration string

	Start time.Time
	End   time.Time
}

var tokenRe = regexp.MustCompile(`^(\d+)([mhd])$`)

// Parse resolves a compact range token of the form <integer><unit> with
// unit m, h or d. Malformed, empty, zero or negative tokens fall back to
// the 24h default; the resolver never fails.
func Parse(raw string) TimeRange {
	return ParseAt(raw, time.Now().UTC())
}

// ParseAt is Parse with an explicit reference instant for End.
func ParseAt(raw string, now time.Time) TimeRange {
	hours := float64(DefaultHours)

	if m := tokenRe.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			switch m[2] {
			case "m":
				hours = float64(n) / 60
			case "h":
				hours = float64(n)
			case "d":
				hours = float64(n) * 24
			}
		}
	}
	if hours <= 0 {
		hours = DefaultHours
	}

	tr := TimeRange{
		Raw:         raw,
		Hours:       hours,
		LogDuration: logDuration(hours),
		SQLInterval: sqlInterval(hours),
		Granularity: granularity(hours),
		ISODuration: isoDuration(hours),
		End:         now,
		Start:       now.Add(-time.Duration(hours * float64(time.Hour))),
	}
	return tr
}

func (tr TimeRange) String() string { return tr.Raw }

// wholeDays reports whether the range renders in day units.
func wholeDays(hours float64) (int, bool) {
	if hours >= 24 && hours == float64(int(hours)) && int(hours)%24 == 0 {
		return int(hours) / 24, true
	}
	return 0, false
}

func logDuration(hours float64) string {
	if d, ok := wholeDays(hours); ok {
		return fmt.Sprintf("%dd", d)
	}
	if hours < 1 {
		return fmt.Sprintf("%dm", int(hours*60))
	}
	return fmt.Sprintf("%gh", hours)
}

func sqlInterval(hours float64) string {
	if d, ok := wholeDays(hours); ok {
		return fmt.Sprintf("%d days", d)
	}
	if hours < 1 {
		return fmt.Sprintf("%d minutes", int(hours*60))
	}
	return fmt.Sprintf("%g hours", hours)
}

// granularity picks the largest supported bucket that keeps the point count
// bounded for the resource-metrics API. The API supports nothing finer
// than 5 minutes.
func granularity(hours float64) string {
	switch {
	case hours <= 1:
		return "PT5M"
	case hours <= 6:
		return "PT15M"
	case hours <= 24:
		return "PT1H"
	case hours <= 72:
		return "PT6H"
	default:
		return "P1D"
	}
}

func isoDuration(hours float64) string {
	if d, ok := wholeDays(hours); ok {
		return fmt.Sprintf("P%dD", d)
	}
	return fmt.Sprintf("PT%gH", hours)
}
