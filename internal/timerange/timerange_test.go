package timerange

import (
	"testing"
	"time"
)

func TestParseSevenDays(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	tr := ParseAt("7d", now)

	if tr.Hours != 168 {
		t.Fatalf("expected 168 hours, got %v", tr.Hours)
	}
	if tr.LogDuration != "7d" {
		t.Fatalf("expected log duration 7d, got %q", tr.LogDuration)
	}
	if tr.SQLInterval != "7 days" {
		t.Fatalf("expected SQL interval %q, got %q", "7 days", tr.SQLInterval)
	}
	if tr.ISODuration != "P7D" {
		t.Fatalf("expected ISO duration P7D, got %q", tr.ISODuration)
	}
	if tr.Granularity != "PT6H" {
		t.Fatalf("expected granularity PT6H, got %q", tr.Granularity)
	}
	if !tr.End.Equal(now) {
		t.Fatalf("expected end %v, got %v", now, tr.End)
	}
	if got := tr.End.Sub(tr.Start); got != 168*time.Hour {
		t.Fatalf("expected span 168h, got %v", got)
	}
}

func TestParseDerivedForms(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		raw         string
		hours       float64
		logDur      string
		sqlInterval string
		granularity string
		isoDur      string
	}{
		{"30m", 0.5, "30m", "30 minutes", "PT5M", "PT0.5H"},
		{"1h", 1, "1h", "1 hours", "PT5M", "PT1H"},
		{"6h", 6, "6h", "6 hours", "PT15M", "PT6H"},
		{"12h", 12, "12h", "12 hours", "PT1H", "PT12H"},
		{"24h", 24, "1d", "1 days", "PT1H", "P1D"},
		{"1d", 24, "1d", "1 days", "PT1H", "P1D"},
		{"36h", 36, "36h", "36 hours", "PT6H", "PT36H"},
		{"3d", 72, "3d", "3 days", "PT6H", "P3D"},
		{"30d", 720, "30d", "30 days", "P1D", "P30D"},
	}
	for _, tc := range cases {
		tr := ParseAt(tc.raw, now)
		if tr.Hours != tc.hours {
			t.Errorf("%s: hours = %v, want %v", tc.raw, tr.Hours, tc.hours)
		}
		if tr.LogDuration != tc.logDur {
			t.Errorf("%s: log duration = %q, want %q", tc.raw, tr.LogDuration, tc.logDur)
		}
		if tr.SQLInterval != tc.sqlInterval {
			t.Errorf("%s: SQL interval = %q, want %q", tc.raw, tr.SQLInterval, tc.sqlInterval)
		}
		if tr.Granularity != tc.granularity {
			t.Errorf("%s: granularity = %q, want %q", tc.raw, tr.Granularity, tc.granularity)
		}
		if tr.ISODuration != tc.isoDur {
			t.Errorf("%s: ISO duration = %q, want %q", tc.raw, tr.ISODuration, tc.isoDur)
		}
	}
}

func TestEquivalentTokensResolveIdentically(t *testing.T) {
	now := time.Now().UTC()
	a := ParseAt("24h", now)
	b := ParseAt("1d", now)
	if a.Hours != b.Hours || a.LogDuration != b.LogDuration ||
		a.SQLInterval != b.SQLInterval || a.Granularity != b.Granularity ||
		a.ISODuration != b.ISODuration {
		t.Fatalf("24h and 1d resolved differently: %+v vs %+v", a, b)
	}
}

func TestParseMalformedFallsBackToDefault(t *testing.T) {
	now := time.Now().UTC()
	for _, raw := range []string{"", "abc", "7w", "-4h", "0h", "0d", "h", "12", "12H"} {
		tr := ParseAt(raw, now)
		if tr.Hours != DefaultHours {
			t.Errorf("%q: expected default %d hours, got %v", raw, DefaultHours, tr.Hours)
		}
		if tr.Raw != raw {
			t.Errorf("%q: raw token not preserved: %q", raw, tr.Raw)
		}
	}
}

func TestGranularityNeverFinerThanMinimum(t *testing.T) {
	now := time.Now().UTC()
	for _, raw := range []string{"1m", "5m", "15m", "30m"} {
		tr := ParseAt(raw, now)
		if tr.Granularity != "PT5M" {
			t.Errorf("%q: expected PT5M, got %q", raw, tr.Granularity)
		}
	}
}
