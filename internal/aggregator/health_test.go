package aggregator

import (
	"testing"

	"github.com/symmetryops/pulse-core/internal/models"
)

func TestDeriveHealthBestCase(t *testing.T) {
	h := DeriveHealth(HealthIndicators{
		CacheHitRatio:  99.5,
		ActiveQueries:  3,
		WaitingQueries: 0,
		Connections:    12,
	})
	if h.Score != 100 {
		t.Fatalf("best case score = %d, want 100", h.Score)
	}
	if h.Status != models.StatusHealthy {
		t.Fatalf("best case status = %q, want %q", h.Status, models.StatusHealthy)
	}
}

func TestDeriveHealthWorstCase(t *testing.T) {
	h := DeriveHealth(HealthIndicators{
		CacheHitRatio:  40,
		ActiveQueries:  60,
		WaitingQueries: 20,
		Connections:    150,
	})
	if h.Score != 25 {
		t.Fatalf("worst case score = %d, want 25", h.Score)
	}
	if h.Status != models.StatusCritical {
		t.Fatalf("worst case status = %q, want %q", h.Status, models.StatusCritical)
	}
}

func TestDeriveHealthBoundaries(t *testing.T) {
	cases := []struct {
		name string
		ind  HealthIndicators
		want int
	}{
		// 95.0 hit is not "> 95" so the middle band applies.
		{"hit ratio at 95", HealthIndicators{CacheHitRatio: 95, ActiveQueries: 0, WaitingQueries: 0, Connections: 0}, 20 + 25 + 25 + 20},
		{"hit ratio just above 95", HealthIndicators{CacheHitRatio: 95.01, ActiveQueries: 0, WaitingQueries: 0, Connections: 0}, 30 + 25 + 25 + 20},
		{"hit ratio at 90", HealthIndicators{CacheHitRatio: 90, ActiveQueries: 0, WaitingQueries: 0, Connections: 0}, 10 + 25 + 25 + 20},
		{"active at 10", HealthIndicators{CacheHitRatio: 100, ActiveQueries: 10, WaitingQueries: 0, Connections: 0}, 30 + 15 + 25 + 20},
		{"active at 25", HealthIndicators{CacheHitRatio: 100, ActiveQueries: 25, WaitingQueries: 0, Connections: 0}, 30 + 5 + 25 + 20},
		{"one waiting query", HealthIndicators{CacheHitRatio: 100, ActiveQueries: 0, WaitingQueries: 1, Connections: 0}, 30 + 25 + 15 + 20},
		{"waiting at 5", HealthIndicators{CacheHitRatio: 100, ActiveQueries: 0, WaitingQueries: 5, Connections: 0}, 30 + 25 + 5 + 20},
		{"connections at 50", HealthIndicators{CacheHitRatio: 100, ActiveQueries: 0, WaitingQueries: 0, Connections: 50}, 30 + 25 + 25 + 10},
		{"connections at 80", HealthIndicators{CacheHitRatio: 100, ActiveQueries: 0, WaitingQueries: 0, Connections: 80}, 30 + 25 + 25 + 5},
	}
	for _, tc := range cases {
		if h := DeriveHealth(tc.ind); h.Score != tc.want {
			t.Errorf("%s: score = %d, want %d", tc.name, h.Score, tc.want)
		}
	}
}

func TestDeriveHealthStatusBuckets(t *testing.T) {
	// 30+25+15+10 = 80, the healthy floor.
	h := DeriveHealth(HealthIndicators{CacheHitRatio: 96, ActiveQueries: 5, WaitingQueries: 2, Connections: 60})
	if h.Score != 80 || h.Status != models.StatusHealthy {
		t.Fatalf("score %d status %q, want 80 healthy", h.Score, h.Status)
	}

	// 20+15+15+10 = 60, the warning floor.
	h = DeriveHealth(HealthIndicators{CacheHitRatio: 92, ActiveQueries: 15, WaitingQueries: 2, Connections: 60})
	if h.Score != 60 || h.Status != models.StatusWarning {
		t.Fatalf("score %d status %q, want 60 warning", h.Score, h.Status)
	}

	// 10+15+15+10 = 50, below the warning floor.
	h = DeriveHealth(HealthIndicators{CacheHitRatio: 50, ActiveQueries: 15, WaitingQueries: 2, Connections: 60})
	if h.Score != 50 || h.Status != models.StatusCritical {
		t.Fatalf("score %d status %q, want 50 critical", h.Score, h.Status)
	}
}
