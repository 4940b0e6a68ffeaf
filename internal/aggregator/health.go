package aggregator

import "github.com/symmetryops/pulse-core/internal/models"

// HealthIndicators are the independent database health signals the
// composite score folds over.
type HealthIndicators struct {
	CacheHitRatio  float64 // percent, 0-100
	ActiveQueries  int
	WaitingQueries int
	Connections    int
}

// Status bucket boundaries.
const (
	healthyThreshold = 80
	warningThreshold = 60
)

// DeriveHealth maps each indicator through its fixed threshold table, sums
// the sub-scores and clamps to 100. The tables are policy, not tuning: the
// boundary comparisons are deliberate and the best case sums to exactly 100.
func DeriveHealth(ind HealthIndicators) models.HealthScore {
	score := 0

	switch {
	case ind.CacheHitRatio > 95:
		score += 30
	case ind.CacheHitRatio > 90:
		score += 20
	default:
		score += 10
	}

	switch {
	case ind.ActiveQueries < 10:
		score += 25
	case ind.ActiveQueries < 25:
		score += 15
	default:
		score += 5
	}

	switch {
	case ind.WaitingQueries == 0:
		score += 25
	case ind.WaitingQueries < 5:
		score += 15
	default:
		score += 5
	}

	switch {
	case ind.Connections < 50:
		score += 20
	case ind.Connections < 80:
		score += 10
	default:
		score += 5
	}

	if score > 100 {
		score = 100
	}

	status := models.StatusCritical
	switch {
	case score >= healthyThreshold:
		status = models.StatusHealthy
	case score >= warningThreshold:
		status = models.StatusWarning
	}

	return models.HealthScore{Score: score, Status: status}
}
