// Package queries holds the shared query texts issued against the telemetry
// backends. SQL goes to Postgres with bind parameters; log queries are
// rendered with the resolved range's relative-duration token.
package queries

import (
	"fmt"

	"github.com/symmetryops/pulse-core/internal/timerange"
)

/* ------------------------------- SQL (Postgres) ------------------------------ */

// DatabaseStats reads cache-hit blocks, transaction counters and database
// size from pg_stat_database for the connected database.
const DatabaseStats = `
SELECT blks_hit,
       blks_read,
       xact_commit,
       xact_rollback,
       pg_database_size(current_database()) AS size_bytes
FROM pg_stat_database
WHERE datname = current_database()`

// DatabaseActivity counts the session states the health score feeds on.
// Waiting means an active backend blocked on a wait event, which matches
// what the dashboard calls a waiting query.
const DatabaseActivity = `
SELECT count(*) FILTER (WHERE state = 'active')                                      AS active,
       count(*) FILTER (WHERE state = 'idle in transaction')                         AS idle_in_txn,
       count(*) FILTER (WHERE state = 'active' AND wait_event_type IS NOT NULL)      AS waiting,
       count(*)                                                                      AS connections
FROM pg_stat_activity
WHERE datname = current_database()`

// MaxConnections reads the server connection limit.
const MaxConnections = `
SELECT setting::int AS max_connections
FROM pg_settings
WHERE name = 'max_connections'`

// LongRunningQueries lists the five oldest statements running longer than
// the given interval (bind $1, e.g. "30 seconds").
const LongRunningQueries = `
SELECT pid,
       extract(epoch FROM (now() - query_start)) AS duration_seconds,
       state,
       left(query, 200)                          AS query
FROM pg_stat_activity
WHERE state <> 'idle'
  AND query_start < now() - $1::interval
ORDER BY query_start
LIMIT 5`

// LongRunningThreshold is the $1 bind for LongRunningQueries.
const LongRunningThreshold = "30 seconds"

/* ------------------------------ Log engine ----------------------------- */

// Log query rows come back positional; the ordered field lists live next to
// the parsers in internal/aggregator.

// RequestsByService counts requests per emitting service.
func RequestsByService(tr timerange.TimeRange) string {
	return fmt.Sprintf(`_time:%s http.request | stats by (service) count() as requests`, tr.LogDuration)
}

// APILatency is the endpoint-specific latency query, the primary of the
// latency pair.
func APILatency(tr timerange.TimeRange) string {
	return fmt.Sprintf(`_time:%s http.request path:"/api/"* | stats avg(duration_ms) as avg_ms, quantile(0.95, duration_ms) as p95_ms, count() as requests`, tr.LogDuration)
}

// GeneralTraffic is the broader fallback of the latency pair, used only when
// APILatency parses to zero rows.
func GeneralTraffic(tr timerange.TimeRange) string {
	return fmt.Sprintf(`_time:%s http.request | stats avg(duration_ms) as avg_ms, quantile(0.95, duration_ms) as p95_ms, count() as requests`, tr.LogDuration)
}

// ErrorsByService counts error-level records per service.
func ErrorsByService(tr timerange.TimeRange) string {
	return fmt.Sprintf(`_time:%s level:error | stats by (service) count() as errors`, tr.LogDuration)
}

// ErrorTimeline buckets errors into an hourly timeline.
func ErrorTimeline(tr timerange.TimeRange) string {
	return fmt.Sprintf(`_time:%s level:error | stats by (_time:1h) count() as errors`, tr.LogDuration)
}

// RecentErrors returns the latest error records with their origin.
func RecentErrors(tr timerange.TimeRange, limit int) string {
	return fmt.Sprintf(`_time:%s level:error | fields _time, service, _msg | sort by (_time desc) | limit %d`, tr.LogDuration, limit)
}

// LLMUsageByModel aggregates completion traffic per model.
func LLMUsageByModel(tr timerange.TimeRange) string {
	return fmt.Sprintf(`_time:%s event:llm.completion | stats by (model) count() as requests, sum(input_tokens) as input_tokens, sum(output_tokens) as output_tokens`, tr.LogDuration)
}

// LLMDailyUsage buckets completion traffic per day and model so spend can be
// priced per model before folding into the daily series.
func LLMDailyUsage(tr timerange.TimeRange) string {
	return fmt.Sprintf(`_time:%s event:llm.completion | stats by (_time:1d, model) sum(input_tokens) as input_tokens, sum(output_tokens) as output_tokens`, tr.LogDuration)
}
