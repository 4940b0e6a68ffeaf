package aggregator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/symmetryops/pulse-core/internal/models"
	"github.com/symmetryops/pulse-core/internal/queries"
	"github.com/symmetryops/pulse-core/internal/timerange"
	"github.com/symmetryops/pulse-core/pkg/cache"
)

// GetDatabaseMetrics assembles relational backend health: cache-hit ratio,
// transaction counters, session states, connection pressure, the slowest
// statements and the derived composite health score.
func (a *Aggregator) GetDatabaseMetrics(ctx context.Context, environment, rng string, bypass bool) (*models.DatabaseMetrics, error) {
	tr := timerange.Parse(rng)
	key := cache.Key(environment, tr.Raw)
	if hit, ok := a.dbCache.Check(key, bypass); ok {
		recordLookup("database", true, false)
		return hit, nil
	}
	recordLookup("database", false, bypass)

	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	b := newBatch("database", a.logger)
	g, gctx := errgroup.WithContext(ctx)

	payload := &models.DatabaseMetrics{
		GeneratedAt: time.Now().UTC(),
		Environment: environment,
		Range:       tr.Raw,
		LongRunning: []models.LongRunningQuery{},
	}

	b.ran()
	g.Go(func() error {
		rows, err := a.backends.Postgres.Query(gctx, environment, queries.DatabaseStats)
		if err != nil {
			b.degrade("database_stats", err)
			return nil
		}
		if len(rows) == 0 {
			return nil
		}
		row := rows[0]
		hit := fieldFloat(row, "blks_hit")
		read := fieldFloat(row, "blks_read")
		if hit+read > 0 {
			payload.CacheHitRatio = 100 * hit / (hit + read)
		}
		payload.Commits = fieldInt(row, "xact_commit")
		payload.Rollbacks = fieldInt(row, "xact_rollback")
		payload.SizeBytes = fieldInt(row, "size_bytes")
		return nil
	})

	b.ran()
	g.Go(func() error {
		rows, err := a.backends.Postgres.Query(gctx, environment, queries.DatabaseActivity)
		if err != nil {
			b.degrade("database_activity", err)
			return nil
		}
		if len(rows) == 0 {
			return nil
		}
		row := rows[0]
		payload.ActiveQueries = int(fieldInt(row, "active"))
		payload.IdleInTxn = int(fieldInt(row, "idle_in_txn"))
		payload.WaitingQueries = int(fieldInt(row, "waiting"))
		payload.Connections = int(fieldInt(row, "connections"))
		return nil
	})

	b.ran()
	g.Go(func() error {
		rows, err := a.backends.Postgres.Query(gctx, environment, queries.MaxConnections)
		if err != nil {
			b.degrade("max_connections", err)
			return nil
		}
		if len(rows) == 0 {
			return nil
		}
		payload.MaxConnections = int(fieldInt(rows[0], "max_connections"))
		return nil
	})

	b.ran()
	g.Go(func() error {
		rows, err := a.backends.Postgres.Query(gctx, environment, queries.LongRunningQueries, queries.LongRunningThreshold)
		if err != nil {
			b.degrade("long_running_queries", err)
			return nil
		}
		long := make([]models.LongRunningQuery, 0, len(rows))
		for _, row := range rows {
			long = append(long, models.LongRunningQuery{
				PID:      int(fieldInt(row, "pid")),
				Duration: fieldFloat(row, "duration_seconds"),
				State:    fieldString(row, "state"),
				Query:    fieldString(row, "query"),
			})
		}
		payload.LongRunning = long
		return nil
	})

	_ = g.Wait()
	if err := b.err(); err != nil {
		return nil, err
	}

	payload.Health = DeriveHealth(HealthIndicators{
		CacheHitRatio:  payload.CacheHitRatio,
		ActiveQueries:  payload.ActiveQueries,
		WaitingQueries: payload.WaitingQueries,
		Connections:    payload.Connections,
	})

	return a.dbCache.Set(key, payload), nil
}
