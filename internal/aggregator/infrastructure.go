package aggregator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/symmetryops/pulse-core/internal/canonical"
	"github.com/symmetryops/pulse-core/internal/models"
	"github.com/symmetryops/pulse-core/internal/queries"
	"github.com/symmetryops/pulse-core/internal/timerange"
	"github.com/symmetryops/pulse-core/pkg/cache"
)

// resourceMetricNames are the series requested per cloud resource.
var resourceMetricNames = []string{"CpuPercentage", "MemoryWorkingSet"}

// GetInfrastructureMetrics assembles the overview endpoint: request volume
// per service, the latency query pair, per-resource CPU/memory series and
// queue depths, plus the folded overview block.
func (a *Aggregator) GetInfrastructureMetrics(ctx context.Context, environment, rng string, bypass bool) (*models.InfrastructureMetrics, error) {
	tr := timerange.Parse(rng)
	key := cache.Key(environment, tr.Raw)
	if hit, ok := a.infraCache.Check(key, bypass); ok {
		recordLookup("infrastructure", true, false)
		return hit, nil
	}
	recordLookup("infrastructure", false, bypass)

	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	b := newBatch("infrastructure", a.logger)
	g, gctx := errgroup.WithContext(ctx)

	var (
		requestRecords []canonical.ServiceRecord
		errorRecords   []canonical.ServiceRecord
		primaryRows    [][]string
		fallbackRows   [][]string
		queues         []models.QueueDepth

		resourcesMu sync.Mutex
		resources   []models.ResourceUsage
	)

	// Requests per service. Row schema: service, requests.
	b.ran()
	g.Go(func() error {
		rows, err := a.backends.Logs.Query(gctx, environment, queries.RequestsByService(tr), 0)
		if err != nil {
			b.degrade("requests_by_service", err)
			return nil
		}
		records := make([]canonical.ServiceRecord, 0, len(rows))
		for _, row := range rows {
			records = append(records, canonical.ServiceRecord{
				RawName: cell(row, 0),
				Name:    cell(row, 0),
				Count:   intCell(row, 1),
			})
		}
		requestRecords = canonical.Aggregate(records)
		return nil
	})

	// Errors per service feed the overview fold. Row schema: service, errors.
	b.ran()
	g.Go(func() error {
		rows, err := a.backends.Logs.Query(gctx, environment, queries.ErrorsByService(tr), 0)
		if err != nil {
			b.degrade("errors_by_service", err)
			return nil
		}
		records := make([]canonical.ServiceRecord, 0, len(rows))
		for _, row := range rows {
			records = append(records, canonical.ServiceRecord{
				RawName: cell(row, 0),
				Name:    cell(row, 0),
				Count:   intCell(row, 1),
			})
		}
		errorRecords = canonical.Aggregate(records)
		return nil
	})

	// Latency pair: endpoint-specific primary, general-traffic fallback.
	// Both run in the batch; the merge step picks the fallback only when
	// the primary parsed to zero rows.
	b.ran()
	g.Go(func() error {
		rows, err := a.backends.Logs.Query(gctx, environment, queries.APILatency(tr), 0)
		if err != nil {
			b.degrade("api_latency", err)
			return nil
		}
		primaryRows = rows
		return nil
	})
	b.ran()
	g.Go(func() error {
		rows, err := a.backends.Logs.Query(gctx, environment, queries.GeneralTraffic(tr), 0)
		if err != nil {
			b.degrade("general_traffic", err)
			return nil
		}
		fallbackRows = rows
		return nil
	})

	// Queue depths.
	b.ran()
	g.Go(func() error {
		infos, err := a.backends.QueueAdmin.ListQueues(gctx, environment)
		if err != nil {
			b.degrade("queue_depths", err)
			return nil
		}
		queues = make([]models.QueueDepth, 0, len(infos))
		for _, q := range infos {
			queues = append(queues, models.QueueDepth{
				Name:            q.Name,
				ActiveCount:     q.ActiveCount,
				DeadLetterCount: q.DeadLetterCount,
			})
		}
		return nil
	})

	// CPU/memory series per configured resource.
	if envCfg, ok := a.cfg.Environments[environment]; ok {
		for _, resourceID := range envCfg.MetricsAPI.Resources {
			resourceID := resourceID
			b.ran()
			g.Go(func() error {
				series, err := a.backends.ResourceMetrics.FetchSeries(gctx, environment, resourceID, resourceMetricNames, tr)
				if err != nil {
					b.degrade("resource_metrics:"+resourceID, err)
					return nil
				}
				usage := models.ResourceUsage{
					Resource: resourceID,
					Series:   make(map[string][]models.MetricPoint, len(series)),
				}
				for name, points := range series {
					converted := make([]models.MetricPoint, len(points))
					for i, p := range points {
						converted[i] = models.MetricPoint{Time: p.Time, Total: p.Total, Average: p.Average}
					}
					usage.Series[name] = converted
				}
				resourcesMu.Lock()
				resources = append(resources, usage)
				resourcesMu.Unlock()
				return nil
			})
		}
	}

	_ = g.Wait()
	if err := b.err(); err != nil {
		return nil, err
	}

	latency := pickLatency(primaryRows, fallbackRows)

	payload := &models.InfrastructureMetrics{
		GeneratedAt:       time.Now().UTC(),
		Environment:       environment,
		Range:             tr.Raw,
		RequestsByService: orEmptyRecords(requestRecords),
		Latency:           latency,
		Resources:         resources,
		Queues:            queues,
		Overview:          foldOverview(requestRecords, errorRecords, latency, queues),
	}
	return a.infraCache.Set(key, payload), nil
}

// pickLatency applies the fallback policy: the fallback is consulted only
// when the primary parsed to zero rows. A non-empty all-zero primary still
// wins.
func pickLatency(primary, fallback [][]string) models.LatencySummary {
	if len(primary) > 0 {
		return parseLatencyRow(primary[0], "endpoint")
	}
	if len(fallback) > 0 {
		return parseLatencyRow(fallback[0], "general")
	}
	return models.LatencySummary{Source: "none"}
}

// parseLatencyRow schema: avg_ms, p95_ms, requests.
func parseLatencyRow(row []string, source string) models.LatencySummary {
	return models.LatencySummary{
		AvgMS:    floatCell(row, 0),
		P95MS:    floatCell(row, 1),
		Requests: intCell(row, 2),
		Source:   source,
	}
}

// foldOverview sums the already-parsed records; it never issues queries.
func foldOverview(requests, errs []canonical.ServiceRecord, latency models.LatencySummary, queues []models.QueueDepth) models.Overview {
	var o models.Overview
	for _, r := range requests {
		o.TotalRequests += r.Count
	}
	for _, e := range errs {
		o.TotalErrors += e.Count
	}
	o.AvgLatencyMS = latency.AvgMS
	for _, q := range queues {
		o.QueueBacklog += q.ActiveCount + q.DeadLetterCount
	}
	return o
}

func orEmptyRecords(records []canonical.ServiceRecord) []canonical.ServiceRecord {
	if records == nil {
		return []canonical.ServiceRecord{}
	}
	return records
}
