package aggregator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/symmetryops/pulse-core/internal/canonical"
	"github.com/symmetryops/pulse-core/internal/models"
	"github.com/symmetryops/pulse-core/internal/queries"
	"github.com/symmetryops/pulse-core/internal/timerange"
	"github.com/symmetryops/pulse-core/pkg/cache"
)

const recentErrorLimit = 20

// GetErrorMetrics assembles error volume per service, the hourly error
// timeline and the most recent error samples.
func (a *Aggregator) GetErrorMetrics(ctx context.Context, environment, rng string, bypass bool) (*models.ErrorMetrics, error) {
	tr := timerange.Parse(rng)
	key := cache.Key(environment, tr.Raw)
	if hit, ok := a.errorCache.Check(key, bypass); ok {
		recordLookup("errors", true, false)
		return hit, nil
	}
	recordLookup("errors", false, bypass)

	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	b := newBatch("errors", a.logger)
	g, gctx := errgroup.WithContext(ctx)

	var (
		byService []canonical.ServiceRecord
		timeline  []models.TimelinePoint
		recent    []models.ErrorSample
	)

	// Errors per service. Row schema: service, errors.
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
		byService = canonical.Aggregate(records)
		return nil
	})

	// Hourly timeline. Row schema: bucket time, errors.
	b.ran()
	g.Go(func() error {
		rows, err := a.backends.Logs.Query(gctx, environment, queries.ErrorTimeline(tr), 0)
		if err != nil {
			b.degrade("error_timeline", err)
			return nil
		}
		timeline = make([]models.TimelinePoint, 0, len(rows))
		for _, row := range rows {
			timeline = append(timeline, models.TimelinePoint{
				Time:  timeCell(row, 0),
				Count: intCell(row, 1),
			})
		}
		return nil
	})

	// Recent samples. Row schema: time, service, message.
	b.ran()
	g.Go(func() error {
		rows, err := a.backends.Logs.Query(gctx, environment, queries.RecentErrors(tr, recentErrorLimit), recentErrorLimit)
		if err != nil {
			b.degrade("recent_errors", err)
			return nil
		}
		recent = make([]models.ErrorSample, 0, len(rows))
		for _, row := range rows {
			recent = append(recent, models.ErrorSample{
				Time:    timeCell(row, 0),
				Service: canonical.Canonicalize(cell(row, 1)),
				Message: cell(row, 2),
			})
		}
		return nil
	})

	_ = g.Wait()
	if err := b.err(); err != nil {
		return nil, err
	}

	payload := &models.ErrorMetrics{
		GeneratedAt: time.Now().UTC(),
		Environment: environment,
		Range:       tr.Raw,
		ByService:   orEmptyRecords(byService),
		Timeline:    timeline,
		Recent:      recent,
	}
	if payload.Timeline == nil {
		payload.Timeline = []models.TimelinePoint{}
	}
	if payload.Recent == nil {
		payload.Recent = []models.ErrorSample{}
	}
	for _, r := range payload.ByService {
		payload.Total += r.Count
	}

	return a.errorCache.Set(key, payload), nil
}
