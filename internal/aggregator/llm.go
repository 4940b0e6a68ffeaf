package aggregator

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/symmetryops/pulse-core/internal/models"
	"github.com/symmetryops/pulse-core/internal/queries"
	"github.com/symmetryops/pulse-core/internal/timerange"
	"github.com/symmetryops/pulse-core/pkg/cache"
)

// modelPrice is USD per million tokens.
type modelPrice struct {
	input  float64
	output float64
}

// modelPrices is the fixed price table used to derive spend from token
// counts. Unlisted models fall back to defaultPrice.
var modelPrices = map[string]modelPrice{
	"gpt-4o":                 {input: 2.50, output: 10.00},
	"gpt-4o-mini":            {input: 0.15, output: 0.60},
	"gpt-4.1":                {input: 2.00, output: 8.00},
	"claude-sonnet-4-5":      {input: 3.00, output: 15.00},
	"claude-haiku-4-5":       {input: 1.00, output: 5.00},
	"text-embedding-3-small": {input: 0.02, output: 0},
}

var defaultPrice = modelPrice{input: 1.00, output: 3.00}

func costUSD(model string, inputTokens, outputTokens int64) float64 {
	price, ok := modelPrices[model]
	if !ok {
		price = defaultPrice
	}
	return float64(inputTokens)/1e6*price.input + float64(outputTokens)/1e6*price.output
}

// GetLLMMetrics assembles LLM usage and spend. Cost is a fold over parsed
// token counts against the price table, never a separate query.
func (a *Aggregator) GetLLMMetrics(ctx context.Context, environment, rng string, bypass bool) (*models.LLMMetrics, error) {
	tr := timerange.Parse(rng)
	key := cache.Key(environment, tr.Raw)
	if hit, ok := a.llmCache.Check(key, bypass); ok {
		recordLookup("llm", true, false)
		return hit, nil
	}
	recordLookup("llm", false, bypass)

	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	b := newBatch("llm", a.logger)
	g, gctx := errgroup.WithContext(ctx)

	var (
		usage      []models.ModelUsage
		dailyCosts []models.DailyCost
	)

	// Usage per model. Row schema: model, requests, input_tokens, output_tokens.
	b.ran()
	g.Go(func() error {
		rows, err := a.backends.Logs.Query(gctx, environment, queries.LLMUsageByModel(tr), 0)
		if err != nil {
			b.degrade("llm_usage_by_model", err)
			return nil
		}
		usage = make([]models.ModelUsage, 0, len(rows))
		for _, row := range rows {
			m := models.ModelUsage{
				Model:        cell(row, 0),
				Requests:     intCell(row, 1),
				InputTokens:  intCell(row, 2),
				OutputTokens: intCell(row, 3),
			}
			m.CostUSD = costUSD(m.Model, m.InputTokens, m.OutputTokens)
			usage = append(usage, m)
		}
		sort.Slice(usage, func(i, j int) bool { return usage[i].CostUSD > usage[j].CostUSD })
		return nil
	})

	// Daily spend. Row schema: day, model, input_tokens, output_tokens;
	// priced per model and folded per day.
	b.ran()
	g.Go(func() error {
		rows, err := a.backends.Logs.Query(gctx, environment, queries.LLMDailyUsage(tr), 0)
		if err != nil {
			b.degrade("llm_daily_usage", err)
			return nil
		}
		perDay := make(map[string]float64)
		for _, row := range rows {
			day := cell(row, 0)
			if t := timeCell(row, 0); !t.IsZero() {
				day = t.UTC().Format("2006-01-02")
			}
			perDay[day] += costUSD(cell(row, 1), intCell(row, 2), intCell(row, 3))
		}
		dailyCosts = make([]models.DailyCost, 0, len(perDay))
		for day, cost := range perDay {
			dailyCosts = append(dailyCosts, models.DailyCost{Date: day, CostUSD: cost})
		}
		sort.Slice(dailyCosts, func(i, j int) bool { return dailyCosts[i].Date < dailyCosts[j].Date })
		return nil
	})

	_ = g.Wait()
	if err := b.err(); err != nil {
		return nil, err
	}

	payload := &models.LLMMetrics{
		GeneratedAt: time.Now().UTC(),
		Environment: environment,
		Range:       tr.Raw,
		Models:      usage,
		DailyCosts:  dailyCosts,
	}
	if payload.Models == nil {
		payload.Models = []models.ModelUsage{}
	}
	if payload.DailyCosts == nil {
		payload.DailyCosts = []models.DailyCost{}
	}
	for _, m := range payload.Models {
		payload.TotalTokens += m.InputTokens + m.OutputTokens
		payload.TotalCostUSD += m.CostUSD
	}

	return a.llmCache.Set(key, payload), nil
}
