package aggregator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symmetryops/pulse-core/internal/canonical"
	"github.com/symmetryops/pulse-core/internal/config"
	"github.com/symmetryops/pulse-core/internal/services"
	"github.com/symmetryops/pulse-core/pkg/logger"
)

// fakeLogEngine dispatches on fragments of the query text and answers with
// positional rows, mirroring the engine's /select/query contract.
type fakeLogEngine struct {
	// rowsFor maps a query-text fragment to the rows to return. The first
	// matching fragment wins; unmatched queries return no rows.
	rowsFor map[string][][]any
	// failFor lists fragments that should answer 500 instead.
	failFor []string
}

func (f *fakeLogEngine) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		for _, fragment := range f.failFor {
			if strings.Contains(query, fragment) {
				http.Error(w, "backend unavailable", http.StatusInternalServerError)
				return
			}
		}
		for fragment, rows := range f.rowsFor {
			if strings.Contains(query, fragment) {
				writeRows(w, rows)
				return
			}
		}
		writeRows(w, nil)
	})
}

func writeRows(w http.ResponseWriter, rows [][]any) {
	w.Header().Set("Content-Type", "application/json")
	if rows == nil {
		fmt.Fprint(w, `{"rows":[]}`)
		return
	}
	cells := make([]string, 0, len(rows))
	for _, row := range rows {
		rendered := make([]string, len(row))
		for i, c := range row {
			switch v := c.(type) {
			case string:
				rendered[i] = fmt.Sprintf("%q", v)
			default:
				rendered[i] = fmt.Sprint(v)
			}
		}
		cells = append(cells, "["+strings.Join(rendered, ",")+"]")
	}
	fmt.Fprintf(w, `{"rows":[%s]}`, strings.Join(cells, ","))
}

func jsonHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})
}

// testEnv wires an aggregator for EnvProd against fake backend servers. Any
// nil handler leaves that backend unconfigured.
func newTestAggregator(t *testing.T, logs, queues, apps, metrics http.Handler, resources []string) *Aggregator {
	t.Helper()

	envCfg := config.EnvironmentConfig{}
	if logs != nil {
		srv := httptest.NewServer(logs)
		t.Cleanup(srv.Close)
		envCfg.LogEngine.Endpoints = []string{srv.URL}
	}
	if queues != nil {
		srv := httptest.NewServer(queues)
		t.Cleanup(srv.Close)
		envCfg.QueueAdmin.BaseURL = srv.URL
	}
	if apps != nil {
		srv := httptest.NewServer(apps)
		t.Cleanup(srv.Close)
		envCfg.AppResources.BaseURL = srv.URL
	}
	if metrics != nil {
		srv := httptest.NewServer(metrics)
		t.Cleanup(srv.Close)
		envCfg.MetricsAPI.BaseURL = srv.URL
		envCfg.MetricsAPI.Resources = resources
	}

	cfg := config.Config{
		Backends: config.BackendsConfig{
			QueryTimeout: 5000,
			Environments: map[string]config.EnvironmentConfig{EnvProd: envCfg},
		},
		Cache: config.CacheConfig{Enabled: true, Capacity: 16},
	}
	log := logger.NewNop()
	backends := services.NewBackends(cfg.Backends, log)
	t.Cleanup(backends.Close)
	return New(backends, cfg, log)
}

func TestGetErrorMetricsAssemblesPayload(t *testing.T) {
	engine := &fakeLogEngine{rowsFor: map[string][][]any{
		"stats by (service) count() as errors": {
			{"uvicorn", 5}, {"symmetry-backend", 3}, {"ai-features-api", 2},
		},
		"stats by (_time:1h)": {
			{"2026-08-24T10:00:00Z", 4}, {"2026-08-24T11:00:00Z", 6},
		},
		"fields _time, service, _msg": {
			{"2026-08-24T11:05:00Z", "uvicorn", "connection reset"},
		},
	}}
	a := newTestAggregator(t, engine.handler(), nil, nil, nil, nil)

	got, err := a.GetErrorMetrics(context.Background(), EnvProd, "24h", false)
	require.NoError(t, err)

	assert.Equal(t, EnvProd, got.Environment)
	assert.Equal(t, "24h", got.Range)
	assert.Equal(t, []canonical.ServiceRecord{
		{Name: "Symmetry Backend", Count: 8},
		{Name: "AI Features API", Count: 2},
	}, got.ByService)
	assert.EqualValues(t, 10, got.Total)

	require.Len(t, got.Timeline, 2)
	assert.EqualValues(t, 4, got.Timeline[0].Count)
	assert.Equal(t, "2026-08-24T10:00:00Z", got.Timeline[0].Time.Format("2006-01-02T15:04:05Z07:00"))

	require.Len(t, got.Recent, 1)
	assert.Equal(t, "Symmetry Backend", got.Recent[0].Service)
	assert.Equal(t, "connection reset", got.Recent[0].Message)
}

func TestErrorMetricsDegradesFailedSubQuery(t *testing.T) {
	engine := &fakeLogEngine{
		rowsFor: map[string][][]any{
			"stats by (service) count() as errors": {{"uvicorn", 5}},
		},
		failFor: []string{"stats by (_time:1h)", "fields _time, service, _msg"},
	}
	a := newTestAggregator(t, engine.handler(), nil, nil, nil, nil)

	got, err := a.GetErrorMetrics(context.Background(), EnvProd, "1h", false)
	require.NoError(t, err, "partial failure must not fail the endpoint")

	assert.EqualValues(t, 5, got.Total)
	assert.NotNil(t, got.Timeline)
	assert.Empty(t, got.Timeline)
	assert.NotNil(t, got.Recent)
	assert.Empty(t, got.Recent)
}

func TestErrorMetricsAllQueriesFailed(t *testing.T) {
	engine := &fakeLogEngine{failFor: []string{"_time:"}}
	a := newTestAggregator(t, engine.handler(), nil, nil, nil, nil)

	_, err := a.GetErrorMetrics(context.Background(), EnvProd, "24h", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllQueriesFailed)
}

func TestMissingBackendConfigIsFatal(t *testing.T) {
	a := newTestAggregator(t, nil, nil, nil, nil, nil)

	_, err := a.GetErrorMetrics(context.Background(), EnvProd, "24h", false)
	require.Error(t, err)
	var cfgErr *services.ConfigError
	assert.True(t, errors.As(err, &cfgErr), "want ConfigError, got %v", err)
}

func TestErrorMetricsCachedAndBypassed(t *testing.T) {
	engine := &fakeLogEngine{rowsFor: map[string][][]any{
		"stats by (service) count() as errors": {{"uvicorn", 1}},
	}}
	a := newTestAggregator(t, engine.handler(), nil, nil, nil, nil)
	ctx := context.Background()

	first, err := a.GetErrorMetrics(ctx, EnvProd, "24h", false)
	require.NoError(t, err)
	second, err := a.GetErrorMetrics(ctx, EnvProd, "24h", false)
	require.NoError(t, err)
	assert.Same(t, first, second, "second read should come from cache")

	third, err := a.GetErrorMetrics(ctx, EnvProd, "24h", true)
	require.NoError(t, err)
	assert.NotSame(t, first, third, "bypass must recompute")

	fourth, err := a.GetErrorMetrics(ctx, EnvProd, "24h", false)
	require.NoError(t, err)
	assert.Same(t, third, fourth, "bypass result replaces the cached entry")
}

func TestCacheSeparatesEnvironmentAndRange(t *testing.T) {
	engine := &fakeLogEngine{rowsFor: map[string][][]any{
		"stats by (service) count() as errors": {{"uvicorn", 1}},
	}}
	a := newTestAggregator(t, engine.handler(), nil, nil, nil, nil)
	ctx := context.Background()

	day, err := a.GetErrorMetrics(ctx, EnvProd, "24h", false)
	require.NoError(t, err)
	hour, err := a.GetErrorMetrics(ctx, EnvProd, "1h", false)
	require.NoError(t, err)
	assert.NotSame(t, day, hour, "distinct ranges must not share entries")
	assert.Equal(t, "24h", day.Range)
	assert.Equal(t, "1h", hour.Range)
}

func TestGetInfrastructureMetricsOverviewFold(t *testing.T) {
	engine := &fakeLogEngine{rowsFor: map[string][][]any{
		"stats by (service) count() as requests": {
			{"uvicorn", 5}, {"node", 3},
		},
		"stats by (service) count() as errors": {{"uvicorn", 2}},
		`path:"/api/"*`:                        {{12.5, 40.0, 100}},
	}}
	queues := jsonHandler(`[{"name":"jobs","activeMessageCount":4,"deadLetterMessageCount":1}]`)
	a := newTestAggregator(t, engine.handler(), queues, nil, nil, nil)

	got, err := a.GetInfrastructureMetrics(context.Background(), EnvProd, "24h", false)
	require.NoError(t, err)

	assert.Equal(t, []canonical.ServiceRecord{
		{Name: "Symmetry Backend", Count: 5},
		{Name: "Symmetry Frontend", Count: 3},
	}, got.RequestsByService)

	assert.Equal(t, "endpoint", got.Latency.Source)
	assert.Equal(t, 12.5, got.Latency.AvgMS)
	assert.Equal(t, 40.0, got.Latency.P95MS)
	assert.EqualValues(t, 100, got.Latency.Requests)

	require.Len(t, got.Queues, 1)
	assert.Equal(t, "jobs", got.Queues[0].Name)

	assert.EqualValues(t, 8, got.Overview.TotalRequests)
	assert.EqualValues(t, 2, got.Overview.TotalErrors)
	assert.Equal(t, 12.5, got.Overview.AvgLatencyMS)
	assert.EqualValues(t, 5, got.Overview.QueueBacklog)
}

func TestLatencyFallbackOnlyWhenPrimaryEmpty(t *testing.T) {
	queues := jsonHandler(`[]`)

	// Primary empty: the fallback answer is used.
	engine := &fakeLogEngine{rowsFor: map[string][][]any{
		"http.request | stats avg": {{20.0, 55.0, 400}},
	}}
	a := newTestAggregator(t, engine.handler(), queues, nil, nil, nil)
	got, err := a.GetInfrastructureMetrics(context.Background(), EnvProd, "24h", false)
	require.NoError(t, err)
	assert.Equal(t, "general", got.Latency.Source)
	assert.Equal(t, 20.0, got.Latency.AvgMS)

	// Non-empty all-zero primary still wins over the fallback.
	engine = &fakeLogEngine{rowsFor: map[string][][]any{
		`path:"/api/"*`:            {{0, 0, 0}},
		"http.request | stats avg": {{20.0, 55.0, 400}},
	}}
	a = newTestAggregator(t, engine.handler(), queues, nil, nil, nil)
	got, err = a.GetInfrastructureMetrics(context.Background(), EnvProd, "1h", false)
	require.NoError(t, err)
	assert.Equal(t, "endpoint", got.Latency.Source)
	assert.Equal(t, 0.0, got.Latency.AvgMS)

	// Both empty: no latency, marked as such.
	engine = &fakeLogEngine{}
	a = newTestAggregator(t, engine.handler(), queues, nil, nil, nil)
	got, err = a.GetInfrastructureMetrics(context.Background(), EnvProd, "6h", false)
	require.NoError(t, err)
	assert.Equal(t, "none", got.Latency.Source)
}

func TestInfrastructureResourceSeries(t *testing.T) {
	engine := &fakeLogEngine{}
	queues := jsonHandler(`[]`)
	metrics := jsonHandler(`{
		"value": [{
			"name": {"value": "CpuPercentage"},
			"timeseries": [{"data": [
				{"timeStamp": "2026-08-24T10:00:00Z", "average": 41.5},
				{"timeStamp": "2026-08-24T10:05:00Z", "average": 44.0, "total": 88.0}
			]}]
		}]
	}`)
	a := newTestAggregator(t, engine.handler(), queues, nil, metrics, []string{"app-plan-prod"})

	got, err := a.GetInfrastructureMetrics(context.Background(), EnvProd, "1h", false)
	require.NoError(t, err)

	require.Len(t, got.Resources, 1)
	assert.Equal(t, "app-plan-prod", got.Resources[0].Resource)
	points := got.Resources[0].Series["CpuPercentage"]
	require.Len(t, points, 2)
	assert.Equal(t, 41.5, points[0].Average)
	assert.Equal(t, 88.0, points[1].Total)
}

func TestGetLLMMetricsComputesCost(t *testing.T) {
	engine := &fakeLogEngine{rowsFor: map[string][][]any{
		"stats by (model)": {
			{"unlisted-model", 1, 1000000, 1000000},
			{"gpt-4o", 10, 1000000, 500000},
		},
		"stats by (_time:1d, model)": {
			{"2026-08-20", "gpt-4o", 1000000, 0},
			{"2026-08-20", "gpt-4o-mini", 1000000, 0},
			{"2026-08-21", "gpt-4o", 2000000, 0},
		},
	}}
	a := newTestAggregator(t, engine.handler(), nil, nil, nil, nil)

	got, err := a.GetLLMMetrics(context.Background(), EnvProd, "7d", false)
	require.NoError(t, err)

	require.Len(t, got.Models, 2)
	// gpt-4o: 1M input at 2.50 plus 0.5M output at 10.00.
	assert.Equal(t, "gpt-4o", got.Models[0].Model)
	assert.InDelta(t, 7.50, got.Models[0].CostUSD, 1e-9)
	// Unlisted models price at the default rate.
	assert.Equal(t, "unlisted-model", got.Models[1].Model)
	assert.InDelta(t, 4.00, got.Models[1].CostUSD, 1e-9)

	assert.EqualValues(t, 3500000, got.TotalTokens)
	assert.InDelta(t, 11.50, got.TotalCostUSD, 1e-9)

	require.Len(t, got.DailyCosts, 2)
	assert.Equal(t, "2026-08-20", got.DailyCosts[0].Date)
	assert.InDelta(t, 2.65, got.DailyCosts[0].CostUSD, 1e-9)
	assert.Equal(t, "2026-08-21", got.DailyCosts[1].Date)
	assert.InDelta(t, 5.00, got.DailyCosts[1].CostUSD, 1e-9)
}

func TestGetDeploymentMetadata(t *testing.T) {
	apps := jsonHandler(`[
		{"name": "symmetry-backend", "state": "Running", "hostName": "backend.example.com",
		 "appSettings": {"IMAGE_TAG": "v1.2.3", "RELEASE": "ignored"}},
		{"name": "ai-features-api", "state": "Stopped",
		 "appSettings": {"RELEASE": "r42"}}
	]`)
	a := newTestAggregator(t, nil, nil, apps, nil, nil)

	got, err := a.GetDeploymentMetadata(context.Background(), EnvProd, "24h", false)
	require.NoError(t, err)

	require.Len(t, got.Apps, 2)
	// Sorted by canonical name.
	assert.Equal(t, "AI Features API", got.Apps[0].Name)
	assert.Equal(t, "ai-features-api", got.Apps[0].RawName)
	assert.Equal(t, "r42", got.Apps[0].ImageTag)
	assert.Equal(t, "Symmetry Backend", got.Apps[1].Name)
	assert.Equal(t, "v1.2.3", got.Apps[1].ImageTag, "IMAGE_TAG outranks RELEASE")
	assert.Equal(t, "backend.example.com", got.Apps[1].HostName)

	assert.Equal(t, 1, got.Running)
	assert.Equal(t, 1, got.Stopped)
}

func TestDeploymentMetadataBackendFailure(t *testing.T) {
	apps := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	})
	a := newTestAggregator(t, nil, nil, apps, nil, nil)

	_, err := a.GetDeploymentMetadata(context.Background(), EnvProd, "24h", false)
	assert.ErrorIs(t, err, ErrAllQueriesFailed)
}

func TestInvalidEnvironmentNames(t *testing.T) {
	assert.True(t, IsValidEnvironment(EnvProd))
	assert.True(t, IsValidEnvironment(EnvTest))
	assert.False(t, IsValidEnvironment("staging"))
	assert.False(t, IsValidEnvironment(""))
	assert.False(t, IsValidEnvironment("PROD"))
}
