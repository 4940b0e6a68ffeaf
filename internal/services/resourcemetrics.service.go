package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/symmetryops/pulse-core/internal/config"
	"github.com/symmetryops/pulse-core/internal/monitoring"
	"github.com/symmetryops/pulse-core/internal/timerange"
	"github.com/symmetryops/pulse-core/pkg/logger"
)

// MetricPoint is one bucket of a resource time series as returned by the
// metrics API.
type MetricPoint struct {
	Time    time.Time `json:"time"`
	Total   float64   `json:"total"`
	Average float64   `json:"average"`
}

// ResourceMetricsService fetches per-resource time series (CPU, memory) from
// the cloud metrics API using the range's granularity and absolute bounds.
type ResourceMetricsService struct {
	cfg     config.BackendsConfig
	timeout time.Duration
	client  *http.Client
	logger  logger.Logger
}

func NewResourceMetricsService(cfg config.BackendsConfig, logger logger.Logger) *ResourceMetricsService {
	timeout := time.Duration(cfg.QueryTimeout) * time.Millisecond
	return &ResourceMetricsService{
		cfg:     cfg,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// metricsAPIResponse mirrors the metrics API wire shape: one value entry per
// requested metric, each with bucketed data points.
type metricsAPIResponse struct {
	Value []struct {
		Name struct {
			Value string `json:"value"`
		} `json:"name"`
		Timeseries []struct {
			Data []struct {
				TimeStamp time.Time `json:"timeStamp"`
				Total     *float64  `json:"total"`
				Average   *float64  `json:"average"`
			} `json:"data"`
		} `json:"timeseries"`
	} `json:"value"`
}

// FetchSeries returns the named series for one resource over the range.
func (s *ResourceMetricsService) FetchSeries(ctx context.Context, environment, resourceID string, metricNames []string, tr timerange.TimeRange) (map[string][]MetricPoint, error) {
	envCfg, ok := s.cfg.Environments[environment]
	if !ok || envCfg.MetricsAPI.BaseURL == "" {
		return nil, &ConfigError{Backend: "metrics API", Environment: environment, Setting: "metrics_api.base_url"}
	}

	start := time.Now()
	params := url.Values{}
	params.Set("metricnames", strings.Join(metricNames, ","))
	params.Set("interval", tr.Granularity)
	params.Set("timespan", fmt.Sprintf("%s/%s", tr.Start.Format(time.RFC3339), tr.End.Format(time.RFC3339)))
	params.Set("aggregation", "Total,Average")

	reqURL := fmt.Sprintf("%s/resources/%s/metrics?%s",
		strings.TrimRight(envCfg.MetricsAPI.BaseURL, "/"), url.PathEscape(resourceID), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("metrics API request build failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if envCfg.MetricsAPI.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+envCfg.MetricsAPI.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		monitoring.RecordBackendQuery("metrics_api", environment, time.Since(start), false)
		return nil, fmt.Errorf("metrics API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		monitoring.RecordBackendQuery("metrics_api", environment, time.Since(start), false)
		return nil, fmt.Errorf("metrics API returned status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}

	var decoded metricsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		monitoring.RecordBackendQuery("metrics_api", environment, time.Since(start), false)
		return nil, fmt.Errorf("failed to parse metrics API response: %w", err)
	}

	series := make(map[string][]MetricPoint, len(decoded.Value))
	for _, metric := range decoded.Value {
		var points []MetricPoint
		for _, ts := range metric.Timeseries {
			for _, d := range ts.Data {
				p := MetricPoint{Time: d.TimeStamp}
				if d.Total != nil {
					p.Total = *d.Total
				}
				if d.Average != nil {
					p.Average = *d.Average
				}
				points = append(points, p)
			}
		}
		series[metric.Name.Value] = points
	}

	monitoring.RecordBackendQuery("metrics_api", environment, time.Since(start), true)
	s.logger.Debug("resource metrics fetched",
		"environment", environment,
		"resource", resourceID,
		"metrics", len(series),
		"granularity", tr.Granularity,
		"took", time.Since(start),
	)
	return series, nil
}
