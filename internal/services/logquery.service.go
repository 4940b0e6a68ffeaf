package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/symmetryops/pulse-core/internal/config"
	"github.com/symmetryops/pulse-core/internal/monitoring"
	"github.com/symmetryops/pulse-core/pkg/logger"
)

// LogQueryService queries the log/trace engine. Rows come back positional
// ([][]string); the column order is owned by the query text and declared by
// the parser consuming it.
type LogQueryService struct {
	cfg     config.BackendsConfig
	timeout time.Duration
	client  *http.Client
	logger  logger.Logger

	mu      sync.Mutex
	cursors map[string]int // round-robin cursor per environment
}

func NewLogQueryService(cfg config.BackendsConfig, logger logger.Logger) *LogQueryService {
	timeout := time.Duration(cfg.QueryTimeout) * time.Millisecond
	return &LogQueryService{
		cfg:     cfg,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		cursors: make(map[string]int),
	}
}

// logQueryResponse rows are heterogeneous: identifier cells are strings,
// aggregate cells are numbers. Decoding with UseNumber keeps numeric cells
// lossless before they are stringified for the positional row contract.
type logQueryResponse struct {
	Rows [][]any `json:"rows"`
}

// Query executes a log query against the engine for one environment. The
// query text already carries its relative time filter.
func (s *LogQueryService) Query(ctx context.Context, environment, queryText string, limit int) ([][]string, error) {
	envCfg, ok := s.cfg.Environments[environment]
	if !ok || len(envCfg.LogEngine.Endpoints) == 0 {
		return nil, &ConfigError{Backend: "log engine", Environment: environment, Setting: "log_engine.endpoints"}
	}

	start := time.Now()
	endpoint := s.selectEndpoint(environment, envCfg.LogEngine.Endpoints)

	params := url.Values{}
	params.Set("query", queryText)
	params.Set("format", "json")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	reqURL := fmt.Sprintf("%s/select/query?%s", endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("log engine request build failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if envCfg.LogEngine.Username != "" {
		req.SetBasicAuth(envCfg.LogEngine.Username, envCfg.LogEngine.Password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		monitoring.RecordBackendQuery("log_engine", environment, time.Since(start), false)
		return nil, fmt.Errorf("log engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		monitoring.RecordBackendQuery("log_engine", environment, time.Since(start), false)
		return nil, fmt.Errorf("log engine returned status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}

	var decoded logQueryResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		monitoring.RecordBackendQuery("log_engine", environment, time.Since(start), false)
		return nil, fmt.Errorf("failed to parse log engine response: %w", err)
	}

	rows := make([][]string, 0, len(decoded.Rows))
	for _, raw := range decoded.Rows {
		row := make([]string, len(raw))
		for i, cell := range raw {
			switch v := cell.(type) {
			case string:
				row[i] = v
			case json.Number:
				row[i] = v.String()
			case nil:
				row[i] = ""
			default:
				row[i] = fmt.Sprint(v)
			}
		}
		rows = append(rows, row)
	}

	monitoring.RecordBackendQuery("log_engine", environment, time.Since(start), true)
	s.logger.Debug("log query executed",
		"environment", environment,
		"endpoint", endpoint,
		"rows", len(rows),
		"took", time.Since(start),
	)
	return rows, nil
}

func (s *LogQueryService) selectEndpoint(environment string, endpoints []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	cursor := s.cursors[environment]
	endpoint := endpoints[cursor%len(endpoints)]
	s.cursors[environment] = cursor + 1
	return endpoint
}

// readBodySnippet returns a short prefix of a response body for error
// messages.
func readBodySnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(b)
}
