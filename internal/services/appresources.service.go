package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/symmetryops/pulse-core/internal/config"
	"github.com/symmetryops/pulse-core/internal/monitoring"
	"github.com/symmetryops/pulse-core/pkg/logger"
)

// AppResource is one deployed application as reported by the resource
// listing API.
type AppResource struct {
	Name        string            `json:"name"`
	State       string            `json:"state"`
	HostName    string            `json:"hostName"`
	AppSettings map[string]string `json:"appSettings"`
}

// AppResourceService lists deployed applications and their settings.
type AppResourceService struct {
	cfg     config.BackendsConfig
	timeout time.Duration
	client  *http.Client
	logger  logger.Logger
}

func NewAppResourceService(cfg config.BackendsConfig, logger logger.Logger) *AppResourceService {
	timeout := time.Duration(cfg.QueryTimeout) * time.Millisecond
	return &AppResourceService{
		cfg:     cfg,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ListApps returns every app resource in the environment.
func (s *AppResourceService) ListApps(ctx context.Context, environment string) ([]AppResource, error) {
	envCfg, ok := s.cfg.Environments[environment]
	if !ok || envCfg.AppResources.BaseURL == "" {
		return nil, &ConfigError{Backend: "app resources", Environment: environment, Setting: "app_resources.base_url"}
	}

	start := time.Now()
	reqURL := strings.TrimRight(envCfg.AppResources.BaseURL, "/") + "/sites"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("app resources request build failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if envCfg.AppResources.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+envCfg.AppResources.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		monitoring.RecordBackendQuery("app_resources", environment, time.Since(start), false)
		return nil, fmt.Errorf("app resources request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		monitoring.RecordBackendQuery("app_resources", environment, time.Since(start), false)
		return nil, fmt.Errorf("app resources returned status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}

	var apps []AppResource
	if err := json.NewDecoder(resp.Body).Decode(&apps); err != nil {
		monitoring.RecordBackendQuery("app_resources", environment, time.Since(start), false)
		return nil, fmt.Errorf("failed to parse app resources response: %w", err)
	}

	monitoring.RecordBackendQuery("app_resources", environment, time.Since(start), true)
	s.logger.Debug("app resources listed", "environment", environment, "count", len(apps), "took", time.Since(start))
	return apps, nil
}
