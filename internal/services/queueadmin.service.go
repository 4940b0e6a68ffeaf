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

// QueueInfo is one queue's backlog as reported by the admin API.
type QueueInfo struct {
	Name            string `json:"name"`
	ActiveCount     int64  `json:"activeMessageCount"`
	DeadLetterCount int64  `json:"deadLetterMessageCount"`
}

// QueueAdminService lists queues and their depths from the message-queue
// administration API.
type QueueAdminService struct {
	cfg     config.BackendsConfig
	timeout time.Duration
	client  *http.Client
	logger  logger.Logger
}

func NewQueueAdminService(cfg config.BackendsConfig, logger logger.Logger) *QueueAdminService {
	timeout := time.Duration(cfg.QueryTimeout) * time.Millisecond
	return &QueueAdminService{
		cfg:     cfg,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ListQueues returns every queue in the environment's namespace.
func (s *QueueAdminService) ListQueues(ctx context.Context, environment string) ([]QueueInfo, error) {
	envCfg, ok := s.cfg.Environments[environment]
	if !ok || envCfg.QueueAdmin.BaseURL == "" {
		return nil, &ConfigError{Backend: "queue admin", Environment: environment, Setting: "queue_admin.base_url"}
	}

	start := time.Now()
	reqURL := strings.TrimRight(envCfg.QueueAdmin.BaseURL, "/") + "/queues"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("queue admin request build failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if envCfg.QueueAdmin.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+envCfg.QueueAdmin.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		monitoring.RecordBackendQuery("queue_admin", environment, time.Since(start), false)
		return nil, fmt.Errorf("queue admin request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		monitoring.RecordBackendQuery("queue_admin", environment, time.Since(start), false)
		return nil, fmt.Errorf("queue admin returned status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}

	var queues []QueueInfo
	if err := json.NewDecoder(resp.Body).Decode(&queues); err != nil {
		monitoring.RecordBackendQuery("queue_admin", environment, time.Since(start), false)
		return nil, fmt.Errorf("failed to parse queue admin response: %w", err)
	}

	monitoring.RecordBackendQuery("queue_admin", environment, time.Since(start), true)
	s.logger.Debug("queues listed", "environment", environment, "count", len(queues), "took", time.Since(start))
	return queues, nil
}
