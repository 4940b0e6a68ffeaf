// Package models defines the typed payload shapes the five metrics endpoints
// return. Every payload carries its generation timestamp and echoes the
// environment and range it was computed for, so the dashboard can tell how
// stale a cached response is.
package models

import (
	"time"

	"github.com/symmetryops/pulse-core/internal/canonical"
)

// HealthStatus buckets for composite health scores.
const (
	StatusHealthy  = "healthy"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// HealthScore is a bounded composite score with its categorical status.
type HealthScore struct {
	Score  int    `json:"score"`
	Status string `json:"status"`
}

// Overview is the summary block on the dashboard landing page. It is folded
// from the already-parsed per-service records, never queried separately.
type Overview struct {
	TotalRequests int64   `json:"totalRequests"`
	TotalErrors   int64   `json:"totalErrors"`
	AvgLatencyMS  float64 `json:"avgLatencyMs"`
	QueueBacklog  int64   `json:"queueBacklog"`
}

// LatencySummary comes from the latency query pair (endpoint-specific
// primary, general-traffic fallback).
type LatencySummary struct {
	AvgMS    float64 `json:"avgMs"`
	P95MS    float64 `json:"p95Ms"`
	Requests int64   `json:"requests"`
	// Source records which of the query pair produced the numbers:
	// "endpoint" or "general".
	Source string `json:"source"`
}

// MetricPoint is one bucket of a resource time series.
type MetricPoint struct {
	Time    time.Time `json:"time"`
	Total   float64   `json:"total"`
	Average float64   `json:"average"`
}

// ResourceUsage is one cloud resource's CPU/memory series.
type ResourceUsage struct {
	Resource string                   `json:"resource"`
	Series   map[string][]MetricPoint `json:"series"`
}

// QueueDepth reports one queue's backlog.
type QueueDepth struct {
	Name            string `json:"name"`
	ActiveCount     int64  `json:"activeCount"`
	DeadLetterCount int64  `json:"deadLetterCount"`
}

// InfrastructureMetrics is the overview endpoint payload.
type InfrastructureMetrics struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Environment string    `json:"environment"`
	Range       string    `json:"range"`

	Overview          Overview                  `json:"overview"`
	RequestsByService []canonical.ServiceRecord `json:"requestsByService"`
	Latency           LatencySummary            `json:"latency"`
	Resources         []ResourceUsage           `json:"resources"`
	Queues            []QueueDepth              `json:"queues"`
}

// LongRunningQuery is one row from the slow-query inspection.
type LongRunningQuery struct {
	PID      int     `json:"pid"`
	Duration float64 `json:"durationSeconds"`
	State    string  `json:"state"`
	Query    string  `json:"query"`
}

// DatabaseMetrics is the database endpoint payload.
type DatabaseMetrics struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Environment string    `json:"environment"`
	Range       string    `json:"range"`

	CacheHitRatio  float64            `json:"cacheHitRatio"`
	Commits        int64              `json:"commits"`
	Rollbacks      int64              `json:"rollbacks"`
	SizeBytes      int64              `json:"sizeBytes"`
	ActiveQueries  int                `json:"activeQueries"`
	IdleInTxn      int                `json:"idleInTransaction"`
	WaitingQueries int                `json:"waitingQueries"`
	Connections    int                `json:"connections"`
	MaxConnections int                `json:"maxConnections"`
	LongRunning    []LongRunningQuery `json:"longRunning"`
	Health         HealthScore        `json:"health"`
}

// ModelUsage aggregates LLM traffic for one model.
type ModelUsage struct {
	Model        string  `json:"model"`
	Requests     int64   `json:"requests"`
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
	CostUSD      float64 `json:"costUsd"`
}

// DailyCost is one point on the LLM spend timeline.
type DailyCost struct {
	Date    string  `json:"date"`
	CostUSD float64 `json:"costUsd"`
}

// LLMMetrics is the LLM usage/cost endpoint payload.
type LLMMetrics struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Environment string    `json:"environment"`
	Range       string    `json:"range"`

	Models       []ModelUsage `json:"models"`
	TotalTokens  int64        `json:"totalTokens"`
	TotalCostUSD float64      `json:"totalCostUsd"`
	DailyCosts   []DailyCost  `json:"dailyCosts"`
}

// TimelinePoint is one bucket of the error-rate timeline.
type TimelinePoint struct {
	Time  time.Time `json:"time"`
	Count int64     `json:"count"`
}

// ErrorSample is one recent error occurrence.
type ErrorSample struct {
	Time    time.Time `json:"time"`
	Service string    `json:"service"`
	Message string    `json:"message"`
}

// ErrorMetrics is the error endpoint payload.
type ErrorMetrics struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Environment string    `json:"environment"`
	Range       string    `json:"range"`

	Total     int64                     `json:"total"`
	ByService []canonical.ServiceRecord `json:"byService"`
	Timeline  []TimelinePoint           `json:"timeline"`
	Recent    []ErrorSample             `json:"recent"`
}

// DeploymentRecord is one deployed app with its canonical display name.
type DeploymentRecord struct {
	Name     string `json:"name"`
	RawName  string `json:"rawName"`
	State    string `json:"state"`
	HostName string `json:"hostName"`
	ImageTag string `json:"imageTag,omitempty"`
}

// DeploymentMetadata is the deployment endpoint payload.
type DeploymentMetadata struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Environment string    `json:"environment"`
	Range       string    `json:"range"`

	Apps    []DeploymentRecord `json:"apps"`
	Running int                `json:"running"`
	Stopped int                `json:"stopped"`
}
