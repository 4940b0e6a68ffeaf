package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/symmetryops/pulse-core/internal/aggregator"
	"github.com/symmetryops/pulse-core/internal/services"
	"github.com/symmetryops/pulse-core/pkg/logger"
)

// MetricsHandler serves the five dashboard metrics endpoints. Each is
// idempotent and side-effect-free aside from cache writes.
type MetricsHandler struct {
	agg    *aggregator.Aggregator
	logger logger.Logger
}

func NewMetricsHandler(agg *aggregator.Aggregator, logger logger.Logger) *MetricsHandler {
	return &MetricsHandler{agg: agg, logger: logger}
}

// requestParams pulls the common query parameters. ok is false when env is
// not a known environment (the 400 has already been written).
func requestParams(c *gin.Context) (env, rng string, bypass, ok bool) {
	env = c.DefaultQuery("env", aggregator.EnvProd)
	if !aggregator.IsValidEnvironment(env) {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "unknown environment, want prod or test",
		})
		return "", "", false, false
	}
	rng = c.DefaultQuery("range", "24h")
	bypass, _ = strconv.ParseBool(c.Query("refresh"))
	return env, rng, bypass, true
}

// writeError maps the aggregator error taxonomy onto status codes. Only
// configuration errors and total batch failures get here; partial payloads
// are a normal 200.
func (h *MetricsHandler) writeError(c *gin.Context, endpoint string, err error) {
	var cfgErr *services.ConfigError
	if errors.As(err, &cfgErr) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"kind":   cfgErr.Kind(),
			"error":  cfgErr.Error(),
		})
		return
	}
	if errors.Is(err, aggregator.ErrAllQueriesFailed) {
		c.JSON(http.StatusBadGateway, gin.H{
			"status": "error",
			"kind":   "backend_unreachable",
			"error":  err.Error(),
		})
		return
	}
	h.logger.Error("metrics endpoint failed", "endpoint", endpoint, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"status": "error",
		"error":  "metrics aggregation failed",
	})
}

// markCache sets X-Cache from the payload generation time: anything
// generated before this request started came from the cache.
func markCache(c *gin.Context, start time.Time, generatedAt time.Time) {
	if generatedAt.Before(start) {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
}

// GET /api/v1/metrics/infrastructure
func (h *MetricsHandler) GetInfrastructureMetrics(c *gin.Context) {
	env, rng, bypass, ok := requestParams(c)
	if !ok {
		return
	}
	start := time.Now()
	payload, err := h.agg.GetInfrastructureMetrics(c.Request.Context(), env, rng, bypass)
	if err != nil {
		h.writeError(c, "infrastructure", err)
		return
	}
	markCache(c, start, payload.GeneratedAt)
	c.JSON(http.StatusOK, payload)
}

// GET /api/v1/metrics/database
func (h *MetricsHandler) GetDatabaseMetrics(c *gin.Context) {
	env, rng, bypass, ok := requestParams(c)
	if !ok {
		return
	}
	start := time.Now()
	payload, err := h.agg.GetDatabaseMetrics(c.Request.Context(), env, rng, bypass)
	if err != nil {
		h.writeError(c, "database", err)
		return
	}
	markCache(c, start, payload.GeneratedAt)
	c.JSON(http.StatusOK, payload)
}

// GET /api/v1/metrics/llm
func (h *MetricsHandler) GetLLMMetrics(c *gin.Context) {
	env, rng, bypass, ok := requestParams(c)
	if !ok {
		return
	}
	start := time.Now()
	payload, err := h.agg.GetLLMMetrics(c.Request.Context(), env, rng, bypass)
	if err != nil {
		h.writeError(c, "llm", err)
		return
	}
	markCache(c, start, payload.GeneratedAt)
	c.JSON(http.StatusOK, payload)
}

// GET /api/v1/metrics/errors
func (h *MetricsHandler) GetErrorMetrics(c *gin.Context) {
	env, rng, bypass, ok := requestParams(c)
	if !ok {
		return
	}
	start := time.Now()
	payload, err := h.agg.GetErrorMetrics(c.Request.Context(), env, rng, bypass)
	if err != nil {
		h.writeError(c, "errors", err)
		return
	}
	markCache(c, start, payload.GeneratedAt)
	c.JSON(http.StatusOK, payload)
}

// GET /api/v1/metrics/deployments
func (h *MetricsHandler) GetDeploymentMetadata(c *gin.Context) {
	env, rng, bypass, ok := requestParams(c)
	if !ok {
		return
	}
	start := time.Now()
	payload, err := h.agg.GetDeploymentMetadata(c.Request.Context(), env, rng, bypass)
	if err != nil {
		h.writeError(c, "deployments", err)
		return
	}
	markCache(c, start, payload.GeneratedAt)
	c.JSON(http.StatusOK, payload)
}
