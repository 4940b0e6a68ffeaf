package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/symmetryops/pulse-core/internal/config"
	"github.com/symmetryops/pulse-core/pkg/logger"
)

type HealthHandler struct {
	cfg       *config.Config
	logger    logger.Logger
	startedAt time.Time
}

func NewHealthHandler(cfg *config.Config, logger logger.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, logger: logger, startedAt: time.Now()}
}

// GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "pulse-core",
		"uptime":  time.Since(h.startedAt).String(),
	})
}

// GET /ready - ready once every target environment has at least one backend
// configured; the aggregator degrades per query beyond that.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	environments := make(map[string]gin.H, len(h.cfg.Backends.Environments))
	for name, env := range h.cfg.Backends.Environments {
		environments[name] = gin.H{
			"postgres":      env.Postgres.DSN != "",
			"log_engine":    len(env.LogEngine.Endpoints) > 0,
			"metrics_api":   env.MetricsAPI.BaseURL != "",
			"queue_admin":   env.QueueAdmin.BaseURL != "",
			"app_resources": env.AppResources.BaseURL != "",
		}
	}

	if len(environments) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"error":  "no backend environments configured",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ready",
		"environments": environments,
	})
}
