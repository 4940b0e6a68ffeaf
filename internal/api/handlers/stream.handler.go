package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/symmetryops/pulse-core/internal/aggregator"
	"github.com/symmetryops/pulse-core/internal/config"
	"github.com/symmetryops/pulse-core/pkg/logger"
)

// StreamHandler pushes the infrastructure overview to dashboard clients on
// a fixed interval. The stream always reads through the cache and never
// bypasses it.
type StreamHandler struct {
	upgrader websocket.Upgrader
	agg      *aggregator.Aggregator
	interval time.Duration
	logger   logger.Logger
}

func NewStreamHandler(agg *aggregator.Aggregator, wsCfg config.WebSocketConfig, logger logger.Logger) *StreamHandler {
	interval := time.Duration(wsCfg.PushInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &StreamHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsCfg.ReadBufferSize,
			WriteBufferSize: wsCfg.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		agg:      agg,
		interval: interval,
		logger:   logger,
	}
}

// GET /api/v1/ws/overview
func (h *StreamHandler) HandleOverviewStream(c *gin.Context) {
	env := c.DefaultQuery("env", aggregator.EnvProd)
	if !aggregator.IsValidEnvironment(env) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "unknown environment"})
		return
	}
	rng := c.DefaultQuery("range", "1h")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.logger.Info("overview stream connected", "environment", env, "range", rng)

	// Drain client frames so pings/closes are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			metrics, err := h.agg.GetInfrastructureMetrics(c.Request.Context(), env, rng, false)
			if err != nil {
				h.logger.Warn("overview stream refresh failed", "environment", env, "error", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(map[string]any{
				"type":      "overview_update",
				"data":      metrics.Overview,
				"timestamp": time.Now().Format(time.RFC3339),
			}); err != nil {
				h.logger.Warn("overview stream write failed", "error", err)
				return
			}
		}
	}
}
