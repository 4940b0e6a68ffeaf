package services

import (
	"github.com/symmetryops/pulse-core/internal/config"
	"github.com/symmetryops/pulse-core/pkg/logger"
)

// Backends bundles the five backend clients so the aggregator takes one
// dependency. Clients are process-wide singletons; the composition root
// builds this once.
type Backends struct {
	Postgres        *PostgresService
	Logs            *LogQueryService
	ResourceMetrics *ResourceMetricsService
	QueueAdmin      *QueueAdminService
	AppResources    *AppResourceService
}

func NewBackends(cfg config.BackendsConfig, log logger.Logger) *Backends {
	return &Backends{
		Postgres:        NewPostgresService(cfg, log),
		Logs:            NewLogQueryService(cfg, log),
		ResourceMetrics: NewResourceMetricsService(cfg, log),
		QueueAdmin:      NewQueueAdminService(cfg, log),
		AppResources:    NewAppResourceService(cfg, log),
	}
}

// Close releases pooled connections.
func (b *Backends) Close() {
	if b.Postgres != nil {
		b.Postgres.Close()
	}
}
