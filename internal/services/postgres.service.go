package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/symmetryops/pulse-core/internal/config"
	"github.com/symmetryops/pulse-core/internal/monitoring"
	"github.com/symmetryops/pulse-core/pkg/logger"
)

const (
	defaultPoolMaxConns    = 5
	defaultPoolIdleTimeout = 5 * time.Minute
)

// PostgresService runs read-only SQL against the relational backend. Pools
// are per-environment singletons created lazily on first use and kept for
// the process lifetime.
type PostgresService struct {
	cfg    config.BackendsConfig
	logger logger.Logger

	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

func NewPostgresService(cfg config.BackendsConfig, logger logger.Logger) *PostgresService {
	return &PostgresService{
		cfg:    cfg,
		logger: logger,
		pools:  make(map[string]*pgxpool.Pool),
	}
}

// Query executes sql with args and returns field-named rows.
func (s *PostgresService) Query(ctx context.Context, environment, sql string, args ...any) ([]map[string]any, error) {
	pool, err := s.pool(ctx, environment)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		monitoring.RecordBackendQuery("postgres", environment, time.Since(start), false)
		return nil, fmt.Errorf("postgres query failed: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		monitoring.RecordBackendQuery("postgres", environment, time.Since(start), false)
		return nil, fmt.Errorf("postgres row collection failed: %w", err)
	}

	monitoring.RecordBackendQuery("postgres", environment, time.Since(start), true)
	s.logger.Debug("postgres query executed",
		"environment", environment,
		"rows", len(out),
		"took", time.Since(start),
	)
	return out, nil
}

func (s *PostgresService) pool(ctx context.Context, environment string) (*pgxpool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pool, ok := s.pools[environment]; ok {
		return pool, nil
	}

	envCfg, ok := s.cfg.Environments[environment]
	if !ok || envCfg.Postgres.DSN == "" {
		return nil, &ConfigError{Backend: "postgres", Environment: environment, Setting: "postgres.dsn"}
	}

	poolCfg, err := pgxpool.ParseConfig(envCfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres DSN for %s: %w", environment, err)
	}
	maxConns := envCfg.Postgres.MaxConns
	if maxConns <= 0 {
		maxConns = defaultPoolMaxConns
	}
	poolCfg.MaxConns = int32(maxConns)
	idle := time.Duration(envCfg.Postgres.IdleTimeout) * time.Second
	if idle <= 0 {
		idle = defaultPoolIdleTimeout
	}
	poolCfg.MaxConnIdleTime = idle

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres pool for %s: %w", environment, err)
	}

	s.logger.Info("postgres pool created", "environment", environment, "maxConns", maxConns)
	s.pools[environment] = pool
	return pool, nil
}

// Close releases every pool. Called on shutdown.
func (s *PostgresService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for env, pool := range s.pools {
		pool.Close()
		delete(s.pools, env)
	}
}
