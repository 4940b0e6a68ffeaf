// Package aggregator is the metrics aggregation core. It resolves the
// requested time range, checks the per-endpoint cache, fans out the
// endpoint's fixed query set across the backends with per-query failure
// isolation, parses and canonicalizes the rows, and assembles the typed
// payload.
package aggregator

import (
	"errors"
	"sync"
	"time"

	"github.com/symmetryops/pulse-core/internal/config"
	"github.com/symmetryops/pulse-core/internal/models"
	"github.com/symmetryops/pulse-core/internal/monitoring"
	"github.com/symmetryops/pulse-core/internal/services"
	"github.com/symmetryops/pulse-core/pkg/cache"
	"github.com/symmetryops/pulse-core/pkg/logger"
)

// Target environments every request selects between.
const (
	EnvProd = "prod"
	EnvTest = "test"
)

// Per-endpoint cache TTLs, inversely proportional to data volatility.
const (
	ErrorsTTL         = 1 * time.Minute
	DatabaseTTL       = 2 * time.Minute
	DeploymentsTTL    = 2 * time.Minute
	InfrastructureTTL = 5 * time.Minute
	LLMTTL            = 5 * time.Minute
)

// ErrAllQueriesFailed means every sub-query in a batch failed, which points
// at the transport itself rather than any single query.
var ErrAllQueriesFailed = errors.New("all backend queries failed")

// IsValidEnvironment reports whether env names a known target environment.
func IsValidEnvironment(env string) bool {
	return env == EnvProd || env == EnvTest
}

// Aggregator owns the backend clients and the five typed endpoint caches.
// Safe for concurrent use.
type Aggregator struct {
	backends     *services.Backends
	cfg          config.BackendsConfig
	queryTimeout time.Duration
	logger       logger.Logger

	infraCache  cache.Store[*models.InfrastructureMetrics]
	dbCache     cache.Store[*models.DatabaseMetrics]
	llmCache    cache.Store[*models.LLMMetrics]
	errorCache  cache.Store[*models.ErrorMetrics]
	deployCache cache.Store[*models.DeploymentMetadata]
}

func New(backends *services.Backends, cfg config.Config, log logger.Logger) *Aggregator {
	timeout := time.Duration(cfg.Backends.QueryTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	a := &Aggregator{
		backends:     backends,
		cfg:          cfg.Backends,
		queryTimeout: timeout,
		logger:       log,
	}
	capacity := cfg.Cache.Capacity
	if cfg.Cache.Enabled {
		a.infraCache = cache.New[*models.InfrastructureMetrics](capacity, InfrastructureTTL)
		a.dbCache = cache.New[*models.DatabaseMetrics](capacity, DatabaseTTL)
		a.llmCache = cache.New[*models.LLMMetrics](capacity, LLMTTL)
		a.errorCache = cache.New[*models.ErrorMetrics](capacity, ErrorsTTL)
		a.deployCache = cache.New[*models.DeploymentMetadata](capacity, DeploymentsTTL)
	} else {
		a.infraCache = cache.NewNoop[*models.InfrastructureMetrics]()
		a.dbCache = cache.NewNoop[*models.DatabaseMetrics]()
		a.llmCache = cache.NewNoop[*models.LLMMetrics]()
		a.errorCache = cache.NewNoop[*models.ErrorMetrics]()
		a.deployCache = cache.NewNoop[*models.DeploymentMetadata]()
	}
	return a
}

func recordLookup(endpoint string, hit, bypass bool) {
	switch {
	case bypass:
		monitoring.RecordCacheOperation(endpoint, "bypass")
	case hit:
		monitoring.RecordCacheOperation(endpoint, "hit")
	default:
		monitoring.RecordCacheOperation(endpoint, "miss")
	}
}

// batch tracks sub-query failures across one fan-out so the merge step can
// tell degraded-partial apart from total failure, and so a configuration
// error can abort the endpoint.
type batch struct {
	endpoint string
	logger   logger.Logger

	mu        sync.Mutex
	total     int
	failed    int
	configErr error
}

func newBatch(endpoint string, log logger.Logger) *batch {
	return &batch{endpoint: endpoint, logger: log}
}

// ran marks one sub-query as issued.
func (b *batch) ran() {
	b.mu.Lock()
	b.total++
	b.mu.Unlock()
}

// degrade records a sub-query failure. The query's result stays empty and
// the batch continues.
func (b *batch) degrade(query string, err error) {
	b.mu.Lock()
	b.failed++
	var cfgErr *services.ConfigError
	if errors.As(err, &cfgErr) && b.configErr == nil {
		b.configErr = cfgErr
	}
	b.mu.Unlock()

	b.logger.Warn("backend query degraded to empty result",
		"endpoint", b.endpoint,
		"query", query,
		"error", err,
	)
}

// err returns the batch-level error, if any: a configuration error is fatal
// for the endpoint, and a batch where everything failed surfaces as
// ErrAllQueriesFailed.
func (b *batch) err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.configErr != nil {
		return b.configErr
	}
	if b.total > 0 && b.failed == b.total {
		return ErrAllQueriesFailed
	}
	return nil
}
