package services

import "fmt"

// Error kinds surfaced to the API layer. Only configuration problems and
// total batch failures ever reach a caller; individual query failures
// degrade inside the aggregator.
const (
	ErrKindConfig = "configuration"
)

// ConfigError means a backend cannot be reached at all because a required
// setting is absent for the requested environment. It is fatal for the
// endpoint call; no partial result is possible.
type ConfigError struct {
	Backend     string
	Environment string
	Setting     string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s backend not configured for environment %q: missing %s", e.Backend, e.Environment, e.Setting)
}

// Kind returns the machine-readable error kind.
func (e *ConfigError) Kind() string { return ErrKindConfig }
