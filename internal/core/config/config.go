package config

import (
	"time"

	"github.com/vietddude/courier/internal/core/domain"
	"github.com/vietddude/courier/internal/health"
	"github.com/vietddude/courier/internal/resilience/breaker"
	"github.com/vietddude/courier/internal/resilience/deadletter"
	"github.com/vietddude/courier/internal/resilience/retry"
	"github.com/vietddude/courier/internal/transport"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Agent       AgentConfig                       `yaml:"agent"`
	Server      ServerConfig                      `yaml:"server"`
	Logging     LoggingConfig                     `yaml:"logging"`
	Retry       retry.Policy                      `yaml:"retry"`
	Breaker     breaker.Config                    `yaml:"breaker"`
	DeadLetter  DeadLetterConfig                  `yaml:"dead_letter"`
	Transports  []transport.Config                `yaml:"transports"`
	Preferences map[domain.OperationKind][]string `yaml:"preferences"`
	Health      HealthConfig                      `yaml:"health"`
}

// AgentConfig identifies this agent to the platform.
type AgentConfig struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Capabilities []string `yaml:"capabilities"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DeadLetterConfig holds dead-letter queue settings including the
// optional external backend.
type DeadLetterConfig struct {
	deadletter.Config `yaml:",inline"`

	// Backend selects the store: memory (default), redis, or postgres.
	Backend  string                    `yaml:"backend"`
	Redis    deadletter.RedisConfig    `yaml:"redis"`
	Postgres deadletter.PostgresConfig `yaml:"postgres"`
}

// HealthConfig holds health orchestration settings.
type HealthConfig struct {
	// Interval between periodic probe sweeps. 0 disables the loop; the
	// HTTP endpoint still triggers runs on demand.
	Interval time.Duration `yaml:"interval"`

	Probes ProbesConfig `yaml:"probes"`
}

// ProbesConfig declares the probe registrations.
type ProbesConfig struct {
	// API probes, one per monitored endpoint. Probe names should match
	// transport names so selection can consume their status.
	API []APIProbeConfig `yaml:"api"`

	Database DatabaseProbeConfig `yaml:"database"`
	Redis    RedisProbeConfig    `yaml:"redis"`
	Memory   MemoryProbeConfig   `yaml:"memory"`
}

// APIProbeConfig declares an HTTP reachability probe.
type APIProbeConfig struct {
	health.ProbeOpts `yaml:",inline"`

	URL string `yaml:"url"`
}

// DatabaseProbeConfig declares a Postgres reachability probe.
type DatabaseProbeConfig struct {
	health.ProbeOpts `yaml:",inline"`

	URL string `yaml:"url"`
}

// RedisProbeConfig declares a Redis reachability probe.
type RedisProbeConfig struct {
	health.ProbeOpts `yaml:",inline"`

	URL string `yaml:"url"`
}

// MemoryProbeConfig declares a memory pressure probe.
type MemoryProbeConfig struct {
	health.ProbeOpts `yaml:",inline"`

	Enabled           bool    `yaml:"enabled"`
	BudgetMB          uint64  `yaml:"budget_mb"`
	WarningThreshold  float64 `yaml:"warning_threshold"`
	CriticalThreshold float64 `yaml:"critical_threshold"`
}
