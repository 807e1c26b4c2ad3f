package config

import (
	"time"

	redisclient "github.com/vietddude/dbexec/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Logging   LoggingConfig      `yaml:"logging"`
	Retry     RetryConfig        `yaml:"retry"`
	Redis     redisclient.Config `yaml:"redis"`
	Audit     AuditConfig        `yaml:"audit"`
	Resources []ResourceConfig   `yaml:"resources"`
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

// RetryConfig holds the retry policy applied to every execution.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	DelayCap     time.Duration `yaml:"delay_cap"`
	JitterMax    time.Duration `yaml:"jitter_max"`
}

// AuditConfig holds settings for the outcome audit trail.
// An empty URL disables auditing.
type AuditConfig struct {
	URL string `yaml:"url"`
}

// ResourceConfig holds the raw connection parameters for one logical
// resource. Zero fields are enriched with defaults at resolution time.
type ResourceConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`

	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	OperationTimeout time.Duration `yaml:"operation_timeout"`

	MinConns int `yaml:"min_conns"`
	MaxConns int `yaml:"max_conns"`

	IdleLifetime  time.Duration `yaml:"idle_lifetime"`
	PruneInterval time.Duration `yaml:"prune_interval"`

	KeepaliveInterval      time.Duration `yaml:"keepalive_interval"`
	KeepaliveProbeInterval time.Duration `yaml:"keepalive_probe_interval"`

	StatementCacheMax     int `yaml:"statement_cache_max"`
	StatementCacheMinUses int `yaml:"statement_cache_min_uses"`

	LoadBalance bool `yaml:"load_balance"`
}

// Resource looks up the raw parameters for a logical name.
func (c *AppConfig) Resource(name string) (ResourceConfig, bool) {
	for _, r := range c.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return ResourceConfig{}, false
}
