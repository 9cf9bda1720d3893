// Package attrconfig loads the engine's configuration from an optional YAML
// file plus environment overrides, adapted from the service layer's
// pkg/config package.
package attrconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoggingConfig controls the attrlog.Logger constructed at startup.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// SQLConnectorConfig controls the shared SQL connector pool/DSN defaults; a
// given SQL connector plugin overrides Driver/DSN per-connector, but the
// pool sizing applies globally.
type SQLConnectorConfig struct {
	MaxOpenConns    int `yaml:"max_open_conns" env:"ATTR_SQL_MAX_OPEN_CONNS"`
	MaxIdleConns    int `yaml:"max_idle_conns" env:"ATTR_SQL_MAX_IDLE_CONNS"`
	ConnMaxLifeSecs int `yaml:"conn_max_life_seconds" env:"ATTR_SQL_CONN_MAX_LIFE_SECONDS"`
}

// ResilienceConfig controls the default circuit breaker/retry wrapping
// applied to SQL and HTTP+Script connectors (pkg/attrresilience).
type ResilienceConfig struct {
	MaxFailures    int `yaml:"max_failures" env:"ATTR_CB_MAX_FAILURES"`
	TimeoutSeconds int `yaml:"timeout_seconds" env:"ATTR_CB_TIMEOUT_SECONDS"`
	HalfOpenMax    int `yaml:"half_open_max" env:"ATTR_CB_HALF_OPEN_MAX"`
	RetryAttempts  int `yaml:"retry_attempts" env:"ATTR_RETRY_ATTEMPTS"`
}

// CacheConfig controls the pkg/attrcache connector-result cache.
type CacheConfig struct {
	DefaultTTLSeconds int `yaml:"default_ttl_seconds" env:"ATTR_CACHE_TTL_SECONDS"`
	CleanupSeconds    int `yaml:"cleanup_seconds" env:"ATTR_CACHE_CLEANUP_SECONDS"`
}

// RateLimitConfig controls the HTTP+Script connector's outbound rate limit.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"ATTR_HTTP_RPS"`
	Burst             int     `yaml:"burst" env:"ATTR_HTTP_BURST"`
}

// ReloadConfig controls the scheduled background reload
// (service.ScheduledReloader).
type ReloadConfig struct {
	Enabled bool   `yaml:"enabled" env:"ATTR_RELOAD_ENABLED"`
	CronExpr string `yaml:"cron" env:"ATTR_RELOAD_CRON"`
}

// MetricsConfig controls whether the engine registers its collectors.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"ATTR_METRICS_ENABLED"`
}

// Config is the top-level configuration for the attribute engine service.
type Config struct {
	ConfigDir   string             `yaml:"config_dir" env:"ATTR_CONFIG_DIR"`
	StripNulls  bool               `yaml:"strip_nulls" env:"ATTR_STRIP_NULLS"`
	FailFast    bool               `yaml:"fail_fast" env:"ATTR_FAIL_FAST"`
	PropagateResolutionExceptions bool `yaml:"propagate_resolution_exceptions" env:"ATTR_PROPAGATE_RESOLUTION_EXCEPTIONS"`

	Logging    LoggingConfig      `yaml:"logging"`
	SQL        SQLConnectorConfig `yaml:"sql"`
	Resilience ResilienceConfig   `yaml:"resilience"`
	Cache      CacheConfig        `yaml:"cache"`
	RateLimit  RateLimitConfig    `yaml:"rate_limit"`
	Reload     ReloadConfig       `yaml:"reload"`
	Metrics    MetricsConfig      `yaml:"metrics"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		ConfigDir:  "configs/attributes",
		StripNulls: true,
		FailFast:   false,
		PropagateResolutionExceptions: true,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		SQL: SQLConnectorConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifeSecs: 300,
		},
		Resilience: ResilienceConfig{
			MaxFailures:    5,
			TimeoutSeconds: 30,
			HalfOpenMax:    3,
			RetryAttempts:  3,
		},
		Cache: CacheConfig{
			DefaultTTLSeconds: 300,
			CleanupSeconds:    600,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Reload: ReloadConfig{
			Enabled:  false,
			CronExpr: "@every 5m",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load loads configuration from ATTR_CONFIG_FILE (if set, else
// configs/attribute-engine.yaml) and applies environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	path := strings.TrimSpace(os.Getenv("ATTR_CONFIG_FILE"))
	if path == "" {
		path = "configs/attribute-engine.yaml"
	}
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
