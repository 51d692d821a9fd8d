// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	Store   StoreConfig   `mapstructure:"store"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	RequestTimeout  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout_seconds"`
}

// CrawlerConfig governs the shared fetch pool and politeness limits.
type CrawlerConfig struct {
	UserAgent      string  `mapstructure:"user_agent"`
	Workers        int     `mapstructure:"workers"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxBodyKB      int     `mapstructure:"max_body_kb"`
	PerHostRPS     float64 `mapstructure:"per_host_rps"`
	PerHostBurst   int     `mapstructure:"per_host_burst"`
}

// JobsConfig bounds individual searches and their fan-out.
type JobsConfig struct {
	MaxConcurrent     int `mapstructure:"max_concurrent"`
	Parallelism       int `mapstructure:"parallelism"`
	MaxRuntimeSeconds int `mapstructure:"max_runtime_seconds"`
	ContextSize       int `mapstructure:"context_size"`
}

// StoreConfig bounds job retention.
type StoreConfig struct {
	RetentionMinutes int `mapstructure:"retention_minutes"`
	MaxJobs          int `mapstructure:"max_jobs"`
}

// CacheConfig controls the optional Redis result cache.
type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment. An empty path skips the file
// and relies on defaults plus SITESCOUT_* environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITESCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("crawler.user_agent", "sitescout/1.0 (+https://github.com/sitescout/sitescout)")
	v.SetDefault("crawler.workers", 8)
	v.SetDefault("crawler.timeout_seconds", 10)
	v.SetDefault("crawler.max_body_kb", 2048)
	v.SetDefault("crawler.per_host_rps", 2.0)
	v.SetDefault("crawler.per_host_burst", 5)
	v.SetDefault("jobs.max_concurrent", 8)
	v.SetDefault("jobs.parallelism", 4)
	v.SetDefault("jobs.max_runtime_seconds", 120)
	v.SetDefault("jobs.context_size", 100)
	v.SetDefault("store.retention_minutes", 60)
	v.SetDefault("store.max_jobs", 1000)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.Workers <= 0 {
		return fmt.Errorf("crawler.workers must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Crawler.PerHostRPS <= 0 {
		return fmt.Errorf("crawler.per_host_rps must be > 0")
	}
	if c.Jobs.MaxConcurrent <= 0 {
		return fmt.Errorf("jobs.max_concurrent must be > 0")
	}
	if c.Jobs.Parallelism <= 0 {
		return fmt.Errorf("jobs.parallelism must be > 0")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr must be set when cache is enabled")
	}
	return nil
}

// FetchTimeout returns the per-fetch timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// JobRuntime returns the per-job runtime budget as a duration.
func (c Config) JobRuntime() time.Duration {
	return time.Duration(c.Jobs.MaxRuntimeSeconds) * time.Second
}

// Retention returns how long finished jobs stay queryable.
func (c Config) Retention() time.Duration {
	return time.Duration(c.Store.RetentionMinutes) * time.Minute
}

// CacheTTL returns how long cached page scores stay valid.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}
