package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Session   SessionConfig   `mapstructure:"session"`
	Display   DisplayConfig   `mapstructure:"display"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       LogConfig       `mapstructure:"log"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

// APIConfig points at the exchange simulator.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RefreshConfig holds the two polling cadences.
type RefreshConfig struct {
	FastInterval time.Duration `mapstructure:"fast_interval"` // price tick
	SlowInterval time.Duration `mapstructure:"slow_interval"` // full refresh
}

type SessionConfig struct {
	Backend string        `mapstructure:"backend"` // "memory" or "redis"
	Key     string        `mapstructure:"key"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type DisplayConfig struct {
	Currency string `mapstructure:"currency"`
	Terminal bool   `mapstructure:"terminal"`
}

type DashboardConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads config.yaml (RESXWATCH_CONFIG overrides the location) and applies
// environment variable overrides such as RESXWATCH_API_BASE_URL.
func Load() *Config {
	path := os.Getenv("RESXWATCH_CONFIG")
	if path == "" {
		path = defaultConfigPath()
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom reads the given yaml file. An empty path or a missing file
// yields the built-in defaults plus environment overrides.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("resxwatch")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the refresh loops cannot run with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Refresh.FastInterval <= 0 || c.Refresh.SlowInterval <= 0 {
		return fmt.Errorf("refresh intervals must be positive (fast=%s slow=%s)",
			c.Refresh.FastInterval, c.Refresh.SlowInterval)
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.Session.Backend == "redis" && c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required for the redis session backend")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 10*time.Second)

	v.SetDefault("refresh.fast_interval", 2*time.Second)
	v.SetDefault("refresh.slow_interval", 30*time.Second)

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.key", "default")
	v.SetDefault("session.ttl", 7*24*time.Hour)

	v.SetDefault("display.currency", "USD")
	v.SetDefault("display.terminal", true)

	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.addr", ":8090")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
}

func defaultConfigPath() string {
	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		return filepath.Join(pwd, "config", "config.yaml")
	}
	return filepath.Join(filepath.Dir(ex), "../config", "config.yaml")
}
