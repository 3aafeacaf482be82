// Package config loads service configuration from the environment, with
// an optional YAML file overlay. A .env file in the working directory is
// honored during development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"readTimeout"`
		WriteTimeout time.Duration `yaml:"writeTimeout"`
	} `yaml:"server"`

	Database struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DBName   string `yaml:"dbname"`
		SSLMode  string `yaml:"sslmode"`
		LogLevel string `yaml:"logLevel"`
	} `yaml:"database"`

	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Cache struct {
		Enabled bool          `yaml:"enabled"`
		Type    string        `yaml:"type"` // memory or redis
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Ingest struct {
		Workers int `yaml:"workers"`
	} `yaml:"ingest"`

	Viewer struct {
		// Minimum fraction of the rescaled data range a declared VOI
		// window must cover before it is accepted for display.
		VOICoverageThreshold float64 `yaml:"voiCoverageThreshold"`
		PrefetchWorkers      int     `yaml:"prefetchWorkers"`
	} `yaml:"viewer"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// Load reads configuration from the environment. When ISIS_CONFIG_FILE
// points at a YAML file it is applied first and the environment wins.
func Load() (*Config, error) {
	// Missing .env is fine outside development.
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("ISIS_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.Server.Host = envStr("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = envInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = envDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = envDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)

	cfg.Database.Enabled = envBool("DB_ENABLED", cfg.Database.Enabled)
	cfg.Database.Host = envStr("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = envInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = envStr("DB_USER", cfg.Database.User)
	cfg.Database.Password = envStr("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DBName = envStr("DB_NAME", cfg.Database.DBName)
	cfg.Database.SSLMode = envStr("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.LogLevel = envStr("DB_LOG_LEVEL", cfg.Database.LogLevel)

	cfg.Redis.Host = envStr("REDIS_HOST", cfg.Redis.Host)
	cfg.Redis.Port = envInt("REDIS_PORT", cfg.Redis.Port)
	cfg.Redis.Password = envStr("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envInt("REDIS_DB", cfg.Redis.DB)

	cfg.Cache.Enabled = envBool("CACHE_ENABLED", cfg.Cache.Enabled)
	cfg.Cache.Type = envStr("CACHE_TYPE", cfg.Cache.Type)
	cfg.Cache.TTL = envDuration("CACHE_TTL", cfg.Cache.TTL)

	cfg.Log.Level = envStr("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envStr("LOG_FORMAT", cfg.Log.Format)

	cfg.Ingest.Workers = envInt("INGEST_WORKERS", cfg.Ingest.Workers)

	cfg.Viewer.VOICoverageThreshold = envFloat("VOI_COVERAGE_THRESHOLD", cfg.Viewer.VOICoverageThreshold)
	cfg.Viewer.PrefetchWorkers = envInt("PREFETCH_WORKERS", cfg.Viewer.PrefetchWorkers)

	cfg.Metrics.Enabled = envBool("METRICS_ENABLED", cfg.Metrics.Enabled)

	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 60 * time.Second

	cfg.Database.Enabled = false
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "isis"
	cfg.Database.DBName = "isis"
	cfg.Database.SSLMode = "disable"
	cfg.Database.LogLevel = "warn"

	cfg.Redis.Host = "localhost"
	cfg.Redis.Port = 6379

	cfg.Cache.Enabled = true
	cfg.Cache.Type = "memory"
	cfg.Cache.TTL = 15 * time.Minute

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	cfg.Ingest.Workers = 4

	cfg.Viewer.VOICoverageThreshold = 0.02
	cfg.Viewer.PrefetchWorkers = 4

	cfg.Metrics.Enabled = true
	return cfg
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Cache.Enabled && c.Cache.Type != "memory" && c.Cache.Type != "redis" {
		return fmt.Errorf("invalid cache type %q", c.Cache.Type)
	}
	if c.Viewer.VOICoverageThreshold < 0 || c.Viewer.VOICoverageThreshold >= 1 {
		return fmt.Errorf("VOI coverage threshold %f out of [0,1)", c.Viewer.VOICoverageThreshold)
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("ingest workers must be positive, got %d", c.Ingest.Workers)
	}
	return nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
