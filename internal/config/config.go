package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/integrityos/risk-engine/internal/cache"
	"github.com/integrityos/risk-engine/internal/classifier"
	"github.com/integrityos/risk-engine/internal/engine"
	"github.com/integrityos/risk-engine/internal/features"
)

// Config captures everything required to boot the risk engine.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Logging    LoggingConfig     `yaml:"logging"`
	Rules      RulesConfig       `yaml:"rules"`
	Cache      CacheConfig       `yaml:"cache"`
	Features   features.Config   `yaml:"features"`
	Classifier classifier.Config `yaml:"classifier"`
	Engine     engine.Settings   `yaml:"engine"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RulesConfig points at optional rule tables loaded from disk.
type RulesConfig struct {
	ApplicabilityPath string `yaml:"applicabilityPath"`
}

// CacheConfig controls the Redis-backed model snapshot and the in-process forecast memo.
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Addr            string        `yaml:"addr"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	DB              int           `yaml:"db"`
	DialTimeout     time.Duration `yaml:"dialTimeout"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	MaxRetries      int           `yaml:"maxRetries"`
	TLS             bool          `yaml:"tls"`
	ModelKey        string        `yaml:"modelKey"`
	ModelTTL        time.Duration `yaml:"modelTTL"`
	ForecastMemo    int           `yaml:"forecastMemo"`
	ForecastMemoTTL time.Duration `yaml:"forecastMemoTTL"`
}

// Redis returns the connection settings for cache.NewRedisProvider.
func (c CacheConfig) Redis() cache.RedisConfig {
	return cache.RedisConfig{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		MaxRetries:   c.MaxRetries,
		TLS:          c.TLS,
	}
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("RISK_ENGINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	table, err := engine.LoadApplicability(cfg.Rules.ApplicabilityPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	if len(table) > 0 {
		merged := make(map[string][]string, len(cfg.Engine.Recommend.Applicability)+len(table))
		for k, v := range cfg.Engine.Recommend.Applicability {
			merged[k] = v
		}
		for k, v := range table {
			merged[k] = v
		}
		cfg.Engine.Recommend.Applicability = merged
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:         false,
			DialTimeout:     2 * time.Second,
			ReadTimeout:     500 * time.Millisecond,
			WriteTimeout:    500 * time.Millisecond,
			MaxRetries:      2,
			ModelKey:        classifier.DefaultSnapshotKey,
			ModelTTL:        30 * 24 * time.Hour,
			ForecastMemo:    4096,
			ForecastMemoTTL: 10 * time.Minute,
		},
		Features:   features.DefaultConfig(),
		Classifier: classifier.DefaultConfig(),
		Engine:     engine.DefaultSettings(),
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RISK_ENGINE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("RISK_ENGINE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	envDuration("RISK_ENGINE_GRACEFUL_TIMEOUT", &cfg.Server.GracefulTimeout)
	if v := os.Getenv("RISK_ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RISK_ENGINE_LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}
	if v := os.Getenv("RISK_ENGINE_APPLICABILITY_PATH"); v != "" {
		cfg.Rules.ApplicabilityPath = v
	}

	if v := os.Getenv("RISK_ENGINE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = envTrue(v)
	}
	if v := os.Getenv("RISK_ENGINE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("RISK_ENGINE_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("RISK_ENGINE_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	envInt("RISK_ENGINE_CACHE_DB", &cfg.Cache.DB)
	if v := os.Getenv("RISK_ENGINE_CACHE_TLS"); envTrue(v) {
		cfg.Cache.TLS = true
	}
	envDuration("RISK_ENGINE_CACHE_DIAL_TIMEOUT", &cfg.Cache.DialTimeout)
	envDuration("RISK_ENGINE_CACHE_READ_TIMEOUT", &cfg.Cache.ReadTimeout)
	envDuration("RISK_ENGINE_CACHE_WRITE_TIMEOUT", &cfg.Cache.WriteTimeout)
	envInt("RISK_ENGINE_CACHE_MAX_RETRIES", &cfg.Cache.MaxRetries)
	if v := os.Getenv("RISK_ENGINE_CACHE_MODEL_KEY"); v != "" {
		cfg.Cache.ModelKey = v
	}
	envDuration("RISK_ENGINE_CACHE_MODEL_TTL", &cfg.Cache.ModelTTL)
	envInt("RISK_ENGINE_FORECAST_MEMO", &cfg.Cache.ForecastMemo)
	envDuration("RISK_ENGINE_FORECAST_MEMO_TTL", &cfg.Cache.ForecastMemoTTL)

	envInt("RISK_ENGINE_MIN_SAMPLES_PER_CLASS", &cfg.Classifier.MinSamplesPerClass)
	envInt("RISK_ENGINE_FOREST_TREES", &cfg.Classifier.Forest.Trees)
	envInt("RISK_ENGINE_FOREST_PARALLELISM", &cfg.Classifier.Forest.Parallelism)
	if v := os.Getenv("RISK_ENGINE_FOREST_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Classifier.Forest.Seed = seed
		}
	}
	envInt("RISK_ENGINE_PARALLELISM", &cfg.Engine.Parallelism)
}

func envTrue(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
