// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host string `envconfig:"XB_HOST" yaml:"host"`
	Port int    `envconfig:"XB_PORT" yaml:"port"`

	// Model oracle configuration
	Model ModelConfig `yaml:"model"`

	// Evaluation configuration
	Eval EvalConfig `yaml:"eval"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`

	// Telemetry configuration
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ModelConfig holds settings for the classifier oracle.
type ModelConfig struct {
	// URL is the inference endpoint of the remote classifier. Empty means
	// the caller supplies its own Scorer (tests, library use).
	URL       string `envconfig:"XB_MODEL_URL" yaml:"url"`
	APIKey    string `envconfig:"XB_MODEL_API_KEY" yaml:"api_key"`
	TimeoutMS int    `envconfig:"XB_MODEL_TIMEOUT_MS" yaml:"timeout_ms"`
	MaskToken string `envconfig:"XB_MASK_TOKEN" yaml:"mask_token"`
	VocabPath string `envconfig:"XB_VOCAB_PATH" yaml:"vocab_path"`
}

// EvalConfig holds evaluation settings.
type EvalConfig struct {
	UseCorrelation  bool `envconfig:"XB_USE_CORRELATION" yaml:"use_correlation"`
	UsePlausibility bool `envconfig:"XB_USE_PLAUSIBILITY_METRICS" yaml:"use_plausibility_metrics"`
	DefaultTarget   int  `envconfig:"XB_DEFAULT_TARGET" yaml:"default_target"`
	// AOPCStepPercent is the masking percentile step for the AOPC metrics.
	AOPCStepPercent int `envconfig:"XB_AOPC_STEP_PERCENT" yaml:"aopc_step_percent"`
}

// CacheConfig holds prediction cache settings.
type CacheConfig struct {
	Type     string `envconfig:"XB_CACHE_TYPE" yaml:"type"`
	Size     int    `envconfig:"XB_CACHE_SIZE" yaml:"size"`
	TTL      int    `envconfig:"XB_CACHE_TTL" yaml:"ttl"` // seconds, 0 = no expiry
	RedisURL string `envconfig:"XB_REDIS_URL" yaml:"redis_url"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"XB_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"XB_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"XB_KAFKA_GROUP" yaml:"kafka_group"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"XB_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"XB_LOG_FORMAT" yaml:"format"`
}

// SecurityConfig holds security settings.
type SecurityConfig struct {
	APIKey    string `envconfig:"XB_API_KEY" yaml:"api_key"`
	RateLimit int    `envconfig:"XB_RATE_LIMIT" yaml:"rate_limit"` // req/sec, 0 = disabled
}

// TelemetryConfig holds telemetry settings.
type TelemetryConfig struct {
	Enabled     bool   `envconfig:"XB_TELEMETRY_ENABLED" yaml:"enabled"`
	MetricsPath string `envconfig:"XB_METRICS_PATH" yaml:"metrics_path"`
	HistoryURL  string `envconfig:"XB_TELEMETRY_REDIS_URL" yaml:"history_url"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	cfg.Model = ModelConfig{
		TimeoutMS: 30000,
		MaskToken: "[MASK]",
	}

	cfg.Eval = EvalConfig{
		UseCorrelation:  true,
		UsePlausibility: true,
		DefaultTarget:   1,
		AOPCStepPercent: 10,
	}

	cfg.Cache = CacheConfig{
		Type:     "memory",
		Size:     10000,
		TTL:      0,
		RedisURL: "redis://localhost:6379",
	}

	cfg.Bus = BusConfig{
		Type: "memory",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Security = SecurityConfig{
		RateLimit: 0,
	}

	cfg.Telemetry = TelemetryConfig{
		Enabled:     true,
		MetricsPath: "/metrics",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	if c.Model.TimeoutMS < 0 {
		errs = append(errs, "model timeout_ms must not be negative")
	}
	if c.Model.MaskToken == "" {
		errs = append(errs, "mask_token must not be empty")
	}

	if c.Eval.DefaultTarget < 0 {
		errs = append(errs, "default_target must not be negative")
	}
	if c.Eval.AOPCStepPercent < 1 || c.Eval.AOPCStepPercent > 100 {
		errs = append(errs, "aopc_step_percent must be between 1 and 100")
	}

	validCacheTypes := map[string]bool{"memory": true, "redis": true, "none": true}
	if !validCacheTypes[c.Cache.Type] {
		errs = append(errs, fmt.Sprintf("invalid cache type: %s (must be memory, redis, or none)", c.Cache.Type))
	}
	if c.Cache.Type == "redis" && c.Cache.RedisURL == "" {
		errs = append(errs, "redis cache requires redis_url")
	}

	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}
	if c.Bus.Type == "kafka" && c.Bus.KafkaBrokers == "" {
		errs = append(errs, "kafka bus requires kafka_brokers")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s", c.Log.Level))
	}

	if c.Security.RateLimit < 0 {
		errs = append(errs, "rate_limit must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// KafkaBrokerList returns the configured Kafka brokers as a slice.
func (c *BusConfig) KafkaBrokerList() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
