package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Engine    EngineConfig
}

// ServerConfig holds HTTP server configuration. Execute request bodies
// larger than MaxRequestBytes are rejected before decoding.
type ServerConfig struct {
	Port            string `envconfig:"PORT" default:"8444"`
	Host            string `envconfig:"HOST" default:"127.0.0.1"`
	MaxRequestBytes int64  `envconfig:"MAX_REQUEST_BYTES" default:"8388608"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// EngineConfig holds script engine configuration. Request timeouts are
// clamped to MaxTimeoutMS; requests carrying no timeout get
// DefaultTimeoutMS instead of running unbounded.
type EngineConfig struct {
	DefaultTimeoutMS int `envconfig:"ENGINE_DEFAULT_TIMEOUT_MS" default:"5000"`
	MaxTimeoutMS     int `envconfig:"ENGINE_MAX_TIMEOUT_MS" default:"60000"`
	QueueCapacity    int `envconfig:"ENGINE_QUEUE_CAPACITY" default:"1024"`
	MaxCallStack     int `envconfig:"ENGINE_MAX_CALL_STACK" default:"1024"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8444",
			Host:            "127.0.0.1",
			MaxRequestBytes: 8 << 20,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Engine: EngineConfig{
			DefaultTimeoutMS: 5000,
			MaxTimeoutMS:     60000,
			QueueCapacity:    1024,
			MaxCallStack:     1024,
		},
	}
}
