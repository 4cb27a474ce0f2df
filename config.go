package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort        = "8080"
	defaultRedisURL    = "redis:6379"
	defaultMaxUploadMB = 8

	envConfigFile  = "CONFIG_FILE"
	envPort        = "PORT"
	envRedisURL    = "REDIS_URL"
	envAPIKey      = "API_KEY"
	envBaseURL     = "OPENAI_BASE_URL"
	envModel       = "MODEL"
	envTokenBudget = "TOKEN_BUDGET"
	envSessionTTL  = "SESSION_TTL"
	envMaxUploadMB = "MAX_UPLOAD_MB"
	envLogLevel    = "LOG_LEVEL"
)

// Config holds the service settings. Values come from defaults, then the
// optional YAML file, then the environment.
type Config struct {
	Port        string        `yaml:"port"`
	RedisURL    string        `yaml:"redis_url"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	TokenBudget int           `yaml:"token_budget"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
	MaxUploadMB int64         `yaml:"max_upload_mb"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Port:        defaultPort,
		RedisURL:    defaultRedisURL,
		Model:       defaultModel,
		TokenBudget: defaultTokenBudget,
		SessionTTL:  defaultSessionTTL,
		MaxUploadMB: defaultMaxUploadMB,
	}
}

// loadDotEnv reads .env from the working directory if there is one.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// LoadConfig builds the configuration. path may be empty, in which case
// CONFIG_FILE is consulted.
func LoadConfig(path string, logger *zap.Logger) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(envConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		logger.Debug("loaded config file", zap.String("path", path))
	}

	if v := os.Getenv(envPort); v != "" {
		cfg.Port = v
	}
	// REDIS_URL set to an empty string turns Redis off
	if v, ok := os.LookupEnv(envRedisURL); ok {
		cfg.RedisURL = v
	}
	if v := os.Getenv(envAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(envBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(envModel); v != "" {
		cfg.Model = v
	}

	if v := os.Getenv(envTokenBudget); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			logger.Warn("invalid token budget, using default",
				zap.String("value", v), zap.Int("default", cfg.TokenBudget))
		} else {
			cfg.TokenBudget = n
		}
	}
	if v := os.Getenv(envSessionTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			logger.Warn("invalid session ttl, using default",
				zap.String("value", v), zap.Duration("default", cfg.SessionTTL))
		} else {
			cfg.SessionTTL = d
		}
	}
	if v := os.Getenv(envMaxUploadMB); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			logger.Warn("invalid upload limit, using default",
				zap.String("value", v), zap.Int64("default", cfg.MaxUploadMB))
		} else {
			cfg.MaxUploadMB = n
		}
	}

	return cfg, nil
}
