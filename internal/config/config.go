// Package config resolves runtime configuration for the rsge binary.
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

	"github.com/tetrisge/rsge/soap"
)

// Config is the resolved configuration: defaults, then the YAML file, then
// RSGE_* environment variables.
type Config struct {
	HTTPAddr string

	ServiceURL     string
	RequestTimeout time.Duration
	UserAgent      string
	// RateLimit is requests per second to rs.ge; zero disables limiting.
	RateLimit float64
	RateBurst int

	LogLevel  string
	LogFormat string

	JWTSecret string

	// DatabaseURL selects the settings table as credential source.
	DatabaseURL string
	// ServiceUser and ServicePassword are used when DatabaseURL is empty.
	ServiceUser     string
	ServicePassword string

	GuardEnabled bool
	GuardTTL     time.Duration
	// RedisURL moves the submission journal out of process.
	RedisURL string
}

type configFile struct {
	Server struct {
		Addr      string `yaml:"addr"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
	RSGE struct {
		URL                   string  `yaml:"url"`
		RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
		UserAgent             string  `yaml:"user_agent"`
		RateLimit             float64 `yaml:"rate_limit"`
		RateBurst             int     `yaml:"rate_burst"`
		ServiceUser           string  `yaml:"service_user"`
		ServicePassword       string  `yaml:"service_password"`
	} `yaml:"rsge"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Guard struct {
		Enabled    *bool `yaml:"enabled"`
		TTLMinutes int   `yaml:"ttl_minutes"`
	} `yaml:"submission_guard"`
}

func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		ServiceURL:     soap.DefaultURL,
		RequestTimeout: 30 * time.Second,
		RateBurst:      1,
		LogLevel:       "info",
		LogFormat:      "text",
		GuardTTL:       24 * time.Hour,
	}
}

// Load resolves configuration. A missing file at path is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := applyFile(&cfg, raw); err != nil {
				return Config{}, err
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if cfg.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("request timeout must be positive")
	}
	if cfg.RateLimit < 0 {
		return Config{}, fmt.Errorf("rate limit must not be negative")
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Server.Addr != "" {
		cfg.HTTPAddr = f.Server.Addr
	}
	if f.Server.JWTSecret != "" {
		cfg.JWTSecret = f.Server.JWTSecret
	}
	if f.RSGE.URL != "" {
		cfg.ServiceURL = f.RSGE.URL
	}
	if f.RSGE.RequestTimeoutSeconds > 0 {
		cfg.RequestTimeout = time.Duration(f.RSGE.RequestTimeoutSeconds) * time.Second
	}
	if f.RSGE.UserAgent != "" {
		cfg.UserAgent = f.RSGE.UserAgent
	}
	if f.RSGE.RateLimit > 0 {
		cfg.RateLimit = f.RSGE.RateLimit
	}
	if f.RSGE.RateBurst > 0 {
		cfg.RateBurst = f.RSGE.RateBurst
	}
	if f.RSGE.ServiceUser != "" {
		cfg.ServiceUser = f.RSGE.ServiceUser
	}
	if f.RSGE.ServicePassword != "" {
		cfg.ServicePassword = f.RSGE.ServicePassword
	}
	if f.Logging.Level != "" {
		cfg.LogLevel = f.Logging.Level
	}
	if f.Logging.Format != "" {
		cfg.LogFormat = f.Logging.Format
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if f.Guard.Enabled != nil {
		cfg.GuardEnabled = *f.Guard.Enabled
	}
	if f.Guard.TTLMinutes > 0 {
		cfg.GuardTTL = time.Duration(f.Guard.TTLMinutes) * time.Minute
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = envOrDefault("RSGE_HTTP_ADDR", cfg.HTTPAddr)
	cfg.JWTSecret = envOrDefault("RSGE_JWT_SECRET", cfg.JWTSecret)
	cfg.ServiceURL = envOrDefault("RSGE_URL", cfg.ServiceURL)
	cfg.RequestTimeout = time.Duration(envInt("RSGE_REQUEST_TIMEOUT_SECONDS", int(cfg.RequestTimeout.Seconds()))) * time.Second
	cfg.UserAgent = envOrDefault("RSGE_USER_AGENT", cfg.UserAgent)
	cfg.RateLimit = envFloat("RSGE_RATE_LIMIT", cfg.RateLimit)
	cfg.RateBurst = envInt("RSGE_RATE_BURST", cfg.RateBurst)
	cfg.ServiceUser = envOrDefault("RSGE_SERVICE_USER", cfg.ServiceUser)
	cfg.ServicePassword = envOrDefault("RSGE_SERVICE_PASSWORD", cfg.ServicePassword)
	cfg.LogLevel = envOrDefault("RSGE_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOrDefault("RSGE_LOG_FORMAT", cfg.LogFormat)
	cfg.DatabaseURL = envOrDefault("RSGE_DB_URL", cfg.DatabaseURL)
	cfg.RedisURL = envOrDefault("RSGE_REDIS_URL", cfg.RedisURL)
	cfg.GuardEnabled = envBool("RSGE_GUARD_ENABLED", cfg.GuardEnabled)
	cfg.GuardTTL = time.Duration(envInt("RSGE_GUARD_TTL_MINUTES", int(cfg.GuardTTL.Minutes()))) * time.Minute
}

// ValidateServe checks the settings the HTTP server cannot run without.
func (c Config) ValidateServe() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("missing RSGE_JWT_SECRET")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("missing RSGE_HTTP_ADDR")
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt falls back on empty or invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(name)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}
