package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

type Config struct {
	Addr           string          `yaml:"addr"`
	JWTSecret      string          `yaml:"jwt_secret"`
	APITimeout     time.Duration   `yaml:"timeout"`
	DatabasePath   string          `yaml:"database_path"`
	TokenDuration  time.Duration   `yaml:"token_duration"`
	LogLevel       string          `yaml:"log_level"`
	MigrateOnStart bool            `yaml:"migrate_on_start"`
	RedisURL       string          `yaml:"redis_url"`
	Matching       MatchingConfig  `yaml:"matching"`
	Google         GoogleConfig    `yaml:"google"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	Reconcile      ReconcileConfig `yaml:"reconcile"`
}

// MatchingConfig points at the remote matching service.
type MatchingConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type GoogleConfig struct {
	// ClientID is the expected audience of Google ID tokens. Empty disables
	// identity-provider sign-in.
	ClientID string `yaml:"client_id"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type ReconcileConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Schedule    string `yaml:"schedule"`
	Workers     int    `yaml:"workers"`
	MaxAttempts int    `yaml:"max_attempts"`
}

func LoadConfig(path string) (*Config, error) {
	apiTimeout := 15 * time.Second
	tokenDuration := 1 * time.Hour

	cfg := &Config{
		Addr:          getEnv("COMPANIES_ADDR", ":8080"),
		JWTSecret:     getEnv("COMPANIES_JWT_SECRET", insecureJWTSecret),
		APITimeout:    apiTimeout,
		DatabasePath:  getEnv("COMPANIES_DATABASE_PATH", "companies.db"),
		TokenDuration: tokenDuration,
		LogLevel:      getEnv("COMPANIES_LOG_LEVEL", "info"),
		RedisURL:      getEnv("COMPANIES_REDIS_URL", ""),
		Matching: MatchingConfig{
			BaseURL: getEnv("COMPANIES_MATCHING_URL", ""),
		},
		Google: GoogleConfig{
			ClientID: getEnv("COMPANIES_GOOGLE_CLIENT_ID", ""),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate rejects unsafe or incomplete settings and fills defaults for the
// optional sections.
func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	} else if c.JWTSecret == insecureJWTSecret && !isDevelopment() {
		errs = append(errs, errors.New("jwt_secret uses the built-in default; set COMPANIES_JWT_SECRET"))
	}
	if c.TokenDuration <= 0 {
		errs = append(errs, errors.New("token_duration must be positive"))
	}
	if strings.TrimSpace(c.Matching.BaseURL) == "" {
		errs = append(errs, errors.New("matching.base_url is required"))
	}

	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	// the matching service gets a fixed budget; a request never waits longer
	if c.Matching.Timeout <= 0 {
		c.Matching.Timeout = 10 * time.Second
	}
	if c.RateLimit.Requests <= 0 {
		c.RateLimit.Requests = 20
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.Reconcile.Schedule == "" {
		c.Reconcile.Schedule = "@every 5m"
	}
	if c.Reconcile.Workers <= 0 {
		c.Reconcile.Workers = 2
	}
	if c.Reconcile.MaxAttempts <= 0 {
		c.Reconcile.MaxAttempts = 5
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func isDevelopment() bool {
	return strings.EqualFold(os.Getenv("COMPANIES_ENV"), "development")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
