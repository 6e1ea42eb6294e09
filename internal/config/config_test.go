package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/garnizeh/companies/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		Addr:          ":8080",
		JWTSecret:     "strongsecret",
		APITimeout:    5 * time.Second,
		DatabasePath:  "companies.db",
		TokenDuration: 1 * time.Hour,
		Matching:      config.MatchingConfig{BaseURL: "http://matching.local"},
	}
}

func TestValidate_InsecureJWT_FailsWhenNotDevelopment(t *testing.T) {
	t.Setenv("COMPANIES_ENV", "production")

	cfg := validConfig()
	cfg.JWTSecret = "supersecretkey"

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to fail for insecure JWT in non-development env")
	}
}

func TestValidate_InsecureJWT_AllowsDevelopment(t *testing.T) {
	t.Setenv("COMPANIES_ENV", "development")

	cfg := validConfig()
	cfg.JWTSecret = "supersecretkey"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected Validate to succeed in development env, got: %v", err)
	}
}

func TestValidate_MissingMatchingURL(t *testing.T) {
	cfg := validConfig()
	cfg.Matching.BaseURL = "  "

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to fail when matching.base_url is empty")
	}
}

func TestValidate_DefaultsPopulated(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed unexpectedly: %v", err)
	}

	if cfg.Matching.Timeout != 10*time.Second {
		t.Fatalf("expected matching timeout default 10s, got %v", cfg.Matching.Timeout)
	}
	if cfg.RateLimit.Requests <= 0 || cfg.RateLimit.Window <= 0 {
		t.Fatalf("expected rate limit defaults, got %+v", cfg.RateLimit)
	}
	if cfg.Reconcile.Enabled {
		t.Fatalf("reconciler must be opt-in")
	}
	if cfg.Reconcile.Schedule == "" || cfg.Reconcile.Workers <= 0 || cfg.Reconcile.MaxAttempts <= 0 {
		t.Fatalf("expected reconcile defaults, got %+v", cfg.Reconcile)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"COMPANIES_ADDR", "COMPANIES_JWT_SECRET", "COMPANIES_DATABASE_PATH", "COMPANIES_MATCHING_URL"} {
		t.Setenv(k, "")
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error for empty path: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected Addr: got %q want %q", cfg.Addr, ":8080")
	}
	if cfg.JWTSecret != "supersecretkey" {
		t.Fatalf("unexpected JWTSecret: got %q", cfg.JWTSecret)
	}
	if cfg.DatabasePath != "companies.db" {
		t.Fatalf("unexpected DatabasePath: got %q", cfg.DatabasePath)
	}
	if cfg.APITimeout != 15*time.Second {
		t.Fatalf("unexpected APITimeout: got %v", cfg.APITimeout)
	}
	if cfg.TokenDuration != 1*time.Hour {
		t.Fatalf("unexpected TokenDuration: got %v", cfg.TokenDuration)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("COMPANIES_MATCHING_URL", "http://env-matching:9000")
	t.Setenv("COMPANIES_GOOGLE_CLIENT_ID", "client-123")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Matching.BaseURL != "http://env-matching:9000" {
		t.Fatalf("unexpected matching url %q", cfg.Matching.BaseURL)
	}
	if cfg.Google.ClientID != "client-123" {
		t.Fatalf("unexpected google client id %q", cfg.Google.ClientID)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	f.Close()

	content := []byte(`addr: ":9090"
jwt_secret: "filekey"
timeout: "30s"
database_path: "test.db"
token_duration: "2h"
matching:
  base_url: "http://matching:8000"
  timeout: "3s"
reconcile:
  enabled: true
  schedule: "@every 1m"
`)
	if err := os.WriteFile(f.Name(), content, 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := config.LoadConfig(f.Name())
	if err != nil {
		t.Fatalf("LoadConfig returned error for file: %v", err)
	}

	if cfg.Addr != ":9090" || cfg.JWTSecret != "filekey" || cfg.DatabasePath != "test.db" {
		t.Fatalf("unexpected scalar fields: %+v", cfg)
	}
	if cfg.APITimeout != 30*time.Second || cfg.TokenDuration != 2*time.Hour {
		t.Fatalf("unexpected durations: %v %v", cfg.APITimeout, cfg.TokenDuration)
	}
	if cfg.Matching.BaseURL != "http://matching:8000" || cfg.Matching.Timeout != 3*time.Second {
		t.Fatalf("unexpected matching config: %+v", cfg.Matching)
	}
	if !cfg.Reconcile.Enabled || cfg.Reconcile.Schedule != "@every 1m" {
		t.Fatalf("unexpected reconcile config: %+v", cfg.Reconcile)
	}
}

func TestLoadConfig_BadPath(t *testing.T) {
	if _, err := config.LoadConfig("/path/that/does/not/exist.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent path, got nil")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "bad-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	f.Close()

	if err := os.WriteFile(f.Name(), []byte("addr: [unclosed"), 0o600); err != nil {
		t.Fatalf("failed to write bad yaml: %v", err)
	}

	if _, err := config.LoadConfig(f.Name()); err == nil {
		t.Fatalf("expected YAML decode error, got nil")
	}
}
