package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RateLimit.Requests != 100 || cfg.RateLimit.Period != 60 {
		t.Errorf("rate limit = %d/%d, want 100/60", cfg.RateLimit.Requests, cfg.RateLimit.Period)
	}
	if cfg.RateLimit.Timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", cfg.RateLimit.Timeout)
	}
	if cfg.Auth.TokenTTL() != 24*time.Hour {
		t.Errorf("token ttl = %v, want 24h", cfg.Auth.TokenTTL())
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	wantOrigins := []string{"http://localhost:3000", "https://anxiety-ally.vercel.app"}
	if !reflect.DeepEqual(cfg.CORS.Origins, wantOrigins) {
		t.Errorf("origins = %v, want %v", cfg.CORS.Origins, wantOrigins)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_PERIOD", "10")
	t.Setenv("RATE_LIMIT_TIMEOUT", "250ms")
	t.Setenv("RATE_LIMIT_EXEMPT_PATHS", "/docs, /health")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/anxiety?sslmode=disable")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RateLimit.Requests != 5 || cfg.RateLimit.Period != 10 {
		t.Errorf("rate limit = %d/%d, want 5/10", cfg.RateLimit.Requests, cfg.RateLimit.Period)
	}
	if cfg.RateLimit.Timeout != 250*time.Millisecond {
		t.Errorf("timeout = %v", cfg.RateLimit.Timeout)
	}
	if !reflect.DeepEqual(cfg.RateLimit.ExemptPaths, []string{"/docs", "/health"}) {
		t.Errorf("exempt paths = %v", cfg.RateLimit.ExemptPaths)
	}
	if cfg.RateLimit.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("redis url = %q", cfg.RateLimit.RedisURL)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "rate_limit:\n  requests: 7\nai:\n  provider: gemini\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("RATE_LIMIT_PERIOD", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RateLimit.Requests != 7 {
		t.Errorf("requests = %d, want 7 from file", cfg.RateLimit.Requests)
	}
	if cfg.RateLimit.Period != 30 {
		t.Errorf("period = %d, want 30 from env", cfg.RateLimit.Period)
	}
	if cfg.AI.Provider != "gemini" {
		t.Errorf("provider = %q", cfg.AI.Provider)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing secret", func(c *Config) { c.Auth.SecretKey = "" }, "SECRET_KEY"},
		{"bad algorithm", func(c *Config) { c.Auth.Algorithm = "RS256" }, "ALGORITHM"},
		{"zero requests", func(c *Config) { c.RateLimit.Requests = 0 }, "RATE_LIMIT_REQUESTS"},
		{"negative period", func(c *Config) { c.RateLimit.Period = -1 }, "RATE_LIMIT_PERIOD"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "DATABASE_DRIVER"},
		{"bad provider", func(c *Config) { c.AI.Provider = "openai" }, "AI_PROVIDER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Auth.SecretKey = "s"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
