package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar points at an optional YAML file layered between the
// defaults and the environment.
const ConfigPathEnvVar = "CONFIG_PATH"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	AI        AIConfig        `koanf:"ai"`
	CORS      CORSConfig      `koanf:"cors"`
}

type ServerConfig struct {
	Port string `koanf:"port"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

type DatabaseConfig struct {
	// Driver is sqlite3 for local development or postgres for the hosted store.
	Driver string `koanf:"driver"`
	URL    string `koanf:"url"`
}

type AuthConfig struct {
	SecretKey                string `koanf:"secret_key"`
	Algorithm                string `koanf:"algorithm"`
	AccessTokenExpireMinutes int    `koanf:"access_token_expire_minutes"`
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

type RateLimitConfig struct {
	// RedisURL is optional; without it every check uses the in-process store.
	RedisURL     string        `koanf:"redis_url"`
	Requests     int           `koanf:"requests"`
	Period       int           `koanf:"period"`
	Timeout      time.Duration `koanf:"timeout"`
	ExemptPaths  []string      `koanf:"exempt_paths"`
	AuthRequests int           `koanf:"auth_requests"`
}

type AIConfig struct {
	Provider           string `koanf:"provider"`
	HuggingFaceAPIKey  string `koanf:"huggingface_api_key"`
	HuggingFaceBaseURL string `koanf:"huggingface_base_url"`
	SentimentModel     string `koanf:"sentiment_model"`
	ChatModel          string `koanf:"chat_model"`
	GeminiAPIKey       string `koanf:"gemini_api_key"`
	GeminiModel        string `koanf:"gemini_model"`
}

type CORSConfig struct {
	Origins []string `koanf:"origins"`
}

func defaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8000"},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{Driver: "sqlite3", URL: "anxiety_ally.db"},
		Auth: AuthConfig{
			Algorithm:                "HS256",
			AccessTokenExpireMinutes: 60 * 24,
		},
		RateLimit: RateLimitConfig{
			Requests:     100,
			Period:       60,
			Timeout:      3 * time.Second,
			ExemptPaths:  []string{"/docs", "/openapi"},
			AuthRequests: 5,
		},
		AI: AIConfig{
			Provider:           "huggingface",
			HuggingFaceBaseURL: "https://api-inference.huggingface.co/models",
			SentimentModel:     "distilbert-base-uncased-finetuned-sst-2-english",
			ChatModel:          "facebook/blenderbot-400M-distill",
			GeminiModel:        "gemini-1.5-flash-latest",
		},
		CORS: CORSConfig{
			Origins: []string{"http://localhost:3000", "https://anxiety-ally.vercel.app"},
		},
	}
}

var envMappings = map[string]string{
	"http_port":                   "server.port",
	"log_level":                   "logging.level",
	"log_format":                  "logging.format",
	"log_caller":                  "logging.caller",
	"database_driver":             "database.driver",
	"database_url":                "database.url",
	"secret_key":                  "auth.secret_key",
	"algorithm":                   "auth.algorithm",
	"access_token_expire_minutes": "auth.access_token_expire_minutes",
	"redis_url":                   "rate_limit.redis_url",
	"rate_limit_requests":         "rate_limit.requests",
	"rate_limit_period":           "rate_limit.period",
	"rate_limit_timeout":          "rate_limit.timeout",
	"rate_limit_exempt_paths":     "rate_limit.exempt_paths",
	"auth_rate_limit_requests":    "rate_limit.auth_requests",
	"ai_provider":                 "ai.provider",
	"huggingface_api_key":         "ai.huggingface_api_key",
	"huggingface_base_url":        "ai.huggingface_base_url",
	"sentiment_model":             "ai.sentiment_model",
	"chat_model":                  "ai.chat_model",
	"gemini_api_key":              "ai.gemini_api_key",
	"gemini_model":                "ai.gemini_model",
	"cors_origins":                "cors.origins",
}

// Variables not listed in envMappings are dropped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

var sliceConfigPaths = []string{"rate_limit.exempt_paths", "cors.origins"}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in increasing priority. A .env file in the working directory
// is loaded into the environment first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// splitSliceFields turns comma-separated env values into string slices.
func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := make([]string, 0)
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// Validate checks settings that have no usable fallback.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	}
	switch c.Auth.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("ALGORITHM %q is not supported", c.Auth.Algorithm))
	}
	if c.Auth.AccessTokenExpireMinutes <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}

	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not supported", c.Database.Driver))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}

	if c.RateLimit.Requests <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS must be positive"))
	}
	if c.RateLimit.Period <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PERIOD must be positive"))
	}
	if c.RateLimit.Timeout <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_TIMEOUT must be positive"))
	}
	if c.RateLimit.AuthRequests <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT_REQUESTS must be positive"))
	}

	switch c.AI.Provider {
	case "huggingface", "gemini":
	default:
		errs = append(errs, fmt.Errorf("AI_PROVIDER %q is not supported", c.AI.Provider))
	}

	return errors.Join(errs...)
}
