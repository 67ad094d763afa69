package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	// EnvProduction is the APP_ENV value that turns on secure cookies
	EnvProduction = "production"

	defaultPublicPaths = "/,/login,/register,/auth/*,/healthz,/metrics,/swagger/*,/static/*"
)

// Config holds the application configuration
type Config struct {
	HTTPPort      string          `json:"http_port"`
	AllowedOrigin string          `json:"allowed_origin"`
	Environment   string          `json:"environment"`
	LogLevel      string          `json:"log_level"`
	Upstream      UpstreamConfig  `json:"upstream"`
	Session       SessionConfig   `json:"session"`
	Guard         GuardConfig     `json:"guard"`
	RateLimit     RateLimitConfig `json:"rate_limit"`
	Metrics       MetricsConfig   `json:"metrics"`
}

// UpstreamConfig describes the backend API this layer forwards to
type UpstreamConfig struct {
	BaseURL             string        `json:"base_url"`              // e.g. http://localhost:3001
	Timeout             time.Duration `json:"timeout"`               // bound on every upstream call
	LogoutNotifyTimeout time.Duration `json:"logout_notify_timeout"` // bound on the best-effort logout call
}

// SessionConfig holds cookie and token handling settings
type SessionConfig struct {
	SecureCookies bool   `json:"secure_cookies"` // only true in production
	TokenSecret   string `json:"-"`              // optional HS256 key for local signature checks
}

// GuardConfig drives the route guard's public/protected classification
type GuardConfig struct {
	LoginPath     string   `json:"login_path"`
	PublicPaths   []string `json:"public_paths"`    // exact paths, or prefixes ending in "*"
	APIPathPrefix string   `json:"api_path_prefix"` // protected API paths answer 401 instead of redirecting
}

// RateLimitConfig throttles the credential endpoints per client IP
type RateLimitConfig struct {
	Enabled           bool `json:"enabled"`
	RequestsPerMinute int  `json:"requests_per_minute"`
	Burst             int  `json:"burst"`
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is read first when present;
// variables already set in the environment take precedence.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to read .env file")
	}

	env := getEnv("APP_ENV", "development")

	return &Config{
		HTTPPort:      getEnv("HTTP_PORT", "3000"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),
		Environment:   env,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Upstream: UpstreamConfig{
			BaseURL:             strings.TrimSuffix(getEnv("API_URL", "http://localhost:3001"), "/"),
			Timeout:             time.Duration(getEnvAsInt("UPSTREAM_TIMEOUT_SECONDS", 10)) * time.Second,
			LogoutNotifyTimeout: time.Duration(getEnvAsInt("LOGOUT_NOTIFY_TIMEOUT_SECONDS", 3)) * time.Second,
		},
		Session: SessionConfig{
			SecureCookies: env == EnvProduction,
			TokenSecret:   getEnv("SESSION_TOKEN_SECRET", ""),
		},
		Guard: GuardConfig{
			LoginPath:     getEnv("LOGIN_PATH", "/login"),
			PublicPaths:   getEnvAsList("PUBLIC_PATHS", defaultPublicPaths),
			APIPathPrefix: getEnv("API_PATH_PREFIX", "/api/"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnv("RATE_LIMIT_ENABLED", "true") == "true",
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 20),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Metrics: MetricsConfig{
			Enabled: getEnv("METRICS_ENABLED", "true") == "true",
		},
	}
}

// IsProduction reports whether the process runs in a production-grade deployment
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
