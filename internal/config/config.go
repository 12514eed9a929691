package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string
	BaseURL     string
	DatabaseURL string // empty = in-memory stores

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret  string
	LinkSecret string
	LinkTTL    time.Duration

	SweepInterval time.Duration

	EmailWebhookURL string
	SmsWebhookURL   string

	LogLevel string
}

// Load reads the environment (plus an optional .env file) into a
// Config. Every field has a usable default, so it cannot fail.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		BaseURL:              getenv("BASE_URL", "http://127.0.0.1:8080"),
		DatabaseURL:          getenv("DATABASE_URL", ""),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
		JWTSecret:            getenv("JWT_SECRET", "dev-admin-jwt-secret"),
		LinkSecret:           getenv("RECOVERY_LINK_SECRET", "dev-recovery-link-secret"),
		LinkTTL:              getduration("RECOVERY_LINK_TTL", 72*time.Hour),
		SweepInterval:        getduration("SWEEP_INTERVAL", time.Minute),
		EmailWebhookURL:      getenv("EMAIL_WEBHOOK_URL", ""),
		SmsWebhookURL:        getenv("SMS_WEBHOOK_URL", ""),
		LogLevel:             getenv("LOG_LEVEL", "info"),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	return cfg
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getduration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// plain integer means seconds
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
