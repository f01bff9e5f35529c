package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the storefront's flat environment configuration. BackendURL is
// the single switch selecting the marketplace REST backend; it defaults to
// the local development host.
type Config struct {
	HTTPPort           string
	BackendURL         string
	RedisAddr          string
	RequestTimeout     time.Duration
	CheckoutTimeout    time.Duration
	ShutdownTimeout    time.Duration
	SessionIdleTTL     time.Duration
	MaxRequestBodySize int64
	TaxRate            float64
}

func Load() *Config {
	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		BackendURL:         getEnv("BACKEND_URL", "http://localhost:5000"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		CheckoutTimeout:    getDuration("CHECKOUT_TIMEOUT", 15*time.Second),
		ShutdownTimeout:    10 * time.Second,
		SessionIdleTTL:     getDuration("SESSION_IDLE_TTL", 30*time.Minute),
		MaxRequestBodySize: 1 << 20, // 1MB
		TaxRate:            getFloat("TAX_RATE", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
