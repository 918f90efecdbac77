// Package config loads service configuration from the environment, with a
// .env file honored when present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"notedeck/pkg/db"
)

// Config holds the complete service configuration.
type Config struct {
	ServiceName string
	HTTPPort    string
	GRPCPort    string
	MetricsPort string

	DB db.Config

	IdentityServiceAddr string

	ThrottleMaxReads     int
	ThrottleMaxMutations int
	ThrottlePeriod       time.Duration
}

// Load reads configuration from the environment. Missing variables fall back
// to development defaults.
func Load() *Config {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	return &Config{
		ServiceName: getEnv("SERVICE_NAME", "notedeck"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		GRPCPort:    getEnv("GRPC_PORT", "50051"),
		MetricsPort: getEnv("METRICS_PORT", "9090"),

		DB: db.Config{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 3306),
			User:            getEnv("DB_USER", "root"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "notedeck"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		IdentityServiceAddr: getEnv("IDENTITY_SERVICE_ADDR", "http://localhost:8081"),

		ThrottleMaxReads:     getEnvInt("THROTTLE_MAX_READS", 120),
		ThrottleMaxMutations: getEnvInt("THROTTLE_MAX_MUTATIONS", 30),
		ThrottlePeriod:       getEnvDuration("THROTTLE_PERIOD", time.Minute),
	}
}

// getEnv gets environment variable with a fallback default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets environment variable as int with a fallback default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration gets environment variable as duration with a fallback default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
