package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Environment         string
	ServerPort          int
	DatabaseHost        string
	DatabasePort        int
	DatabaseUser        string
	DatabasePassword    string
	DatabaseName        string
	DatabaseSSLMode     string
	RedisURL            string
	JWTSecret           string
	LogLevel            string
	CORSAllowedOrigins  []string
	MaintenanceInterval int // minutes between ledger maintenance sweeps
	RateLimitPerMinute  int
	ExpiryWindowDays    int // dashboard window for expiring contracts
	OTLPEndpoint        string
	TracingEnabled      bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maintenanceInterval, err := strconv.Atoi(getEnv("MAINTENANCE_INTERVAL_MINUTES", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAINTENANCE_INTERVAL_MINUTES: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	expiryWindow, err := strconv.Atoi(getEnv("EXPIRY_WINDOW_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid EXPIRY_WINDOW_DAYS: %w", err)
	}

	return &Config{
		Environment:         getEnv("ENVIRONMENT", "development"),
		ServerPort:          port,
		DatabaseHost:        getEnv("DB_HOST", "localhost"),
		DatabasePort:        dbPort,
		DatabaseUser:        getEnv("DB_USER", "workforce"),
		DatabasePassword:    getEnv("DB_PASSWORD", "dev"),
		DatabaseName:        getEnv("DB_NAME", "workforce"),
		DatabaseSSLMode:     getEnv("DB_SSLMODE", "disable"),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins:  parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		MaintenanceInterval: maintenanceInterval,
		RateLimitPerMinute:  rateLimit,
		ExpiryWindowDays:    expiryWindow,
		OTLPEndpoint:        getEnv("OTLP_ENDPOINT", "localhost:4318"),
		TracingEnabled:      getEnv("TRACING_ENABLED", "false") == "true",
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
