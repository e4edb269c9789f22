package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	CORSAllowedOrigins []string

	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabaseSSLMode  string
	MigrationsPath   string

	RedisURL string

	JWTSecret       string
	TokenTTLMinutes int

	SMTPHost string
	SMTPPort int
	MailFrom string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	EventQueueSize         int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DATABASE_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_PORT: %w", err)
	}

	tokenTTL, err := strconv.Atoi(getEnv("TOKEN_TTL_MINUTES", "1440"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL_MINUTES: %w", err)
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	rateLimitReqs, err := strconv.Atoi(getEnv("RATE_LIMIT_REQUESTS", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REQUESTS: %w", err)
	}

	rateLimitWindow, err := strconv.Atoi(getEnv("RATE_LIMIT_WINDOW_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW_SECONDS: %w", err)
	}

	queueSize, err := strconv.Atoi(getEnv("EVENT_QUEUE_SIZE", "256"))
	if err != nil {
		return nil, fmt.Errorf("invalid EVENT_QUEUE_SIZE: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	environment := getEnv("ENVIRONMENT", "development")
	if jwtSecret == "" {
		if environment != "development" {
			return nil, fmt.Errorf("JWT_SECRET is required outside development")
		}
		jwtSecret = "dev-only-secret"
	}

	return &Config{
		Environment: environment,
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		DatabaseHost:           getEnv("DATABASE_HOST", "localhost"),
		DatabasePort:           dbPort,
		DatabaseUser:           getEnv("DATABASE_USER", "taskboard"),
		DatabasePassword:       getEnv("DATABASE_PASSWORD", "dev"),
		DatabaseName:           getEnv("DATABASE_NAME", "taskboard"),
		DatabaseSSLMode:        getEnv("DATABASE_SSLMODE", "disable"),
		MigrationsPath:         getEnv("MIGRATIONS_PATH", "db/migrations"),
		RedisURL:               getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:              jwtSecret,
		TokenTTLMinutes:        tokenTTL,
		SMTPHost:               getEnv("SMTP_HOST", "localhost"),
		SMTPPort:               smtpPort,
		MailFrom:               getEnv("MAIL_FROM", "taskboard@example.com"),
		RateLimitRequests:      rateLimitReqs,
		RateLimitWindowSeconds: rateLimitWindow,
		EventQueueSize:         queueSize,
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
