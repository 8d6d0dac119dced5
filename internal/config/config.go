package config

import (
	"os"
	"strconv"
	"time"

	"tazkara/internal/cache"
	"tazkara/internal/database"
	"tazkara/internal/external"
	"tazkara/internal/messaging"
	"tazkara/internal/search"
)

// Config holds the application configuration
type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	// Auth
	BearerKey string
	JWTSecret string
	JWTTTL    time.Duration

	FrontendURL string
	UploadsDir  string

	// Pending bookings older than this are purged by the worker
	BookingExpiration time.Duration

	Mongo  database.Config
	Redis  cache.Config
	Search search.Config
	NATS   messaging.Config
	Stripe external.Config
}

// Load reads the configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		GinMode:   getEnv("GIN_MODE", "debug"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		BearerKey: getEnv("BEARER_KEY", "tazkara__"),
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    time.Duration(getEnvInt("JWT_TTL_HOURS", 24)) * time.Hour,

		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		UploadsDir:  getEnv("UPLOADS_DIR", ""),

		BookingExpiration: time.Duration(getEnvInt("BOOKING_EXPIRATION_MIN", 30)) * time.Minute,

		Mongo: database.Config{
			URL:      getEnv("MONGODB_URL", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_NAME", "tazkara"),
			Timeout:  time.Duration(getEnvInt("MONGODB_TIMEOUT_SEC", 10)) * time.Second,
		},

		Redis: cache.Config{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("REDIS_TTL_SEC", 60)) * time.Second,
		},

		Search: search.Config{
			URL:        getEnv("ELASTICSEARCH_URL", ""),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:      getEnv("ELASTICSEARCH_INDEX", "events"),
			MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "tazkara"),
			ClientID:  getEnv("NATS_CLIENT_ID", "tazkara-api"),
		},

		Stripe: external.Config{
			BaseURL:       getEnv("STRIPE_API_URL", "https://api.stripe.com"),
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Timeout:       time.Duration(getEnvInt("STRIPE_TIMEOUT_SEC", 30)) * time.Second,
		},
	}
}

// getEnv returns the value of an environment variable or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
