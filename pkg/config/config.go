package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers understood by STORE_DRIVER
const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

type Config struct {
	Port            string
	JWTSecret       string
	JWTAccessExpiry time.Duration

	StoreDriver         string
	DatabaseURL         string
	FirebaseCredentials string
	GoogleProjectID     string

	PubSubTopic          string
	OverdueSweepInterval time.Duration
	EnrichConcurrency    int
	AllowedOrigins       string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		JWTSecret:            getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:      getDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		StoreDriver:          getEnv("STORE_DRIVER", StoreMemory),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		FirebaseCredentials:  getEnv("FIREBASE_CREDENTIALS", ""),
		GoogleProjectID:      getEnv("GOOGLE_PROJECT_ID", ""),
		PubSubTopic:          getEnv("PUBSUB_TOPIC", "task-events"),
		OverdueSweepInterval: getDuration("OVERDUE_SWEEP_INTERVAL", time.Minute),
		EnrichConcurrency:    getInt("ENRICH_CONCURRENCY", 8),
		AllowedOrigins:       getEnv("ALLOWED_ORIGINS", "http://localhost:5173"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
