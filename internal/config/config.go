package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database (optional: enables the shot journal)
	DatabaseURL    string
	MigrateOnStart bool

	// Redis (optional: enables table event fan-out)
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Tables
	FrameRate              int
	MaxTables              int
	TableIdleMinutes       int
	IdleWorkerPollInterval int // seconds

	// Security
	JWTSecret              string
	ControlTokenTTLMinutes int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Tables
		FrameRate:              getEnvInt("FRAME_RATE", 60),
		MaxTables:              getEnvInt("MAX_TABLES", 32),
		TableIdleMinutes:       getEnvInt("TABLE_IDLE_MINUTES", 30),
		IdleWorkerPollInterval: getEnvInt("IDLE_WORKER_POLL_INTERVAL", 30),

		// Security
		JWTSecret:              getEnv("JWT_SECRET", "change-me-in-production"),
		ControlTokenTTLMinutes: getEnvInt("CONTROL_TOKEN_TTL_MINUTES", 240),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}
