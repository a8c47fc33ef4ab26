package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	DatabasePath string
	LogLevel     string

	// How often the ingest worker polls for unprocessed messages.
	IngestInterval time.Duration

	// Forwarding-confirmation fetcher (the only outbound HTTP the worker does).
	ConfirmForwardingLinks  bool
	ForwardingFetchTimeout  time.Duration
	ForwardingFetchInterval time.Duration
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	Cfg = &AppConfig{
		DatabasePath: getEnv("DATABASE_PATH", "./cachin.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		IngestInterval: getEnvAsDuration("INGEST_INTERVAL", 5*time.Minute),

		ConfirmForwardingLinks:  getEnvAsBool("CONFIRM_FORWARDING_LINKS", true),
		ForwardingFetchTimeout:  getEnvAsDuration("FORWARDING_FETCH_TIMEOUT", 10*time.Second),
		ForwardingFetchInterval: getEnvAsDuration("FORWARDING_FETCH_INTERVAL", time.Second),
	}

	log.Printf("Configuration loaded: LogLevel=%s, DBPath=%s, IngestInterval=%s, ConfirmForwardingLinks=%t",
		Cfg.LogLevel, Cfg.DatabasePath, Cfg.IngestInterval, Cfg.ConfirmForwardingLinks)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
