package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort     string
	Debug          bool
	RequestTimeout time.Duration
	CORSOrigin     string

	// Ampeco API
	AmpecoAPIURL    string
	AmpecoAPIToken  string
	ProviderTimeout time.Duration

	// Admin console
	AdminPassword string
}

// Load reads configuration from the environment (and an optional .env file).
// Missing provider credentials or admin secret are a startup error.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:      getEnv("PORT", "4000"),
		Debug:           getEnvBool("DEBUG", false),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
		AmpecoAPIURL:    strings.TrimRight(getEnv("AMPECO_API_URL", ""), "/"),
		AmpecoAPIToken:  getEnv("AMPECO_API_TOKEN", ""),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 15*time.Second),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
	}

	var missing []string
	if cfg.AmpecoAPIURL == "" {
		missing = append(missing, "AMPECO_API_URL")
	}
	if cfg.AmpecoAPIToken == "" {
		missing = append(missing, "AMPECO_API_TOKEN")
	}
	if cfg.AdminPassword == "" {
		missing = append(missing, "ADMIN_PASSWORD")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
