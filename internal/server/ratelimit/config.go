package ratelimit

import (
	"os"
	"strconv"
	"time"
)

// EndpointConfig is the rate budget for one endpoint. Path supports prefix
// matching when it ends with "/".
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int           // Requests per window
	Window time.Duration // Refill window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	EndpointConfigs []EndpointConfig
}

// LoadConfig builds rate limiting configuration from environment variables
// with the endpoint budgets baked in.
func LoadConfig() *Config {
	enabled := getEnvBool("RATE_LIMIT_ENABLED", true)
	if !enabled {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the per-endpoint budgets. Campaign
// submission and regeneration drive provider spend, so they are much
// tighter than reads.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Expensive: each one starts provider work on a worker.
		{Path: "/api/jobs", Method: "POST", Limit: 20, Window: time.Hour, Burst: 5},
		{Path: "/api/jobs/", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5}, // regenerate/cancel

		// Account creation and login.
		{Path: "/api/auth/", Method: "POST", Limit: 30, Window: time.Minute, Burst: 10},

		// Status polling is the hot read path; keep it roomy but bounded.
		{Path: "/api/jobs/", Method: "GET", Limit: 600, Window: time.Minute, Burst: 60},
	}
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
