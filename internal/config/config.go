package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	APIAuthSecret string

	// CRM gateway
	CRMBaseURL    string
	CRMAPIKey     string
	CRMTimeout    time.Duration
	CRMLoginPath  string
	CORSOrigins   []string
	MutationRate  float64
	MutationBurst int

	// View synchronization
	CacheTTL         time.Duration
	SessionIdleTTL   time.Duration
	RosterWaitBudget time.Duration

	// Roster snapshot
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool
	RosterSnapshotTTL time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		APIAuthSecret: getEnv("API_AUTH_SECRET", ""),

		CRMBaseURL:    strings.TrimRight(getEnv("CRM_BASE_URL", ""), "/"),
		CRMAPIKey:     getEnv("CRM_API_KEY", ""),
		CRMTimeout:    getEnvAsDuration("CRM_TIMEOUT", 15*time.Second),
		CRMLoginPath:  getEnv("CRM_LOGIN_PATH", "/auth/login"),
		CORSOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		MutationRate:  getEnvAsFloat("MUTATION_RATE_PER_SEC", 5),
		MutationBurst: getEnvAsInt("MUTATION_BURST", 10),

		CacheTTL:         getEnvAsDuration("CACHE_TTL", 2*time.Minute),
		SessionIdleTTL:   getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),
		RosterWaitBudget: getEnvAsDuration("ROSTER_WAIT_BUDGET", 2*time.Second),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
		RosterSnapshotTTL: getEnvAsDuration("ROSTER_SNAPSHOT_TTL", 24*time.Hour),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
