package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string

	// Generative AI gateway
	GeminiAPIKey        string
	GeminiModelID       string
	GeminiEndpoint      string
	GeminiSDKFallback   bool
	GatewayMaxAttempts  int
	GatewayBaseDelay    time.Duration
	GatewayCallTimeout  time.Duration
	GatewayJitterOff    bool

	// Route planning backend
	PlannerBaseURL   string
	PlannerTimeout   time.Duration
	VehicleCapacity  int
	MaxFleetSize     int
	TimeLimitSeconds int

	// Session lifecycle
	SessionIdleTTL time.Duration

	// Saved plan persistence
	OrgID         string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),

		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:      getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		GeminiEndpoint:     getEnv("GEMINI_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiSDKFallback:  getEnvAsBool("GEMINI_SDK_FALLBACK", true),
		GatewayMaxAttempts: getEnvAsInt("GATEWAY_MAX_ATTEMPTS", 5),
		GatewayBaseDelay:   getEnvAsDuration("GATEWAY_BASE_DELAY", 500*time.Millisecond),
		GatewayCallTimeout: getEnvAsDuration("GATEWAY_CALL_TIMEOUT", 60*time.Second),
		GatewayJitterOff:   getEnvAsBool("GATEWAY_JITTER_OFF", false),

		PlannerBaseURL:   getEnv("PLANNER_BASE_URL", "http://127.0.0.1:5000"),
		PlannerTimeout:   getEnvAsDuration("PLANNER_TIMEOUT", 90*time.Second),
		VehicleCapacity:  getEnvAsInt("VEHICLE_CAPACITY", 20000),
		MaxFleetSize:     getEnvAsInt("MAX_FLEET_SIZE", 100),
		TimeLimitSeconds: getEnvAsInt("PLANNER_TIME_LIMIT_SECONDS", 30),

		SessionIdleTTL: getEnvAsDuration("SESSION_IDLE_TTL", 2*time.Hour),

		OrgID:         getEnv("ORG_ID", "alloc8-public"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
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

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
