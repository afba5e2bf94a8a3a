package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort  string
	LogLevel string

	PostgresDSN         string
	StorageEnsureSchema bool
	StorageCallTimeout  time.Duration

	NATSURL           string
	NATSReportSubject string
	NATSConsumerGroup string
	NATSMaxReconnects int
	NATSReconnectWait time.Duration
	NATSDrainTimeout  time.Duration

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	BreakerEnabled   bool

	RedactionRulesFile string

	APIRateLimitRPS     float64
	APIRateLimitBurst   int
	APIMaxInFlight      int
	APIBackpressureWait time.Duration

	WorkerMetricsPort string
}

// Load reads the process environment. A .env file in the working directory is
// applied first; variables already set in the environment win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIPort:  mustEnv("API_PORT", "3002"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		PostgresDSN:         mustEnv("POSTGRES_DSN", "postgres://root@localhost:26257/jagawargadb?sslmode=disable"),
		StorageEnsureSchema: mustEnvBool("STORAGE_ENSURE_SCHEMA", true),
		StorageCallTimeout:  mustEnvMillis("STORAGE_CALL_TIMEOUT_MS", 5000),

		NATSURL:           mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSReportSubject: mustEnv("NATS_REPORT_SUBJECT", "report.created"),
		NATSConsumerGroup: mustEnv("NATS_CONSUMER_GROUP", "report-auditors"),
		NATSMaxReconnects: mustEnvInt("NATS_MAX_RECONNECTS", 10),
		NATSReconnectWait: mustEnvMillis("NATS_RECONNECT_WAIT_MS", 1000),
		NATSDrainTimeout:  mustEnvMillis("NATS_DRAIN_TIMEOUT_MS", 5000),

		RetryMaxAttempts: mustEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   mustEnvMillis("RETRY_BASE_DELAY_MS", 1000),
		BreakerEnabled:   mustEnvBool("BREAKER_ENABLED", false),

		RedactionRulesFile: mustEnv("REDACTION_RULES_FILE", ""),

		APIRateLimitRPS:     mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:   mustEnvInt("API_RATE_LIMIT_BURST", 20),
		APIMaxInFlight:      mustEnvInt("API_MAX_IN_FLIGHT", 0),
		APIBackpressureWait: mustEnvMillis("API_BACKPRESSURE_WAIT_MS", 100),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvMillis(key string, fallbackMs int) time.Duration {
	return time.Duration(mustEnvInt(key, fallbackMs)) * time.Millisecond
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
