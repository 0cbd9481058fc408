package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs at startup. Values come from
// environment variables so main stays lean and deployments stay 12-factor.
type Config struct {
	Addr          string
	VerifyBaseURL string
	JWTSigningKey string

	PostgresURL  string
	RedisURL     string
	KafkaBrokers []string
	AuditTopic   string

	Registries []RegistryConfig
	Failover   FailoverConfig
	Circuit    CircuitConfig

	ResultCacheTTL time.Duration
}

// RegistryConfig holds the ordered endpoint list for one external registry.
// The first endpoint is primary; the rest are failover targets in order.
type RegistryConfig struct {
	Name      string
	Endpoints []string
}

// FailoverConfig holds the default retry policy applied to registry calls.
type FailoverConfig struct {
	MaxRetries        int
	RetryDelay        time.Duration
	PerAttemptTimeout time.Duration
}

// CircuitConfig holds per-registry breaker thresholds.
type CircuitConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

// Registry names recognized by the default deployment. Each maps to an
// external verification authority; endpoints are supplied per environment.
const (
	RegistryPopulation = "population"
	RegistryBiometric  = "biometric"
	RegistryCriminal   = "criminal_record"
	RegistryTravel     = "travel_document"
)

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:          getEnv("VERIDOC_ADDR", ":8080"),
		VerifyBaseURL: getEnv("VERIDOC_VERIFY_BASE_URL", "https://verify.veridoc.local"),
		JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		AuditTopic:    getEnv("AUDIT_TOPIC", "veridoc.audit"),
		Registries: []RegistryConfig{
			{Name: RegistryPopulation, Endpoints: splitList(os.Getenv("REGISTRY_POPULATION_URLS"))},
			{Name: RegistryBiometric, Endpoints: splitList(os.Getenv("REGISTRY_BIOMETRIC_URLS"))},
			{Name: RegistryCriminal, Endpoints: splitList(os.Getenv("REGISTRY_CRIMINAL_URLS"))},
			{Name: RegistryTravel, Endpoints: splitList(os.Getenv("REGISTRY_TRAVEL_URLS"))},
		},
		Failover: FailoverConfig{
			MaxRetries:        getEnvInt("FAILOVER_MAX_RETRIES", 3),
			RetryDelay:        getEnvDuration("FAILOVER_RETRY_DELAY", 200*time.Millisecond),
			PerAttemptTimeout: getEnvDuration("FAILOVER_ATTEMPT_TIMEOUT", 3*time.Second),
		},
		Circuit: CircuitConfig{
			FailureThreshold: getEnvInt("CIRCUIT_FAILURE_THRESHOLD", 5),
			ResetTimeout:     getEnvDuration("CIRCUIT_RESET_TIMEOUT", 30*time.Second),
		},
		ResultCacheTTL: getEnvDuration("RESULT_CACHE_TTL", 5*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
