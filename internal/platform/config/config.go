package config

import (
	"os"
	"strconv"
	"strings"
)

// Config captures process-level configuration. Domain parameters pin the
// digest domain separator; changing any of them invalidates every signature
// collected for the previous deployment, deliberately.
type Config struct {
	Addr     string
	LogLevel string

	DomainName      string
	DomainVersion   string
	NetworkID       uint64
	RegistryAddress string

	AdminPrincipal string
	JWTSigningKey  string

	PostgresURL  string
	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("VERISTRY_ADDR", ":8080"),
		LogLevel:        envOr("VERISTRY_LOG_LEVEL", "info"),
		DomainName:      envOr("VERISTRY_DOMAIN_NAME", "veristry"),
		DomainVersion:   envOr("VERISTRY_DOMAIN_VERSION", "1"),
		RegistryAddress: os.Getenv("VERISTRY_REGISTRY_ADDRESS"),
		AdminPrincipal:  os.Getenv("VERISTRY_ADMIN_PRINCIPAL"),
		JWTSigningKey:   os.Getenv("VERISTRY_JWT_SIGNING_KEY"),
		PostgresURL:     os.Getenv("VERISTRY_POSTGRES_URL"),
		RedisURL:        os.Getenv("VERISTRY_REDIS_URL"),
		KafkaTopic:      envOr("VERISTRY_KAFKA_TOPIC", "veristry.events"),
	}

	if v := os.Getenv("VERISTRY_NETWORK_ID"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.NetworkID = n
		}
	}
	if v := os.Getenv("VERISTRY_KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}
	if cfg.JWTSigningKey == "" {
		// Development default; must be overridden in production.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
