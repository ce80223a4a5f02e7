// Package config builds process configuration from the environment so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server process needs at startup.
type Config struct {
	Addr       string
	AdminToken string

	PostgresDSN string

	Redis RedisConfig

	KafkaBrokers []string
	AuditTopic   string

	IdP IdPConfig
}

// RedisConfig holds connection settings for the inconsistency ledger.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// IdPConfig holds the identity provider admin API settings.
type IdPConfig struct {
	BaseURL    string
	SigningKey string
	Issuer     string
	Audience   string
}

// FromEnv builds a Config from environment variables with development
// defaults where a missing value is safe to default.
func FromEnv() Config {
	cfg := Config{
		Addr:        envOr("ROSTER_ADDR", ":8080"),
		AdminToken:  os.Getenv("ROSTER_ADMIN_TOKEN"),
		PostgresDSN: os.Getenv("ROSTER_POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("ROSTER_REDIS_URL"),
			PoolSize:     envIntOr("ROSTER_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("ROSTER_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		AuditTopic: envOr("ROSTER_AUDIT_TOPIC", "roster.audit"),
		IdP: IdPConfig{
			BaseURL:    os.Getenv("ROSTER_IDP_URL"),
			SigningKey: os.Getenv("ROSTER_IDP_SIGNING_KEY"),
			Issuer:     envOr("ROSTER_IDP_ISSUER", "roster"),
			Audience:   envOr("ROSTER_IDP_AUDIENCE", "idp-admin-api"),
		},
	}
	if brokers := os.Getenv("ROSTER_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if cfg.IdP.SigningKey == "" {
		// Dev default; must be overridden in production.
		cfg.IdP.SigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
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
