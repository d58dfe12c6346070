package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Ledger backends selectable through PROPREG_LEDGER_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	LogLevel      string
	AdminToken    string
	LedgerBackend string
	MaxTxAttempts int

	Redis       RedisConfig
	DatabaseURL string
	Kafka       KafkaConfig

	// OTelEndpoint is the OTLP/HTTP collector URL. Tracing is off when empty.
	OTelEndpoint string
}

// RedisConfig configures the go-redis client used by the redis ledger backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures commit event publishing. Publishing is off when
// Brokers is empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:          envOr("PROPREG_ADDR", ":8080"),
		LogLevel:      envOr("PROPREG_LOG_LEVEL", "info"),
		AdminToken:    os.Getenv("PROPREG_ADMIN_TOKEN"),
		LedgerBackend: strings.ToLower(envOr("PROPREG_LEDGER_BACKEND", BackendMemory)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_TOPIC", "propreg.commits"),
		},
		OTelEndpoint: strings.TrimSpace(os.Getenv("PROPREG_OTEL_ENDPOINT")),
	}

	var err error
	if cfg.MaxTxAttempts, err = envInt("PROPREG_MAX_TX_ATTEMPTS", 5); err != nil {
		return Server{}, err
	}
	if cfg.Redis.PoolSize, err = envInt("REDIS_POOL_SIZE", 10); err != nil {
		return Server{}, err
	}
	if cfg.Redis.MinIdleConns, err = envInt("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return Server{}, err
	}
	if cfg.Redis.DialTimeout, err = envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.ReadTimeout, err = envDuration("REDIS_READ_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.WriteTimeout, err = envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c Server) Validate() error {
	switch c.LedgerBackend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for the %s ledger backend", c.LedgerBackend)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s ledger backend", c.LedgerBackend)
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", c.LedgerBackend)
	}
	if c.MaxTxAttempts < 1 {
		return fmt.Errorf("PROPREG_MAX_TX_ATTEMPTS must be positive, got %d", c.MaxTxAttempts)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

// splitList splits a comma separated list, dropping blanks and duplicates.
func splitList(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if _, dup := seen[part]; part == "" || dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
