package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	StoreBackend string
	QueueBackend string

	JWTSecret     string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration
	BcryptCost    int

	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	DeleteQueueName   string
	WorkerConcurrency int
	WorkerMaxRetry    int
	WorkerHealthPort  int

	OTelEndpoint       string
	CORSAllowedOrigins []string
}

// Load reads the environment (and a .env file when present).
func Load() (Config, error) {
	// a missing .env is fine, the real environment wins anyway
	_ = godotenv.Load()

	var errs []error

	intVar := func(key string, fallback int) int {
		n, err := getEnvInt(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}

	expiryVar := func(key, fallback string) time.Duration {
		d, err := ParseExpiry(getEnv(key, fallback))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}

	cfg := Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  intVar("PORT", 8080),
		DBURL: buildDBURL(),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendPostgres)),
		QueueBackend: strings.ToLower(getEnv("QUEUE_BACKEND", BackendRedis)),

		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTAccessTTL:  expiryVar("JWT_ACCESS_EXPIRES_IN", "1d"),
		JWTRefreshTTL: expiryVar("JWT_REFRESH_EXPIRES_IN", "30d"),
		BcryptCost:    intVar("BCRYPT_COST", 10),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     intVar("REDIS_PORT", 6379),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       intVar("REDIS_DB", 0),

		DeleteQueueName:   getEnv("DELETE_QUEUE_NAME", "user-deletion"),
		WorkerConcurrency: intVar("WORKER_CONCURRENCY", 4),
		WorkerMaxRetry:    intVar("WORKER_MAX_RETRY", 10),
		WorkerHealthPort:  intVar("WORKER_HEALTH_PORT", 8081),

		OTelEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CORSAllowedOrigins: parseCSV(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	switch cfg.StoreBackend {
	case BackendPostgres, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND: unknown backend %q", cfg.StoreBackend))
	}

	switch cfg.QueueBackend {
	case BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("QUEUE_BACKEND: unknown backend %q", cfg.QueueBackend))
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

// RedisAddr is the host:port pair of the queue backend.
func (c Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}

// ParseExpiry accepts Go durations ("15m", "24h") plus a day suffix ("1d", "30d").
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty expiry")
	}

	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid expiry %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid expiry %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid expiry %q", s)
	}
	return d, nil
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "authhub")
	pass := getEnv("DB_PASSWORD", "authhub")
	name := getEnv("DB_NAME", "authhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback, fmt.Errorf("%s: %w", key, err)
		}

		return num, nil
	}
	return fallback, nil
}

func parseCSV(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
