package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreSQL    = "postgres"
	StoreMemory = "memory"

	BrokerRabbit = "rabbitmq"
	BrokerNATS   = "nats"
	BrokerNoop   = "noop"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr string
	// Trust X-Forwarded-For / X-Real-IP for the client IP (behind a proxy only).
	TrustProxyHeaders bool

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Request bodies above this are rejected with 413.
	RequestBodyMaxBytes int
	// Send Strict-Transport-Security (TLS deployments only).
	HSTSEnabled bool

	//Auth / Security
	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration
	BcryptCost     int

	// Storage
	StoreBackend  string
	DBAddr        string
	DBDebug       bool
	DBAutoMigrate bool
	SeedDemo      bool

	// Rate limiting (empty REDIS_ADDR disables it)
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	ResetRateLimit   int
	ResetRateWindow  time.Duration
	ConfirmRateLimit int

	// Messaging
	Broker              string
	RabbitURL           string
	NATSURL             string
	EventTopic          string
	EventPublishTimeout time.Duration

	// Password reset
	PasswordResetBaseURL  string
	PasswordResetTokenTTL time.Duration
}

func Load() (*Config, error) {
	// .env is optional; real env vars win.
	_ = godotenv.Load()

	cfg := &Config{
		Env:       getEnv("ENV", "dev"),
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		JWTIssuer: getEnv("JWT_ISSUER", "auth-service"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StoreSQL)),
		Broker:       strings.ToLower(getEnv("BROKER", BrokerRabbit)),
		EventTopic:   getEnv("EVENT_TOPIC", "auth-events"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		PasswordResetBaseURL: os.Getenv("PASSWORD_RESET_BASE_URL"),
	}

	// required values
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}

	var err error
	if cfg.TrustProxyHeaders, err = getBool("TRUST_PROXY_HEADERS", false); err != nil {
		return nil, err
	}
	if cfg.HSTSEnabled, err = getBool("HSTS_ENABLED", cfg.Env == "prod"); err != nil {
		return nil, err
	}
	if cfg.RequestBodyMaxBytes, err = getInt("REQUEST_BODY_MAX_SIZE", 1<<20); err != nil {
		return nil, err
	}
	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate, err = getBool("DB_AUTO_MIGRATE", cfg.Env == "dev"); err != nil {
		return nil, err
	}
	if cfg.SeedDemo, err = getBool("SEED_DEMO", false); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ResetRateLimit, err = getInt("RESET_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.ConfirmRateLimit, err = getInt("CONFIRM_RATE_LIMIT", 10); err != nil {
		return nil, err
	}

	// optional with defaults
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", 15 * time.Minute, &cfg.AccessTokenTTL},
		{"PASSWORD_RESET_TOKEN_TTL", time.Hour, &cfg.PasswordResetTokenTTL},
		{"RESET_RATE_WINDOW", 15 * time.Minute, &cfg.ResetRateWindow},
		{"EVENT_PUBLISH_TIMEOUT", 5 * time.Second, &cfg.EventPublishTimeout},
		{"HTTP_READ_TIMEOUT", 10 * time.Second, &cfg.HTTPReadTimeout},
		{"HTTP_WRITE_TIMEOUT", 30 * time.Second, &cfg.HTTPWriteTimeout},
		{"HTTP_IDLE_TIMEOUT", time.Minute, &cfg.HTTPIdleTimeout},
	}
	for _, d := range durations {
		v, err := getDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}
	if cfg.PasswordResetTokenTTL <= 0 {
		return nil, fmt.Errorf("PASSWORD_RESET_TOKEN_TTL must be positive")
	}

	// Backing services are required for the selected backends.
	// Fail fast here to avoid starting in a broken or partially-initialized state.
	switch cfg.StoreBackend {
	case StoreSQL:
		cfg.DBAddr = os.Getenv("DB_ADDR")
		if cfg.DBAddr == "" {
			return nil, fmt.Errorf("missing required env var: DB_ADDR")
		}
		if !strings.HasPrefix(cfg.DBAddr, "postgres://") && !strings.HasPrefix(cfg.DBAddr, "postgresql://") {
			return nil, fmt.Errorf("DB_ADDR must be a postgres:// URL")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q (want %s or %s)", cfg.StoreBackend, StoreSQL, StoreMemory)
	}

	switch cfg.Broker {
	case BrokerRabbit:
		cfg.RabbitURL = os.Getenv("RABBIT_URL")
		if cfg.RabbitURL == "" {
			return nil, fmt.Errorf("missing required env var: RABBIT_URL")
		}
	case BrokerNATS:
		cfg.NATSURL = os.Getenv("NATS_URL")
		if cfg.NATSURL == "" {
			return nil, fmt.Errorf("missing required env var: NATS_URL")
		}
	case BrokerNoop:
	default:
		return nil, fmt.Errorf("invalid BROKER %q (want %s, %s or %s)", cfg.Broker, BrokerRabbit, BrokerNATS, BrokerNoop)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}
