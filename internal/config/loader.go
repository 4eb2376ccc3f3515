package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "tourbridge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "TOURBRIDGE_PORT")
	setString(&cfg.Server.CORSOrigin, "TOURBRIDGE_CORS_ORIGIN")
	setDuration(&cfg.Server.ShutdownTimeout, "TOURBRIDGE_SHUTDOWN_TIMEOUT")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "TOURBRIDGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "TOURBRIDGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "TOURBRIDGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "TOURBRIDGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "TOURBRIDGE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Stream, "TOURBRIDGE_NATS_STREAM")
	setString(&cfg.Logging.Level, "TOURBRIDGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TOURBRIDGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "TOURBRIDGE_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "TOURBRIDGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TOURBRIDGE_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "TOURBRIDGE_RATE_RPS")
	setInt(&cfg.Rate.Burst, "TOURBRIDGE_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "TOURBRIDGE_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "TOURBRIDGE_RATE_MAX_IDLE_TIME")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "TOURBRIDGE_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "TOURBRIDGE_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "TOURBRIDGE_CACHE_L2_TTL")

	// Idempotency
	setString(&cfg.Idempotency.Bucket, "TOURBRIDGE_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.Idempotency.TTL, "TOURBRIDGE_IDEMPOTENCY_TTL")

	// Notifier
	setString(&cfg.Notifier.Provider, "TOURBRIDGE_NOTIFIER")
	setInt64(&cfg.Notifier.MaxInFlight, "TOURBRIDGE_NOTIFIER_MAX_IN_FLIGHT")
	setDuration(&cfg.Notifier.Timeout, "TOURBRIDGE_NOTIFIER_TIMEOUT")
	setMapValue(&cfg.Notifier.Config, "base_url", "TOURBRIDGE_WHATSAPP_BASE_URL")
	setMapValue(&cfg.Notifier.Config, "access_token", "TOURBRIDGE_WHATSAPP_TOKEN")
	setMapValue(&cfg.Notifier.Config, "phone_number_id", "TOURBRIDGE_WHATSAPP_PHONE_NUMBER_ID")
	setString(&cfg.Notifier.SecretsFile, "TOURBRIDGE_SECRETS_FILE")

	setString(&cfg.Reconcile.Strictness, "TOURBRIDGE_RECONCILE_STRICTNESS")
	setInt(&cfg.Auth.BcryptCost, "TOURBRIDGE_BCRYPT_COST")
	setDuration(&cfg.Auth.KeyCacheTTL, "TOURBRIDGE_KEY_CACHE_TTL")

	// OpenTelemetry
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "TOURBRIDGE_OTEL_INSECURE")
	setFloat64(&cfg.OTEL.SampleRatio, "TOURBRIDGE_OTEL_SAMPLE_RATIO")

	setString(&cfg.Tracking.BaseURL, "TOURBRIDGE_TRACKING_BASE_URL")
	setDuration(&cfg.Tracking.CacheTTL, "TOURBRIDGE_TRACKING_CACHE_TTL")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Notifier.MaxInFlight < 1 {
		return errors.New("notifier.max_in_flight must be >= 1")
	}
	switch cfg.Reconcile.Strictness {
	case "strict", "standard", "lenient":
	default:
		return fmt.Errorf("reconcile.strictness %q must be strict, standard or lenient", cfg.Reconcile.Strictness)
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return errors.New("auth.bcrypt_cost must be between 4 and 31")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setMapValue(dst *map[string]string, field, key string) {
	if v := os.Getenv(key); v != "" {
		if *dst == nil {
			*dst = make(map[string]string)
		}
		(*dst)[field] = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
