package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "ENGRAM_"

// Load resolves configuration by starting from Defaults(), overlaying
// an optional YAML file at path (skipped if empty or missing), then
// overlaying environment variables prefixed ENGRAM_.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := loadYAMLFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadYAMLFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setInt(&cfg.VectorDim, "VECTOR_DIM")

	setString(&cfg.Postgres.DSN, "POSTGRES_DSN")
	setInt32(&cfg.Postgres.MaxConns, "POSTGRES_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "POSTGRES_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "POSTGRES_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "POSTGRES_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "POSTGRES_HEALTH_CHECK_PERIOD")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Service, "LOG_SERVICE")
	setBool(&cfg.Logging.Async, "LOG_ASYNC")
	setInt(&cfg.Logging.AsyncBufferSize, "LOG_ASYNC_BUFFER_SIZE")
	setInt(&cfg.Logging.AsyncWorkers, "LOG_ASYNC_WORKERS")

	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setDuration(&cfg.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")
	setString(&cfg.Server.CORSOrigin, "CORS_ORIGIN")

	setBool(&cfg.Auth.Enabled, "AUTH_ENABLED")
	setString(&cfg.Auth.APISecretKey, "API_SECRET_KEY")
	setString(&cfg.Auth.AdminUsername, "ADMIN_USERNAME")
	setString(&cfg.Auth.AdminPasswordHash, "ADMIN_PASSWORD_HASH")

	setInt(&cfg.RateLimit.PerMinute, "RATE_LIMIT_PER_MINUTE")
	setInt(&cfg.RateLimit.PerHour, "RATE_LIMIT_PER_HOUR")
	setDuration(&cfg.RateLimit.BlockDuration, "RATE_LIMIT_BLOCK_DURATION")

	setInt(&cfg.Sanitize.CommentByteLimit, "COMMENT_BYTE_LIMIT")
	setInt(&cfg.Sanitize.FieldByteLimit, "FIELD_BYTE_LIMIT")

	setString(&cfg.Embedding.Provider, "EMBEDDING_PROVIDER")
	setString(&cfg.Embedding.APIKey, "EMBEDDING_API_KEY")
	setString(&cfg.Embedding.BaseURL, "EMBEDDING_BASE_URL")
	setString(&cfg.Embedding.Model, "EMBEDDING_MODEL")
	setInt(&cfg.Embedding.Dims, "EMBEDDING_DIMS")

	setString(&cfg.Curation.Provider, "CURATION_PROVIDER")
	setString(&cfg.Curation.APIKey, "CURATION_API_KEY")
	setString(&cfg.Curation.BaseURL, "CURATION_BASE_URL")
	setString(&cfg.Curation.Model, "CURATION_MODEL")

	setBool(&cfg.Cleanup.Enabled, "CLEANUP_ENABLED")
	setString(&cfg.Cleanup.DailyCron, "CLEANUP_DAILY_CRON")
	setString(&cfg.Cleanup.WeeklyCron, "CLEANUP_WEEKLY_CRON")
	setString(&cfg.Cleanup.MonthlyCron, "CLEANUP_MONTHLY_CRON")

	setInt64(&cfg.Cache.MaxCostBytes, "CACHE_MAX_COST_BYTES")
}

func lookup(name string) (string, bool) {
	return os.LookupEnv(envPrefix + name)
}

func setString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func setBool(dst *bool, name string) {
	if v, ok := lookup(name); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, name string) {
	if v, ok := lookup(name); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, name string) {
	if v, ok := lookup(name); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
		if err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, name string) {
	if v, ok := lookup(name); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, name string) {
	if v, ok := lookup(name); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err == nil {
			*dst = d
		}
	}
}
