package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "chatforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error. CHATFORGE_CONFIG
// selects another file.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if v := os.Getenv("CHATFORGE_CONFIG"); v != "" {
		path = v
	}
	return LoadFrom(path)
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
	setString(&cfg.Server.Port, "CHATFORGE_PORT")
	setString(&cfg.Server.CORSOrigin, "CHATFORGE_CORS_ORIGIN")
	setInt64(&cfg.Server.MaxBodyBytes, "CHATFORGE_MAX_BODY_BYTES")
	setDuration(&cfg.Server.RequestTimeout, "CHATFORGE_REQUEST_TIMEOUT")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "CHATFORGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "CHATFORGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "CHATFORGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "CHATFORGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "CHATFORGE_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Stream, "CHATFORGE_NATS_STREAM")
	var natsDisabled bool
	setBool(&natsDisabled, "CHATFORGE_NATS_DISABLED")
	if natsDisabled {
		cfg.NATS.URL = ""
	}

	// LLM
	setString(&cfg.LLM.BaseURL, "MOONSHOT_BASE_URL")
	setString(&cfg.LLM.APIKey, "MOONSHOT_API_KEY")
	setString(&cfg.LLM.BaseURL, "CHATFORGE_LLM_BASE_URL")
	setString(&cfg.LLM.APIKey, "CHATFORGE_LLM_API_KEY")
	setString(&cfg.LLM.Model, "CHATFORGE_LLM_MODEL")
	setFloat64(&cfg.LLM.Temperature, "CHATFORGE_LLM_TEMPERATURE")
	setInt(&cfg.LLM.MaxRounds, "CHATFORGE_LLM_MAX_ROUNDS")
	setDuration(&cfg.LLM.Timeout, "CHATFORGE_LLM_TIMEOUT")
	setBool(&cfg.LLM.ParallelTools, "CHATFORGE_LLM_PARALLEL_TOOLS")
	setString(&cfg.LLM.SystemPrompt, "CHATFORGE_LLM_SYSTEM_PROMPT")

	setString(&cfg.Logging.Level, "CHATFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CHATFORGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "CHATFORGE_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "CHATFORGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "CHATFORGE_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "CHATFORGE_RATE_RPS")
	setInt(&cfg.Rate.Burst, "CHATFORGE_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "CHATFORGE_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "CHATFORGE_RATE_MAX_IDLE_TIME")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "CHATFORGE_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "CHATFORGE_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "CHATFORGE_CACHE_L2_TTL")

	setBool(&cfg.Idempotency.Enabled, "CHATFORGE_IDEMPOTENCY_ENABLED")
	setDuration(&cfg.Idempotency.TTL, "CHATFORGE_IDEMPOTENCY_TTL")

	// OpenTelemetry
	setBool(&cfg.OTEL.Enabled, "CHATFORGE_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "CHATFORGE_OTEL_INSECURE")
	setFloat64(&cfg.OTEL.SampleRate, "CHATFORGE_OTEL_SAMPLE_RATE")

	setBool(&cfg.MCP.Enabled, "CHATFORGE_MCP_ENABLED")
	setString(&cfg.MCP.Path, "CHATFORGE_MCP_PATH")
	setString(&cfg.MCP.APIKey, "CHATFORGE_MCP_API_KEY")
}

// validate checks that required fields are set and in range.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.LLM.BaseURL == "" {
		return errors.New("llm.base_url is required")
	}
	if cfg.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if cfg.LLM.MaxRounds < 1 {
		return errors.New("llm.max_rounds must be >= 1")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if strings.TrimSpace(cfg.LLM.SystemPrompt) == "" {
		return errors.New("llm.system_prompt is required")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.OTEL.SampleRate < 0 || cfg.OTEL.SampleRate > 1 {
		return errors.New("otel.sample_rate must be between 0 and 1")
	}
	if cfg.MCP.Enabled && !strings.HasPrefix(cfg.MCP.Path, "/") {
		return errors.New("mcp.path must start with /")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
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
