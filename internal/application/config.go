package application

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rhaversen/GaslightBackend/internal/domain"
)

// Package-level validator instance for configuration and inbound batch
// validation. Uses go-playground/validator v10 for struct tag-based
// validation.
var validate = validator.New()

// Config is the complete application configuration. Values come from
// defaults, then an optional YAML file, then environment overrides, and
// are validated before use.
type Config struct {
	// Server configures the boundary process.
	Server ServerConfig `yaml:"server" validate:"required"`

	// Storage selects and configures the durable record store.
	Storage StorageConfig `yaml:"storage" validate:"required"`

	// Evaluation configures the external code-evaluation service client
	// and the pass/fail policy thresholds.
	Evaluation EvaluationConfig `yaml:"evaluation" validate:"required"`

	// Standings configures the standings view defaults.
	Standings StandingsConfig `yaml:"standings" validate:"required"`
}

// ServerConfig configures the boundary process.
type ServerConfig struct {
	// Addr is the listen address for the HTTP boundary and the metrics
	// endpoint.
	Addr string `yaml:"addr" validate:"required"`
}

// StorageConfig selects the store backend.
type StorageConfig struct {
	// Backend selects the store implementation.
	Backend string `yaml:"backend" validate:"required,oneof=memory mongo"`

	// MongoURI is the connection string for the mongo backend.
	MongoURI string `yaml:"mongo_uri" validate:"required_if=Backend mongo"`

	// Database is the database name for the mongo backend.
	Database string `yaml:"database" validate:"required_if=Backend mongo"`
}

// EvaluationConfig configures the evaluation-service client and policy.
type EvaluationConfig struct {
	// Host is the evaluation service host:port.
	Host string `yaml:"host" validate:"required"`

	// AuthToken is the bearer token presented to the service. Loaded
	// from the environment, never from the config file.
	AuthToken string `yaml:"-"`

	// TimeoutSeconds bounds a single evaluation request.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"min=1,max=3600"`

	// MaxRetries is the number of retry attempts after a failed request.
	MaxRetries int `yaml:"max_retries" validate:"min=0,max=10"`

	// RequestsPerSecond and Burst configure the client rate limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`
	Burst             int     `yaml:"burst" validate:"min=1"`

	// StrategyLoadingTimeoutMs and StrategyExecutionTimeoutMs are the
	// pass/fail policy thresholds; the execution threshold applies at
	// the 99th percentile of per-turn timings.
	StrategyLoadingTimeoutMs   float64 `yaml:"strategy_loading_timeout_ms" validate:"gt=0"`
	StrategyExecutionTimeoutMs float64 `yaml:"strategy_execution_timeout_ms" validate:"gt=0"`
}

// StandingsConfig configures the standings view defaults.
type StandingsConfig struct {
	// PreviewSize is the number of rows in a tournament listing's
	// standings preview.
	PreviewSize int `yaml:"preview_size" validate:"min=1,max=50"`
}

// DefaultConfig returns a Config with production-ready defaults for
// everything except the storage and evaluation endpoints.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Evaluation: EvaluationConfig{
			Host:                       "localhost:4000",
			TimeoutSeconds:             300,
			MaxRetries:                 2,
			RequestsPerSecond:          5,
			Burst:                      10,
			StrategyLoadingTimeoutMs:   100,
			StrategyExecutionTimeoutMs: 1,
		},
		Standings: StandingsConfig{PreviewSize: 3},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML
// file at path, and environment overrides, then validates it.
//
// Environment overrides: MONGO_URI, MONGO_DATABASE, SERVER_ADDR,
// EVALUATION_HOST, MICROSERVICE_AUTHORIZATION, STORAGE_BACKEND,
// STANDINGS_PREVIEW_SIZE.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 - path is operator-supplied
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.Storage.MongoURI = v
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		cfg.Storage.Database = v
	}
	if v := os.Getenv("EVALUATION_HOST"); v != "" {
		cfg.Evaluation.Host = v
	}
	if v := os.Getenv("MICROSERVICE_AUTHORIZATION"); v != "" {
		cfg.Evaluation.AuthToken = v
	}
	if v := os.Getenv("STANDINGS_PREVIEW_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			cfg.Standings.PreviewSize = size
		}
	}
}
