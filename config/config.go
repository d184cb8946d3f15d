// Package config loads fsmctl process settings from the environment, after
// merging any .env files.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/store"
	"github.com/amp-labs/amp-fsm/store/bolt"
	"github.com/amp-labs/amp-fsm/store/redis"
	"github.com/amp-labs/amp-fsm/telemetry"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrParsingConfig is returned when the environment cannot be parsed into Config.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")
	// ErrLoadingEnvFile is returned when an explicitly named .env file cannot be read.
	ErrLoadingEnvFile = errors.New("failed to load env file")
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreBolt   = "bolt"
	StoreRedis  = "redis"
)

// StoreConfig selects and configures the snapshot store.
type StoreConfig struct {
	Kind  string `env:"FSM_STORE" envDefault:"memory"`
	Bolt  bolt.Config
	Redis redis.Config
}

// Config holds every fsmctl setting.
type Config struct {
	LogLevel    string `env:"FSM_LOG_LEVEL"    envDefault:"info"`
	LogJSON     bool   `env:"FSM_LOG_JSON"     envDefault:"false"`
	LogOutput   string `env:"FSM_LOG_OUTPUT"   envDefault:"stderr"`
	MetricsAddr string `env:"FSM_METRICS_ADDR"`

	Store     StoreConfig
	Telemetry telemetry.Config
}

// Load reads the named .env files (or ".env" if present when none are
// named) into the process environment and parses it.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Join(ErrLoadingEnvFile, err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return nil, errors.Join(ErrLoadingEnvFile, err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}

	return finish(&cfg)
}

// LoadFromMap parses the given variables instead of the process environment.
func LoadFromMap(vars map[string]string) (*Config, error) {
	var cfg Config

	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}

	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.Store.Kind = strings.ToLower(strings.TrimSpace(cfg.Store.Kind))
	cfg.Telemetry.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values that env tags cannot.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if _, err := logger.ParseOutput(c.LogOutput); err != nil {
		errs = append(errs, err)
	}

	switch c.Store.Kind {
	case StoreMemory, StoreBolt, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", store.ErrUnknownKind, c.Store.Kind))
	}

	return errors.Join(errs...)
}

// Logging returns logger options for the configured level and output.
func (c *Config) Logging(subsystem string) (logger.Options, error) {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return logger.Options{}, err
	}

	out, err := logger.ParseOutput(c.LogOutput)
	if err != nil {
		return logger.Options{}, err
	}

	return logger.Options{
		Subsystem:   subsystem,
		JSON:        c.LogJSON,
		MinLevel:    level,
		LegacyLevel: slog.LevelInfo,
		Output:      out,
	}, nil
}

// Open opens the configured store.
func (c StoreConfig) Open(ctx context.Context) (store.Store, error) {
	switch c.Kind {
	case "", StoreMemory:
		return store.NewMemory(), nil
	case StoreBolt:
		s, err := bolt.Open(c.Bolt)
		if err != nil {
			return nil, err
		}

		return s, nil
	case StoreRedis:
		s, err := redis.Open(ctx, c.Redis)
		if err != nil {
			return nil, err
		}

		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrUnknownKind, c.Kind)
	}
}
