package app

import (
	"errors"
	"fmt"
	"time"
)

// DefaultWorkers is used when Config.Workers is not positive.
const DefaultWorkers = 10

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	BlueprintPaths []string // .hcl files or directories
	OutPath        string   // plan artifact; empty writes it to the output writer
	LintConfigPath string   // optional YAML lint levels

	LogFormat string
	LogLevel  string
	Workers   int

	ServeAddr string // dev server address in watch mode; empty disables it
	Debounce  time.Duration
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}

	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Debounce < 0 {
		return nil, errors.New("debounce cannot be negative")
	}
	return &cfg, nil
}
