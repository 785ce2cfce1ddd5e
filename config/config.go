// Package config loads actionkit settings from an optional YAML file and the
// environment. Environment variables win over the file, the file wins over
// the defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/auditmos/actionkit/event"
	"github.com/auditmos/actionkit/logging"
)

const EnvPrefix = "ACTIONKIT_"

type Config struct {
	DB        string `yaml:"db" env:"DB"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`
	EventMask string `yaml:"event_mask" env:"EVENT_MASK"`
	Safe      bool   `yaml:"safe" env:"SAFE"`
	Metrics   bool   `yaml:"metrics" env:"METRICS"`
}

func Default() Config {
	return Config{
		DB:        "actionkit.db",
		LogLevel:  "info",
		LogFormat: "human",
		EventMask: "all",
	}
}

// Load builds a Config from the defaults, the YAML file at path when path is
// not empty, and ACTIONKIT_* environment variables, in that order.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.DB == "" {
		errs = append(errs, errors.New("db must not be empty"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "human", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be human or json, got %q", c.LogFormat))
	}
	if _, err := event.ParseMask(c.EventMask); err != nil {
		errs = append(errs, fmt.Errorf("event_mask: %w", err))
	}
	return errors.Join(errs...)
}

func (c Config) Level() logging.LogLevel {
	return logging.ParseLevel(c.LogLevel)
}

// Mask returns the parsed event mask. Validate has already rejected bad
// values, so a parse failure falls back to MaskAll.
func (c Config) Mask() event.Mask {
	m, err := event.ParseMask(c.EventMask)
	if err != nil {
		return event.MaskAll
	}
	return m
}
