// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds all the necessary configuration for an App instance to run.
// The env tags provide the defaults that command-line flags override.
type Config struct {
	// SteeringPaths are .hcl files or directories of them.
	SteeringPaths []string
	// Overrides are "section.key=value" assignments applied after loading.
	Overrides []string

	LogFormat    string `env:"PIXSIM_LOG_FORMAT" envDefault:"text"`
	LogLevel     string `env:"PIXSIM_LOG_LEVEL" envDefault:"info"`
	OtelEndpoint string `env:"PIXSIM_OTEL_ENDPOINT"`
}

// EnvDefaults reads the environment-backed fields of Config.
func EnvDefaults() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.SteeringPaths) == 0 {
		return nil, errors.New("at least one steering file or directory is required")
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	for _, o := range cfg.Overrides {
		if !strings.Contains(o, "=") {
			return nil, fmt.Errorf("invalid override %q: must be of the form section.key=value", o)
		}
	}
	return &cfg, nil
}
