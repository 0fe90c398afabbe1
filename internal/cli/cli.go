// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/pixsimgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ", ") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Defaults for the logging and tracing flags come from the environment.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	defaults, err := app.EnvDefaults()
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	flagSet := flag.NewFlagSet("pixsim", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
pixsim - A modular pixel detector simulation.

Usage:
  pixsim [options] [STEERING_PATH...]

Arguments:
  STEERING_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	var configs, overrides stringList
	flagSet.Var(&configs, "config", "Path to a steering file or directory. May be repeated.")
	flagSet.Var(&configs, "c", "Path to a steering file or directory (shorthand).")
	flagSet.Var(&overrides, "o", "Override a steering value as section.key=value. May be repeated.")
	logFormatFlag := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'. Env: PIXSIM_LOG_FORMAT.")
	logLevelFlag := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'. Env: PIXSIM_LOG_LEVEL.")
	otelFlag := flagSet.String("otel-endpoint", defaults.OtelEndpoint, "OTLP/HTTP endpoint for traces; empty disables tracing. Env: PIXSIM_OTEL_ENDPOINT.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	paths := append([]string(configs), flagSet.Args()...)
	slog.Debug("Steering paths determined.", "paths", paths)

	if len(paths) == 0 {
		slog.Debug("No steering path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(app.Config{
		SteeringPaths: paths,
		Overrides:     overrides,
		LogFormat:     *logFormatFlag,
		LogLevel:      *logLevelFlag,
		OtelEndpoint:  *otelFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
