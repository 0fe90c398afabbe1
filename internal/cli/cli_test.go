package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse([]string{
		"-c", "geometry.hcl",
		"--config", "modules",
		"-o", "number_of_events=10",
		"-o", "dut.position=0 0 1mm",
		"--log-level", "DEBUG",
		"--log-format", "json",
		"--otel-endpoint", "http://localhost:4318",
		"extra.hcl",
	}, out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, []string{"geometry.hcl", "modules", "extra.hcl"}, cfg.SteeringPaths)
	assert.Equal(t, []string{"number_of_events=10", "dut.position=0 0 1mm"}, cfg.Overrides)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "http://localhost:4318", cfg.OtelEndpoint)
	assert.Empty(t, out.String())
}

func TestParse_EnvironmentDefaults(t *testing.T) {
	t.Setenv("PIXSIM_LOG_FORMAT", "json")
	t.Setenv("PIXSIM_LOG_LEVEL", "error")

	cfg, _, err := Parse([]string{"main.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "error", cfg.LogLevel)

	cfg, _, err = Parse([]string{"--log-level", "warn", "main.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel, "flags win over the environment")
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse(nil, out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{"unknown flag", []string{"--nope", "main.hcl"}, "flag provided but not defined"},
		{"bad level", []string{"--log-level", "loud", "main.hcl"}, "invalid log-level"},
		{"bad format", []string{"--log-format", "xml", "main.hcl"}, "invalid log-format"},
		{"bad override", []string{"-o", "events", "main.hcl"}, "invalid override"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.args, &bytes.Buffer{})
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr), "got %v", err)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tt.contains)
		})
	}
}
