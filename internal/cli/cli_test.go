package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/gobackoff/pkg/backoff"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestPreview_ZeroJitter(t *testing.T) {
	out, _, err := execute(t, "preview", "--retries", "4", "--min", "1s", "--max", "unbounded", "--jitter", "0")
	require.NoError(t, err)

	assert.Contains(t, out, "DELAY")
	assert.Contains(t, out, "2s")
	assert.Contains(t, out, "4s")
	assert.Contains(t, out, "stop")
	// 1s + 2s + 4s
	assert.Contains(t, out, "7s")
	assert.NotContains(t, out, "8s")
}

func TestPreview_ZeroBudget(t *testing.T) {
	out, _, err := execute(t, "preview", "--retries", "0", "--min", "10ms")
	require.NoError(t, err)

	assert.Contains(t, out, "stop")
	assert.Contains(t, out, "0s")
	assert.NotContains(t, out, "10ms")
}

func TestPreview_SeededRunsAreDeterministic(t *testing.T) {
	args := []string{"preview", "--retries", "6", "--runs", "3", "--seed", "42", "--jitter", "0.5"}

	first, _, err := execute(t, args...)
	require.NoError(t, err)
	second, _, err := execute(t, args...)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "RUN 1")
	assert.Contains(t, first, "RUN 3")
}

func TestPreview_InvalidJitter(t *testing.T) {
	_, _, err := execute(t, "preview", "--jitter", "1.5")
	assert.ErrorIs(t, err, backoff.ErrInvalidJitter)
}

func TestPreview_InvalidRuns(t *testing.T) {
	_, _, err := execute(t, "preview", "--runs", "0")
	assert.ErrorContains(t, err, "runs must be at least 1")
}

func TestPreview_LimitExceeded(t *testing.T) {
	_, _, err := execute(t, "preview", "--retries", "1000")
	assert.ErrorContains(t, err, "exceeds the preview limit")

	_, _, err = execute(t, "preview", "--retries", "1000", "--limit", "1000", "--min", "1ms", "--max", "1s")
	assert.NoError(t, err)
}

func TestPreview_Environment(t *testing.T) {
	t.Setenv("BACKOFF_RETRIES", "3")
	t.Setenv("BACKOFF_MIN", "5ms")
	t.Setenv("BACKOFF_JITTER", "0")

	out, _, err := execute(t, "preview")
	require.NoError(t, err)

	assert.Contains(t, out, "5ms")
	assert.Contains(t, out, "10ms")
	assert.Contains(t, out, "15ms")
}

func TestPreview_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("BACKOFF_MIN", "5ms")

	out, _, err := execute(t, "preview", "--retries", "2", "--min", "3ms", "--jitter", "0")
	require.NoError(t, err)

	assert.Contains(t, out, "3ms")
	assert.NotContains(t, out, "5ms")
}

func TestPreview_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backoff.yaml")
	content := "retries: 3\nmin: 20ms\nmax: unbounded\njitter: 0\nfactor: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	out, _, err := execute(t, "preview", "--config", path)
	require.NoError(t, err)

	assert.Contains(t, out, "20ms")
	assert.Contains(t, out, "60ms")
	assert.Contains(t, out, "80ms")
}

func TestPreview_MissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "preview", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestPreview_Logging(t *testing.T) {
	_, stderr, err := execute(t, "preview", "--log-level", "debug", "--min", "2s", "--max", "1s", "--factor", "1")
	require.NoError(t, err)

	assert.Contains(t, stderr, "Resolved backoff configuration")
	assert.Contains(t, stderr, "Min exceeds max")
	assert.Contains(t, stderr, "Factor 1 disables exponential growth")

	_, stderr, err = execute(t, "preview", "--log-level", "error", "--min", "2s", "--max", "1s")
	require.NoError(t, err)
	assert.Empty(t, stderr)
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)

	assert.Contains(t, out, "backoffctl version: "+Version)
	assert.Contains(t, out, "Commit: "+Commit)
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		logger := newLogger(&bytes.Buffer{}, tt.level)
		assert.True(t, logger.Enabled(context.Background(), tt.want), tt.level)
		assert.False(t, logger.Enabled(context.Background(), tt.want-1), tt.level)
	}
}

func TestPreviewTable_Totals(t *testing.T) {
	headers, rows := previewTable([][]backoff.Step{
		{{Delay: time.Second}, {Delay: backoff.Unbounded}, {Stop: true}},
		{{Delay: time.Second}, {Delay: time.Second}, {Stop: true}},
	})

	assert.Equal(t, []string{"ATTEMPT", "RUN 1", "RUN 2"}, headers)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"2", "unbounded", "1s"}, rows[1])
	assert.Equal(t, []string{"3", "stop", "stop"}, rows[2])
	assert.Equal(t, []string{"total", "unbounded", "2s"}, rows[3])
}

func TestMustBindFlags(t *testing.T) {
	v := viper.New()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("name", "default", "")

	assert.NotPanics(t, func() { mustBindFlags(v, flags) })
	assert.Equal(t, "default", v.GetString("name"))

	require.NoError(t, flags.Set("name", "changed"))
	assert.Equal(t, "changed", v.GetString("name"))
}
