package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizcal/internal/daykey"
)

// isolate runs the test in an empty directory with no user config.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.Remote.Kind)
	assert.Equal(t, 3, cfg.Remote.RetryMaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 180*time.Millisecond, cfg.Board.SlideCooldown)
	assert.Equal(t, 32.0, cfg.Board.EdgeZone)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.File)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoad_FromWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "quizcal.yaml"), `
timezone: America/New_York
remote:
  kind: http
  base_url: https://school.example/api
  timeout: 3s
  retry:
    max_attempts: 5
board:
  edge_zone: 40
  settle_delay: 250ms
`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Equal(t, "http", cfg.Remote.Kind)
	assert.Equal(t, 3*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 5, cfg.Remote.RetryMaxAttempts)
	assert.Equal(t, 40.0, cfg.Board.EdgeZone)
	assert.Equal(t, 250*time.Millisecond, cfg.InteractConfig().SettleDelay)
	assert.Equal(t, 12.0, cfg.InteractConfig().Hysteresis, "unset keys keep defaults")

	rc := cfg.RemoteConfig()
	assert.Equal(t, "https://school.example/api", rc.HTTP.BaseURL)
	assert.Equal(t, 5, rc.Retry.MaxAttempts)
}

func TestLoad_FromXDGConfigHome(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "xdg", "quizcal", "quizcal.yaml"), "log:\n  level: debug\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, "remote:\n  kind: http\n  base_url: https://file.example\n")
	t.Setenv("QUIZCAL_REMOTE_BASE_URL", "https://env.example")
	t.Setenv("QUIZCAL_REMOTE_RETRY_MAX_ATTEMPTS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", cfg.Remote.BaseURL)
	assert.Equal(t, 7, cfg.Remote.RetryMaxAttempts)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "QUIZCAL_REMOTE_TOKEN=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("QUIZCAL_REMOTE_TOKEN") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Remote.Token)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad zone", "timezone: Mars/Olympus\n"},
		{"http without url", "remote:\n  kind: http\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"negative edge zone", "board:\n  edge_zone: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := filepath.Join(dir, "quizcal.yaml")
			writeFile(t, path, tt.yaml)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLocation_BadZone(t *testing.T) {
	cfg := &Config{Timezone: "Nowhere/Land"}
	_, err := cfg.Location()
	assert.ErrorIs(t, err, daykey.ErrBadZone)
}
