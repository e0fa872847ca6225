package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NoFileIsNop(t *testing.T) {
	log, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(0), "nop logger has nothing enabled")
}

func TestNew_WritesToFile(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "logs", "quizcal.log")
			log, err := New(Config{Level: "debug", Format: format, File: path})
			require.NoError(t, err)

			log.Debug("hello board")
			_ = log.Sync()

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Contains(t, string(data), "hello board")
		})
	}
}

func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizcal.log")
	log, err := New(Config{Level: "warn", Format: "json", File: path})
	require.NoError(t, err)

	log.Info("quiet")
	log.Warn("loud")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "quiet")
	assert.Contains(t, string(data), "loud")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{DefaultConfig(), false},
		{Config{Level: "verbose", Format: "console"}, true},
		{Config{Level: "info", Format: "xml"}, true},
		{Config{Level: "error", Format: "json"}, false},
	}
	for _, tt := range tests {
		err := tt.cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
		}
	}
}
