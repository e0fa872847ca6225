// Package config loads quizcal settings from a YAML file, a .env file and
// QUIZCAL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/abhisek/quizcal/internal/daykey"
	"github.com/abhisek/quizcal/internal/interact"
	"github.com/abhisek/quizcal/internal/logging"
	"github.com/abhisek/quizcal/internal/remote"
	"github.com/abhisek/quizcal/internal/track"
)

// EnvPrefix prefixes every environment override, e.g. QUIZCAL_REMOTE_BASE_URL.
const EnvPrefix = "QUIZCAL"

// Config is the resolved application configuration.
type Config struct {
	// Timezone is the IANA zone the board computes day keys in. Empty
	// means the host zone.
	Timezone string

	// DB overrides the SQLite path.
	DB string

	Log    logging.Config
	Remote RemoteConfig
	Board  BoardConfig

	// File is the config file that was read, if any.
	File string
}

// RemoteConfig configures the schedule service backend.
type RemoteConfig struct {
	Kind    string
	BaseURL string
	Token   string
	Timeout time.Duration

	RetryMaxAttempts int
	RetryInitialWait time.Duration
	RetryMaxWait     time.Duration
	RetryMultiplier  float64

	// MockSeed is a board file whose items seed the mock backend.
	MockSeed string
}

// BoardConfig tunes paging and pointer behaviour.
type BoardConfig struct {
	SlideDuration time.Duration
	SlideCooldown time.Duration
	SettleDelay   time.Duration
	EdgeZone      float64
	Hysteresis    float64
}

func setDefaults(v *viper.Viper) {
	rd := remote.DefaultConfig()
	id := interact.DefaultConfig()
	ld := logging.DefaultConfig()

	v.SetDefault("timezone", "")
	v.SetDefault("db", "")
	v.SetDefault("log.level", ld.Level)
	v.SetDefault("log.format", ld.Format)
	v.SetDefault("log.file", "")
	v.SetDefault("remote.kind", rd.Kind)
	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.timeout", rd.HTTP.Timeout)
	v.SetDefault("remote.retry.max_attempts", rd.Retry.MaxAttempts)
	v.SetDefault("remote.retry.initial_wait", rd.Retry.InitialWait)
	v.SetDefault("remote.retry.max_wait", rd.Retry.MaxWait)
	v.SetDefault("remote.retry.multiplier", rd.Retry.Multiplier)
	v.SetDefault("remote.mock_seed", "")
	v.SetDefault("board.slide_duration", track.DefaultSlideDuration)
	v.SetDefault("board.slide_cooldown", id.SlideCooldown)
	v.SetDefault("board.settle_delay", id.SettleDelay)
	v.SetDefault("board.edge_zone", id.EdgeZone)
	v.SetDefault("board.hysteresis", id.Hysteresis)
}

// Load reads configuration. When path is empty, quizcal.yaml is looked up
// in the working directory and $XDG_CONFIG_HOME/quizcal; a missing file is
// not an error. A .env file in the working directory is loaded first and
// never overrides variables that are already set.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("quizcal")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Timezone: v.GetString("timezone"),
		DB:       v.GetString("db"),
		Log: logging.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
		Remote: RemoteConfig{
			Kind:             v.GetString("remote.kind"),
			BaseURL:          v.GetString("remote.base_url"),
			Token:            v.GetString("remote.token"),
			Timeout:          v.GetDuration("remote.timeout"),
			RetryMaxAttempts: v.GetInt("remote.retry.max_attempts"),
			RetryInitialWait: v.GetDuration("remote.retry.initial_wait"),
			RetryMaxWait:     v.GetDuration("remote.retry.max_wait"),
			RetryMultiplier:  v.GetFloat64("remote.retry.multiplier"),
			MockSeed:         v.GetString("remote.mock_seed"),
		},
		Board: BoardConfig{
			SlideDuration: v.GetDuration("board.slide_duration"),
			SlideCooldown: v.GetDuration("board.slide_cooldown"),
			SettleDelay:   v.GetDuration("board.settle_delay"),
			EdgeZone:      v.GetFloat64("board.edge_zone"),
			Hysteresis:    v.GetFloat64("board.hysteresis"),
		},
		File: v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads path when it exists.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func configDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "quizcal"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "quizcal"), nil
}

// Validate checks the zone, logging, remote and board settings.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.RemoteConfig().Validate(); err != nil {
		return err
	}
	if c.Board.SlideDuration < 0 || c.Board.SlideCooldown < 0 || c.Board.SettleDelay < 0 {
		return fmt.Errorf("board durations must not be negative")
	}
	if c.Board.EdgeZone < 0 || c.Board.Hysteresis < 0 {
		return fmt.Errorf("board.edge_zone and board.hysteresis must not be negative")
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := daykey.LoadZone(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

// RemoteConfig returns the remote service configuration. MockSeed items
// are left for the caller to load.
func (c *Config) RemoteConfig() remote.Config {
	return remote.Config{
		Kind: c.Remote.Kind,
		HTTP: remote.HTTPConfig{
			BaseURL: c.Remote.BaseURL,
			Token:   c.Remote.Token,
			Timeout: c.Remote.Timeout,
		},
		Retry: remote.RetryConfig{
			MaxAttempts: c.Remote.RetryMaxAttempts,
			InitialWait: c.Remote.RetryInitialWait,
			MaxWait:     c.Remote.RetryMaxWait,
			Multiplier:  c.Remote.RetryMultiplier,
		},
	}
}

// InteractConfig returns the pointer configuration.
func (c *Config) InteractConfig() interact.Config {
	return interact.Config{
		EdgeZone:      c.Board.EdgeZone,
		Hysteresis:    c.Board.Hysteresis,
		SlideCooldown: c.Board.SlideCooldown,
		SettleDelay:   c.Board.SettleDelay,
	}
}
