package remote

import (
	"fmt"
	"net/url"
	"time"

	"github.com/abhisek/quizcal/internal/schedule"
)

// Config holds the remote service configuration.
type Config struct {
	// Kind selects the backend.
	// Values: "http", "mock"
	Kind string

	HTTP  HTTPConfig
	Retry RetryConfig

	// MockSeed is the initial content of the mock backend.
	MockSeed []schedule.Item
}

// HTTPConfig configures the JSON-over-HTTP client.
type HTTPConfig struct {
	BaseURL string
	Token   string

	// Timeout bounds a single HTTP request. Default: 10s.
	Timeout time.Duration
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Kind: "mock",
		HTTP: HTTPConfig{
			Timeout: 10 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Multiplier:  2.0,
		},
	}
}

// Validate checks that the selected backend is fully configured.
func (c Config) Validate() error {
	switch c.Kind {
	case "http":
		if c.HTTP.BaseURL == "" {
			return fmt.Errorf("remote.base_url is required for the http backend")
		}
		u, err := url.Parse(c.HTTP.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("remote.base_url %q is not an absolute URL", c.HTTP.BaseURL)
		}
	case "mock":
		// Nothing to configure.
	default:
		return fmt.Errorf("unknown remote kind: %q", c.Kind)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("remote.retry.max_attempts must be at least 1")
	}
	return nil
}
