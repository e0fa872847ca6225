package remote

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/quizcal/internal/store"
)

// New creates a Service from configuration.
// It returns the backend wrapped with retry and logging middleware.
func New(cfg Config, repo store.EventRepo, log *zap.Logger) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Service
	switch cfg.Kind {
	case "http":
		c, err := NewHTTPClient(cfg.HTTP, StaticToken(cfg.HTTP.Token))
		if err != nil {
			return nil, fmt.Errorf("initializing http backend: %w", err)
		}
		base = c
	case "mock":
		base = NewMock(cfg.MockSeed...)
	default:
		return nil, fmt.Errorf("unknown remote kind: %q", cfg.Kind)
	}

	// Wrap with middleware: caller → retry → logging → base
	logged := WithLogging(base, repo, log)
	retried := WithRetry(logged, cfg.Retry)

	return retried, nil
}
