// Package remote talks to the schedule persistence service.
//
// Implementations return *schedule.ValidationError when the service rejects
// a payload and *schedule.UnavailableError for transient failures. The
// decorators in this package add retries and a sync event journal.
package remote

import (
	"context"
	"time"

	"github.com/abhisek/quizcal/internal/schedule"
)

// Service is the remote schedule store.
type Service interface {
	// Create persists a new item and returns it with its server id.
	Create(ctx context.Context, p schedule.CreatePayload) (schedule.Item, error)

	// Edit applies a partial update to a persisted item.
	Edit(ctx context.Context, serverID string, p schedule.Patch) (schedule.Item, error)

	// Delete removes a persisted item.
	Delete(ctx context.Context, serverID string) error

	// List returns persisted items overlapping [from, to].
	List(ctx context.Context, from, to time.Time) ([]schedule.Item, error)

	// Name identifies the backend in logs and sync events.
	Name() string
}
