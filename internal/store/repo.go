package store

import (
	"context"
	"time"

	"github.com/abhisek/quizcal/internal/schedule"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit    int       // max results (0 = unlimited)
	After    int64     // sequence > After
	Op       string    // exact op match when set
	ClientID string    // exact client id match when set
	From     time.Time // timestamp >= From
	To       time.Time // timestamp <= To
}

// SyncEvent records one call to the remote schedule service.
type SyncEvent struct {
	Sequence     int64
	Timestamp    time.Time
	Service      string
	Op           string
	ClientID     string
	ServerID     string
	LatencyMs    int64
	Success      bool
	ErrorKind    string // "validation", "unavailable", "other" or ""
	ErrorMessage string
}

// OpStats aggregates sync events for one op.
type OpStats struct {
	Op           string
	Calls        int
	Failures     int
	AvgLatencyMs float64
}

// EventRepo is the append-only journal of remote calls.
type EventRepo interface {
	// AppendSyncEvent records a remote call. Sequence and Timestamp are
	// assigned when zero.
	AppendSyncEvent(ctx context.Context, ev SyncEvent) error

	// ListSyncEvents returns events matching opts, newest first.
	ListSyncEvents(ctx context.Context, opts QueryOpts) ([]SyncEvent, error)

	// Stats aggregates the journal per op.
	Stats(ctx context.Context) ([]OpStats, error)
}

// DraftData is the saved state of a board, including items the server has
// not confirmed yet.
type DraftData struct {
	Version     int             `json:"version"`
	WindowStart string          `json:"windowStart"`
	Timezone    string          `json:"timezone"`
	Items       []schedule.Item `json:"items"`
}

// Draft is a point-in-time capture of a board.
type Draft struct {
	ID        int
	Timestamp time.Time
	Data      DraftData
}

// DraftRepo manages board drafts.
type DraftRepo interface {
	// Save stores a new draft.
	Save(ctx context.Context, d *Draft) error

	// Latest returns the most recent draft, or nil if none exist.
	Latest(ctx context.Context) (*Draft, error)

	// Prune deletes all but the N most recent drafts.
	Prune(ctx context.Context, keep int) error
}
