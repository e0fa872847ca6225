package mutation

// Op is the remote operation an event refers to.
type Op string

const (
	OpCreate Op = "create"
	OpEdit   Op = "edit"
	OpDelete Op = "delete"
)

// Kind classifies an Event.
type Kind int

const (
	// Created reports that a create resolved and the item has a server id.
	Created Kind = iota
	// Updated reports that an edit was accepted by the remote service.
	Updated
	// Deleted reports that an item is gone remotely, or was abandoned
	// locally because it never reached the server.
	Deleted
	// Failed reports a remote failure that left local state in place:
	// a failed create, or a transient delete failure that will be retried.
	Failed
	// RolledBack reports a remote failure that restored a snapshot.
	RolledBack
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	case Failed:
		return "failed"
	case RolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// Event is a notification about one item's remote synchronization.
type Event struct {
	Kind     Kind
	Op       Op
	ClientID string
	ServerID string
	Err      error
}

// Status describes the queued work for one item.
type Status struct {
	ServerID      string
	Creating      bool
	CreateErr     error
	EditPending   bool
	DeletePending bool
	Draining      bool
	LastErr       error
}

// Idle reports whether nothing is queued or in flight for the item.
func (s Status) Idle() bool {
	return !s.Creating && !s.EditPending && !s.DeletePending && !s.Draining
}
