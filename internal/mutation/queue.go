// Package mutation keeps the client-side list of schedule items and
// synchronizes it with the remote service optimistically: every change is
// visible locally at once, remote calls are serialized per item, and
// failures roll the affected item back from a snapshot.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/abhisek/quizcal/internal/remote"
	"github.com/abhisek/quizcal/internal/schedule"
)

var (
	// ErrNotFound is returned for a client id that is not in the list.
	ErrNotFound = errors.New("schedule item not found")

	// ErrDeletePending is returned when an item is deleted twice before
	// the first delete resolved.
	ErrDeletePending = errors.New("delete already pending")

	// ErrPersisted is returned by operations reserved for items that have
	// not reached the server yet.
	ErrPersisted = errors.New("schedule item already persisted")

	// ErrCreateInFlight is returned when an item's create call is still
	// running.
	ErrCreateInFlight = errors.New("create in flight")

	// ErrDuplicate is returned when a created item reuses a client id.
	ErrDuplicate = errors.New("duplicate client id")
)

// Service is the part of the remote contract the queue calls.
type Service interface {
	Create(ctx context.Context, p schedule.CreatePayload) (schedule.Item, error)
	Edit(ctx context.Context, serverID string, p schedule.Patch) (schedule.Item, error)
	Delete(ctx context.Context, serverID string) error
}

// DefaultEventBuffer is the capacity of the Events channel.
const DefaultEventBuffer = 64

// future resolves once a create call returns.
type future struct {
	done chan struct{}
}

func (f *future) resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

type snapshot struct {
	item  schedule.Item
	index int
}

// entry is the queued work for one client id.
type entry struct {
	serverID  string
	create    *future
	createErr error

	// patch is the coalesced pending edit; gen counts merges so a drain
	// can tell whether a newer patch arrived while one was in flight.
	patch *schedule.Patch
	gen   int

	// editSnap is the item before the oldest unconfirmed edit.
	editSnap *snapshot

	// tomb is the item and position before a pending delete.
	tomb *snapshot

	draining bool
	lastErr  error
}

func (e *entry) hasWork() bool {
	return e.patch != nil || e.tomb != nil
}

// Queue owns the authoritative client-side item list. One queue serves one
// board; it is safe for concurrent use.
type Queue struct {
	svc Service
	log *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	items    []schedule.Item
	entries  map[string]*entry
	events   chan Event
	inflight int
	idle     chan struct{}
}

// Option configures a Queue.
type Option func(*Queue)

// WithEventBuffer sets the capacity of the Events channel.
func WithEventBuffer(n int) Option {
	return func(q *Queue) { q.events = make(chan Event, n) }
}

// New creates an empty queue that sends remote calls to svc.
func New(svc Service, log *zap.Logger, opts ...Option) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		svc:     svc,
		log:     log.Named("mutation"),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
		events:  make(chan Event, DefaultEventBuffer),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Close cancels remote calls still in flight and waits for them to return.
func (q *Queue) Close() error {
	q.cancel()
	return q.Wait(context.Background())
}

// Events returns the notification channel. Events are dropped when the
// channel is full.
func (q *Queue) Events() <-chan Event {
	return q.events
}

// Items returns a copy of the current item list.
func (q *Queue) Items() []schedule.Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return schedule.CloneAll(q.items)
}

// Item returns a copy of the item with the given client id.
func (q *Queue) Item(clientID string) (schedule.Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.indexOf(clientID)
	if i < 0 {
		return schedule.Item{}, false
	}
	return q.items[i].Clone(), true
}

// Pending returns the queued work for clientID.
func (q *Queue) Pending(clientID string) Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.entries[clientID]
	if e == nil {
		return Status{}
	}
	return Status{
		ServerID:      e.serverID,
		Creating:      e.create != nil && !e.create.resolved(),
		CreateErr:     e.createErr,
		EditPending:   e.patch != nil,
		DeletePending: e.tomb != nil,
		Draining:      e.draining,
		LastErr:       e.lastErr,
	}
}

// Load merges persisted items fetched from the server into the list.
// Items already present (matched by server id) are refreshed unless they
// have queued work; items pending deletion are skipped.
func (q *Queue) Load(items []schedule.Item) {
	q.mu.Lock()
	defer q.mu.Unlock()

	byServer := make(map[string]string, len(q.entries))
	for id, e := range q.entries {
		if e.serverID != "" {
			byServer[e.serverID] = id
		}
	}

	next := schedule.CloneAll(q.items)
	for _, it := range items {
		if it.ServerID == "" {
			continue
		}
		if id, ok := byServer[it.ServerID]; ok {
			e := q.entries[id]
			if e.hasWork() || e.draining {
				continue
			}
			if i := indexIn(next, id); i >= 0 {
				it.ClientID = id
				next[i] = it.Clone()
			}
			continue
		}
		if it.ClientID == "" || q.entries[it.ClientID] != nil {
			it.ClientID = schedule.NewClientID()
		}
		q.entries[it.ClientID] = &entry{serverID: it.ServerID}
		byServer[it.ServerID] = it.ClientID
		next = append(next, it.Clone())
	}
	q.setItems(next)
	q.log.Debug("loaded items", zap.Int("count", len(items)), zap.Int("total", len(next)))
}

// Create inserts it immediately without a server id and issues the remote
// create in the background. A client id is assigned when it has none. The
// payload is validated locally first; on a validation error nothing is
// inserted.
func (q *Queue) Create(it schedule.Item) (schedule.Item, error) {
	if it.ClientID == "" {
		it.ClientID = schedule.NewClientID()
	}
	it.ServerID = ""
	payload := schedule.PayloadFor(it)
	if err := schedule.Validate(payload); err != nil {
		return schedule.Item{}, fmt.Errorf("create schedule item: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.indexOf(it.ClientID) >= 0 || q.entries[it.ClientID] != nil {
		return schedule.Item{}, fmt.Errorf("create schedule item %s: %w", it.ClientID, ErrDuplicate)
	}
	e := &entry{}
	q.entries[it.ClientID] = e
	q.setItems(append(schedule.CloneAll(q.items), it.Clone()))
	q.startCreate(it.ClientID, e, payload)
	return it.Clone(), nil
}

// RetryCreate re-issues a failed create using the item's current fields,
// which already include any local edits, so queued edits are folded into
// the new payload.
func (q *Queue) RetryCreate(clientID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(clientID)
	e := q.entries[clientID]
	if i < 0 || e == nil {
		return fmt.Errorf("retry create %s: %w", clientID, ErrNotFound)
	}
	if e.serverID != "" {
		return fmt.Errorf("retry create %s: %w", clientID, ErrPersisted)
	}
	if e.create != nil && !e.create.resolved() {
		return fmt.Errorf("retry create %s: %w", clientID, ErrCreateInFlight)
	}
	e.patch, e.editSnap, e.createErr = nil, nil, nil
	q.startCreate(clientID, e, schedule.PayloadFor(q.items[i]))
	return nil
}

// Discard removes an item that never reached the server. It is the
// caller's explicit cleanup after a failed create.
func (q *Queue) Discard(clientID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(clientID)
	e := q.entries[clientID]
	if i < 0 {
		return fmt.Errorf("discard %s: %w", clientID, ErrNotFound)
	}
	if e != nil && e.serverID != "" {
		return fmt.Errorf("discard %s: %w", clientID, ErrPersisted)
	}
	if e != nil && e.create != nil && !e.create.resolved() {
		return fmt.Errorf("discard %s: %w", clientID, ErrCreateInFlight)
	}
	delete(q.entries, clientID)
	q.setItems(slices.Delete(schedule.CloneAll(q.items), i, i+1))
	q.emit(Event{Kind: Deleted, Op: OpCreate, ClientID: clientID})
	return nil
}

// Edit applies p to the item locally and queues it for the remote service.
// Patches queued for the same item coalesce; only the merged latest is sent.
func (q *Queue) Edit(clientID string, p schedule.Patch) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(clientID)
	if i < 0 {
		return fmt.Errorf("edit %s: %w", clientID, ErrNotFound)
	}
	if p.Empty() {
		return nil
	}
	cur := q.items[i]
	patched := p.Apply(cur)
	if patched.EndDate.Before(patched.StartDate) {
		return fmt.Errorf("edit %s: %w", clientID, &schedule.ValidationError{
			Message: "invalid schedule item",
			Fields:  []schedule.FieldError{{Field: "endDate", Error: "must not be before startDate"}},
		})
	}

	e := q.entry(clientID)
	if e.editSnap == nil {
		e.editSnap = &snapshot{item: cur.Clone(), index: i}
	}
	merged := p
	if e.patch != nil {
		merged = e.patch.Merge(p)
	}
	e.patch = &merged
	e.gen++

	next := schedule.CloneAll(q.items)
	next[i] = patched
	q.setItems(next)
	q.schedule(clientID)
	return nil
}

// Delete removes the item locally and queues the remote delete. Queued
// edits for the item are superseded. An item whose create failed is
// abandoned without any remote call.
func (q *Queue) Delete(clientID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.entries[clientID]
	if e != nil && e.tomb != nil {
		return fmt.Errorf("delete %s: %w", clientID, ErrDeletePending)
	}
	i := q.indexOf(clientID)
	if i < 0 {
		return fmt.Errorf("delete %s: %w", clientID, ErrNotFound)
	}
	e = q.entry(clientID)

	next := schedule.CloneAll(q.items)
	removed := next[i]
	next = slices.Delete(next, i, i+1)

	creating := e.create != nil && !e.create.resolved()
	if e.serverID == "" && !creating {
		delete(q.entries, clientID)
		q.setItems(next)
		q.emit(Event{Kind: Deleted, Op: OpDelete, ClientID: clientID})
		q.log.Debug("abandoned unsynced item", zap.String("client_id", clientID))
		return nil
	}

	e.tomb = &snapshot{item: removed, index: i}
	q.setItems(next)
	q.schedule(clientID)
	return nil
}

// Flush re-schedules queued work that is not currently draining, such as a
// delete that failed transiently, and waits until the queue is idle.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	for id, e := range q.entries {
		if e.hasWork() && !e.draining && e.serverID != "" {
			q.schedule(id)
		}
	}
	q.mu.Unlock()
	return q.Wait(ctx)
}

// Wait blocks until no create or drain is in flight.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	if q.inflight == 0 {
		q.mu.Unlock()
		return nil
	}
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startCreate issues the remote create. Callers hold q.mu.
func (q *Queue) startCreate(clientID string, e *entry, payload schedule.CreatePayload) {
	f := &future{done: make(chan struct{})}
	e.create = f
	q.begin()

	go func() {
		defer q.done()
		created, err := q.svc.Create(remote.WithClientID(q.ctx, clientID), payload)

		q.mu.Lock()
		defer q.mu.Unlock()
		defer close(f.done)

		if err != nil {
			e.createErr = err
			e.lastErr = err
			q.log.Warn("create failed", zap.String("client_id", clientID), zap.Error(err))
			q.emit(Event{Kind: Failed, Op: OpCreate, ClientID: clientID, Err: err})
			return
		}

		e.serverID = created.ServerID
		if e.tomb != nil {
			e.tomb.item.ServerID = created.ServerID
		}
		if e.editSnap != nil {
			e.editSnap.item.ServerID = created.ServerID
		}
		if i := q.indexOf(clientID); i >= 0 {
			next := schedule.CloneAll(q.items)
			next[i] = adoptCreated(next[i], created)
			q.setItems(next)
		} else if e.hasWork() {
			q.schedule(clientID)
		}
		q.emit(Event{Kind: Created, Op: OpCreate, ClientID: clientID, ServerID: created.ServerID})
	}()
}

// adoptCreated attaches the server identity to the local item. Local fields
// win because edits may have been applied while the create was in flight;
// display metadata the server filled in is kept.
func adoptCreated(local, created schedule.Item) schedule.Item {
	local.ServerID = created.ServerID
	if local.Name == "" {
		local.Name = created.Name
	}
	if local.Subject == "" {
		local.Subject = created.Subject
	}
	if local.Color == "" {
		local.Color = created.Color
	}
	return local
}

// withDisplay fills display metadata the server left empty from local.
func withDisplay(it, local schedule.Item) schedule.Item {
	if it.Name == "" {
		it.Name = local.Name
	}
	if it.Subject == "" {
		it.Subject = local.Subject
	}
	if it.Color == "" {
		it.Color = local.Color
	}
	return it
}

// setItems replaces the list and reconciles. Callers hold q.mu.
func (q *Queue) setItems(next []schedule.Item) {
	prev := q.items
	q.items = next
	q.reconcile(prev, next)
}

// reconcile detects items that gained a server id between prev and next and
// drains any work queued for them. Edit and Delete already start a drain
// that waits on the create, so this only fires for work left without a
// running drain. Callers hold q.mu.
func (q *Queue) reconcile(prev, next []schedule.Item) {
	before := make(map[string]bool, len(prev))
	for _, it := range prev {
		before[it.ClientID] = it.Persisted()
	}
	for _, it := range next {
		wasPersisted, seen := before[it.ClientID]
		if !seen || wasPersisted || !it.Persisted() {
			continue
		}
		if e := q.entries[it.ClientID]; e != nil && e.hasWork() {
			q.schedule(it.ClientID)
		}
	}
}

// schedule starts a drain for clientID unless one is running. Callers hold
// q.mu.
func (q *Queue) schedule(clientID string) {
	e := q.entries[clientID]
	if e == nil || e.draining {
		return
	}
	e.draining = true
	q.begin()
	go q.drain(clientID)
}

// drain flushes one item's queued work. A delete supersedes edits. Edits
// loop until no newer patch coalesced while one was in flight.
func (q *Queue) drain(clientID string) {
	defer q.done()

	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		e := q.entries[clientID]
		if e == nil {
			return
		}
		if f := e.create; f != nil && !f.resolved() {
			q.mu.Unlock()
			select {
			case <-f.done:
			case <-q.ctx.Done():
			}
			q.mu.Lock()
			if q.ctx.Err() != nil {
				e.draining = false
				return
			}
			continue
		}
		if e.serverID == "" {
			// The create failed. Edits wait for RetryCreate; a delete has
			// nothing to delete remotely.
			if e.tomb != nil {
				delete(q.entries, clientID)
				q.emit(Event{Kind: Deleted, Op: OpDelete, ClientID: clientID})
			}
			e.draining = false
			return
		}

		switch {
		case e.tomb != nil:
			if !q.sendDelete(clientID, e) {
				return
			}
		case e.patch != nil:
			if !q.sendEdit(clientID, e) {
				return
			}
		default:
			e.draining = false
			return
		}
	}
}

// sendDelete calls the remote delete with q.mu released. It reports whether
// the drain loop should continue.
func (q *Queue) sendDelete(clientID string, e *entry) bool {
	serverID := e.serverID
	q.mu.Unlock()
	err := q.svc.Delete(remote.WithClientID(q.ctx, clientID), serverID)
	q.mu.Lock()

	if err == nil {
		delete(q.entries, clientID)
		e.draining = false
		q.emit(Event{Kind: Deleted, Op: OpDelete, ClientID: clientID, ServerID: serverID})
		return false
	}

	e.lastErr = err
	if schedule.IsTransient(err) || errors.Is(err, context.Canceled) {
		// Keep the tombstone; Flush or the next trigger retries.
		e.draining = false
		q.log.Warn("delete deferred", zap.String("client_id", clientID), zap.Error(err))
		q.emit(Event{Kind: Failed, Op: OpDelete, ClientID: clientID, ServerID: serverID, Err: err})
		return false
	}

	// The server still has the item as it was before any unsent edit.
	restored := e.tomb.item
	if e.editSnap != nil {
		restored = e.editSnap.item
	}
	next := schedule.CloneAll(q.items)
	at := min(e.tomb.index, len(next))
	next = slices.Insert(next, at, restored.Clone())
	e.tomb, e.patch, e.editSnap = nil, nil, nil
	e.draining = false
	q.setItems(next)
	q.log.Warn("delete rolled back", zap.String("client_id", clientID), zap.Error(err))
	q.emit(Event{Kind: RolledBack, Op: OpDelete, ClientID: clientID, ServerID: serverID, Err: err})
	return false
}

// sendEdit sends the latest merged patch with q.mu released. It reports
// whether the drain loop should continue.
func (q *Queue) sendEdit(clientID string, e *entry) bool {
	serverID := e.serverID
	p := *e.patch
	gen := e.gen
	q.mu.Unlock()
	updated, err := q.svc.Edit(remote.WithClientID(q.ctx, clientID), serverID, p)
	q.mu.Lock()

	if err != nil {
		e.lastErr = err
		if e.tomb != nil {
			// A delete arrived meanwhile and supersedes the edit. Should
			// the delete be rejected, restore what the server still has.
			if e.editSnap != nil {
				e.tomb.item = e.editSnap.item
			}
			e.patch, e.editSnap = nil, nil
			return true
		}
		if snap := e.editSnap; snap != nil {
			if i := q.indexOf(clientID); i >= 0 {
				next := schedule.CloneAll(q.items)
				next[i] = snap.item.Clone()
				q.setItems(next)
			}
		}
		e.patch, e.editSnap = nil, nil
		e.draining = false
		q.log.Warn("edit rolled back", zap.String("client_id", clientID), zap.Error(err))
		q.emit(Event{Kind: RolledBack, Op: OpEdit, ClientID: clientID, ServerID: serverID, Err: err})
		return false
	}

	e.lastErr = nil
	if e.gen == gen {
		e.patch, e.editSnap = nil, nil
		if i := q.indexOf(clientID); i >= 0 && updated.ServerID == serverID {
			next := schedule.CloneAll(q.items)
			updated.ClientID = clientID
			next[i] = withDisplay(updated, next[i])
			q.setItems(next)
		}
	} else if e.editSnap != nil {
		// The confirmed patch is now the rollback point for the newer one.
		e.editSnap.item = p.Apply(e.editSnap.item)
	}
	q.emit(Event{Kind: Updated, Op: OpEdit, ClientID: clientID, ServerID: serverID})
	return true
}

// entry returns the entry for clientID, creating it for persisted items
// loaded without one. Callers hold q.mu.
func (q *Queue) entry(clientID string) *entry {
	e := q.entries[clientID]
	if e == nil {
		e = &entry{}
		if i := q.indexOf(clientID); i >= 0 {
			e.serverID = q.items[i].ServerID
		}
		q.entries[clientID] = e
	}
	return e
}

func (q *Queue) indexOf(clientID string) int {
	return indexIn(q.items, clientID)
}

func indexIn(items []schedule.Item, clientID string) int {
	return slices.IndexFunc(items, func(it schedule.Item) bool { return it.ClientID == clientID })
}

// emit sends ev without blocking. Callers hold q.mu.
func (q *Queue) emit(ev Event) {
	select {
	case q.events <- ev:
	default:
		q.log.Debug("event dropped", zap.String("client_id", ev.ClientID), zap.Stringer("kind", ev.Kind))
	}
}

// begin and done track in-flight goroutines for Wait. Callers of begin
// hold q.mu.
func (q *Queue) begin() {
	if q.inflight == 0 {
		q.idle = make(chan struct{})
	}
	q.inflight++
}

func (q *Queue) done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inflight--
	if q.inflight == 0 {
		close(q.idle)
	}
}
