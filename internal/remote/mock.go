package remote

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/abhisek/quizcal/internal/schedule"
)

// Op names used by the mock and the sync journal.
const (
	OpCreate = "create"
	OpEdit   = "edit"
	OpDelete = "delete"
	OpList   = "list"
)

// Call is one recorded Mock call.
type Call struct {
	Op       string
	ServerID string
	ClientID string
	Payload  *schedule.CreatePayload
	Patch    *schedule.Patch
}

// Gate blocks mock calls for one op until released.
type Gate struct {
	release chan struct{}
	once    sync.Once
	entered chan struct{}
}

// Release unblocks every call held by the gate, now and later.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

// Entered receives once for every call that reached the gate.
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

// Mock is a deterministic in-memory Service for testing and demos.
// Server ids are assigned sequentially; injected failures are returned in
// FIFO order per op, and every call is recorded.
type Mock struct {
	mu       sync.Mutex
	items    map[string]schedule.Item
	order    []string
	nextID   int
	failures map[string][]error
	gates    map[string]*Gate
	Calls    []Call
}

// NewMock creates a Mock holding seed. Seed items without a server id are
// assigned one.
func NewMock(seed ...schedule.Item) *Mock {
	m := &Mock{
		items:    make(map[string]schedule.Item),
		failures: make(map[string][]error),
		gates:    make(map[string]*Gate),
	}
	for _, it := range seed {
		if it.ServerID == "" {
			it.ServerID = m.newID()
		}
		it.ClientID = ""
		m.items[it.ServerID] = it.Clone()
		m.order = append(m.order, it.ServerID)
	}
	return m
}

func (m *Mock) newID() string {
	m.nextID++
	return fmt.Sprintf("srv-%d", m.nextID)
}

// Fail queues errors to be returned by the next calls of op.
func (m *Mock) Fail(op string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], errs...)
}

// Gate makes subsequent calls of op block until the returned gate is
// released or the call's context ends.
func (m *Mock) Gate(op string) *Gate {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := &Gate{release: make(chan struct{}), entered: make(chan struct{}, 64)}
	m.gates[op] = g
	return g
}

// enter records the call and waits at the op's gate. It returns the queued
// failure for op, if any.
func (m *Mock) enter(ctx context.Context, c Call) error {
	m.mu.Lock()
	c.ClientID = ClientIDFrom(ctx)
	m.Calls = append(m.Calls, c)
	g := m.gates[c.Op]
	m.mu.Unlock()

	if g != nil {
		select {
		case g.entered <- struct{}{}:
		default:
		}
		select {
		case <-g.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if errs := m.failures[c.Op]; len(errs) > 0 {
		m.failures[c.Op] = errs[1:]
		return errs[0]
	}
	return nil
}

func (m *Mock) Create(ctx context.Context, p schedule.CreatePayload) (schedule.Item, error) {
	if err := m.enter(ctx, Call{Op: OpCreate, Payload: &p}); err != nil {
		return schedule.Item{}, err
	}
	if err := schedule.Validate(p); err != nil {
		return schedule.Item{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	it := schedule.Item{
		ServerID:    m.newID(),
		QuizID:      p.QuizID,
		QuizRootID:  p.QuizRootID,
		QuizVersion: p.QuizVersion,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
	}
	it.AttemptsAllowed = 1
	if p.AttemptsAllowed != nil {
		it.AttemptsAllowed = *p.AttemptsAllowed
	}
	if p.ShowAnswersAfterAttempt != nil {
		it.ShowAnswersAfterAttempt = *p.ShowAnswersAfterAttempt
	}
	if p.Contribution != nil {
		c := *p.Contribution
		it.Contribution = &c
	}
	m.items[it.ServerID] = it
	m.order = append(m.order, it.ServerID)
	return it.Clone(), nil
}

func (m *Mock) Edit(ctx context.Context, serverID string, p schedule.Patch) (schedule.Item, error) {
	if err := m.enter(ctx, Call{Op: OpEdit, ServerID: serverID, Patch: &p}); err != nil {
		return schedule.Item{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[serverID]
	if !ok {
		return schedule.Item{}, &schedule.ValidationError{Message: "schedule not found"}
	}
	it = p.Apply(it)
	if it.EndDate.Before(it.StartDate) {
		return schedule.Item{}, &schedule.ValidationError{
			Message: "invalid schedule",
			Fields:  []schedule.FieldError{{Field: "endDate", Error: "must not be before startDate"}},
		}
	}
	m.items[serverID] = it
	return it.Clone(), nil
}

func (m *Mock) Delete(ctx context.Context, serverID string) error {
	if err := m.enter(ctx, Call{Op: OpDelete, ServerID: serverID}); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[serverID]; !ok {
		return &schedule.ValidationError{Message: "schedule not found"}
	}
	delete(m.items, serverID)
	m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == serverID })
	return nil
}

func (m *Mock) List(ctx context.Context, from, to time.Time) ([]schedule.Item, error) {
	if err := m.enter(ctx, Call{Op: OpList}); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []schedule.Item
	for _, id := range m.order {
		it := m.items[id]
		if it.EndDate.Before(from) || it.StartDate.After(to) {
			continue
		}
		out = append(out, it.Clone())
	}
	return out, nil
}

// Name returns "mock".
func (m *Mock) Name() string { return "mock" }

// Stored returns the server-side item for serverID.
func (m *Mock) Stored(serverID string) (schedule.Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[serverID]
	return it.Clone(), ok
}

// Len returns the number of stored items.
func (m *Mock) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// CallCount returns the number of calls made for op, or all calls when op
// is empty.
func (m *Mock) CallCount(op string) int {
	return len(m.CallsFor(op))
}

// CallsFor returns a copy of the calls made for op, or all calls when op is
// empty.
func (m *Mock) CallsFor(op string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.Calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}
