package mutation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizcal/internal/remote"
	"github.com/abhisek/quizcal/internal/schedule"
)

var day0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func sampleItem(quiz string, startDay, days int) schedule.Item {
	start := day0.AddDate(0, 0, startDay)
	return schedule.Item{
		QuizID:          quiz,
		QuizRootID:      quiz + "-root",
		QuizVersion:     1,
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, days),
		AttemptsAllowed: 1,
		Name:            quiz,
	}
}

func newQueue(t *testing.T, svc Service, opts ...Option) *Queue {
	t.Helper()
	q := New(svc, nil, opts...)
	t.Cleanup(func() { q.Close() })
	return q
}

// seeded returns a mock holding n persisted items and a queue loaded with
// them.
func seeded(t *testing.T, n int) (*remote.Mock, *Queue) {
	t.Helper()
	var items []schedule.Item
	for i := range n {
		items = append(items, sampleItem(string(rune('a'+i)), i, 1))
	}
	m := remote.NewMock(items...)
	list, err := m.List(context.Background(), time.Time{}, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	q := newQueue(t, m)
	q.Load(list)
	require.Len(t, q.Items(), n)
	return m, q
}

func settle(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Wait(ctx))
}

func collect(q *Queue) []Event {
	var out []Event
	for {
		select {
		case ev := <-q.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func kinds(evs []Event) []Kind {
	out := make([]Kind, len(evs))
	for i, ev := range evs {
		out[i] = ev.Kind
	}
	return out
}

func TestCreate_VisibleBeforeServerConfirms(t *testing.T) {
	m := remote.NewMock()
	g := m.Gate(remote.OpCreate)
	q := newQueue(t, m)

	created, err := q.Create(sampleItem("q1", 0, 2))
	require.NoError(t, err)
	require.NotEmpty(t, created.ClientID)
	assert.Empty(t, created.ServerID)

	<-g.Entered()
	items := q.Items()
	require.Len(t, items, 1)
	assert.False(t, items[0].Persisted())
	assert.True(t, q.Pending(created.ClientID).Creating)

	g.Release()
	settle(t, q)

	it, ok := q.Item(created.ClientID)
	require.True(t, ok)
	assert.Equal(t, "srv-1", it.ServerID)
	assert.Equal(t, "q1", it.Name, "local display fields survive the create")
	assert.True(t, q.Pending(created.ClientID).Idle())

	evs := collect(q)
	require.Len(t, evs, 1)
	assert.Equal(t, Created, evs[0].Kind)
	assert.Equal(t, "srv-1", evs[0].ServerID)
}

func TestCreate_TagsCallsWithClientID(t *testing.T) {
	m := remote.NewMock()
	q := newQueue(t, m)

	created, err := q.Create(sampleItem("q1", 0, 1))
	require.NoError(t, err)
	settle(t, q)

	calls := m.CallsFor(remote.OpCreate)
	require.Len(t, calls, 1)
	assert.Equal(t, created.ClientID, calls[0].ClientID)
}

func TestCreate_RejectsInvalidPayloadLocally(t *testing.T) {
	m := remote.NewMock()
	q := newQueue(t, m)

	bad := sampleItem("q1", 0, 1)
	bad.EndDate = bad.StartDate.Add(-time.Hour)
	_, err := q.Create(bad)
	assert.True(t, schedule.IsValidation(err))
	assert.Empty(t, q.Items())
	assert.Zero(t, m.CallCount(remote.OpCreate))
}

func TestCreate_DuplicateClientID(t *testing.T) {
	q := newQueue(t, remote.NewMock())

	it := sampleItem("q1", 0, 1)
	it.ClientID = "fixed"
	_, err := q.Create(it)
	require.NoError(t, err)
	_, err = q.Create(it)
	assert.ErrorIs(t, err, ErrDuplicate)
	settle(t, q)
	assert.Len(t, q.Items(), 1)
}

func TestEdit_CoalescesWhileCreateInFlight(t *testing.T) {
	m := remote.NewMock()
	g := m.Gate(remote.OpCreate)
	q := newQueue(t, m)

	created, err := q.Create(sampleItem("q1", 0, 2))
	require.NoError(t, err)
	<-g.Entered()

	moved := schedule.RangePatch(created.StartDate.AddDate(0, 0, 1), created.EndDate.AddDate(0, 0, 1))
	require.NoError(t, q.Edit(created.ClientID, moved))
	attempts := 3
	require.NoError(t, q.Edit(created.ClientID, schedule.Patch{AttemptsAllowed: &attempts}))

	// Local state reflects both edits at once.
	it, _ := q.Item(created.ClientID)
	assert.Equal(t, created.StartDate.AddDate(0, 0, 1), it.StartDate)
	assert.Equal(t, 3, it.AttemptsAllowed)
	assert.Zero(t, m.CallCount(remote.OpEdit), "nothing is sent before the server id exists")

	g.Release()
	settle(t, q)

	assert.Equal(t, 1, m.CallCount(remote.OpCreate))
	edits := m.CallsFor(remote.OpEdit)
	require.Len(t, edits, 1, "both edits go out as one merged patch")
	assert.Equal(t, "srv-1", edits[0].ServerID)
	require.NotNil(t, edits[0].Patch.StartDate)
	require.NotNil(t, edits[0].Patch.AttemptsAllowed)
	assert.Equal(t, 3, *edits[0].Patch.AttemptsAllowed)

	stored, ok := m.Stored("srv-1")
	require.True(t, ok)
	assert.Equal(t, it.StartDate, stored.StartDate)
	assert.Equal(t, 3, stored.AttemptsAllowed)

	final, _ := q.Item(created.ClientID)
	assert.Equal(t, created.ClientID, final.ClientID)
	assert.Equal(t, "q1", final.Name)
	assert.True(t, q.Pending(created.ClientID).Idle())
	assert.Equal(t, []Kind{Created, Updated}, kinds(collect(q)))
}

func TestDelete_SupersedesQueuedEdit(t *testing.T) {
	m := remote.NewMock()
	g := m.Gate(remote.OpCreate)
	q := newQueue(t, m)

	created, err := q.Create(sampleItem("q1", 0, 2))
	require.NoError(t, err)
	<-g.Entered()

	attempts := 4
	require.NoError(t, q.Edit(created.ClientID, schedule.Patch{AttemptsAllowed: &attempts}))
	require.NoError(t, q.Delete(created.ClientID))
	assert.Empty(t, q.Items())
	assert.True(t, q.Pending(created.ClientID).DeletePending)

	g.Release()
	settle(t, q)

	assert.Zero(t, m.CallCount(remote.OpEdit))
	dels := m.CallsFor(remote.OpDelete)
	require.Len(t, dels, 1)
	assert.Equal(t, "srv-1", dels[0].ServerID)
	assert.Zero(t, m.Len())
	assert.Equal(t, []Kind{Created, Deleted}, kinds(collect(q)))
}

func TestEdit_RollbackRestoresList(t *testing.T) {
	m, q := seeded(t, 3)
	before := q.Items()
	target := before[1].ClientID

	m.Fail(remote.OpEdit, &schedule.ValidationError{Message: "locked"})
	g := m.Gate(remote.OpEdit)

	moved := schedule.RangePatch(before[1].StartDate.AddDate(0, 0, 2), before[1].EndDate.AddDate(0, 0, 2))
	require.NoError(t, q.Edit(target, moved))
	<-g.Entered()
	attempts := 9
	require.NoError(t, q.Edit(target, schedule.Patch{AttemptsAllowed: &attempts}))

	g.Release()
	settle(t, q)

	assert.Equal(t, before, q.Items(), "the list is exactly as before the first edit")
	assert.Equal(t, 1, m.CallCount(remote.OpEdit))

	evs := collect(q)
	require.Len(t, evs, 1)
	assert.Equal(t, RolledBack, evs[0].Kind)
	assert.Equal(t, OpEdit, evs[0].Op)
	assert.True(t, schedule.IsValidation(evs[0].Err))
}

func TestEdit_RejectsInvertedRange(t *testing.T) {
	m, q := seeded(t, 1)
	it := q.Items()[0]

	err := q.Edit(it.ClientID, schedule.RangePatch(it.EndDate, it.StartDate))
	assert.True(t, schedule.IsValidation(err))
	assert.Equal(t, it, q.Items()[0])
	settle(t, q)
	assert.Zero(t, m.CallCount(remote.OpEdit))
}

func TestEdit_EmptyPatchIsNoop(t *testing.T) {
	m, q := seeded(t, 1)
	require.NoError(t, q.Edit(q.Items()[0].ClientID, schedule.Patch{}))
	settle(t, q)
	assert.Zero(t, m.CallCount(remote.OpEdit))
}

func TestDelete_TransientFailureKeepsTombstone(t *testing.T) {
	m, q := seeded(t, 2)
	target := q.Items()[0]

	m.Fail(remote.OpDelete, &schedule.UnavailableError{Err: errors.New("down")})
	require.NoError(t, q.Delete(target.ClientID))
	settle(t, q)

	assert.Len(t, q.Items(), 1, "the item stays deleted locally")
	st := q.Pending(target.ClientID)
	assert.True(t, st.DeletePending)
	assert.True(t, schedule.IsTransient(st.LastErr))
	assert.Equal(t, []Kind{Failed}, kinds(collect(q)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Flush(ctx))

	assert.Equal(t, 2, m.CallCount(remote.OpDelete))
	assert.Equal(t, 1, m.Len())
	assert.True(t, q.Pending(target.ClientID).Idle())
	assert.Equal(t, []Kind{Deleted}, kinds(collect(q)))
}

func TestDelete_PermanentFailureRestoresPosition(t *testing.T) {
	m, q := seeded(t, 3)
	before := q.Items()

	m.Fail(remote.OpDelete, &schedule.ValidationError{Message: "has attempts"})
	require.NoError(t, q.Delete(before[1].ClientID))
	settle(t, q)

	assert.Equal(t, before, q.Items())
	assert.False(t, q.Pending(before[1].ClientID).DeletePending)

	evs := collect(q)
	require.Len(t, evs, 1)
	assert.Equal(t, RolledBack, evs[0].Kind)
	assert.Equal(t, OpDelete, evs[0].Op)
}

func TestDelete_RejectedAfterFailedEditRestoresServerState(t *testing.T) {
	m, q := seeded(t, 2)
	before := q.Items()
	target := before[0]

	g := m.Gate(remote.OpEdit)
	m.Fail(remote.OpEdit, &schedule.UnavailableError{Err: errors.New("down")})
	m.Fail(remote.OpDelete, &schedule.ValidationError{Message: "has attempts"})

	attempts := 7
	require.NoError(t, q.Edit(target.ClientID, schedule.Patch{AttemptsAllowed: &attempts}))
	<-g.Entered()
	require.NoError(t, q.Delete(target.ClientID))
	g.Release()
	settle(t, q)

	assert.Equal(t, before, q.Items(), "the unconfirmed edit is not resurrected")
}

func TestDelete_Twice(t *testing.T) {
	m, q := seeded(t, 1)
	id := q.Items()[0].ClientID
	g := m.Gate(remote.OpDelete)

	require.NoError(t, q.Delete(id))
	<-g.Entered()
	assert.ErrorIs(t, q.Delete(id), ErrDeletePending)

	g.Release()
	settle(t, q)
	assert.Equal(t, 1, m.CallCount(remote.OpDelete))
}

func TestFailedCreate_DeleteAbandonsLocally(t *testing.T) {
	m := remote.NewMock()
	m.Fail(remote.OpCreate, &schedule.UnavailableError{Err: errors.New("down")})
	q := newQueue(t, m)

	created, err := q.Create(sampleItem("q1", 0, 1))
	require.NoError(t, err)
	settle(t, q)

	st := q.Pending(created.ClientID)
	require.Error(t, st.CreateErr)
	assert.Len(t, q.Items(), 1, "a failed create stays visible")

	require.NoError(t, q.Delete(created.ClientID))
	settle(t, q)

	assert.Empty(t, q.Items())
	assert.Zero(t, m.CallCount(remote.OpDelete))
	assert.Equal(t, []Kind{Failed, Deleted}, kinds(collect(q)))
}

func TestFailedCreate_DeleteWhileCreating(t *testing.T) {
	m := remote.NewMock()
	m.Fail(remote.OpCreate, &schedule.ValidationError{Message: "quiz archived"})
	g := m.Gate(remote.OpCreate)
	q := newQueue(t, m)

	created, err := q.Create(sampleItem("q1", 0, 1))
	require.NoError(t, err)
	<-g.Entered()
	require.NoError(t, q.Delete(created.ClientID))

	g.Release()
	settle(t, q)

	assert.Empty(t, q.Items())
	assert.Zero(t, m.CallCount(remote.OpDelete))
	assert.Equal(t, Status{}, q.Pending(created.ClientID))
}

func TestRetryCreate_SendsCurrentFields(t *testing.T) {
	m := remote.NewMock()
	m.Fail(remote.OpCreate, &schedule.UnavailableError{Err: errors.New("down")})
	q := newQueue(t, m)

	created, err := q.Create(sampleItem("q1", 0, 1))
	require.NoError(t, err)
	settle(t, q)

	attempts := 5
	require.NoError(t, q.Edit(created.ClientID, schedule.Patch{AttemptsAllowed: &attempts}))
	settle(t, q)
	assert.Zero(t, m.CallCount(remote.OpEdit), "edits wait for a server id")

	require.NoError(t, q.RetryCreate(created.ClientID))
	settle(t, q)

	calls := m.CallsFor(remote.OpCreate)
	require.Len(t, calls, 2)
	require.NotNil(t, calls[1].Payload.AttemptsAllowed)
	assert.Equal(t, 5, *calls[1].Payload.AttemptsAllowed)
	assert.Zero(t, m.CallCount(remote.OpEdit))

	it, _ := q.Item(created.ClientID)
	assert.True(t, it.Persisted())
	assert.True(t, q.Pending(created.ClientID).Idle())

	assert.ErrorIs(t, q.RetryCreate(created.ClientID), ErrPersisted)
}

func TestDiscard(t *testing.T) {
	m := remote.NewMock()
	m.Fail(remote.OpCreate, &schedule.UnavailableError{Err: errors.New("down")})
	q := newQueue(t, m)

	failed, err := q.Create(sampleItem("q1", 0, 1))
	require.NoError(t, err)
	settle(t, q)

	ok, err := q.Create(sampleItem("q2", 1, 1))
	require.NoError(t, err)
	settle(t, q)

	assert.ErrorIs(t, q.Discard(ok.ClientID), ErrPersisted)
	require.NoError(t, q.Discard(failed.ClientID))
	assert.ErrorIs(t, q.Discard(failed.ClientID), ErrNotFound)

	items := q.Items()
	require.Len(t, items, 1)
	assert.Equal(t, ok.ClientID, items[0].ClientID)
}

func TestDiscard_CreateInFlight(t *testing.T) {
	m := remote.NewMock()
	g := m.Gate(remote.OpCreate)
	q := newQueue(t, m)

	created, err := q.Create(sampleItem("q1", 0, 1))
	require.NoError(t, err)
	<-g.Entered()

	assert.ErrorIs(t, q.Discard(created.ClientID), ErrCreateInFlight)
	assert.ErrorIs(t, q.RetryCreate(created.ClientID), ErrCreateInFlight)
	g.Release()
	settle(t, q)
}

func TestUnknownClientID(t *testing.T) {
	q := newQueue(t, remote.NewMock())

	assert.ErrorIs(t, q.Edit("nope", schedule.Patch{}), ErrNotFound)
	assert.ErrorIs(t, q.Delete("nope"), ErrNotFound)
	assert.ErrorIs(t, q.RetryCreate("nope"), ErrNotFound)
	assert.ErrorIs(t, q.Discard("nope"), ErrNotFound)
	_, ok := q.Item("nope")
	assert.False(t, ok)
}

func TestLoad_MergesByServerID(t *testing.T) {
	m, q := seeded(t, 2)
	first := q.Items()

	list, err := m.List(context.Background(), time.Time{}, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	list[0].Name = "renamed"
	q.Load(list)

	items := q.Items()
	require.Len(t, items, 2, "reloading does not duplicate")
	assert.Equal(t, first[0].ClientID, items[0].ClientID)
	assert.Equal(t, "renamed", items[0].Name)
}

func TestLoad_SkipsItemsWithQueuedWork(t *testing.T) {
	m, q := seeded(t, 2)
	target := q.Items()[0]
	g := m.Gate(remote.OpDelete)

	require.NoError(t, q.Delete(target.ClientID))
	<-g.Entered()

	list, err := m.List(context.Background(), time.Time{}, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	q.Load(list)

	_, ok := q.Item(target.ClientID)
	assert.False(t, ok, "pending delete is not resurrected")
	assert.Len(t, q.Items(), 1)

	g.Release()
	settle(t, q)
}

func TestEvents_DroppedWhenFull(t *testing.T) {
	m := remote.NewMock()
	q := newQueue(t, m, WithEventBuffer(1))

	for i := range 3 {
		_, err := q.Create(sampleItem("q", i, 1))
		require.NoError(t, err)
	}
	settle(t, q)

	assert.Len(t, collect(q), 1)
	assert.Equal(t, 3, m.Len())
}

func TestClose_CancelsInFlightCreate(t *testing.T) {
	m := remote.NewMock()
	g := m.Gate(remote.OpCreate)
	q := New(m, nil)

	created, err := q.Create(sampleItem("q1", 0, 1))
	require.NoError(t, err)
	<-g.Entered()

	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Pending(created.ClientID).CreateErr, context.Canceled)
}

func TestReconcile_DrainsWorkWhenServerIDArrives(t *testing.T) {
	m := remote.NewMock(sampleItem("a", 0, 1))
	list, err := m.List(context.Background(), time.Time{}, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, list, 1)
	serverID := list[0].ServerID

	q := newQueue(t, m)
	local := list[0].Clone()
	local.ClientID, local.ServerID = "c-1", ""
	attempts := 3

	// An edit queued with no drain running, as left behind by a drain that
	// gave up before the server id existed.
	q.mu.Lock()
	q.items = []schedule.Item{local}
	q.entries["c-1"] = &entry{patch: &schedule.Patch{AttemptsAllowed: &attempts}, gen: 1}
	confirmed := local.Clone()
	confirmed.ServerID = serverID
	q.entries["c-1"].serverID = serverID
	q.setItems([]schedule.Item{confirmed})
	q.mu.Unlock()

	settle(t, q)
	edits := m.CallsFor(remote.OpEdit)
	require.Len(t, edits, 1)
	assert.Equal(t, serverID, edits[0].ServerID)
	require.NotNil(t, edits[0].Patch)
	require.NotNil(t, edits[0].Patch.AttemptsAllowed)
	assert.Equal(t, 3, *edits[0].Patch.AttemptsAllowed)

	it, ok := q.Item("c-1")
	require.True(t, ok)
	assert.Equal(t, 3, it.AttemptsAllowed)
	assert.True(t, q.Pending("c-1").Idle())
}
