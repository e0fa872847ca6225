// Package board ties the pager, the interaction tracker, the mutation queue
// and the lane packer together and produces one render frame at a time.
package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/quizcal/internal/daykey"
	"github.com/abhisek/quizcal/internal/interact"
	"github.com/abhisek/quizcal/internal/lanes"
	"github.com/abhisek/quizcal/internal/mutation"
	"github.com/abhisek/quizcal/internal/schedule"
	"github.com/abhisek/quizcal/internal/store"
	"github.com/abhisek/quizcal/internal/track"
)

// ErrNotVisible is returned when a gesture targets an item that is not on
// screen.
var ErrNotVisible = errors.New("schedule item not visible")

// DraftVersion is the format version written by SaveDraft.
const DraftVersion = 1

// Lister fetches persisted items for a time range.
type Lister interface {
	List(ctx context.Context, from, to time.Time) ([]schedule.Item, error)
}

// Options configures a Board.
type Options struct {
	// Location is the zone days are computed in. Default: UTC.
	Location *time.Location

	// Start is the first visible day. Default: today.
	Start daykey.Key

	SlideDuration time.Duration
	Interact      interact.Config
	Geometry      interact.Geometry
	Logger        *zap.Logger
}

// Placed is one rendered item: its lane placement plus the item data.
type Placed struct {
	lanes.LaneItem
	Item    schedule.Item
	Status  mutation.Status
	Preview bool
}

// Frame is everything a renderer needs for one paint.
type Frame struct {
	Window    track.Window
	Bounds    track.Bounds
	Days      []daykey.Key // visible days
	Items     []Placed
	LaneCount int
	State     interact.State
	Active    string
	Sliding   bool
}

// Board is driven from a single event loop and is not safe for concurrent
// use. The queue it wraps is.
type Board struct {
	loc     *time.Location
	pager   *track.Pager
	tracker *interact.Tracker
	queue   *mutation.Queue
	log     *zap.Logger

	// laneFloor keeps the lane count from shrinking mid-interaction.
	laneFloor int
	lanes     map[string]int
}

// New creates a board over q.
func New(q *mutation.Queue, opts Options, now time.Time) (*Board, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	start := opts.Start
	if start == "" {
		start = daykey.Today(now, loc)
	}
	if !start.Valid() {
		return nil, fmt.Errorf("invalid window start %q", start)
	}

	pager := track.NewPager(start, opts.SlideDuration)
	tracker, err := interact.NewTracker(opts.Interact, opts.Geometry, loc, pager)
	if err != nil {
		return nil, fmt.Errorf("create tracker: %w", err)
	}
	return &Board{
		loc:     loc,
		pager:   pager,
		tracker: tracker,
		queue:   q,
		log:     log.Named("board"),
		lanes:   map[string]int{},
	}, nil
}

// Location returns the board's zone.
func (b *Board) Location() *time.Location { return b.loc }

// Window returns the current window.
func (b *Board) Window() track.Window { return b.pager.Window() }

// Queue returns the mutation queue.
func (b *Board) Queue() *mutation.Queue { return b.queue }

// Tracker returns the interaction tracker.
func (b *Board) Tracker() *interact.Tracker { return b.tracker }

// SetGeometry updates the pointer geometry after a resize.
func (b *Board) SetGeometry(geo interact.Geometry) error {
	return b.tracker.SetGeometry(geo)
}

// Frame packs the current items, with the live preview merged in, and
// returns what is visible.
func (b *Board) Frame(now time.Time) Frame {
	items := b.queue.Items()
	if id, span, ok := b.tracker.Preview(); ok {
		for i := range items {
			if items[i].ClientID == id {
				items[i].StartDate, items[i].EndDate = span.Start, span.End
				break
			}
		}
	}

	byID := make(map[string]schedule.Item, len(items))
	input := make([]lanes.Item, 0, len(items))
	for _, it := range items {
		byID[it.ClientID] = it
		input = append(input, lanes.Item{
			ClientID: it.ClientID,
			Name:     it.Name,
			QuizID:   it.QuizID,
			Start:    it.StartDate,
			End:      it.EndDate,
		})
	}

	w := b.pager.Window()
	bounds := w.Bounds()
	lock := b.tracker.Lock(now)
	active := b.tracker.Active()
	packed := lanes.Pack(input, bounds, b.loc, lanes.Options{
		Lock:   lock,
		Sticky: b.tracker.Sticky(),
		Active: active,
	})
	visible := lanes.Visible(packed, bounds, active)

	count := lanes.LaneCount(visible)
	if b.tracker.State() != interact.Idle || lock != nil {
		count = max(count, b.laneFloor)
		b.laneFloor = count
	} else {
		b.laneFloor = 0
	}
	b.lanes = lanes.LaneMap(visible)

	f := Frame{
		Window:    w,
		Bounds:    bounds,
		Days:      daykey.Range(bounds.VisibleStart, bounds.VisibleEnd),
		LaneCount: count,
		State:     b.tracker.State(),
		Active:    active,
		Sliding:   b.pager.Sliding(now),
		Items:     make([]Placed, 0, len(visible)),
	}
	for _, li := range visible {
		f.Items = append(f.Items, Placed{
			LaneItem: li,
			Item:     byID[li.ClientID],
			Status:   b.queue.Pending(li.ClientID),
			Preview:  li.ClientID == active,
		})
	}
	return f
}

// PointerDown starts dragging item id with the pointer at x.
func (b *Board) PointerDown(id string, x float64, now time.Time) error {
	it, ok := b.queue.Item(id)
	if !ok {
		return fmt.Errorf("drag %s: %w", id, mutation.ErrNotFound)
	}
	span := interact.Span{Start: it.StartDate, End: it.EndDate}
	return b.tracker.BeginDrag(id, span, x, b.lanes, now)
}

// GrabEdge starts resizing one edge of item id with the pointer at x.
func (b *Board) GrabEdge(id string, edge interact.Edge, x float64, now time.Time) error {
	it, ok := b.queue.Item(id)
	if !ok {
		return fmt.Errorf("resize %s: %w", id, mutation.ErrNotFound)
	}
	lane, ok := b.lanes[id]
	if !ok {
		b.Frame(now)
		if lane, ok = b.lanes[id]; !ok {
			return fmt.Errorf("resize %s: %w", id, ErrNotVisible)
		}
	}
	span := interact.Span{Start: it.StartDate, End: it.EndDate}
	return b.tracker.BeginResize(id, edge, span, x, lane, now)
}

// PointerMove follows the pointer. It reports whether the preview changed.
func (b *Board) PointerMove(x float64, now time.Time) bool {
	return b.tracker.Move(x, now)
}

// Tick plays the next step of a GoTo plan and re-evaluates auto-slide with
// the pointer resting. It reports whether anything moved.
func (b *Board) Tick(now time.Time) bool {
	moved := b.pager.Advance(now)
	return b.tracker.Tick(now) || moved
}

// PointerUp ends the gesture and queues the previewed range as an edit.
// It reports whether an edit was queued.
func (b *Board) PointerUp(now time.Time) (bool, error) {
	c, changed := b.tracker.Drop(now)
	return b.commit(c, changed)
}

// PointerCancel ends the gesture when the pointer is lost. The preview is
// committed as on PointerUp.
func (b *Board) PointerCancel(now time.Time) (bool, error) {
	c, changed := b.tracker.Cancel(now)
	return b.commit(c, changed)
}

func (b *Board) commit(c interact.Commit, changed bool) (bool, error) {
	if !changed {
		return false, nil
	}
	if err := b.queue.Edit(c.ClientID, c.Patch()); err != nil {
		return false, fmt.Errorf("commit %s: %w", c.ClientID, err)
	}
	b.log.Debug("gesture committed",
		zap.String("client_id", c.ClientID),
		zap.Time("start", c.Span.Start),
		zap.Time("end", c.Span.End))
	return true, nil
}

// Page shifts the window by one day. It returns false while a slide runs.
func (b *Board) Page(dir track.Direction, now time.Time) bool {
	return b.pager.Page(dir, now)
}

// GoTo starts moving the window to start at target. Tick plays the steps.
func (b *Board) GoTo(target daykey.Key, now time.Time) (track.Plan, error) {
	return b.pager.GoTo(target, now)
}

// Today starts moving the window to start on the current day.
func (b *Board) Today(now time.Time) (track.Plan, error) {
	return b.pager.Today(now, b.loc)
}

// Create adds an item through the queue.
func (b *Board) Create(it schedule.Item) (schedule.Item, error) {
	return b.queue.Create(it)
}

// Edit applies a patch through the queue.
func (b *Board) Edit(id string, p schedule.Patch) error {
	return b.queue.Edit(id, p)
}

// Delete removes an item through the queue. A gesture on the item ends
// without committing.
func (b *Board) Delete(id string, now time.Time) error {
	if b.tracker.Active() == id {
		b.tracker.Drop(now)
	}
	return b.queue.Delete(id)
}

// TrackRange returns the instants spanned by the whole track.
func (b *Board) TrackRange() (from, to time.Time) {
	bounds := b.pager.Window().Bounds()
	return daykey.StartOfDay(bounds.TrackStart, b.loc), daykey.EndOfDay(bounds.TrackEnd, b.loc)
}

// Refresh loads the persisted items covering the whole track.
func (b *Board) Refresh(ctx context.Context, src Lister) error {
	from, to := b.TrackRange()
	items, err := src.List(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list schedules: %w", err)
	}
	b.queue.Load(items)
	return nil
}

// SaveDraft stores the current item list, unsynced items included.
func (b *Board) SaveDraft(ctx context.Context, repo store.DraftRepo) error {
	d := &store.Draft{
		Timestamp: time.Now(),
		Data: store.DraftData{
			Version:     DraftVersion,
			WindowStart: string(b.pager.Window().Start),
			Timezone:    b.loc.String(),
			Items:       b.queue.Items(),
		},
	}
	if err := repo.Save(ctx, d); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}
