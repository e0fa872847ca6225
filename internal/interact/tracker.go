// Package interact turns pointer gestures on the board into previewed and
// committed date ranges. It holds the lane lock used while resizing and the
// sticky lane snapshot used while dragging so the packer keeps the layout
// steady under the pointer.
package interact

import (
	"errors"
	"maps"
	"math"
	"time"

	"github.com/abhisek/quizcal/internal/daykey"
	"github.com/abhisek/quizcal/internal/lanes"
	"github.com/abhisek/quizcal/internal/schedule"
	"github.com/abhisek/quizcal/internal/track"
)

// ErrBusy is returned when a gesture starts while another is active.
var ErrBusy = errors.New("interaction already in progress")

// ErrGeometry is returned when the board geometry cannot map pointer
// movement to days.
var ErrGeometry = errors.New("column width must be positive")

// State is the tracker's interaction state.
type State int

const (
	Idle State = iota
	Dragging
	Resizing
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Edge is the side of an item grabbed for resizing.
type Edge int

const (
	EdgeStart Edge = iota
	EdgeEnd
)

// Span is an item's date range.
type Span struct {
	Start time.Time
	End   time.Time
}

// Equal reports whether both ends are the same instants.
func (s Span) Equal(o Span) bool {
	return s.Start.Equal(o.Start) && s.End.Equal(o.End)
}

// Geometry maps pointer coordinates onto the board.
type Geometry struct {
	ColumnWidth   float64
	ViewportLeft  float64
	ViewportRight float64
}

// Pager is the slice of track.Pager the tracker drives during auto-slide.
type Pager interface {
	Page(dir track.Direction, now time.Time) bool
}

// Commit is the result of a finished gesture.
type Commit struct {
	ClientID string
	Span     Span
}

// Patch returns the range patch to hand to the mutation queue.
func (c Commit) Patch() schedule.Patch {
	return schedule.RangePatch(c.Span.Start, c.Span.End)
}

// Tracker follows one gesture at a time. It is not safe for concurrent use;
// the board drives it from its event loop.
type Tracker struct {
	cfg   Config
	geo   Geometry
	loc   *time.Location
	pager Pager

	state  State
	id     string
	edge   Edge
	origin Span
	prev   Span
	startX float64
	lastX  float64
	paged  int

	armed     bool
	engaged   track.Direction
	lastSlide time.Time

	sticky        map[string]int
	lock          *lanes.Lock
	lockReleaseAt time.Time
}

// NewTracker creates an idle tracker. Days are computed in loc. pager may be
// nil, in which case auto-slide is disabled.
func NewTracker(cfg Config, geo Geometry, loc *time.Location, pager Pager) (*Tracker, error) {
	if geo.ColumnWidth <= 0 {
		return nil, ErrGeometry
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Tracker{cfg: cfg, geo: geo, loc: loc, pager: pager}, nil
}

// SetGeometry updates the board geometry, e.g. after a terminal resize.
func (t *Tracker) SetGeometry(geo Geometry) error {
	if geo.ColumnWidth <= 0 {
		return ErrGeometry
	}
	t.geo = geo
	return nil
}

// BeginDrag starts moving item id whose current range is span. visible maps
// the client ids on screen to their lanes; it becomes the sticky snapshot
// unless a resize lock is still settling.
func (t *Tracker) BeginDrag(id string, span Span, pointerX float64, visible map[string]int, now time.Time) error {
	if t.state != Idle {
		return ErrBusy
	}
	t.begin(Dragging, id, span, pointerX, now)
	if t.Lock(now) == nil {
		t.sticky = maps.Clone(visible)
		if t.sticky == nil {
			t.sticky = map[string]int{}
		}
	}
	return nil
}

// BeginResize starts moving one edge of item id, which sits in lane.
func (t *Tracker) BeginResize(id string, edge Edge, span Span, pointerX float64, lane int, now time.Time) error {
	if t.state != Idle {
		return ErrBusy
	}
	t.begin(Resizing, id, span, pointerX, now)
	t.edge = edge
	t.lock = &lanes.Lock{ClientID: id, Lane: lane}
	t.lockReleaseAt = time.Time{}
	return nil
}

func (t *Tracker) begin(state State, id string, span Span, x float64, now time.Time) {
	t.state = state
	t.id = id
	t.origin = span
	t.prev = span
	t.startX = x
	t.lastX = x
	t.paged = 0
	t.engaged = 0
	t.armed = !t.inZone(x)
	t.lastSlide = time.Time{}
}

// Move updates the preview for a pointer at x. It reports whether the
// previewed range changed.
func (t *Tracker) Move(x float64, now time.Time) bool {
	if t.state == Idle {
		return false
	}
	t.lastX = x
	return t.update(now)
}

// Tick re-evaluates auto-slide with the pointer held still.
func (t *Tracker) Tick(now time.Time) bool {
	if t.state == Idle {
		return false
	}
	return t.update(now)
}

func (t *Tracker) update(now time.Time) bool {
	if t.state == Dragging {
		t.autoSlide(t.lastX, now)
	}
	next := t.compute(t.days())
	changed := !next.Equal(t.prev)
	t.prev = next
	return changed
}

// days is the whole-day pointer offset including days paged by auto-slide.
func (t *Tracker) days() int {
	return int(math.Round((t.lastX-t.startX)/t.geo.ColumnWidth)) + t.paged
}

func (t *Tracker) compute(delta int) Span {
	if delta == 0 {
		return t.origin
	}
	switch t.state {
	case Dragging:
		return Span{
			Start: t.origin.Start.In(t.loc).AddDate(0, 0, delta),
			End:   t.origin.End.In(t.loc).AddDate(0, 0, delta),
		}
	case Resizing:
		startKey := daykey.Of(t.origin.Start, t.loc)
		endKey := daykey.Of(t.origin.End, t.loc)
		if t.edge == EdgeStart {
			k := daykey.Min(daykey.AddDays(startKey, delta), endKey)
			return Span{Start: daykey.StartOfDay(k, t.loc), End: t.origin.End}
		}
		k := daykey.Max(daykey.AddDays(endKey, delta), startKey)
		return Span{Start: t.origin.Start, End: daykey.EndOfDay(k, t.loc)}
	}
	return t.origin
}

func (t *Tracker) inZone(x float64) bool {
	return x-t.geo.ViewportLeft <= t.cfg.EdgeZone || t.geo.ViewportRight-x <= t.cfg.EdgeZone
}

// autoSlide pages the window while the pointer rests near a viewport edge.
// A gesture that starts inside an edge zone must leave it by Hysteresis
// before sliding is armed, and an engaged edge is released the same way.
func (t *Tracker) autoSlide(x float64, now time.Time) {
	if t.pager == nil {
		return
	}
	left := x - t.geo.ViewportLeft
	right := t.geo.ViewportRight - x
	release := t.cfg.EdgeZone + t.cfg.Hysteresis

	if left > release && right > release {
		t.armed = true
	}
	switch {
	case t.engaged == track.Backward && left > release,
		t.engaged == track.Forward && right > release:
		t.engaged = 0
	case t.engaged == 0 && t.armed && left <= t.cfg.EdgeZone:
		t.engaged = track.Backward
	case t.engaged == 0 && t.armed && right <= t.cfg.EdgeZone:
		t.engaged = track.Forward
	}

	if t.engaged == 0 {
		return
	}
	if !t.lastSlide.IsZero() && now.Sub(t.lastSlide) < t.cfg.SlideCooldown {
		return
	}
	if t.pager.Page(t.engaged, now) {
		t.paged += int(t.engaged)
		t.lastSlide = now
	}
}

// Drop ends the gesture and returns the commit, if the range changed.
func (t *Tracker) Drop(now time.Time) (Commit, bool) {
	if t.state == Idle {
		return Commit{}, false
	}
	c := Commit{ClientID: t.id, Span: t.prev}
	changed := !t.prev.Equal(t.origin)
	t.end(now)
	return c, changed
}

// Cancel ends the gesture when the pointer is lost. Releasing the pointer
// always commits whatever is previewed, so Cancel behaves like Drop.
func (t *Tracker) Cancel(now time.Time) (Commit, bool) {
	return t.Drop(now)
}

func (t *Tracker) end(now time.Time) {
	if t.state == Resizing {
		t.lockReleaseAt = now.Add(t.cfg.SettleDelay)
	}
	t.state = Idle
	t.id = ""
	t.sticky = nil
	t.paged = 0
	t.engaged = 0
}

// State returns the current interaction state.
func (t *Tracker) State() State { return t.state }

// Active returns the client id under the pointer, or "" when idle.
func (t *Tracker) Active() string { return t.id }

// ResizeEdge returns the grabbed edge while resizing.
func (t *Tracker) ResizeEdge() (Edge, bool) {
	return t.edge, t.state == Resizing
}

// Preview returns the live range of the active item.
func (t *Tracker) Preview() (string, Span, bool) {
	if t.state == Idle {
		return "", Span{}, false
	}
	return t.id, t.prev, true
}

// Paged returns the number of days auto-slide has paged in this gesture.
func (t *Tracker) Paged() int { return t.paged }

// Lock returns the lane lock in force at now, releasing it once the settle
// delay after a resize has passed.
func (t *Tracker) Lock(now time.Time) *lanes.Lock {
	if t.lock == nil {
		return nil
	}
	if t.state != Resizing && !now.Before(t.lockReleaseAt) {
		t.lock = nil
		return nil
	}
	l := *t.lock
	return &l
}

// Sticky returns a copy of the sticky lane snapshot, or nil when no drag is
// active.
func (t *Tracker) Sticky() map[string]int {
	return maps.Clone(t.sticky)
}
