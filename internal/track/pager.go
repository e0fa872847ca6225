package track

import (
	"errors"
	"time"

	"github.com/abhisek/quizcal/internal/daykey"
)

// MaxAnimatedSteps caps how many single-day steps GoTo animates before it
// snaps directly to the target.
const MaxAnimatedSteps = 12

// DefaultSlideDuration is how long one page animation keeps the pager busy.
const DefaultSlideDuration = 220 * time.Millisecond

// ErrSliding is returned when a navigation request arrives mid-slide.
var ErrSliding = errors.New("window is sliding")

// Direction is a paging direction.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

// Plan describes how a GoTo request should be animated: Steps are the
// successive window starts to slide through, one day apart, and Snap is
// the final window start, reached without animation when the target lies
// further than MaxAnimatedSteps days away.
type Plan struct {
	Steps   []daykey.Key
	Snap    daykey.Key
	Snapped bool
}

// Pager owns the current window and serializes paging. A page request
// during an active slide or a playing GoTo plan is dropped, not queued.
type Pager struct {
	window        Window
	slideDuration time.Duration
	slideUntil    time.Time

	// pending holds the GoTo steps not yet shown; snap is applied after
	// the last one.
	pending []daykey.Key
	snap    daykey.Key
}

// NewPager creates a pager whose window starts at start.
func NewPager(start daykey.Key, slideDuration time.Duration) *Pager {
	if slideDuration <= 0 {
		slideDuration = DefaultSlideDuration
	}
	return &Pager{
		window:        Window{Start: start},
		slideDuration: slideDuration,
	}
}

// Window returns the current window.
func (p *Pager) Window() Window { return p.window }

// Sliding reports whether a slide animation is still running at now,
// including the remaining steps of a GoTo plan.
func (p *Pager) Sliding(now time.Time) bool {
	return now.Before(p.slideUntil) || p.Animating()
}

// Animating reports whether a GoTo plan still has steps to play.
func (p *Pager) Animating() bool {
	return len(p.pending) > 0 || p.snap != ""
}

// EndSlide finishes the running animation. A playing GoTo plan jumps
// straight to its target.
func (p *Pager) EndSlide() {
	if p.snap != "" {
		p.window = Window{Start: p.snap}
	}
	p.pending, p.snap = nil, ""
	p.slideUntil = time.Time{}
}

// Advance plays the next step of a GoTo plan once the current slide has
// finished. After the last animated step the window snaps to the target
// without a slide. It reports whether the window moved.
func (p *Pager) Advance(now time.Time) bool {
	if !p.Animating() || now.Before(p.slideUntil) {
		return false
	}
	if len(p.pending) > 0 {
		p.window = Window{Start: p.pending[0]}
		p.pending = p.pending[1:]
		p.slideUntil = now.Add(p.slideDuration)
		if len(p.pending) == 0 && p.snap == p.window.Start {
			p.snap = ""
		}
		return true
	}
	p.window = Window{Start: p.snap}
	p.snap = ""
	p.slideUntil = time.Time{}
	return true
}

// Page shifts the window by one day in dir. It returns false and leaves the
// window untouched when a slide is still running.
func (p *Pager) Page(dir Direction, now time.Time) bool {
	if dir == 0 || p.Sliding(now) {
		return false
	}
	p.window = p.window.Shift(int(dir))
	p.slideUntil = now.Add(p.slideDuration)
	return true
}

// GoTo starts moving the window towards target. Up to MaxAnimatedSteps
// single-day steps are played, one per slide, by Advance; anything further
// is reached by snapping after the last step. The first step is shown
// immediately.
func (p *Pager) GoTo(target daykey.Key, now time.Time) (Plan, error) {
	if p.Sliding(now) {
		return Plan{}, ErrSliding
	}
	delta := daykey.Diff(p.window.Start, target)
	if delta == 0 {
		return Plan{Snap: target}, nil
	}

	dir := 1
	if delta < 0 {
		dir = -1
		delta = -delta
	}
	steps := min(delta, MaxAnimatedSteps)

	plan := Plan{Steps: make([]daykey.Key, 0, steps), Snap: target}
	cur := p.window.Start
	for i := 0; i < steps; i++ {
		cur = daykey.AddDays(cur, dir)
		plan.Steps = append(plan.Steps, cur)
	}
	plan.Snapped = cur != target

	p.window = Window{Start: plan.Steps[0]}
	p.slideUntil = now.Add(p.slideDuration)
	p.pending = append([]daykey.Key(nil), plan.Steps[1:]...)
	p.snap = ""
	if plan.Snapped || len(p.pending) > 0 {
		p.snap = target
	}
	return plan, nil
}

// Today starts moving the window to the day containing now.
func (p *Pager) Today(now time.Time, loc *time.Location) (Plan, error) {
	return p.GoTo(daykey.Today(now, loc), now)
}
