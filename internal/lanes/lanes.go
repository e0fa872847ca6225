// Package lanes assigns date-ranged items to day columns and vertical lanes
// inside a track so that no two items sharing a lane overlap.
//
// Packing is a pure function of the items (as a set), the track bounds and
// the lock/sticky options: input order and object identity never influence
// the result.
package lanes

import (
	"sort"
	"time"

	"github.com/abhisek/quizcal/internal/daykey"
	"github.com/abhisek/quizcal/internal/track"
)

// Item is the packing input for one schedule item.
type Item struct {
	ClientID string
	Name     string
	QuizID   string
	Start    time.Time
	End      time.Time
}

// Lock pins one item to a lane. It is held while that item is resized so it
// never jumps lanes mid-gesture.
type Lock struct {
	ClientID string
	Lane     int
}

// Options tune a packing pass.
type Options struct {
	// Lock forces one item into a lane. Other items avoid that lane where
	// they would overlap the locked item.
	Lock *Lock

	// Sticky maps client ids to the lane they held when an interaction
	// started. Items try their sticky lane first.
	Sticky map[string]int

	// Active is the item under the pointer. It is kept even when its range
	// lies completely outside the track.
	Active string
}

// LaneItem is the per-frame placement of one item.
type LaneItem struct {
	ClientID string

	// ColStart and ColEnd are 1-based inclusive track columns.
	ColStart int
	ColEnd   int

	Lane int

	// ClippedLeft and ClippedRight report that the item's true range
	// extends past the visible window.
	ClippedLeft  bool
	ClippedRight bool

	order    int
	start    time.Time
	duration time.Duration
	name     string
	quizID   string
}

// Span returns the number of columns the item covers.
func (li LaneItem) Span() int { return li.ColEnd - li.ColStart + 1 }

// Overlaps reports whether the column ranges of a and b intersect.
func Overlaps(a, b LaneItem) bool {
	return a.ColStart <= b.ColEnd && b.ColStart <= a.ColEnd
}

// Pack places items onto lanes within the track described by b. Day keys
// are computed in loc. The result is in packing order.
func Pack(items []Item, b track.Bounds, loc *time.Location, opts Options) []LaneItem {
	placed := clip(items, b, loc, opts.Active)
	sortForPacking(placed)

	var (
		laneEnd []int // highest occupied column per lane; 0 means empty
		locked  *LaneItem
	)
	if opts.Lock != nil {
		for i := range placed {
			if placed[i].ClientID == opts.Lock.ClientID {
				locked = &placed[i]
				break
			}
		}
	}
	grow := func(n int) {
		for len(laneEnd) < n {
			laneEnd = append(laneEnd, 0)
		}
	}
	collidesWithLock := func(lane int, li *LaneItem) bool {
		return locked != nil && lane == opts.Lock.Lane && Overlaps(*li, *locked)
	}

	for i := range placed {
		li := &placed[i]
		li.order = i

		if locked != nil && li.ClientID == opts.Lock.ClientID {
			lane := max(opts.Lock.Lane, 0)
			grow(lane + 1)
			li.Lane = lane
			laneEnd[lane] = max(laneEnd[lane], li.ColEnd)
			continue
		}

		sticky, hasSticky := opts.Sticky[li.ClientID]
		lane := -1
		for _, cand := range candidates(sticky, hasSticky, len(laneEnd)) {
			end := 0
			if cand < len(laneEnd) {
				end = laneEnd[cand]
			}
			if end < li.ColStart && !collidesWithLock(cand, li) {
				lane = cand
				break
			}
		}
		if lane < 0 {
			lane = len(laneEnd)
			for collidesWithLock(lane, li) {
				lane++
			}
		}
		grow(lane + 1)
		li.Lane = lane
		laneEnd[lane] = max(laneEnd[lane], li.ColEnd)
	}
	return placed
}

// clip converts items to column ranges, dropping those outside the track.
func clip(items []Item, b track.Bounds, loc *time.Location, active string) []LaneItem {
	lastCol := b.Column(b.TrackEnd)
	out := make([]LaneItem, 0, len(items))
	for _, it := range items {
		startKey := daykey.Of(it.Start, loc)
		endKey := daykey.Of(it.End, loc)
		if endKey.Before(startKey) {
			endKey = startKey
		}

		li := LaneItem{
			ClientID:     it.ClientID,
			ClippedLeft:  startKey.Before(b.VisibleStart),
			ClippedRight: endKey.After(b.VisibleEnd),
			start:        it.Start,
			duration:     it.End.Sub(it.Start),
			name:         it.Name,
			quizID:       it.QuizID,
		}

		switch {
		case endKey.Before(b.TrackStart):
			if it.ClientID != active {
				continue
			}
			li.ColStart, li.ColEnd = 1, 1
		case startKey.After(b.TrackEnd):
			if it.ClientID != active {
				continue
			}
			li.ColStart, li.ColEnd = lastCol, lastCol
		default:
			li.ColStart = b.Column(daykey.Max(startKey, b.TrackStart))
			li.ColEnd = b.Column(daykey.Min(endKey, b.TrackEnd))
		}
		out = append(out, li)
	}
	return out
}

// sortForPacking orders items by (colStart, start, -duration, name, quiz,
// client id). The client id makes the order total.
func sortForPacking(items []LaneItem) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ColStart != b.ColStart {
			return a.ColStart < b.ColStart
		}
		if !a.start.Equal(b.start) {
			return a.start.Before(b.start)
		}
		if a.duration != b.duration {
			return a.duration > b.duration
		}
		if a.name != b.name {
			return a.name < b.name
		}
		if a.quizID != b.quizID {
			return a.quizID < b.quizID
		}
		return a.ClientID < b.ClientID
	})
}

// candidates returns the lane search order: the sticky lane first, then
// alternating outward from it. Lanes up to the sticky lane are searched even
// when they do not exist yet so an item can return to its old lane.
func candidates(sticky int, hasSticky bool, lanes int) []int {
	if !hasSticky || sticky < 0 {
		out := make([]int, lanes)
		for i := range out {
			out[i] = i
		}
		return out
	}
	limit := max(lanes, sticky+1)
	out := make([]int, 0, limit)
	out = append(out, sticky)
	for d := 1; len(out) < limit; d++ {
		if hi := sticky + d; hi < limit {
			out = append(out, hi)
		}
		if lo := sticky - d; lo >= 0 {
			out = append(out, lo)
		}
	}
	return out
}

// Visible returns the items whose columns intersect the visible window,
// always keeping active. Packing order is preserved.
func Visible(items []LaneItem, b track.Bounds, active string) []LaneItem {
	first, last := b.VisibleColumns()
	out := make([]LaneItem, 0, len(items))
	for _, li := range items {
		if li.ClientID == active || (li.ColEnd >= first && li.ColStart <= last) {
			out = append(out, li)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

// LaneCount returns the number of lanes used by items.
func LaneCount(items []LaneItem) int {
	n := 0
	for _, li := range items {
		n = max(n, li.Lane+1)
	}
	return n
}

// LaneMap returns client id → lane for items.
func LaneMap(items []LaneItem) map[string]int {
	m := make(map[string]int, len(items))
	for _, li := range items {
		m[li.ClientID] = li.Lane
	}
	return m
}
