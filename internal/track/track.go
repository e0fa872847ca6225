// Package track models the scrollable strip of day columns behind the
// calendar: a visible window plus a buffer of days on each side so paging
// can animate without exposing empty columns.
package track

import (
	"github.com/abhisek/quizcal/internal/daykey"
)

const (
	// VisibleDays is the number of day columns shown to the user.
	VisibleDays = 7

	// Buffer is the number of extra days kept on each side of the window.
	Buffer = 7

	// Columns is the total number of day columns in the track.
	Columns = VisibleDays + 2*Buffer
)

// Window is a visible window identified by its first day.
type Window struct {
	Start daykey.Key
}

// Bounds are the key ranges of a window and its track, inclusive.
type Bounds struct {
	TrackStart   daykey.Key
	TrackEnd     daykey.Key
	VisibleStart daykey.Key
	VisibleEnd   daykey.Key
}

// VisibleStart returns the first visible day.
func (w Window) VisibleStart() daykey.Key { return w.Start }

// VisibleEnd returns the last visible day.
func (w Window) VisibleEnd() daykey.Key { return daykey.AddDays(w.Start, VisibleDays-1) }

// TrackStart returns the first day of the track.
func (w Window) TrackStart() daykey.Key { return daykey.AddDays(w.Start, -Buffer) }

// TrackEnd returns the last day of the track.
func (w Window) TrackEnd() daykey.Key { return daykey.AddDays(w.Start, VisibleDays-1+Buffer) }

// Bounds returns the window's key ranges.
func (w Window) Bounds() Bounds {
	return Bounds{
		TrackStart:   w.TrackStart(),
		TrackEnd:     w.TrackEnd(),
		VisibleStart: w.VisibleStart(),
		VisibleEnd:   w.VisibleEnd(),
	}
}

// Shift returns the window moved by n days.
func (w Window) Shift(n int) Window {
	return Window{Start: daykey.AddDays(w.Start, n)}
}

// Days returns every day of the track in column order.
func (w Window) Days() []daykey.Key {
	return daykey.Range(w.TrackStart(), w.TrackEnd())
}

// Column returns the 1-based track column of k. The result may fall outside
// [1, Columns] for days beyond the track.
func (b Bounds) Column(k daykey.Key) int {
	return daykey.Diff(b.TrackStart, k) + 1
}

// Day returns the day shown in the 1-based track column col.
func (b Bounds) Day(col int) daykey.Key {
	return daykey.AddDays(b.TrackStart, col-1)
}

// VisibleColumns returns the first and last visible track columns.
func (b Bounds) VisibleColumns() (first, last int) {
	return b.Column(b.VisibleStart), b.Column(b.VisibleEnd)
}

// Contains reports whether k lies inside the track.
func (b Bounds) Contains(k daykey.Key) bool {
	return !k.Before(b.TrackStart) && !k.After(b.TrackEnd)
}
