// Package daykey converts between absolute instants and calendar-day keys
// in a named timezone. All window and lane math works on keys, never on raw
// instants, so daylight-saving transitions and the host timezone cannot shift
// an item onto the wrong day.
package daykey

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the textual form of a Key.
const Layout = "2006-01-02"

// ErrBadZone is returned when a timezone identifier cannot be loaded.
var ErrBadZone = errors.New("unknown timezone")

// Key identifies a calendar day as YYYY-MM-DD. Lexicographic order equals
// chronological order.
type Key string

// LoadZone resolves an IANA timezone identifier. An empty name is rejected
// rather than silently falling back to UTC.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrBadZone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrBadZone, name, err)
	}
	return loc, nil
}

// Of returns the key of the day containing t in loc.
func Of(t time.Time, loc *time.Location) Key {
	return Key(t.In(loc).Format(Layout))
}

// Today returns the key of the day containing now in loc.
func Today(now time.Time, loc *time.Location) Key {
	return Of(now, loc)
}

// Parse validates s and returns it as a Key.
func Parse(s string) (Key, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return "", fmt.Errorf("parse day key %q: %w", s, err)
	}
	return Key(t.Format(Layout)), nil
}

// MustParse is Parse for literals; it panics on malformed input.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// civil returns the key as a UTC midnight. Day arithmetic happens on this
// value so no zone offsets are involved.
func (k Key) civil() time.Time {
	t, err := time.Parse(Layout, string(k))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Valid reports whether k is a well-formed key.
func (k Key) Valid() bool {
	_, err := time.Parse(Layout, string(k))
	return err == nil
}

func (k Key) String() string { return string(k) }

// Before reports whether k is strictly earlier than other.
func (k Key) Before(other Key) bool { return k < other }

// After reports whether k is strictly later than other.
func (k Key) After(other Key) bool { return k > other }

// Weekday returns the day of the week of k.
func (k Key) Weekday() time.Weekday { return k.civil().Weekday() }

// Day returns the day of the month of k.
func (k Key) Day() int { return k.civil().Day() }

// AddDays returns the key n days after k (n may be negative).
func AddDays(k Key, n int) Key {
	return Key(k.civil().AddDate(0, 0, n).Format(Layout))
}

// Diff returns the number of days from a to b; positive when b is later.
func Diff(a, b Key) int {
	d := b.civil().Sub(a.civil())
	return int(d.Round(time.Hour) / (24 * time.Hour))
}

// StartOfDay returns the first instant of k in loc.
func StartOfDay(k Key, loc *time.Location) time.Time {
	c := k.civil()
	return time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last representable instant of k in loc.
func EndOfDay(k Key, loc *time.Location) time.Time {
	return StartOfDay(AddDays(k, 1), loc).Add(-time.Nanosecond)
}

// Min returns the earlier of a and b.
func Min(a, b Key) Key {
	if a < b {
		return a
	}
	return b
}

// Max returns the later of a and b.
func Max(a, b Key) Key {
	if a > b {
		return a
	}
	return b
}

// Range returns every key from from to to inclusive. It returns nil when to
// is before from.
func Range(from, to Key) []Key {
	n := Diff(from, to)
	if n < 0 {
		return nil
	}
	keys := make([]Key, 0, n+1)
	for i := 0; i <= n; i++ {
		keys = append(keys, AddDays(from, i))
	}
	return keys
}
