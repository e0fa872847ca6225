package lanes

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizcal/internal/daykey"
	"github.com/abhisek/quizcal/internal/track"
)

func day(s string, hour int) time.Time {
	k := daykey.MustParse(s)
	return daykey.StartOfDay(k, time.UTC).Add(time.Duration(hour) * time.Hour)
}

func item(id, from, to string) Item {
	return Item{ClientID: id, Name: "quiz " + id, QuizID: "q-" + id, Start: day(from, 9), End: day(to, 17)}
}

func marchBounds() track.Bounds {
	return track.Bounds{
		TrackStart:   daykey.MustParse("2024-03-01"),
		TrackEnd:     daykey.MustParse("2024-03-14"),
		VisibleStart: daykey.MustParse("2024-03-04"),
		VisibleEnd:   daykey.MustParse("2024-03-10"),
	}
}

func byID(items []LaneItem) map[string]LaneItem {
	m := make(map[string]LaneItem, len(items))
	for _, li := range items {
		m[li.ClientID] = li
	}
	return m
}

func assertNoOverlap(t *testing.T, items []LaneItem) {
	t.Helper()
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i], items[j]
			if a.Lane == b.Lane && Overlaps(a, b) {
				t.Errorf("%s and %s overlap in lane %d", a.ClientID, b.ClientID, a.Lane)
			}
		}
	}
}

func TestPackOverlappingItems(t *testing.T) {
	items := []Item{
		item("1", "2024-03-04", "2024-03-06"),
		item("2", "2024-03-05", "2024-03-05"),
	}
	got := Pack(items, marchBounds(), time.UTC, Options{})

	assert.Equal(t, map[string]int{"1": 0, "2": 1}, LaneMap(got))
	m := byID(got)
	assert.Equal(t, 4, m["1"].ColStart)
	assert.Equal(t, 6, m["1"].ColEnd)
	assert.Equal(t, 5, m["2"].ColStart)
	assert.Equal(t, 2, LaneCount(got))
}

func TestPackReusesLaneAfterGap(t *testing.T) {
	items := []Item{
		item("a", "2024-03-02", "2024-03-03"),
		item("b", "2024-03-03", "2024-03-05"),
		item("c", "2024-03-04", "2024-03-04"),
	}
	lanes := LaneMap(Pack(items, marchBounds(), time.UTC, Options{}))
	assert.Equal(t, 0, lanes["a"])
	assert.Equal(t, 1, lanes["b"])
	assert.Equal(t, 0, lanes["c"], "lane 0 is free again after column 3")
}

func TestPackClipsToTrack(t *testing.T) {
	items := []Item{
		item("left", "2024-02-20", "2024-03-02"),
		item("right", "2024-03-13", "2024-03-30"),
		item("gone", "2024-01-01", "2024-01-05"),
		item("later", "2024-04-01", "2024-04-02"),
	}
	got := byID(Pack(items, marchBounds(), time.UTC, Options{}))

	require.Len(t, got, 2)
	assert.Equal(t, 1, got["left"].ColStart)
	assert.Equal(t, 2, got["left"].ColEnd)
	assert.True(t, got["left"].ClippedLeft)
	assert.False(t, got["left"].ClippedRight)

	assert.Equal(t, 13, got["right"].ColStart)
	assert.Equal(t, 14, got["right"].ColEnd)
	assert.True(t, got["right"].ClippedRight)
}

func TestPackKeepsActiveOutsideTrack(t *testing.T) {
	items := []Item{
		item("early", "2024-01-01", "2024-01-05"),
		item("late", "2024-04-01", "2024-04-02"),
	}
	b := marchBounds()

	early := byID(Pack(items, b, time.UTC, Options{Active: "early"}))
	require.Contains(t, early, "early")
	assert.Equal(t, 1, early["early"].ColStart)
	assert.NotContains(t, early, "late")

	late := byID(Pack(items, b, time.UTC, Options{Active: "late"}))
	require.Contains(t, late, "late")
	assert.Equal(t, 14, late["late"].ColStart)
	assert.Equal(t, 14, late["late"].ColEnd)
}

func TestPackUsesLocalDays(t *testing.T) {
	loc, err := daykey.LoadZone("America/New_York")
	require.NoError(t, err)

	// 02:00 UTC on the 5th is the evening of the 4th in New York.
	it := Item{ClientID: "x", Start: time.Date(2024, 3, 5, 2, 0, 0, 0, time.UTC), End: time.Date(2024, 3, 5, 3, 0, 0, 0, time.UTC)}
	got := Pack([]Item{it}, marchBounds(), loc, Options{})
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].ColStart)
}

func TestPackIsOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	b := marchBounds()
	items := randomItems(rng, 40)

	want := LaneMap(Pack(items, b, time.UTC, Options{}))
	for range 20 {
		shuffled := append([]Item(nil), items...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, LaneMap(Pack(shuffled, b, time.UTC, Options{})))
	}
}

func TestPackTiesBrokenByClientID(t *testing.T) {
	a := Item{ClientID: "b", Name: "same", QuizID: "q", Start: day("2024-03-05", 9), End: day("2024-03-05", 10)}
	c := a
	c.ClientID = "a"

	first := LaneMap(Pack([]Item{a, c}, marchBounds(), time.UTC, Options{}))
	second := LaneMap(Pack([]Item{c, a}, marchBounds(), time.UTC, Options{}))
	assert.Equal(t, first, second)
	assert.Equal(t, 0, first["a"])
}

func TestPackNeverOverlapsWithinLane(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	b := marchBounds()
	for round := range 50 {
		items := randomItems(rng, 30)
		opts := Options{}
		if round%2 == 1 {
			opts.Sticky = map[string]int{}
			for _, it := range items {
				opts.Sticky[it.ClientID] = rng.Intn(6)
			}
			opts.Lock = &Lock{ClientID: items[0].ClientID, Lane: rng.Intn(4)}
		}
		got := Pack(items, b, time.UTC, opts)
		assertNoOverlap(t, got)
		if opts.Lock != nil {
			if li, ok := byID(got)[opts.Lock.ClientID]; ok {
				assert.Equal(t, opts.Lock.Lane, li.Lane)
			}
		}
	}
}

func TestPackLockedLaneWins(t *testing.T) {
	items := []Item{
		item("early", "2024-03-02", "2024-03-06"),
		item("held", "2024-03-05", "2024-03-07"),
	}
	lock := &Lock{ClientID: "held", Lane: 0}
	got := LaneMap(Pack(items, marchBounds(), time.UTC, Options{Lock: lock}))

	assert.Equal(t, 0, got["held"])
	assert.Equal(t, 1, got["early"], "overlapping item must leave the locked lane")
}

func TestPackLockSkipsLaneWhenGrowing(t *testing.T) {
	items := []Item{
		item("a", "2024-03-02", "2024-03-08"),
		item("held", "2024-03-03", "2024-03-04"),
		item("c", "2024-03-04", "2024-03-05"),
	}
	lock := &Lock{ClientID: "held", Lane: 2}
	got := LaneMap(Pack(items, marchBounds(), time.UTC, Options{Lock: lock}))

	assert.Equal(t, 0, got["a"])
	assert.Equal(t, 2, got["held"])
	assert.Equal(t, 1, got["c"])
}

func TestPackStickyLanesHold(t *testing.T) {
	items := []Item{
		item("a", "2024-03-02", "2024-03-04"),
		item("b", "2024-03-03", "2024-03-05"),
		item("c", "2024-03-08", "2024-03-09"),
	}
	b := marchBounds()
	before := LaneMap(Pack(items, b, time.UTC, Options{}))
	require.Equal(t, 0, before["c"])

	// c was on lane 1 when the interaction began; it stays there even
	// though lane 0 is free.
	sticky := map[string]int{"a": before["a"], "b": before["b"], "c": 1}
	after := LaneMap(Pack(items, b, time.UTC, Options{Sticky: sticky}))
	assert.Equal(t, 1, after["c"])
	assert.Equal(t, before["a"], after["a"])
	assert.Equal(t, before["b"], after["b"])
}

func TestPackStickyMayOpenHigherLane(t *testing.T) {
	items := []Item{item("solo", "2024-03-05", "2024-03-05")}
	got := Pack(items, marchBounds(), time.UTC, Options{Sticky: map[string]int{"solo": 3}})
	assert.Equal(t, 3, got[0].Lane)
	assert.Equal(t, 4, LaneCount(got))
}

func TestCandidates(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, candidates(0, false, 3))
	assert.Equal(t, []int{2, 3, 1, 4, 0}, candidates(2, true, 5))
	assert.Equal(t, []int{4, 3, 2, 1, 0}, candidates(4, true, 2))
	assert.Empty(t, candidates(0, false, 0))
}

func TestVisible(t *testing.T) {
	items := []Item{
		item("before", "2024-03-01", "2024-03-02"),
		item("inside", "2024-03-05", "2024-03-06"),
		item("straddle", "2024-03-02", "2024-03-04"),
		item("after", "2024-03-12", "2024-03-13"),
	}
	b := marchBounds()
	packed := Pack(items, b, time.UTC, Options{})

	ids := func(xs []LaneItem) []string {
		out := make([]string, len(xs))
		for i, x := range xs {
			out[i] = x.ClientID
		}
		return out
	}

	assert.Equal(t, []string{"straddle", "inside"}, ids(Visible(packed, b, "")))
	assert.Equal(t, []string{"before", "straddle", "inside"}, ids(Visible(packed, b, "before")))
}

func TestLaneCountEmpty(t *testing.T) {
	assert.Equal(t, 0, LaneCount(nil))
}

func randomItems(rng *rand.Rand, n int) []Item {
	start := daykey.MustParse("2024-02-25")
	items := make([]Item, n)
	for i := range items {
		from := daykey.AddDays(start, rng.Intn(24))
		to := daykey.AddDays(from, rng.Intn(5))
		items[i] = Item{
			ClientID: fmt.Sprintf("c%02d", i),
			Name:     fmt.Sprintf("quiz %d", rng.Intn(5)),
			QuizID:   fmt.Sprintf("q%d", rng.Intn(3)),
			Start:    daykey.StartOfDay(from, time.UTC).Add(time.Duration(rng.Intn(10)) * time.Hour),
			End:      daykey.StartOfDay(to, time.UTC).Add(time.Duration(12+rng.Intn(10)) * time.Hour),
		}
	}
	return items
}
