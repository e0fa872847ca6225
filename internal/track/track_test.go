package track

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizcal/internal/daykey"
)

func TestWindowBounds(t *testing.T) {
	w := Window{Start: "2024-03-08"}
	b := w.Bounds()

	assert.Equal(t, daykey.Key("2024-03-01"), b.TrackStart)
	assert.Equal(t, daykey.Key("2024-03-21"), b.TrackEnd)
	assert.Equal(t, daykey.Key("2024-03-08"), b.VisibleStart)
	assert.Equal(t, daykey.Key("2024-03-14"), b.VisibleEnd)
	assert.Len(t, w.Days(), Columns)
}

func TestColumnMapping(t *testing.T) {
	b := Window{Start: "2024-03-08"}.Bounds()

	tests := []struct {
		day  daykey.Key
		want int
	}{
		{"2024-03-01", 1},
		{"2024-03-08", 8},
		{"2024-03-21", 21},
		{"2024-02-29", 0},
		{"2024-03-22", 22},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Column(tt.day), tt.day)
		assert.Equal(t, tt.day, b.Day(tt.want))
	}

	first, last := b.VisibleColumns()
	assert.Equal(t, Buffer+1, first)
	assert.Equal(t, Buffer+VisibleDays, last)
	assert.True(t, b.Contains("2024-03-01"))
	assert.False(t, b.Contains("2024-03-22"))
}

func TestPageDropsRequestsWhileSliding(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPager("2024-03-08", 200*time.Millisecond)

	require.True(t, p.Page(Forward, now))
	assert.Equal(t, daykey.Key("2024-03-09"), p.Window().Start)

	// Rapid repeated requests are rejected, not queued.
	assert.False(t, p.Page(Forward, now.Add(50*time.Millisecond)))
	assert.False(t, p.Page(Backward, now.Add(199*time.Millisecond)))
	assert.Equal(t, daykey.Key("2024-03-09"), p.Window().Start)

	require.True(t, p.Page(Backward, now.Add(200*time.Millisecond)))
	assert.Equal(t, daykey.Key("2024-03-08"), p.Window().Start)
}

func TestEndSlideAllowsNextPage(t *testing.T) {
	now := time.Now()
	p := NewPager("2024-03-08", time.Second)
	require.True(t, p.Page(Forward, now))
	p.EndSlide()
	assert.True(t, p.Page(Forward, now))
	assert.Equal(t, daykey.Key("2024-03-10"), p.Window().Start)
}

// play advances p once per slide until the plan is done and returns the
// window starts it showed, plus the time the last one settled.
func play(p *Pager, now time.Time, slide time.Duration) ([]daykey.Key, time.Time) {
	shown := []daykey.Key{p.Window().Start}
	for i := 0; p.Animating() && i < 100; i++ {
		now = now.Add(slide)
		if p.Advance(now) {
			shown = append(shown, p.Window().Start)
		}
	}
	return shown, now
}

func TestGoToNearTargetAnimatesEveryStep(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPager("2024-03-08", 200*time.Millisecond)
	plan, err := p.GoTo("2024-03-05", now)
	require.NoError(t, err)

	assert.Equal(t, []daykey.Key{"2024-03-07", "2024-03-06", "2024-03-05"}, plan.Steps)
	assert.False(t, plan.Snapped)
	assert.Equal(t, daykey.Key("2024-03-07"), p.Window().Start, "first step shows at once")
	assert.False(t, p.Advance(now.Add(100*time.Millisecond)), "one step per slide")

	shown, _ := play(p, now, 200*time.Millisecond)
	assert.Equal(t, plan.Steps, shown)
	assert.False(t, p.Animating())
}

func TestGoToFarTargetCapsStepsThenSnaps(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPager("2024-03-08", 200*time.Millisecond)
	plan, err := p.GoTo("2024-06-01", now)
	require.NoError(t, err)

	assert.Len(t, plan.Steps, MaxAnimatedSteps)
	assert.Equal(t, daykey.Key("2024-03-09"), plan.Steps[0])
	assert.Equal(t, daykey.Key("2024-03-20"), plan.Steps[MaxAnimatedSteps-1])
	assert.True(t, plan.Snapped)
	assert.Equal(t, daykey.Key("2024-06-01"), plan.Snap)

	shown, _ := play(p, now, 200*time.Millisecond)
	require.Len(t, shown, MaxAnimatedSteps+1)
	assert.Equal(t, plan.Steps, shown[:MaxAnimatedSteps])
	assert.Equal(t, daykey.Key("2024-06-01"), p.Window().Start)
}

func TestPagingResumesAfterGoToPlan(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPager("2024-03-01", 200*time.Millisecond)
	_, err := p.GoTo("2024-06-01", now)
	require.NoError(t, err)

	assert.False(t, p.Page(Forward, now.Add(time.Second)), "dropped while the plan plays")

	_, done := play(p, now, 200*time.Millisecond)
	require.Equal(t, daykey.Key("2024-06-01"), p.Window().Start)
	assert.False(t, p.Sliding(done), "the snap does not start a slide")
	require.True(t, p.Page(Forward, done))
	assert.Equal(t, daykey.Key("2024-06-02"), p.Window().Start)
}

func TestEndSlideFinishesGoToPlan(t *testing.T) {
	now := time.Now()
	p := NewPager("2024-03-08", time.Second)
	_, err := p.GoTo("2024-05-01", now)
	require.NoError(t, err)

	p.EndSlide()
	assert.Equal(t, daykey.Key("2024-05-01"), p.Window().Start)
	assert.False(t, p.Sliding(now))
}

func TestGoToSameDayIsNoop(t *testing.T) {
	now := time.Now()
	p := NewPager("2024-03-08", time.Second)
	plan, err := p.GoTo("2024-03-08", now)
	require.NoError(t, err)
	assert.Empty(t, plan.Steps)
	assert.False(t, p.Sliding(now))
}

func TestGoToRejectedWhileSliding(t *testing.T) {
	now := time.Now()
	p := NewPager("2024-03-08", time.Second)
	require.True(t, p.Page(Forward, now))

	_, err := p.GoTo("2024-04-01", now)
	assert.True(t, errors.Is(err, ErrSliding))
	assert.Equal(t, daykey.Key("2024-03-09"), p.Window().Start)
}
