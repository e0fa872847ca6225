package daykey

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := LoadZone(name)
	require.NoError(t, err)
	return loc
}

func TestLoadZone(t *testing.T) {
	tests := []struct {
		name    string
		zone    string
		wantErr bool
	}{
		{"utc", "UTC", false},
		{"berlin", "Europe/Berlin", false},
		{"empty", "", true},
		{"garbage", "Mars/Olympus_Mons", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadZone(tt.zone)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrBadZone))
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, loc)
		})
	}
}

func TestOfUsesZoneNotHost(t *testing.T) {
	tokyo := mustZone(t, "Asia/Tokyo")
	ny := mustZone(t, "America/New_York")

	// 2024-03-04 23:30 UTC is already the 5th in Tokyo and still the 4th in New York.
	instant := time.Date(2024, 3, 4, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, Key("2024-03-05"), Of(instant, tokyo))
	assert.Equal(t, Key("2024-03-04"), Of(instant, ny))

	// Same instant expressed in a different location yields the same key.
	assert.Equal(t, Of(instant, tokyo), Of(instant.In(ny), tokyo))
}

func TestSameDayInstantsShareKey(t *testing.T) {
	berlin := mustZone(t, "Europe/Berlin")
	morning := time.Date(2024, 3, 31, 0, 30, 0, 0, berlin)
	night := time.Date(2024, 3, 31, 23, 59, 0, 0, berlin) // DST switch day
	assert.Equal(t, Of(morning, berlin), Of(night, berlin))
}

func TestAddDaysAndDiff(t *testing.T) {
	k := MustParse("2024-02-27")
	assert.Equal(t, Key("2024-03-01"), AddDays(k, 3)) // leap year
	assert.Equal(t, Key("2024-02-20"), AddDays(k, -7))
	assert.Equal(t, 3, Diff(k, "2024-03-01"))
	assert.Equal(t, -3, Diff("2024-03-01", k))
	assert.Equal(t, 0, Diff(k, k))
}

func TestDiffAcrossDST(t *testing.T) {
	assert.Equal(t, 1, Diff("2024-03-30", "2024-03-31"))
	assert.Equal(t, 1, Diff("2024-10-26", "2024-10-27"))
	assert.Equal(t, 7, Diff("2024-03-28", "2024-04-04"))
}

func TestStartAndEndOfDay(t *testing.T) {
	berlin := mustZone(t, "Europe/Berlin")

	start := StartOfDay("2024-03-31", berlin)
	end := EndOfDay("2024-03-31", berlin)
	assert.Equal(t, Key("2024-03-31"), Of(start, berlin))
	assert.Equal(t, Key("2024-03-31"), Of(end, berlin))
	assert.Equal(t, 23*time.Hour-time.Nanosecond, end.Sub(start), "DST spring-forward day is 23h")
	assert.Equal(t, Key("2024-04-01"), Of(end.Add(time.Nanosecond), berlin))
}

func TestParse(t *testing.T) {
	k, err := Parse("2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, Key("2024-03-04"), k)
	assert.True(t, k.Valid())

	_, err = Parse("2024-13-01")
	assert.Error(t, err)
	assert.False(t, Key("nope").Valid())
}

func TestRange(t *testing.T) {
	got := Range("2024-02-28", "2024-03-01")
	assert.Equal(t, []Key{"2024-02-28", "2024-02-29", "2024-03-01"}, got)
	assert.Nil(t, Range("2024-03-02", "2024-03-01"))
}

func TestMinMax(t *testing.T) {
	assert.Equal(t, Key("2024-01-01"), Min("2024-01-01", "2024-01-02"))
	assert.Equal(t, Key("2024-01-02"), Max("2024-01-01", "2024-01-02"))
}
