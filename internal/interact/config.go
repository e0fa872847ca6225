package interact

import "time"

// Config tunes pointer behaviour.
type Config struct {
	// EdgeZone is the distance from a viewport edge that triggers
	// auto-slide while dragging.
	EdgeZone float64

	// Hysteresis is how far past EdgeZone the pointer must travel before
	// auto-slide re-arms.
	Hysteresis float64

	// SlideCooldown is the minimum interval between two auto-slides.
	SlideCooldown time.Duration

	// SettleDelay is how long a resize lane lock outlives the gesture so
	// the final layout does not jump.
	SettleDelay time.Duration
}

// DefaultConfig returns the default pointer behaviour.
func DefaultConfig() Config {
	return Config{
		EdgeZone:      32,
		Hysteresis:    12,
		SlideCooldown: 180 * time.Millisecond,
		SettleDelay:   100 * time.Millisecond,
	}
}
