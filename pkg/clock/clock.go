// Package clock implements chess time controls with lazy time accounting.
package clock

import (
	"fmt"
	"time"
)

// TimeControl defines the time settings for a game. Both clocks in a
// room share one TimeControl by reference.
type TimeControl struct {
	InitialTime time.Duration `json:"initial_time"`
	Increment   time.Duration `json:"increment"` // Fischer increment, added after each move
	Delay       time.Duration `json:"delay"`     // Bronstein/US delay credit
}

// PlayerClock tracks the remaining thinking time for one player.
//
// Elapsed time is charged lazily, on Stop or on query, instead of by a
// background ticker. This keeps per-room cost at zero between moves and
// makes the clock exact under test with an injected time source. The
// clock is not synchronized; the owning room serializes all access.
type PlayerClock struct {
	remaining time.Duration
	startedAt time.Time
	running   bool

	now func() time.Time
}

// NewPlayerClock creates a stopped clock holding the given initial time.
func NewPlayerClock(initial time.Duration) *PlayerClock {
	return &PlayerClock{
		remaining: initial,
		now:       time.Now,
	}
}

// Start marks the clock running and records the current instant. The
// caller must only start a stopped clock; restarting overwrites the
// start instant, which is a protocol error on the caller's side.
func (c *PlayerClock) Start() {
	c.running = true
	c.startedAt = c.now()
}

// Stop charges the wall time elapsed since Start against the remaining
// time, saturating at zero, and marks the clock stopped. Stopping a
// stopped clock is a no-op.
func (c *PlayerClock) Stop() {
	if !c.running {
		return
	}

	elapsed := c.now().Sub(c.startedAt)
	if elapsed >= c.remaining {
		c.remaining = 0
	} else {
		c.remaining -= elapsed
	}
	c.running = false
}

// ApplyIncrement adds a Fischer increment to the remaining time. It is
// applied after Stop, once the move has been charged.
func (c *PlayerClock) ApplyIncrement(increment time.Duration) {
	c.remaining += increment
}

// ApplyDelay credits back the unused part of a Bronstein/US delay. It
// must be applied while the clock is still running, before Stop, since
// it compares the delay against the time elapsed in the current move.
func (c *PlayerClock) ApplyDelay(delay time.Duration) {
	if !c.running {
		return
	}

	elapsed := c.now().Sub(c.startedAt)
	if elapsed < delay {
		c.remaining += delay - elapsed
	}
}

// LiveRemaining returns the remaining time as of now, subtracting the
// in-flight elapsed time while running. It never mutates the clock and
// never returns a negative duration.
func (c *PlayerClock) LiveRemaining() time.Duration {
	if !c.running {
		return c.remaining
	}

	elapsed := c.now().Sub(c.startedAt)
	if elapsed >= c.remaining {
		return 0
	}
	return c.remaining - elapsed
}

// Remaining returns the charged remaining time, ignoring any in-flight
// elapsed time.
func (c *PlayerClock) Remaining() time.Duration {
	return c.remaining
}

// SetRemaining overwrites the remaining time and stops the clock. Used
// when resuming a persisted game.
func (c *PlayerClock) SetRemaining(remaining time.Duration) {
	c.remaining = remaining
	c.startedAt = time.Time{}
	c.running = false
}

// Running reports whether the clock is currently counting down.
func (c *PlayerClock) Running() bool {
	return c.running
}

// TimedOut reports whether the charged remaining time is exhausted.
// This reads the charged value, not the live one: a clock is only
// officially out once Stop has reduced it to zero. Callers that need
// live detection compare LiveRemaining against zero themselves.
func (c *PlayerClock) TimedOut() bool {
	return c.remaining == 0
}

// FormatRemaining formats a duration as a clock display string, e.g.
// "4:59", switching to tenths of a second below ten seconds.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	totalSeconds := int64(d / time.Second)
	if d < 10*time.Second {
		tenths := int64(d/(100*time.Millisecond)) % 10
		return fmt.Sprintf("%d.%d", totalSeconds, tenths)
	}

	minutes := totalSeconds / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
