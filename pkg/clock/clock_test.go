package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNow returns a controllable time source starting at a fixed instant.
func fakeNow() (*time.Time, func() time.Time) {
	t := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return &t, func() time.Time { return t }
}

func TestStopChargesElapsedTime(t *testing.T) {
	now, src := fakeNow()
	c := NewPlayerClock(5 * time.Minute)
	c.now = src

	c.Start()
	*now = now.Add(1 * time.Second)
	c.Stop()

	assert.False(t, c.Running())
	assert.LessOrEqual(t, c.Remaining(), 299*time.Second)
	assert.GreaterOrEqual(t, c.Remaining(), 298*time.Second)
}

func TestStopStartRoundTripWithZeroElapsed(t *testing.T) {
	_, src := fakeNow()
	c := NewPlayerClock(3 * time.Minute)
	c.now = src

	c.Start()
	c.Stop()
	c.Start()

	assert.Equal(t, 3*time.Minute, c.Remaining())
	assert.True(t, c.Running())
}

func TestStopSaturatesAtZero(t *testing.T) {
	now, src := fakeNow()
	c := NewPlayerClock(2 * time.Second)
	c.now = src

	c.Start()
	*now = now.Add(10 * time.Second)
	c.Stop()

	assert.Equal(t, time.Duration(0), c.Remaining())
	assert.True(t, c.TimedOut())
}

func TestStopOnStoppedClockIsNoop(t *testing.T) {
	now, src := fakeNow()
	c := NewPlayerClock(time.Minute)
	c.now = src

	*now = now.Add(30 * time.Second)
	c.Stop()

	assert.Equal(t, time.Minute, c.Remaining())
}

func TestApplyIncrementIsUnconditional(t *testing.T) {
	_, src := fakeNow()
	c := NewPlayerClock(10 * time.Second)
	c.now = src

	c.ApplyIncrement(2 * time.Second)
	assert.Equal(t, 12*time.Second, c.Remaining())
}

func TestApplyDelayCreditsUnusedPortion(t *testing.T) {
	now, src := fakeNow()
	c := NewPlayerClock(60 * time.Second)
	c.now = src

	c.Start()
	*now = now.Add(300 * time.Millisecond)
	c.ApplyDelay(1 * time.Second)

	// 700ms of the delay was unused and is credited back.
	assert.Equal(t, 60*time.Second+700*time.Millisecond, c.Remaining())
}

func TestApplyDelayAfterDelayExpiredCreditsNothing(t *testing.T) {
	now, src := fakeNow()
	c := NewPlayerClock(60 * time.Second)
	c.now = src

	c.Start()
	*now = now.Add(3 * time.Second)
	c.ApplyDelay(1 * time.Second)

	assert.Equal(t, 60*time.Second, c.Remaining())
}

func TestApplyDelayOnStoppedClockIsNoop(t *testing.T) {
	c := NewPlayerClock(60 * time.Second)
	c.ApplyDelay(time.Second)
	assert.Equal(t, 60*time.Second, c.Remaining())
}

func TestLiveRemainingWhileRunning(t *testing.T) {
	now, src := fakeNow()
	c := NewPlayerClock(10 * time.Second)
	c.now = src

	c.Start()
	*now = now.Add(4 * time.Second)

	assert.Equal(t, 6*time.Second, c.LiveRemaining())
	// Reading the live value does not charge the clock.
	assert.Equal(t, 10*time.Second, c.Remaining())

	*now = now.Add(20 * time.Second)
	assert.Equal(t, time.Duration(0), c.LiveRemaining())
}

func TestTimedOutReadsChargedTimeOnly(t *testing.T) {
	now, src := fakeNow()
	c := NewPlayerClock(1 * time.Second)
	c.now = src

	c.Start()
	*now = now.Add(5 * time.Second)

	// Live time is exhausted but the clock is not officially out
	// until Stop charges it.
	require.Equal(t, time.Duration(0), c.LiveRemaining())
	assert.False(t, c.TimedOut())

	c.Stop()
	assert.True(t, c.TimedOut())
}

func TestSetRemainingResetsState(t *testing.T) {
	_, src := fakeNow()
	c := NewPlayerClock(time.Minute)
	c.now = src

	c.Start()
	c.SetRemaining(42 * time.Second)

	assert.False(t, c.Running())
	assert.Equal(t, 42*time.Second, c.Remaining())
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "5:00", FormatRemaining(5*time.Minute))
	assert.Equal(t, "0:59", FormatRemaining(59*time.Second))
	assert.Equal(t, "9.5", FormatRemaining(9500*time.Millisecond))
	assert.Equal(t, "0.0", FormatRemaining(-time.Second))
}
