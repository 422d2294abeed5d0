package usecase

import (
	"testing"
	"time"
)

// fakeNow returns a controllable clock for driver tests.
type fakeNow struct {
	current time.Time
}

func newFakeNow() *fakeNow {
	return &fakeNow{current: time.Unix(1_700_000_000, 0)}
}

func (f *fakeNow) Now() time.Time {
	return f.current
}

func (f *fakeNow) Advance(d time.Duration) {
	f.current = f.current.Add(d)
}

func newTestDriver(cfg ClockConfig) (*ClockDriver, *fakeNow) {
	driver := NewClockDriver(cfg)
	clock := newFakeNow()
	driver.now = clock.Now
	driver.Resume()
	driver.Reset()
	return driver, clock
}

func TestClockDriver_ConvergesIndependentOfPollGranularity(t *testing.T) {
	// 3000ms of real time at 1x is 180 simulated seconds. With 6 simulated
	// seconds per minute tick that is exactly 30 ticks, however the polls
	// are sliced.
	for _, pollMs := range []int{10, 50, 75, 300} {
		driver, clock := newTestDriver(ClockConfig{
			SecondsPerMinuteTick: 6,
			MaxCatchupTicks:      1000,
		})

		total := 0
		elapsed := 0
		for elapsed < 3000 {
			clock.Advance(time.Duration(pollMs) * time.Millisecond)
			elapsed += pollMs
			total += driver.Poll()
		}

		// The accumulator carries fractional seconds, so the long-run count
		// converges to elapsed*60/1000/secondsPerTick within one tick.
		expected := elapsed * simSecondsPerRealSecond / 1000 / 6
		if total < expected-1 || total > expected {
			t.Fatalf("poll=%dms: got %d ticks, want %d (within one)", pollMs, total, expected)
		}
	}
}

func TestClockDriver_MultiplierScalesTickRate(t *testing.T) {
	driver, clock := newTestDriver(ClockConfig{
		SecondsPerMinuteTick: 60,
		MaxCatchupTicks:      1000,
	})
	driver.SetMultiplier(3)

	// 10 real seconds at 3x is 1800 simulated seconds: 30 minute ticks.
	total := 0
	for i := 0; i < 100; i++ {
		clock.Advance(100 * time.Millisecond)
		total += driver.Poll()
	}

	if total != 30 {
		t.Fatalf("got %d ticks at 3x, want 30", total)
	}
}

func TestClockDriver_CatchupIsBounded(t *testing.T) {
	driver, clock := newTestDriver(ClockConfig{
		SecondsPerMinuteTick: 60,
		MaxCatchupTicks:      5,
	})

	// A backgrounded client: one hour without polls.
	clock.Advance(time.Hour)
	if ticks := driver.Poll(); ticks != 5 {
		t.Fatalf("stall poll dispatched %d ticks, want the cap of 5", ticks)
	}

	// The backlog is discarded, not queued: an immediate follow-up poll
	// with no elapsed time owes nothing.
	if ticks := driver.Poll(); ticks != 0 {
		t.Fatalf("post-stall poll dispatched %d ticks, want 0", ticks)
	}
}

func TestClockDriver_ExactCapIsNotTreatedAsStall(t *testing.T) {
	driver, clock := newTestDriver(ClockConfig{
		SecondsPerMinuteTick: 60,
		MaxCatchupTicks:      5,
	})

	// Exactly five ticks due plus half a minute of remainder.
	clock.Advance(5500 * time.Millisecond)
	if ticks := driver.Poll(); ticks != 5 {
		t.Fatalf("got %d ticks, want 5", ticks)
	}

	// The half-minute remainder survives and completes on the next poll.
	clock.Advance(500 * time.Millisecond)
	if ticks := driver.Poll(); ticks != 1 {
		t.Fatalf("remainder poll got %d ticks, want 1", ticks)
	}
}

func TestClockDriver_PauseProducesNoSpuriousTicks(t *testing.T) {
	driver, clock := newTestDriver(ClockConfig{
		SecondsPerMinuteTick: 60,
		MaxCatchupTicks:      5,
	})

	driver.Pause()
	clock.Advance(10 * time.Minute)
	if ticks := driver.Poll(); ticks != 0 {
		t.Fatalf("paused poll dispatched %d ticks", ticks)
	}

	driver.Resume()
	if ticks := driver.Poll(); ticks != 0 {
		t.Fatalf("resume must re-base the poll reference, got %d ticks", ticks)
	}

	clock.Advance(time.Second)
	if ticks := driver.Poll(); ticks != 1 {
		t.Fatalf("post-resume poll got %d ticks, want 1", ticks)
	}
}

func TestClockDriver_MultiplierChangeKeepsAccumulator(t *testing.T) {
	driver, clock := newTestDriver(ClockConfig{
		SecondsPerMinuteTick: 60,
		MaxCatchupTicks:      100,
	})

	// Half a tick accrued at 1x.
	clock.Advance(500 * time.Millisecond)
	if ticks := driver.Poll(); ticks != 0 {
		t.Fatalf("expected no tick yet, got %d", ticks)
	}

	// A quarter second at 2x contributes the remaining 30 simulated seconds.
	driver.SetMultiplier(2)
	clock.Advance(250 * time.Millisecond)
	if ticks := driver.Poll(); ticks != 1 {
		t.Fatalf("expected carried accumulator to complete the tick, got %d", ticks)
	}
}

func TestClockDriver_SetMultiplierClampsRange(t *testing.T) {
	driver := NewClockDriver(ClockConfig{})

	driver.SetMultiplier(0)
	if got := driver.Multiplier(); got != MinPlaybackSpeed {
		t.Fatalf("got multiplier %d, want %d", got, MinPlaybackSpeed)
	}

	driver.SetMultiplier(9)
	if got := driver.Multiplier(); got != MaxPlaybackSpeed {
		t.Fatalf("got multiplier %d, want %d", got, MaxPlaybackSpeed)
	}
}

func TestClockDriver_SecondsIntoMinute(t *testing.T) {
	driver, clock := newTestDriver(ClockConfig{
		SecondsPerMinuteTick: 60,
		MaxCatchupTicks:      5,
	})

	clock.Advance(400 * time.Millisecond)
	if ticks := driver.Poll(); ticks != 0 {
		t.Fatalf("unexpected tick: %d", ticks)
	}

	// 0.4 real seconds at 1x is 24 simulated seconds into the minute.
	if got := driver.SecondsIntoMinute(); got != 24 {
		t.Fatalf("got %d seconds into minute, want 24", got)
	}
}
