package usecase

import (
	"sync"
	"time"
)

const (
	MinPlaybackSpeed = 1
	MaxPlaybackSpeed = 3

	defaultPollInterval         = 250 * time.Millisecond
	defaultSecondsPerMinuteTick = 60
	defaultMaxCatchupTicks      = 5

	// simSecondsPerRealSecond is the base conversion rate at 1x speed.
	simSecondsPerRealSecond = 60
)

// ClockConfig holds the tuning knobs of the live-match clock.
type ClockConfig struct {
	// PollInterval is how often the session samples the wall clock.
	PollInterval time.Duration
	// SecondsPerMinuteTick is how many simulated seconds one engine
	// minute-step consumes.
	SecondsPerMinuteTick int
	// MaxCatchupTicks caps the minute-steps dispatched from a single poll
	// after a stall. Excess pending time is dropped, not queued.
	MaxCatchupTicks int
}

func (c ClockConfig) normalized() ClockConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.SecondsPerMinuteTick <= 0 {
		c.SecondsPerMinuteTick = defaultSecondsPerMinuteTick
	}
	if c.MaxCatchupTicks <= 0 {
		c.MaxCatchupTicks = defaultMaxCatchupTicks
	}
	return c
}

// ClockDriver converts elapsed wall-clock time into simulated minute ticks
// at an adjustable speed. Elapsed time is measured against the previous poll
// rather than a fixed baseline, so late polls self-correct, and fractional
// simulated seconds carry over in an accumulator so the long-run tick rate
// is independent of polling granularity.
type ClockDriver struct {
	mu sync.Mutex

	cfg        ClockConfig
	multiplier int
	paused     bool
	lastPoll   time.Time
	// pending is the accumulated, not yet consumed simulated seconds.
	pending float64

	now func() time.Time
}

func NewClockDriver(cfg ClockConfig) *ClockDriver {
	return &ClockDriver{
		cfg:        cfg.normalized(),
		multiplier: MinPlaybackSpeed,
		paused:     true,
		now:        time.Now,
	}
}

func (d *ClockDriver) PollInterval() time.Duration {
	return d.cfg.PollInterval
}

// SetMultiplier changes the playback speed. It takes effect on the next poll
// without resetting the accumulator.
func (d *ClockDriver) SetMultiplier(multiplier int) {
	if multiplier < MinPlaybackSpeed {
		multiplier = MinPlaybackSpeed
	}
	if multiplier > MaxPlaybackSpeed {
		multiplier = MaxPlaybackSpeed
	}

	d.mu.Lock()
	d.multiplier = multiplier
	d.mu.Unlock()
}

func (d *ClockDriver) Multiplier() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.multiplier
}

// Pause freezes the accumulator. Polls return zero ticks until Resume.
func (d *ClockDriver) Pause() {
	d.mu.Lock()
	d.paused = true
	d.mu.Unlock()
}

// Resume re-bases the last-poll reference so time spent paused never turns
// into simulated time.
func (d *ClockDriver) Resume() {
	d.mu.Lock()
	d.paused = false
	d.lastPoll = d.now()
	d.mu.Unlock()
}

func (d *ClockDriver) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

// Reset drops all pending simulated seconds and re-bases the poll reference.
// Called at kickoff and at the start of the second half.
func (d *ClockDriver) Reset() {
	d.mu.Lock()
	d.pending = 0
	d.lastPoll = d.now()
	d.mu.Unlock()
}

// Poll consumes the wall-clock time since the previous poll and returns how
// many whole minute ticks are due, capped at MaxCatchupTicks. When the cap
// hits, the remainder of the backlog is discarded.
func (d *ClockDriver) Poll() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.paused {
		return 0
	}

	now := d.now()
	if d.lastPoll.IsZero() {
		d.lastPoll = now
		return 0
	}

	elapsed := now.Sub(d.lastPoll)
	d.lastPoll = now
	if elapsed < 0 {
		return 0
	}

	d.pending += elapsed.Seconds() * simSecondsPerRealSecond * float64(d.multiplier)

	perTick := float64(d.cfg.SecondsPerMinuteTick)
	ticks := int(d.pending / perTick)
	if ticks > d.cfg.MaxCatchupTicks {
		ticks = d.cfg.MaxCatchupTicks
		d.pending = 0
		return ticks
	}

	d.pending -= float64(ticks) * perTick
	return ticks
}

// SecondsIntoMinute exposes the consumed fraction of the current simulated
// minute for display purposes.
func (d *ClockDriver) SecondsIntoMinute() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	perTick := d.cfg.SecondsPerMinuteTick
	seconds := int(d.pending)
	if seconds >= perTick {
		seconds = perTick - 1
	}
	if seconds < 0 {
		seconds = 0
	}
	return seconds
}
