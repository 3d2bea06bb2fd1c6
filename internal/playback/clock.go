package playback

import "time"

// playClock tracks elapsed playback time, excluding paused intervals. It is
// the single time base the scheduler lays buffers out against; callers hold
// the scheduler lock, so the clock itself is unsynchronized.
type playClock struct {
	start      time.Time
	pausedAt   time.Time
	totalPause time.Duration
	running    bool
	paused     bool

	// now is swappable for tests.
	now func() time.Time
}

func newPlayClock() *playClock {
	return &playClock{now: time.Now}
}

func (c *playClock) begin() {
	c.start = c.now()
	c.totalPause = 0
	c.running = true
	c.paused = false
}

func (c *playClock) pause() {
	if !c.running || c.paused {
		return
	}
	c.pausedAt = c.now()
	c.paused = true
}

func (c *playClock) resume() {
	if !c.running || !c.paused {
		return
	}
	c.totalPause += c.now().Sub(c.pausedAt)
	c.paused = false
}

// elapsed is the playback position: wall time since begin minus every paused
// interval. While paused it is frozen at the pause point.
func (c *playClock) elapsed() time.Duration {
	if !c.running {
		return 0
	}
	if c.paused {
		return c.pausedAt.Sub(c.start) - c.totalPause
	}
	return c.now().Sub(c.start) - c.totalPause
}

func (c *playClock) reset() {
	*c = playClock{now: c.now}
}
