package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State is the scheduler's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateGenerating
	StateReady
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Scheduler lays decoded buffers out back to back on a single time base and
// plays them as one continuous stream. Buffer i starts at the sum of the
// durations of buffers 0..i-1; index-flip timers keep ActiveIndex in sync
// with what is audible. The scheduler exclusively owns both the device and
// the buffer list while a session is active.
type Scheduler struct {
	mu      sync.Mutex
	device  Device
	state   State
	buffers []Buffer
	clock   *playClock
	timers  []*time.Timer
	active  int

	// session invalidates timer callbacks from a stopped or paused run;
	// a fired timer whose session is stale is ignored.
	session uint64
}

func NewScheduler(device Device) *Scheduler {
	return &Scheduler{
		device: device,
		clock:  newPlayClock(),
		active: -1,
	}
}

// Begin opens a session: the pipeline is generating and buffers will start
// arriving. Only valid from idle.
func (s *Scheduler) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("cannot begin: scheduler is %s", s.state)
	}
	s.state = StateGenerating
	return nil
}

// Enqueue appends a decoded buffer in arrival order. The first buffer moves
// the session from generating to ready. Buffers cannot be added once
// playback has started.
func (s *Scheduler) Enqueue(buf Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateGenerating, StateReady:
	default:
		return fmt.Errorf("cannot enqueue: scheduler is %s", s.state)
	}

	s.buffers = append(s.buffers, buf)
	if s.state == StateGenerating {
		s.state = StateReady
	}

	log.Debug().
		Int("index", buf.Index).
		Dur("duration", buf.Duration).
		Bool("silence", buf.Silence).
		Msg("buffer enqueued")
	return nil
}

// Play starts playback from ready, or resumes from paused. With no buffers
// ready it is a no-op, including immediately after a stop.
func (s *Scheduler) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StatePaused:
		if err := s.device.Resume(); err != nil {
			return fmt.Errorf("failed to resume playback: %w", err)
		}
		s.clock.resume()
		s.state = StatePlaying
		s.armTimersLocked()
		return nil
	case StateReady:
		if len(s.buffers) == 0 {
			return nil
		}
		if err := s.device.Play(s.concatPCMLocked()); err != nil {
			return fmt.Errorf("failed to start playback: %w", err)
		}
		s.clock.begin()
		s.state = StatePlaying
		s.armTimersLocked()
		log.Debug().Int("buffers", len(s.buffers)).Dur("total", s.totalDurationLocked()).Msg("playback started")
		return nil
	default:
		// Idle (nothing scheduled), generating (nothing ready yet), or
		// already playing.
		return nil
	}
}

// Pause freezes playback in place without cancelling the session. Timers are
// torn down and re-armed on resume against the frozen clock.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return fmt.Errorf("cannot pause: scheduler is %s", s.state)
	}
	s.cancelTimersLocked()
	if err := s.device.Pause(); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	s.clock.pause()
	s.state = StatePaused
	return nil
}

// Stop tears the session down from any state: timers cancelled, the sounding
// source stopped, clock and buffer list reset. Idempotent from idle.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Scheduler) stopLocked() error {
	if s.state == StateIdle {
		return nil
	}
	s.cancelTimersLocked()
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	s.clock.reset()
	s.buffers = nil
	s.active = -1
	s.state = StateIdle
	return nil
}

// Close stops any session and releases the device.
func (s *Scheduler) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	return s.device.Release()
}

// State reports the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveIndex is the index of the buffer currently audible, or -1 when
// nothing is playing.
func (s *Scheduler) ActiveIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// BufferCount reports how many buffers the session holds.
func (s *Scheduler) BufferCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffers)
}

// StartOffset is buffer i's scheduled start relative to playback start: the
// sum of the durations of every buffer before it.
func (s *Scheduler) StartOffset(i int) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	var offset time.Duration
	for j := 0; j < i && j < len(s.buffers); j++ {
		offset += s.buffers[j].Duration
	}
	return offset
}

// TotalDuration is the length of the whole scheduled session.
func (s *Scheduler) TotalDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalDurationLocked()
}

func (s *Scheduler) totalDurationLocked() time.Duration {
	var total time.Duration
	for _, b := range s.buffers {
		total += b.Duration
	}
	return total
}

// concatPCMLocked joins every buffer into one contiguous stream; contiguity
// in the device buffer is what makes playback gap-free.
func (s *Scheduler) concatPCMLocked() []byte {
	size := 0
	for _, b := range s.buffers {
		size += len(b.PCM)
	}
	pcm := make([]byte, 0, size)
	for _, b := range s.buffers {
		pcm = append(pcm, b.PCM...)
	}
	return pcm
}

// armTimersLocked schedules the index flips and the completion stop against
// the clock's current position. Offsets already in the past resolve the
// active index immediately instead of firing a timer.
func (s *Scheduler) armTimersLocked() {
	s.session++
	session := s.session
	elapsed := s.clock.elapsed()

	var offset time.Duration
	for i, buf := range s.buffers {
		start := offset
		offset += buf.Duration

		if start <= elapsed {
			if elapsed < offset {
				s.active = i
			}
			continue
		}
		index := i
		s.timers = append(s.timers, time.AfterFunc(start-elapsed, func() {
			s.flipActive(session, index)
		}))
	}

	s.timers = append(s.timers, time.AfterFunc(offset-elapsed, func() {
		s.completeSession(session)
	}))
}

func (s *Scheduler) cancelTimersLocked() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

func (s *Scheduler) flipActive(session uint64, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != session || s.state != StatePlaying {
		return
	}
	s.active = index
}

// completeSession is the natural end of the last buffer; it releases the
// session exactly like an explicit stop.
func (s *Scheduler) completeSession(session uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != session || s.state != StatePlaying {
		return
	}
	if err := s.stopLocked(); err != nil {
		log.Warn().Err(err).Msg("failed to stop at end of playback")
	}
}
