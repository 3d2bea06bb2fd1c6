package playback

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Device is the audio output the scheduler drives. Exactly one source plays
// at a time; Play replaces any current source. Release is idempotent.
type Device interface {
	Play(pcm []byte) error
	Pause() error
	Resume() error
	Stop() error
	Release() error
}

// The oto context is a process-wide singleton: creating a second one is an
// error on most backends, so it is acquired once and shared across sessions.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

func sharedContext(format Format) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoErr = fmt.Errorf("failed to create audio context: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
	})
	return otoCtx, otoErr
}

// OtoDevice plays 16-bit little-endian PCM through the shared oto context.
type OtoDevice struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
	// data is held for the lifetime of the player so the backing array
	// cannot be collected mid-playback.
	data     []byte
	released bool
}

// NewOtoDevice acquires the shared audio context at DefaultFormat.
func NewOtoDevice() (*OtoDevice, error) {
	ctx, err := sharedContext(DefaultFormat)
	if err != nil {
		return nil, err
	}
	return &OtoDevice{ctx: ctx}, nil
}

func (d *OtoDevice) Play(pcm []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return fmt.Errorf("audio device released")
	}
	if len(pcm) == 0 {
		return fmt.Errorf("empty pcm buffer")
	}

	d.stopLocked()

	d.data = pcm
	d.player = d.ctx.NewPlayer(bytes.NewReader(d.data))
	d.player.Play()
	return nil
}

func (d *OtoDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player != nil {
		d.player.Pause()
	}
	return nil
}

func (d *OtoDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player != nil {
		d.player.Play()
	}
	return nil
}

func (d *OtoDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	return nil
}

func (d *OtoDevice) stopLocked() {
	if d.player != nil {
		d.player.Pause()
		d.player.Close()
		d.player = nil
	}
	d.data = nil
}

// Release stops playback and marks the device unusable. The shared context
// itself stays alive for the process; oto v3 has no context close.
func (d *OtoDevice) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return nil
	}
	d.stopLocked()
	d.released = true
	return nil
}
