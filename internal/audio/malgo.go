package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// MalgoDevice plays and records through the system's default devices
type MalgoDevice struct {
	ctx    *malgo.AllocatedContext
	logger zerolog.Logger

	// one playback stream at a time keeps cues and speech from interleaving
	playMu sync.Mutex
}

// NewMalgoDevice initializes the miniaudio context
func NewMalgoDevice(logger zerolog.Logger) (*MalgoDevice, error) {
	logger = logger.With().Str("component", "malgo").Logger()
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Trace().Msg(message)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return &MalgoDevice{ctx: ctx, logger: logger}, nil
}

// playbackPeriods is the device buffer depth in periods. Completion waits
// for this many silent periods after the last sample.
const playbackPeriods = 3

// playbackCursor feeds a buffer to the device period by period
type playbackCursor struct {
	data   []byte
	offset int
	drain  int
}

func newPlaybackCursor(data []byte) *playbackCursor {
	return &playbackCursor{data: data, drain: playbackPeriods}
}

// fill copies the next period into out, padding with silence, and reports
// whether the last sample has been pushed through the device buffer
func (p *playbackCursor) fill(out []byte) bool {
	n := copy(out, p.data[p.offset:])
	p.offset += n
	clear(out[n:])
	if p.offset < len(p.data) || n > 0 {
		return false
	}
	p.drain--
	return p.drain <= 0
}

// Play renders samples on the default output device and returns once the
// last frame has been played out or ctx is done
func (d *MalgoDevice) Play(ctx context.Context, samples []float32, sampleRate int) error {
	d.playMu.Lock()
	defer d.playMu.Unlock()

	data := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(s))
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatF32
	config.Playback.Channels = 1
	config.SampleRate = uint32(sampleRate)
	config.Periods = playbackPeriods
	config.Alsa.NoMMap = 1

	done := make(chan struct{})
	var once sync.Once
	cursor := newPlaybackCursor(data)
	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frames uint32) {
			if cursor.fill(out) {
				once.Do(func() { close(done) })
			}
		},
	}

	device, err := malgo.InitDevice(d.ctx.Context, config, callbacks)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
	if err := device.Stop(); err != nil {
		d.logger.Debug().Err(err).Msg("Failed to stop playback device")
	}
	return ctx.Err()
}

// Record captures mono PCM16 from the default input device until ctx is done.
// Cancellation is the normal way to stop and is not reported as an error.
func (d *MalgoDevice) Record(ctx context.Context, sampleRate int) ([]byte, error) {
	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = 1
	config.SampleRate = uint32(sampleRate)
	config.Alsa.NoMMap = 1

	var mu sync.Mutex
	captured := make([]byte, 0, sampleRate*2*5)
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, in []byte, frames uint32) {
			mu.Lock()
			captured = append(captured, in...)
			mu.Unlock()
		},
	}

	device, err := malgo.InitDevice(d.ctx.Context, config, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	d.logger.Debug().Int("sample_rate", sampleRate).Msg("Recording started")

	<-ctx.Done()
	if err := device.Stop(); err != nil {
		d.logger.Debug().Err(err).Msg("Failed to stop capture device")
	}

	mu.Lock()
	defer mu.Unlock()
	return captured, nil
}

// Close releases the miniaudio context
func (d *MalgoDevice) Close() error {
	if err := d.ctx.Uninit(); err != nil {
		return err
	}
	d.ctx.Free()
	return nil
}
