package audio

import (
	"context"
	"sync"
)

// NullDevice is used when no audio backend is available
type NullDevice struct{}

func (NullDevice) Play(ctx context.Context, samples []float32, sampleRate int) error {
	return ErrDeviceUnavailable
}

func (NullDevice) Record(ctx context.Context, sampleRate int) ([]byte, error) {
	return nil, ErrDeviceUnavailable
}

func (NullDevice) Close() error { return nil }

// FakeDevice is a deterministic in-memory device
type FakeDevice struct {
	mu      sync.Mutex
	played  [][]float32
	capture []byte

	PlayErr   error
	RecordErr error
	// Blocking makes Play wait for ctx to be cancelled
	Blocking bool
}

// NewFakeDevice returns a device whose Record yields capture
func NewFakeDevice(capture []byte) *FakeDevice {
	return &FakeDevice{capture: capture}
}

func (f *FakeDevice) Play(ctx context.Context, samples []float32, sampleRate int) error {
	if f.PlayErr != nil {
		return f.PlayErr
	}
	if f.Blocking {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, append([]float32(nil), samples...))
	return nil
}

func (f *FakeDevice) Record(ctx context.Context, sampleRate int) ([]byte, error) {
	if f.RecordErr != nil {
		return nil, f.RecordErr
	}
	return append([]byte(nil), f.capture...), nil
}

func (f *FakeDevice) Close() error { return nil }

// Played returns every buffer passed to Play, in order
func (f *FakeDevice) Played() [][]float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]float32(nil), f.played...)
}
