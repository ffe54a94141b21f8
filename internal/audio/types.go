// Package audio synthesizes feedback cues, plays model speech and captures
// voice input through pluggable device backends.
package audio

import (
	"context"
	"errors"
)

// SpeechSampleRate is the rate of synthesized speech and cue playback
const SpeechSampleRate = 24000

// Common errors
var (
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	ErrInvalidFormat     = errors.New("invalid audio format")
)

// Player renders mono float32 samples and blocks until playback has finished
type Player interface {
	Play(ctx context.Context, samples []float32, sampleRate int) error
}

// Recorder captures mono PCM16 little-endian audio until ctx is done
type Recorder interface {
	Record(ctx context.Context, sampleRate int) ([]byte, error)
}

// Device is a backend that can both play and record
type Device interface {
	Player
	Recorder
	Close() error
}

// Recording is a captured voice message ready to send to the model
type Recording struct {
	Base64   string
	MIMEType string
	Duration float64 // seconds
}
