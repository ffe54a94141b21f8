package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrEmptyRecording is returned when capture ends without any samples
var ErrEmptyRecording = errors.New("no audio captured")

const wavMIMEType = "audio/wav"

// BridgeConfig tunes capture
type BridgeConfig struct {
	CaptureSampleRate int
	MaxRecord         time.Duration
}

// Bridge connects the assistant to a playback and a capture device
type Bridge struct {
	player   Player
	recorder Recorder
	config   BridgeConfig
	logger   zerolog.Logger

	cues sync.WaitGroup
}

// NewBridge creates the audio bridge. Nil devices fall back to NullDevice.
func NewBridge(player Player, recorder Recorder, config BridgeConfig, logger zerolog.Logger) *Bridge {
	if player == nil {
		player = NullDevice{}
	}
	if recorder == nil {
		recorder = NullDevice{}
	}
	if config.CaptureSampleRate <= 0 {
		config.CaptureSampleRate = 16000
	}
	if config.MaxRecord <= 0 {
		config.MaxRecord = 30 * time.Second
	}
	return &Bridge{
		player:   player,
		recorder: recorder,
		config:   config,
		logger:   logger.With().Str("component", "audio-bridge").Logger(),
	}
}

// PlayCue starts a feedback cue and returns immediately. Failures are ignored.
func (b *Bridge) PlayCue(cue Cue) {
	samples := Synthesize(cue, SpeechSampleRate)
	if samples == nil {
		return
	}

	b.cues.Add(1)
	go func() {
		defer b.cues.Done()
		if err := b.player.Play(context.Background(), samples, SpeechSampleRate); err != nil {
			b.logger.Debug().Err(err).Str("cue", string(cue)).Msg("Cue playback skipped")
		}
	}()
}

// WaitCues blocks until every started cue has finished
func (b *Bridge) WaitCues() {
	b.cues.Wait()
}

// PlaySpeech decodes base64 PCM16 at 24 kHz and blocks until it has been played
func (b *Bridge) PlaySpeech(ctx context.Context, b64 string) error {
	samples, err := DecodePCM16(b64)
	if err != nil {
		return fmt.Errorf("failed to decode speech: %w", err)
	}
	if len(samples) == 0 {
		return nil
	}

	b.logger.Debug().
		Int("samples", len(samples)).
		Dur("duration", sampleDuration(len(samples), SpeechSampleRate)).
		Msg("Playing speech")

	if err := b.player.Play(ctx, samples, SpeechSampleRate); err != nil {
		return fmt.Errorf("failed to play speech: %w", err)
	}
	return nil
}

// Capture records from the microphone until ctx is done or the maximum
// recording length is reached, and returns the audio as a WAV file.
func (b *Bridge) Capture(ctx context.Context) (*Recording, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.MaxRecord)
	defer cancel()

	pcm, err := b.recorder.Record(ctx, b.config.CaptureSampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to capture audio: %w", err)
	}
	if len(pcm) < 2 {
		return nil, ErrEmptyRecording
	}

	duration := sampleDuration(len(pcm)/2, b.config.CaptureSampleRate)
	b.logger.Debug().Dur("duration", duration).Msg("Voice captured")

	return &Recording{
		Base64:   base64.StdEncoding.EncodeToString(WrapWAV(pcm, b.config.CaptureSampleRate, 1)),
		MIMEType: wavMIMEType,
		Duration: duration.Seconds(),
	}, nil
}

func sampleDuration(n, sampleRate int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(sampleRate)
}
