package audio

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPCM16_RoundTrip(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 0.123456, -0.999, 0.99996, -1}

	decoded, err := DecodePCM16(EncodePCM16(samples))
	require.NoError(t, err)
	require.Len(t, decoded, len(samples))

	for i := range samples {
		assert.InDelta(t, samples[i], decoded[i], 1.0/32768, "sample %d", i)
	}
}

func TestPCM16_Clamps(t *testing.T) {
	decoded, err := DecodePCM16(EncodePCM16([]float32{2, -2}))
	require.NoError(t, err)

	assert.InDelta(t, 32767.0/32768, decoded[0], 1e-9)
	assert.Equal(t, float32(-1), decoded[1])
}

func TestDecodePCM16_LittleEndian(t *testing.T) {
	// 0x4000 = 16384 -> 0.5, 0xC000 = -16384 -> -0.5
	raw := []byte{0x00, 0x40, 0x00, 0xC0}
	decoded, err := DecodePCM16(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.5}, decoded)
}

func TestDecodePCM16_Invalid(t *testing.T) {
	_, err := DecodePCM16("%%%")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = DecodePCM16(base64.StdEncoding.EncodeToString([]byte{1, 2, 3}))
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestWrapWAV_Header(t *testing.T) {
	pcm := make([]byte, 3200)
	wav := WrapWAV(pcm, 16000, 1)

	require.Len(t, wav, 44+len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(wav[28:32]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
}

func TestSynthesize_Lengths(t *testing.T) {
	assert.Len(t, Synthesize(CueActivate, SpeechSampleRate), 4800)
	assert.Len(t, Synthesize(CueComplete, SpeechSampleRate), 4800)
	assert.Len(t, Synthesize(CueError, SpeechSampleRate), 7200)
	assert.Nil(t, Synthesize(Cue("beep"), SpeechSampleRate))
}

func TestSynthesize_Envelope(t *testing.T) {
	for _, cue := range []Cue{CueActivate, CueComplete, CueError} {
		samples := Synthesize(cue, SpeechSampleRate)
		assert.Equal(t, float32(0), samples[0], cue)
		for i, s := range samples {
			require.LessOrEqual(t, math.Abs(float64(s)), peakGain+1e-6, "%s sample %d", cue, i)
		}
	}
}

// zeroCrossings counts sign changes in samples[from:to]
func zeroCrossings(samples []float32, from, to int) int {
	n := 0
	for i := from + 1; i < to; i++ {
		if (samples[i-1] < 0) != (samples[i] < 0) {
			n++
		}
	}
	return n
}

func TestSynthesize_SweepDirection(t *testing.T) {
	// the last 100 ms hold the end frequency: 1200 Hz has more crossings than 800 Hz
	rising := Synthesize(CueActivate, SpeechSampleRate)
	falling := Synthesize(CueComplete, SpeechSampleRate)

	tail := 2400
	risingCrossings := zeroCrossings(rising, tail, len(rising))
	fallingCrossings := zeroCrossings(falling, tail, len(falling))

	assert.InDelta(t, 240, risingCrossings, 4)
	assert.InDelta(t, 160, fallingCrossings, 4)
}

func TestParseCue(t *testing.T) {
	cue, ok := ParseCue("error")
	assert.True(t, ok)
	assert.Equal(t, CueError, cue)

	_, ok = ParseCue("ping")
	assert.False(t, ok)
}

func TestPlaybackCursor_DrainsBeforeDone(t *testing.T) {
	cursor := newPlaybackCursor([]byte{1, 2, 3, 4, 5, 6})
	out := make([]byte, 4)

	assert.False(t, cursor.fill(out))
	assert.Equal(t, []byte{1, 2, 3, 4}, out)
	assert.False(t, cursor.fill(out))
	assert.Equal(t, []byte{5, 6, 0, 0}, out)

	// the final period still has to leave the device buffer
	for i := 0; i < playbackPeriods-1; i++ {
		assert.False(t, cursor.fill(out))
		assert.Equal(t, []byte{0, 0, 0, 0}, out)
	}
	assert.True(t, cursor.fill(out))
}

func TestPlaybackCursor_Empty(t *testing.T) {
	cursor := newPlaybackCursor(nil)
	out := make([]byte, 4)
	for i := 0; i < playbackPeriods-1; i++ {
		assert.False(t, cursor.fill(out))
	}
	assert.True(t, cursor.fill(out))
}

func TestBridge_PlaySpeech(t *testing.T) {
	device := NewFakeDevice(nil)
	bridge := NewBridge(device, device, BridgeConfig{}, zerolog.Nop())

	err := bridge.PlaySpeech(context.Background(), EncodePCM16([]float32{0.25, -0.25, 0}))
	require.NoError(t, err)

	played := device.Played()
	require.Len(t, played, 1)
	assert.Equal(t, []float32{0.25, -0.25, 0}, played[0])
}

func TestBridge_PlaySpeechBlocksUntilCancelled(t *testing.T) {
	device := NewFakeDevice(nil)
	device.Blocking = true
	bridge := NewBridge(device, device, BridgeConfig{}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := bridge.PlaySpeech(ctx, EncodePCM16([]float32{0.1}))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBridge_PlaySpeechDeviceError(t *testing.T) {
	bridge := NewBridge(nil, nil, BridgeConfig{}, zerolog.Nop())

	err := bridge.PlaySpeech(context.Background(), EncodePCM16([]float32{0.1}))
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestBridge_PlayCue(t *testing.T) {
	device := NewFakeDevice(nil)
	bridge := NewBridge(device, device, BridgeConfig{}, zerolog.Nop())

	bridge.PlayCue(CueActivate)
	bridge.WaitCues()

	require.Len(t, device.Played(), 1)
	assert.Len(t, device.Played()[0], 4800)
}

func TestBridge_PlayCueIgnoresFailure(t *testing.T) {
	device := NewFakeDevice(nil)
	device.PlayErr = errors.New("busy")
	bridge := NewBridge(device, device, BridgeConfig{}, zerolog.Nop())

	bridge.PlayCue(CueError)
	bridge.WaitCues()
	assert.Empty(t, device.Played())
}

func TestBridge_Capture(t *testing.T) {
	pcm := make([]byte, 16000*2) // one second
	device := NewFakeDevice(pcm)
	bridge := NewBridge(device, device, BridgeConfig{CaptureSampleRate: 16000}, zerolog.Nop())

	rec, err := bridge.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", rec.MIMEType)
	assert.InDelta(t, 1.0, rec.Duration, 1e-9)

	wav, err := base64.StdEncoding.DecodeString(rec.Base64)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(wav[:4]))
	assert.Len(t, wav, 44+len(pcm))
}

func TestBridge_CaptureErrors(t *testing.T) {
	_, err := NewBridge(nil, nil, BridgeConfig{}, zerolog.Nop()).Capture(context.Background())
	assert.ErrorIs(t, err, ErrDeviceUnavailable)

	empty := NewFakeDevice(nil)
	_, err = NewBridge(empty, empty, BridgeConfig{}, zerolog.Nop()).Capture(context.Background())
	assert.ErrorIs(t, err, ErrEmptyRecording)
}
