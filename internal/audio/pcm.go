package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

const pcmScale = 32768.0

// DecodePCM16 turns base64 little-endian 16-bit PCM into float samples in [-1, 1)
func DecodePCM16(b64 string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("%w: odd PCM16 length %d", ErrInvalidFormat, len(raw))
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		samples[i] = float32(v) / pcmScale
	}
	return samples, nil
}

// EncodePCM16 is the inverse of DecodePCM16. Samples outside [-1, 1] are clamped.
func EncodePCM16(samples []float32) string {
	return base64.StdEncoding.EncodeToString(pcm16Bytes(samples))
}

func pcm16Bytes(samples []float32) []byte {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := math.Round(float64(s) * pcmScale)
		v = math.Max(math.MinInt16, math.Min(math.MaxInt16, v))
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(int16(v)))
	}
	return raw
}

// WrapWAV prefixes raw PCM16 data with a canonical 44-byte RIFF header
func WrapWAV(pcm []byte, sampleRate, channels int) []byte {
	if sampleRate == 0 {
		sampleRate = 16000
	}
	if channels == 0 {
		channels = 1
	}

	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	wav := make([]byte, 44, 44+len(pcm))
	copy(wav[0:4], "RIFF")
	binary.LittleEndian.PutUint32(wav[4:8], uint32(36+len(pcm)))
	copy(wav[8:12], "WAVE")
	copy(wav[12:16], "fmt ")
	binary.LittleEndian.PutUint32(wav[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(wav[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(wav[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(wav[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(wav[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(wav[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(wav[34:36], bitsPerSample)
	copy(wav[36:40], "data")
	binary.LittleEndian.PutUint32(wav[40:44], uint32(len(pcm)))
	return append(wav, pcm...)
}
