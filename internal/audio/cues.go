package audio

import (
	"math"
)

// Cue is a short feedback sound
type Cue string

const (
	CueActivate Cue = "activate"
	CueComplete Cue = "complete"
	CueError    Cue = "error"
)

type waveform int

const (
	sine waveform = iota
	sawtooth
)

type cueShape struct {
	wave     waveform
	startHz  float64
	endHz    float64
	sweep    float64 // seconds
	duration float64 // seconds
}

const (
	attackSeconds = 0.05
	peakGain      = 0.1
	tailGain      = 0.01
)

var cueShapes = map[Cue]cueShape{
	CueActivate: {wave: sine, startHz: 800, endHz: 1200, sweep: 0.1, duration: 0.2},
	CueComplete: {wave: sine, startHz: 1200, endHz: 800, sweep: 0.1, duration: 0.2},
	CueError:    {wave: sawtooth, startHz: 300, endHz: 150, sweep: 0.3, duration: 0.3},
}

// ParseCue maps a name to a known cue
func ParseCue(name string) (Cue, bool) {
	c := Cue(name)
	_, ok := cueShapes[c]
	return c, ok
}

// Synthesize renders cue as mono samples at sampleRate. Unknown cues yield nil.
func Synthesize(cue Cue, sampleRate int) []float32 {
	shape, ok := cueShapes[cue]
	if !ok || sampleRate <= 0 {
		return nil
	}

	n := int(math.Round(shape.duration * float64(sampleRate)))
	samples := make([]float32, n)
	dt := 1 / float64(sampleRate)
	phase := 0.0 // in cycles

	for i := range samples {
		t := float64(i) * dt
		var v float64
		switch shape.wave {
		case sawtooth:
			v = 2 * (phase - math.Floor(phase+0.5))
		default:
			v = math.Sin(2 * math.Pi * phase)
		}
		samples[i] = float32(v * envelope(t, shape.duration))
		phase += shape.frequency(t) * dt
		phase -= math.Floor(phase)
	}
	return samples
}

// frequency follows an exponential ramp from startHz to endHz over the sweep
func (s cueShape) frequency(t float64) float64 {
	if t >= s.sweep {
		return s.endHz
	}
	return s.startHz * math.Pow(s.endHz/s.startHz, t/s.sweep)
}

// envelope rises linearly to the peak, then decays exponentially to the tail
func envelope(t, duration float64) float64 {
	if t < attackSeconds {
		return peakGain * t / attackSeconds
	}
	if t >= duration {
		return tailGain
	}
	return peakGain * math.Pow(tailGain/peakGain, (t-attackSeconds)/(duration-attackSeconds))
}
