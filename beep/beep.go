// Package beep plays the short cues for recording start, recording end and
// failures.
package beep

import (
	"math"
	"sync"
	"sync/atomic"
)

type Sound int

const (
	Start Sound = iota
	End
	Error
)

const sampleRate = 44100

type tone struct {
	freq     float64
	duration float64 // seconds per beep
	volume   float64
	decay    float64
	repeat   bool // play twice with a short gap
}

var tones = map[Sound]tone{
	Start: {freq: 1200, duration: 0.2, volume: 0.5, decay: 60},
	End:   {freq: 900, duration: 0.2, volume: 0.5, decay: 40},
	Error: {freq: 350, duration: 0.08, volume: 0.6, decay: 30, repeat: true},
}

const repeatGap = 0.05

// player is a platform audio sink. play must not block the caller for the
// length of the sound.
type player interface {
	play(samples []int16)
}

var (
	disabled atomic.Bool
	once     sync.Once
	out      player
	rendered map[Sound][]int16
)

func Disable() { disabled.Store(true) }

// Init opens the output device and renders every cue. Play calls it lazily;
// calling it up front moves the latency to startup.
func Init() {
	once.Do(func() {
		rendered = make(map[Sound][]int16, len(tones))
		for s := range tones {
			rendered[s] = synth(s, outChannels)
		}
		out = newPlayer()
	})
}

func Play(s Sound) {
	if disabled.Load() {
		return
	}
	Init()
	if out != nil {
		out.play(rendered[s])
	}
}

// synth renders s as interleaved 16-bit samples.
func synth(s Sound, channels int) []int16 {
	t, ok := tones[s]
	if !ok {
		return nil
	}
	one := tick(t, channels)
	if !t.repeat {
		return one
	}
	gap := make([]int16, int(sampleRate*repeatGap)*channels)
	out := make([]int16, 0, len(one)*2+len(gap))
	out = append(out, one...)
	out = append(out, gap...)
	return append(out, one...)
}

func tick(t tone, channels int) []int16 {
	n := int(sampleRate * t.duration)
	samples := make([]int16, n*channels)
	for i := 0; i < n; i++ {
		sec := float64(i) / sampleRate
		envelope := math.Exp(-sec * t.decay)
		v := int16(math.Sin(2*math.Pi*t.freq*sec) * 32767 * t.volume * envelope)
		for c := 0; c < channels; c++ {
			samples[i*channels+c] = v
		}
	}
	return samples
}
