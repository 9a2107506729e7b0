package beep

import "testing"

func TestSynthLengths(t *testing.T) {
	start := synth(Start, 2)
	if want := int(sampleRate*0.2) * 2; len(start) != want {
		t.Errorf("start: %d samples, want %d", len(start), want)
	}

	one := int(sampleRate * 0.08)
	gap := int(sampleRate * repeatGap)
	if got, want := len(synth(Error, 1)), one*2+gap; got != want {
		t.Errorf("error: %d samples, want %d", got, want)
	}
}

func TestSynthStereoInterleaved(t *testing.T) {
	s := synth(End, 2)
	for i := 0; i+1 < len(s); i += 2 {
		if s[i] != s[i+1] {
			t.Fatalf("frame %d: left %d right %d", i/2, s[i], s[i+1])
		}
	}
}

func TestSynthDecays(t *testing.T) {
	s := synth(Start, 1)
	peak := func(from, to int) int16 {
		var p int16
		for _, v := range s[from:to] {
			if v < 0 {
				v = -v
			}
			p = max(p, v)
		}
		return p
	}
	n := len(s)
	if peak(0, n/10) <= peak(n-n/10, n) {
		t.Error("expected the tail to be quieter than the attack")
	}
}

func TestSynthUnknown(t *testing.T) {
	if s := synth(Sound(42), 1); s != nil {
		t.Errorf("unknown sound rendered %d samples", len(s))
	}
}

type recordPlayer struct{ got [][]int16 }

func (r *recordPlayer) play(s []int16) { r.got = append(r.got, s) }

func TestPlayUsesRenderedCue(t *testing.T) {
	rec := &recordPlayer{}
	once.Do(func() {
		rendered = map[Sound][]int16{Start: synth(Start, outChannels), Error: synth(Error, outChannels)}
	})
	out = rec
	t.Cleanup(func() { out = nil })

	Play(Error)
	if len(rec.got) != 1 || len(rec.got[0]) != len(rendered[Error]) {
		t.Fatalf("played %d cues", len(rec.got))
	}

	Disable()
	defer disabled.Store(false)
	Play(Start)
	if len(rec.got) != 1 {
		t.Error("disabled Play still reached the device")
	}
}
