package encoder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func encodeTo(t *testing.T, format string, samples []int16) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio."+Ext(format))
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc, err := New(format, f)
	if err != nil {
		t.Fatalf("New(%q): %v", format, err)
	}
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			t.Fatalf("EncodeBlock at offset %d: %v", i, err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if enc.TotalFrames() != uint64(len(samples)) {
		t.Errorf("TotalFrames = %d, want %d", enc.TotalFrames(), len(samples))
	}
	return path
}

func ramp(n int) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = int16(i % 1000)
	}
	return s
}

func TestWavEncoderRoundTrip(t *testing.T) {
	samples := ramp(BlockSize*2 + BlockSize/3)
	path := encodeTo(t, FormatWAV, samples)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		t.Fatal("decoder rejected file")
	}
	if d.SampleRate != SampleRate || d.NumChans != Channels || d.BitDepth != BitsPerSample {
		t.Errorf("format = %d Hz / %d ch / %d bit", d.SampleRate, d.NumChans, d.BitDepth)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer: %v", err)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
	}
	for _, i := range []int{0, 999, 1000, len(samples) - 1} {
		if buf.Data[i] != int(samples[i]) {
			t.Errorf("sample %d = %d, want %d", i, buf.Data[i], samples[i])
		}
	}
}

func TestWavEncoderEmpty(t *testing.T) {
	path := encodeTo(t, FormatWAV, nil)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() < 44 {
		t.Errorf("empty recording is %d bytes, want at least a 44-byte header", info.Size())
	}
}

func TestNewUnknownFormat(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "x"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := New("mp3", f); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestFormatNaming(t *testing.T) {
	for _, tt := range []struct{ format, ext, media string }{
		{FormatWAV, "wav", "audio/wav"},
		{FormatFLAC, "flac", "audio/flac"},
	} {
		t.Run(tt.format, func(t *testing.T) {
			if got := Ext(tt.format); got != tt.ext {
				t.Errorf("Ext = %q, want %q", got, tt.ext)
			}
			if got := MediaType(tt.format); got != tt.media {
				t.Errorf("MediaType = %q, want %q", got, tt.media)
			}
			if !Valid(tt.format) {
				t.Error("Valid = false")
			}
		})
	}
	if Valid("ogg") {
		t.Error("Valid(ogg) = true")
	}
}
