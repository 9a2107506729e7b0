package encoder

import (
	"fmt"
	"io"
	"time"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

const (
	FormatWAV  = "wav"
	FormatFLAC = "flac"
)

// Encoder writes PCM blocks into an audio container. Close finalizes the
// container headers; the underlying writer stays owned by the caller.
type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	TotalFrames() uint64
	AddEncodeTime(d time.Duration)
	EncodeTime() time.Duration
}

func New(format string, w io.WriteSeeker) (Encoder, error) {
	switch format {
	case FormatWAV:
		return NewWav(w), nil
	case FormatFLAC:
		return NewFlac(w)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// Ext is the file extension used for uploads of the given format.
func Ext(format string) string {
	if format == FormatFLAC {
		return "flac"
	}
	return "wav"
}

func MediaType(format string) string {
	if format == FormatFLAC {
		return "audio/flac"
	}
	return "audio/wav"
}

func Valid(format string) bool {
	return format == FormatWAV || format == FormatFLAC
}
