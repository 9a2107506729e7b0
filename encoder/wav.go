package encoder

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavEncoder writes 16-bit mono PCM in a RIFF container. It needs a seeker
// to patch chunk sizes on Close.
type WavEncoder struct {
	tally
	enc *wav.Encoder
	buf *audio.IntBuffer
}

func NewWav(w io.WriteSeeker) *WavEncoder {
	return &WavEncoder{
		enc: wav.NewEncoder(w, SampleRate, BitsPerSample, Channels, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: Channels, SampleRate: SampleRate},
			SourceBitDepth: BitsPerSample,
		},
	}
}

func (e *WavEncoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	data := e.buf.Data[:0]
	for _, s := range block {
		data = append(data, int(s))
	}
	e.buf.Data = data
	err := e.enc.Write(e.buf)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("writing wav samples: %w", err)
	}
	e.count(len(block))
	return nil
}

// Close patches the RIFF and data chunk sizes. A recording with no samples
// still produces a valid header-only file.
func (e *WavEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frames == 0 {
		e.buf.Data = e.buf.Data[:0]
		if err := e.enc.Write(e.buf); err != nil {
			return fmt.Errorf("writing wav header: %w", err)
		}
	}
	if err := e.enc.Close(); err != nil {
		return fmt.Errorf("closing wav encoder: %w", err)
	}
	return nil
}
