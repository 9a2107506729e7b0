package encoder

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FlacEncoder writes mono 16 kHz FLAC. Each block becomes one frame; the
// encoder picks the predictor per subframe.
type FlacEncoder struct {
	tally
	enc     *flac.Encoder
	scratch []int32
}

// NewFlac writes a FLAC stream to w. When w is seekable the stream info
// block is rewritten with the final sample count on Close.
func NewFlac(w io.Writer) (*FlacEncoder, error) {
	enc, err := flac.NewEncoder(w, &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
	})
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	return &FlacEncoder{enc: enc}, nil
}

func (e *FlacEncoder) frame(block []int16) *frame.Frame {
	e.scratch = e.scratch[:0]
	for _, s := range block {
		e.scratch = append(e.scratch, int32(s))
	}
	return &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   e.scratch,
			NSamples:  len(block),
		}},
	}
}

func (e *FlacEncoder) EncodeBlock(block []int16) error {
	if len(block) == 0 {
		return nil
	}
	if len(block) > BlockSize {
		return fmt.Errorf("flac block of %d samples exceeds %d", len(block), BlockSize)
	}
	e.mu.Lock()
	err := e.enc.WriteFrame(e.frame(block))
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	e.count(len(block))
	return nil
}

func (e *FlacEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Close(); err != nil {
		return fmt.Errorf("closing flac encoder: %w", err)
	}
	return nil
}
