package recorder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"scribe/audio"
	"scribe/encoder"
)

var ErrNotStopped = errors.New("recording still in progress")

// Recording is one active capture. Samples arrive on the audio callback, are
// cut into encoder blocks and encoded on a separate goroutine straight to
// the file.
type Recording struct {
	capture audio.CaptureDevice
	enc     encoder.Encoder
	file    *os.File

	blockChan  chan []int16
	encodeDone chan struct{}

	bufMu     sync.Mutex
	sampleBuf []int16
	stopped   bool

	encodeErr error // owned by the encode goroutine until encodeDone

	stopOnce sync.Once
	stopErr  error
	done     bool
	started  time.Time
	duration time.Duration
}

func newRecording(capture audio.CaptureDevice, enc encoder.Encoder, f *os.File) *Recording {
	r := &Recording{
		capture:    capture,
		enc:        enc,
		file:       f,
		blockChan:  make(chan []int16, 64),
		encodeDone: make(chan struct{}),
	}
	go func() {
		defer close(r.encodeDone)
		for block := range r.blockChan {
			start := time.Now()
			if err := r.enc.EncodeBlock(block); err != nil && r.encodeErr == nil {
				r.encodeErr = err
			}
			r.enc.AddEncodeTime(time.Since(start))
		}
	}()
	return r
}

func (r *Recording) start() error {
	r.capture.SetCallback(func(data []byte, _ uint32) { r.feed(data) })
	r.started = time.Now()
	return r.capture.Start()
}

func (r *Recording) feed(pcm []byte) {
	r.bufMu.Lock()
	defer r.bufMu.Unlock()
	if r.stopped {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		r.sampleBuf = append(r.sampleBuf, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	for len(r.sampleBuf) >= encoder.BlockSize {
		block := make([]int16, encoder.BlockSize)
		copy(block, r.sampleBuf[:encoder.BlockSize])
		r.sampleBuf = r.sampleBuf[encoder.BlockSize:]
		r.blockChan <- block
	}
}

// Stop ends capture, releases the device and finishes the file. Only the
// first call does anything; later calls return the same error.
func (r *Recording) Stop() error {
	r.stopOnce.Do(func() {
		r.capture.Stop()
		r.capture.ClearCallback()
		r.capture.Close()

		r.bufMu.Lock()
		r.stopped = true
		if len(r.sampleBuf) > 0 {
			r.blockChan <- r.sampleBuf
			r.sampleBuf = nil
		}
		close(r.blockChan)
		r.bufMu.Unlock()
		<-r.encodeDone

		errs := []error{r.encodeErr}
		if err := r.enc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("finishing %s: %w", r.file.Name(), err))
		}
		// The FLAC writer closes the file itself.
		if err := r.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
		r.duration = time.Since(r.started)
		r.stopErr = errors.Join(errs...)
		r.done = true
	})
	return r.stopErr
}

// Location returns the path of the finished recording.
func (r *Recording) Location() (string, error) {
	if !r.done {
		return "", ErrNotStopped
	}
	if _, err := os.Stat(r.file.Name()); err != nil {
		return "", err
	}
	return r.file.Name(), nil
}

// Frames is the number of samples encoded so far.
func (r *Recording) Frames() uint64 { return r.enc.TotalFrames() }

// AudioLength is the recorded audio duration derived from the sample count.
func (r *Recording) AudioLength() time.Duration {
	return time.Duration(r.enc.TotalFrames()) * time.Second / encoder.SampleRate
}

// Elapsed is wall-clock time between start and stop.
func (r *Recording) Elapsed() time.Duration { return r.duration }

func (r *Recording) Device() string { return r.capture.DeviceName() }

func (r *Recording) EncodeTime() time.Duration { return r.enc.EncodeTime() }
