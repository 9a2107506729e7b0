// Package recorder turns an audio.Context into the session's microphone:
// each Acquire opens a fresh capture stream and writes it to a temporary
// WAV or FLAC file.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"scribe/audio"
	"scribe/encoder"
	"scribe/session"
)

// ErrNoDevices means the audio server answered but offers no capture source.
var ErrNoDevices = errors.New("no capture devices")

type Config struct {
	Device string // empty selects the system default
	Format string // encoder.FormatWAV or encoder.FormatFLAC
	Dir    string // directory for recordings; empty uses os.TempDir
	Gain   int
	Deny   bool // refuse every permission request
	Keep   bool // leave recordings on disk after Cleanup
}

type Mic struct {
	ctx audio.Context
	cfg Config

	mu    sync.Mutex
	files []string
}

var _ session.Microphone = (*Mic)(nil)

func New(ctx audio.Context, cfg Config) *Mic {
	if cfg.Format == "" {
		cfg.Format = encoder.FormatWAV
	}
	return &Mic{ctx: ctx, cfg: cfg}
}

// RequestPermission grants access when the audio server can be reached and
// offers the configured source. A reachability error is returned alongside
// the denial so it can be logged.
func (m *Mic) RequestPermission(ctx context.Context) (bool, error) {
	if m.cfg.Deny {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	devices, err := m.ctx.Devices()
	if err != nil {
		return false, fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return false, nil
	}
	if m.cfg.Device == "" {
		return true, nil
	}
	for _, d := range devices {
		if d.Name == m.cfg.Device {
			return true, nil
		}
	}
	return false, nil
}

// Acquire configures a capture stream for 16 kHz mono and starts recording
// into a new file.
func (m *Mic) Acquire(ctx context.Context) (session.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	device, err := audio.FindDevice(m.ctx, m.cfg.Device)
	if err != nil {
		return nil, err
	}
	capture, err := m.ctx.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
		Gain:       m.cfg.Gain,
	})
	if err != nil {
		return nil, fmt.Errorf("opening capture: %w", err)
	}

	f, err := os.CreateTemp(m.cfg.Dir, "scribe-*."+encoder.Ext(m.cfg.Format))
	if err != nil {
		capture.Close()
		return nil, fmt.Errorf("creating recording file: %w", err)
	}
	m.track(f.Name())

	enc, err := encoder.New(m.cfg.Format, f)
	if err != nil {
		capture.Close()
		f.Close()
		return nil, err
	}

	r := newRecording(capture, enc, f)
	if err := r.start(); err != nil {
		r.Stop()
		return nil, fmt.Errorf("starting capture on %s: %w", capture.DeviceName(), err)
	}
	return r, nil
}

func (m *Mic) track(path string) {
	m.mu.Lock()
	m.files = append(m.files, path)
	m.mu.Unlock()
}

// Files lists every recording file created so far.
func (m *Mic) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.files...)
}

// Cleanup removes the recordings unless Keep is set.
func (m *Mic) Cleanup() error {
	if m.cfg.Keep {
		return nil
	}
	m.mu.Lock()
	files := m.files
	m.files = nil
	m.mu.Unlock()

	var errs []error
	for _, path := range files {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
