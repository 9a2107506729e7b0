//go:build linux

package audio

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: c}, nil
}

// isMonitor reports whether a source only loops back a sink's output.
func isMonitor(id string) bool {
	return strings.HasSuffix(id, ".monitor")
}

// Devices lists microphone sources. Monitor sources are skipped; they are
// never a useful dictation input and would otherwise crowd the picker.
func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sources, err := p.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	devices := make([]DeviceInfo, 0, len(sources))
	for _, s := range sources {
		if isMonitor(s.ID()) {
			continue
		}
		devices = append(devices, DeviceInfo{ID: s.ID(), Name: s.Name()})
	}
	return devices, nil
}

func (p *pulseContext) NewCapture(device *DeviceInfo, cfg CaptureConfig) (CaptureDevice, error) {
	var source *pulse.Source
	if device != nil {
		s, err := p.client.SourceByID(device.ID)
		if err != nil {
			return nil, fmt.Errorf("pulse source %q: %w", device.Name, err)
		}
		source = s
	}
	return &pulseCapture{client: p.client, source: source, info: device, cfg: cfg}, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

// pulseCapture opens a fresh record stream on each Start. The server applies
// the configured gain as stream volume, so samples pass through untouched.
type pulseCapture struct {
	client *pulse.Client
	source *pulse.Source
	info   *DeviceInfo
	cfg    CaptureConfig
	cb     atomic.Pointer[DataCallback]

	mu     sync.Mutex
	stream *pulse.RecordStream
}

func (c *pulseCapture) write(buf []int16) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if cb := c.cb.Load(); cb != nil {
		(*cb)(encodeInt16(buf), uint32(len(buf)))
	}
	return len(buf), nil
}

func (c *pulseCapture) options() []pulse.RecordOption {
	gain := max(c.cfg.Gain, 1)
	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(int(c.cfg.SampleRate)),
		pulse.RecordLatency(0.05),
		pulse.RecordRawOption(func(r *proto.CreateRecordStream) {
			r.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm) * uint32(gain)}
		}),
	}
	if c.source != nil {
		opts = append(opts, pulse.RecordSource(c.source))
	}
	return opts
}

func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return nil
	}
	stream, err := c.client.NewRecord(pulse.Int16Writer(c.write), c.options()...)
	if err != nil {
		return fmt.Errorf("pulse record on %s: %w", c.DeviceName(), err)
	}
	stream.Start()
	c.stream = stream
	return nil
}

func (c *pulseCapture) Stop() {
	c.mu.Lock()
	stream := c.stream
	c.stream = nil
	c.mu.Unlock()
	if stream == nil {
		return
	}
	stream.Stop()
	stream.Close()
}

func (c *pulseCapture) Close() { c.Stop() }

func (c *pulseCapture) SetCallback(cb DataCallback) { c.cb.Store(&cb) }

func (c *pulseCapture) ClearCallback() { c.cb.Store(nil) }

func (c *pulseCapture) DeviceName() string { return nameOf(c.info) }
