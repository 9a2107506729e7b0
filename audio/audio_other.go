//go:build !linux

package audio

import (
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type malgoContext struct {
	ctx *malgo.AllocatedContext
}

func NewContext() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo: %w", err)
	}
	return &malgoContext{ctx: ctx}, nil
}

// Device IDs are raw miniaudio identifiers, hex-encoded so they survive a
// round trip through config files.
func encodeID(id malgo.DeviceID) string { return hex.EncodeToString(id[:]) }

func decodeID(s string) (malgo.DeviceID, error) {
	var id malgo.DeviceID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("device id %q: %w", s, err)
	}
	copy(id[:], b)
	return id, nil
}

func (m *malgoContext) Devices() ([]DeviceInfo, error) {
	infos, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	devices := make([]DeviceInfo, 0, len(infos))
	for _, d := range infos {
		devices = append(devices, DeviceInfo{ID: encodeID(d.ID), Name: d.Name()})
	}
	return devices, nil
}

func (m *malgoContext) NewCapture(device *DeviceInfo, cfg CaptureConfig) (CaptureDevice, error) {
	dc := malgo.DefaultDeviceConfig(malgo.Capture)
	dc.Capture.Format = malgo.FormatS16
	dc.Capture.Channels = cfg.Channels
	dc.SampleRate = cfg.SampleRate
	if device != nil {
		id, err := decodeID(device.ID)
		if err != nil {
			return nil, err
		}
		dc.Capture.DeviceID = id.Pointer()
	}

	c := &malgoCapture{info: device, gain: cfg.Gain}
	dev, err := malgo.InitDevice(m.ctx.Context, dc, malgo.DeviceCallbacks{Data: c.data})
	if err != nil {
		return nil, fmt.Errorf("malgo init %s: %w", nameOf(device), err)
	}
	c.device = dev
	return c, nil
}

func (m *malgoContext) Close() {
	m.ctx.Uninit()
	m.ctx.Free()
}

// malgoCapture has no server-side volume, so gain is applied to each
// buffer before it reaches the callback.
type malgoCapture struct {
	device *malgo.Device
	info   *DeviceInfo
	gain   int
	cb     atomic.Pointer[DataCallback]
}

func (c *malgoCapture) data(_, in []byte, frames uint32) {
	cb := c.cb.Load()
	if cb == nil {
		return
	}
	buf := in
	if c.gain > 1 {
		buf = append([]byte(nil), in...)
		amplify(buf, c.gain)
	}
	(*cb)(buf, frames)
}

func (c *malgoCapture) Start() error {
	if err := c.device.Start(); err != nil {
		return fmt.Errorf("malgo start %s: %w", c.DeviceName(), err)
	}
	return nil
}

func (c *malgoCapture) Stop() { c.device.Stop() }

func (c *malgoCapture) Close() { c.device.Uninit() }

func (c *malgoCapture) SetCallback(cb DataCallback) { c.cb.Store(&cb) }

func (c *malgoCapture) ClearCallback() { c.cb.Store(nil) }

func (c *malgoCapture) DeviceName() string { return nameOf(c.info) }
