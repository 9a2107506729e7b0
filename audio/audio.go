// Package audio abstracts microphone capture. Linux talks to PulseAudio (or
// PipeWire's pulse shim) directly; other platforms go through miniaudio.
package audio

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// DefaultName is reported by a capture opened without an explicit device.
const DefaultName = "system default"

// CaptureConfig describes the stream a backend should open. Samples are
// always signed 16-bit little endian.
type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
	Gain       int // capture volume multiplier; <= 0 means 1
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

// DataCallback receives little-endian 16-bit PCM.
type DataCallback func(data []byte, frameCount uint32)

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

func nameOf(d *DeviceInfo) string {
	if d == nil {
		return DefaultName
	}
	return d.Name
}

// FindDevice looks up a capture device by name, case-insensitively. An
// empty name selects the system default and returns nil without error.
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	if name == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i], nil
		}
	}
	for i := range devices {
		if strings.EqualFold(devices[i].Name, name) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", name)
}

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses from the device name whether the mic is a Bluetooth
// headset, which usually drops capture to a narrowband profile.
func IsBluetooth(name string) bool {
	lower := " " + strings.ToLower(name) + " "
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func clamp16(v int32) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	}
	return int16(v)
}

// amplify scales little-endian 16-bit samples in place, saturating at the
// int16 range.
func amplify(pcm []byte, gain int) {
	if gain <= 1 {
		return
	}
	g := int32(gain)
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int32(int16(binary.LittleEndian.Uint16(pcm[i:])))
		binary.LittleEndian.PutUint16(pcm[i:], uint16(clamp16(s*g)))
	}
}

func encodeInt16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
