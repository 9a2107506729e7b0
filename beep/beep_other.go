//go:build !linux

package beep

import (
	"encoding/binary"
	"sync"

	"github.com/gen2brain/malgo"
)

const outChannels = 1

// malgoPlayer owns one playback device. The data callback drains whatever
// cue is queued and writes silence once it runs out.
type malgoPlayer struct {
	ctx    *malgo.AllocatedContext
	ctl    sync.Mutex // serializes device start/stop
	device *malgo.Device

	mu     sync.Mutex
	queued []byte
}

func newPlayer() player {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil
	}
	p := &malgoPlayer{ctx: ctx}
	if err := p.open(); err != nil {
		ctx.Uninit()
		return nil
	}
	return p
}

func (p *malgoPlayer) open() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = outChannels
	cfg.SampleRate = sampleRate
	dev, err := malgo.InitDevice(p.ctx.Context, cfg, malgo.DeviceCallbacks{Data: p.fill})
	if err != nil {
		return err
	}
	p.device = dev
	return nil
}

func (p *malgoPlayer) fill(output, _ []byte, _ uint32) {
	p.mu.Lock()
	n := copy(output, p.queued)
	p.queued = p.queued[n:]
	p.mu.Unlock()
	clear(output[n:])
}

func (p *malgoPlayer) play(samples []int16) {
	if len(samples) == 0 {
		return
	}
	pcm := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}

	p.ctl.Lock()
	defer p.ctl.Unlock()
	if p.device == nil {
		if p.open() != nil {
			return
		}
	}
	p.device.Stop()
	p.mu.Lock()
	p.queued = pcm
	p.mu.Unlock()
	if err := p.device.Start(); err == nil {
		return
	}
	// The device goes stale across macOS sleep; reopen once.
	p.device.Uninit()
	p.device = nil
	if err := p.open(); err != nil || p.device.Start() != nil {
		p.mu.Lock()
		p.queued = nil
		p.mu.Unlock()
	}
}
