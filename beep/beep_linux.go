//go:build linux

package beep

import (
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

const outChannels = 2

// pulsePlayer keeps one connection to the sound server and reopens it after
// a failure, so a restarted PipeWire does not silence cues for the session.
type pulsePlayer struct {
	mu     sync.Mutex
	client *pulse.Client
}

func newPlayer() player { return &pulsePlayer{} }

func (p *pulsePlayer) conn() (*pulse.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		c, err := pulse.NewClient()
		if err != nil {
			return nil, err
		}
		p.client = c
	}
	return p.client, nil
}

func (p *pulsePlayer) drop(c *pulse.Client) {
	p.mu.Lock()
	if p.client == c {
		p.client = nil
	}
	p.mu.Unlock()
	c.Close()
}

func (p *pulsePlayer) play(samples []int16) {
	if len(samples) > 0 {
		go p.stream(samples)
	}
}

func (p *pulsePlayer) stream(samples []int16) {
	c, err := p.conn()
	if err != nil {
		return
	}
	rest := samples
	src := pulse.Int16Reader(func(buf []int16) (int, error) {
		if len(rest) == 0 {
			return 0, pulse.EndOfData
		}
		n := copy(buf, rest)
		rest = rest[n:]
		return n, nil
	})
	norm := uint32(proto.VolumeNorm)
	s, err := c.NewPlayback(src,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(r *proto.CreatePlaybackStream) {
			r.ChannelVolumes = proto.ChannelVolumes{norm, norm}
		}),
	)
	if err != nil {
		p.drop(c)
		return
	}
	s.Start()
	s.Drain()
	s.Stop()
	s.Close()
}
