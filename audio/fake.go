package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/wav"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext replays a fixed PCM buffer as if it came from a microphone.
// It backs the headless -test mode and package tests.
type FakeContext struct {
	pcm        []byte
	sampleRate int
	realtime   bool
	devices    []DeviceInfo
	startErr   error
}

func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", wavPath)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", wavPath, err)
	}
	pcm := make([]byte, len(buf.Data)*2)
	for i, s := range buf.Data {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s)))
	}
	fc := NewFakeContextPCM(pcm, realtime)
	fc.sampleRate = int(d.SampleRate)
	return fc, nil
}

func NewFakeContextPCM(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{
		pcm:        pcm,
		sampleRate: 16000,
		realtime:   realtime,
		devices:    []DeviceInfo{{ID: "fake", Name: "fake"}},
	}
}

// SetDevices replaces the reported device list; nil simulates a machine
// without any capture source.
func (f *FakeContext) SetDevices(devices []DeviceInfo) { f.devices = devices }

// FailStart makes every capture created afterwards fail on Start.
func (f *FakeContext) FailStart(err error) { f.startErr = err }

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return f.devices, nil }
func (f *FakeContext) Close()                         {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{
		pcm:        f.pcm,
		sampleRate: f.sampleRate,
		realtime:   f.realtime,
		startErr:   f.startErr,
		audioDone:  make(chan struct{}),
	}, nil
}

type FakeCapture struct {
	pcm        []byte
	sampleRate int
	realtime   bool
	startErr   error

	mu        sync.Mutex
	cb        DataCallback
	running   bool
	stopCh    chan struct{}
	feedDone  chan struct{}
	audioDone chan struct{}
}

// AudioDone is closed once the whole buffer has been delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audioDone
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return fmt.Errorf("fake capture already started")
	}
	f.running = true
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	stop, done, audioDone := f.stopCh, f.feedDone, f.audioDone
	f.mu.Unlock()

	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(f.sampleRate)

	deliver := func(pos int) int {
		end := min(pos+chunkBytes, len(f.pcm))
		if cb := f.callback(); cb != nil {
			chunk := make([]byte, end-pos)
			copy(chunk, f.pcm[pos:end])
			cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
		}
		return end
	}

	if !f.realtime {
		for pos := 0; pos < len(f.pcm); {
			pos = deliver(pos)
		}
		close(audioDone)
		go func() {
			defer close(done)
			<-stop
		}()
		return nil
	}

	if len(f.pcm) == 0 {
		close(audioDone)
	}
	go func() {
		defer close(done)
		pos := 0
		for {
			if pos < len(f.pcm) {
				pos = deliver(pos)
				if pos >= len(f.pcm) {
					close(audioDone)
				}
			}
			select {
			case <-stop:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	close(f.stopCh)
	done := f.feedDone
	f.mu.Unlock()
	<-done

	f.mu.Lock()
	select {
	case <-f.audioDone:
		f.audioDone = make(chan struct{}) // reset for replay
	default:
	}
	f.mu.Unlock()
}

func (f *FakeCapture) Close() { f.Stop() }
