package encoder

import (
	"sync"
	"time"
)

// tally tracks what an encoder has written and how long it spent doing so.
// Both formats embed it.
type tally struct {
	mu     sync.Mutex
	frames uint64
	spent  time.Duration
}

func (t *tally) count(n int) {
	t.mu.Lock()
	t.frames += uint64(n)
	t.mu.Unlock()
}

func (t *tally) TotalFrames() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames
}

func (t *tally) AddEncodeTime(d time.Duration) {
	t.mu.Lock()
	t.spent += d
	t.mu.Unlock()
}

func (t *tally) EncodeTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spent
}
