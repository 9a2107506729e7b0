package session

import (
	"context"
	"sync"
	"time"
)

// Machine runs Transition against the live snapshot. Events are processed
// one at a time by Run; effects that block run in their own goroutine and
// report back with a result event, so at most one of them is in flight.
type Machine struct {
	mic      Microphone
	uploader Uploader
	notifier Notifier

	onError       func(op string, err error)
	uploadTimeout time.Duration

	events chan Event
	done   chan struct{}

	mu   sync.Mutex
	snap Snapshot
	subs []chan Snapshot
}

type Option func(*Machine)

// WithErrorLog receives every error the machine logs instead of alerting.
func WithErrorLog(fn func(op string, err error)) Option {
	return func(m *Machine) { m.onError = fn }
}

// WithUploadTimeout bounds each upload. Zero means no limit.
func WithUploadTimeout(d time.Duration) Option {
	return func(m *Machine) { m.uploadTimeout = d }
}

func New(mic Microphone, uploader Uploader, notifier Notifier, opts ...Option) *Machine {
	m := &Machine{
		mic:      mic,
		uploader: uploader,
		notifier: notifier,
		onError:  func(string, error) {},
		events:   make(chan Event, 16),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.notifier == nil {
		m.notifier = NotifierFunc(func(Alert) {})
	}
	return m
}

// Run processes events until ctx is cancelled. A recording still held at
// that point is finalized so the device is released.
func (m *Machine) Run(ctx context.Context) error {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			h := m.snap.Handle
			m.snap.Handle = nil
			m.mu.Unlock()
			if h != nil {
				if _, err := Finalize(h); err != nil {
					m.onError("finalize", err)
				}
			}
			return ctx.Err()
		case ev := <-m.events:
			m.step(ctx, ev)
		}
	}
}

// Dispatch queues ev. It reports false once the machine has stopped.
func (m *Machine) Dispatch(ev Event) bool {
	select {
	case <-m.done:
		return false
	default:
	}
	select {
	case m.events <- ev:
		return true
	case <-m.done:
		return false
	}
}

func (m *Machine) PrimaryAction() bool { return m.Dispatch(PrimaryAction{}) }

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Subscribe returns a channel that always holds the latest snapshot. Slow
// readers skip intermediate states; they never block the machine.
func (m *Machine) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	m.mu.Lock()
	ch <- m.snap
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

func (m *Machine) step(ctx context.Context, ev Event) {
	m.mu.Lock()
	next, effects := Transition(m.snap, ev)
	next.Seq = m.snap.Seq + 1
	m.snap = next
	m.mu.Unlock()

	for _, eff := range effects {
		m.perform(ctx, eff)
	}
	m.publish(next)
}

// publish replaces whatever a subscriber has not read yet with s.
func (m *Machine) publish(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

func (m *Machine) perform(ctx context.Context, eff Effect) {
	switch eff := eff.(type) {
	case Alert:
		m.notifier.Alert(eff)
	case LogError:
		m.onError(eff.Op, eff.Err)
	case RequestPermission:
		go func() {
			granted, err := m.mic.RequestPermission(ctx)
			m.Dispatch(PermissionResult{Granted: granted, Err: err})
		}()
	case Acquire:
		go func() {
			h, err := m.mic.Acquire(ctx)
			if !m.Dispatch(AcquireResult{Handle: h, Err: err}) && h != nil {
				Finalize(h)
			}
		}()
	case FinalizeHandle:
		go func() {
			loc, err := Finalize(eff.Handle)
			m.Dispatch(FinalizeResult{Location: loc, Err: err})
		}()
	case DiscardHandle:
		go func() {
			if _, err := Finalize(eff.Handle); err != nil {
				m.onError("discard", err)
			}
		}()
	case Upload:
		go func() {
			uctx, cancel := ctx, context.CancelFunc(func() {})
			if m.uploadTimeout > 0 {
				uctx, cancel = context.WithTimeout(ctx, m.uploadTimeout)
			}
			defer cancel()
			text, err := m.uploader.Upload(uctx, eff.Location)
			m.Dispatch(UploadResult{Text: text, Err: err})
		}()
	}
}
