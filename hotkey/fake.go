package hotkey

// FakeHotkey stands in for a keyboard chord. Press and Release block until
// the listener has room for the edge, so a driver cannot outrun Trigger by
// more than one event per direction.
type FakeHotkey struct {
	down, up chan struct{}
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{down: make(chan struct{}, 1), up: make(chan struct{}, 1)}
}

func (f *FakeHotkey) Register() error { return nil }
func (f *FakeHotkey) Unregister()     {}

func (f *FakeHotkey) Keydown() <-chan struct{} { return f.down }
func (f *FakeHotkey) Keyup() <-chan struct{}   { return f.up }

func (f *FakeHotkey) Press()   { f.down <- struct{}{} }
func (f *FakeHotkey) Release() { f.up <- struct{}{} }
