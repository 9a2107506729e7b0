// Package hotkey listens for a global keyboard shortcut and turns it into
// primary actions.
package hotkey

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}
