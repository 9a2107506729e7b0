//go:build !linux

package hotkey

import (
	"fmt"

	"golang.design/x/hotkey"
)

var keys = map[string]hotkey.Key{
	"space": hotkey.KeySpace,

	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

// systemHotkey registers the binding with the OS. Its events are forwarded
// onto buffered channels so a slow consumer never blocks the OS callback.
type systemHotkey struct {
	hk      *hotkey.Hotkey
	keydown chan struct{}
	keyup   chan struct{}
	stop    chan struct{}
}

func New(b Binding) (Hotkey, error) {
	key, ok := keys[b.Key]
	if !ok {
		return nil, fmt.Errorf("hotkey: unsupported key %q", b.Key)
	}
	var mods []hotkey.Modifier
	for _, m := range []Mod{ModCtrl, ModShift, ModAlt, ModSuper} {
		if b.Mods&m != 0 {
			mods = append(mods, platformMods[m])
		}
	}
	return &systemHotkey{
		hk:      hotkey.New(mods, key),
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}, nil
}

func (h *systemHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	go h.forward(h.hk.Keydown(), h.keydown)
	go h.forward(h.hk.Keyup(), h.keyup)
	return nil
}

func (h *systemHotkey) forward(from <-chan hotkey.Event, to chan struct{}) {
	for {
		select {
		case <-h.stop:
			return
		case <-from:
			select {
			case to <- struct{}{}:
			default:
			}
		}
	}
}

func (h *systemHotkey) Unregister() {
	close(h.stop)
	h.hk.Unregister()
}

func (h *systemHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *systemHotkey) Keyup() <-chan struct{}   { return h.keyup }

func Diagnose(b Binding) (string, error) {
	if _, err := New(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s available", b), nil
}
