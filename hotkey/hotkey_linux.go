//go:build linux

package hotkey

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Linux reads key events straight from /dev/input so the shortcut works on
// X11 and Wayland alike. The user needs to be in the input group.

const (
	evKey          = 1
	keyRelease     = 0
	keyPress       = 1
	inputEventSize = 24
)

var modCodes = map[uint16]Mod{
	29: ModCtrl, 97: ModCtrl,
	42: ModShift, 54: ModShift,
	56: ModAlt, 100: ModAlt,
	125: ModSuper, 126: ModSuper,
}

// evdev codes follow the physical QWERTY layout.
var keyCodes = func() map[string]uint16 {
	m := map[string]uint16{"space": 57, "0": 11}
	for i, c := range "123456789" {
		m[string(c)] = uint16(2 + i)
	}
	for row, start := range map[string]uint16{"qwertyuiop": 16, "asdfghjkl": 30, "zxcvbnm": 44} {
		for i, c := range row {
			m[string(c)] = start + uint16(i)
		}
	}
	for i := 1; i <= 10; i++ {
		m[fmt.Sprintf("f%d", i)] = uint16(58 + i)
	}
	m["f11"], m["f12"] = 87, 88
	return m
}()

var errNoKeyboards = errors.New("no keyboard devices found (is user in 'input' group?)")

type evdevHotkey struct {
	binding Binding
	code    uint16

	keydown chan struct{}
	keyup   chan struct{}

	files []*os.File
	stop  chan struct{}
	once  sync.Once
}

func New(b Binding) (Hotkey, error) {
	code, ok := keyCodes[b.Key]
	if !ok {
		return nil, fmt.Errorf("hotkey: no key code for %q", b.Key)
	}
	return &evdevHotkey{
		binding: b,
		code:    code,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}, nil
}

func (h *evdevHotkey) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return errNoKeyboards
	}

	h.stop = make(chan struct{})
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.readEvents(f)
	}
	if len(h.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}
	return nil
}

// chord tracks one keyboard's modifier state. Each device is read
// separately, so a modifier on one keyboard does not combine with a key on
// another.
type chord struct {
	down   map[uint16]bool
	active bool
}

func (c *chord) mods() Mod {
	var m Mod
	for code, held := range c.down {
		if held {
			m |= modCodes[code]
		}
	}
	return m
}

// feed applies one key event and reports whether the binding was pressed or
// released by it. Autorepeat (value 2) is ignored.
func (c *chord) feed(b Binding, key, code uint16, value int32) (press, release bool) {
	if value != keyPress && value != keyRelease {
		return false, false
	}
	if _, ok := modCodes[code]; ok {
		c.down[code] = value == keyPress
		return false, false
	}
	if code != key {
		return false, false
	}
	switch {
	case value == keyPress && !c.active && c.mods()&b.Mods == b.Mods:
		c.active = true
		return true, false
	case value == keyRelease && c.active:
		c.active = false
		return false, true
	}
	return false, false
}

func (h *evdevHotkey) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	c := chord{down: make(map[uint16]bool)}

	for {
		select {
		case <-h.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			if binary.LittleEndian.Uint16(buf[i+16:]) != evKey {
				continue
			}
			code := binary.LittleEndian.Uint16(buf[i+18:])
			value := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			press, release := c.feed(h.binding, h.code, code, value)
			switch {
			case press:
				signal(h.keydown)
			case release:
				signal(h.keyup)
			}
		}
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (h *evdevHotkey) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *evdevHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *evdevHotkey) Keyup() <-chan struct{}   { return h.keyup }

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "event") && isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

// isKeyboard treats devices with a long key capability bitmap as keyboards;
// mice and power buttons report only a few bits.
func isKeyboard(eventName string) bool {
	data, err := os.ReadFile(filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key"))
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}

// Diagnose reports whether the shortcut can be read, without registering it.
func Diagnose(b Binding) (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", errNoKeyboards
	}

	for _, path := range keyboards {
		if f, err := os.Open(path); err == nil {
			f.Close()
			return fmt.Sprintf("%s via %d keyboard(s), opened %s", b, len(keyboards), path), nil
		}
	}
	return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
}
