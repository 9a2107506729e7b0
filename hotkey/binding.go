package hotkey

import (
	"fmt"
	"strings"
)

type Mod uint8

const (
	ModCtrl Mod = 1 << iota
	ModShift
	ModAlt
	ModSuper
)

var modNames = []struct {
	mod   Mod
	names []string
	label string
}{
	{ModCtrl, []string{"ctrl", "control"}, "Ctrl"},
	{ModShift, []string{"shift"}, "Shift"},
	{ModAlt, []string{"alt", "option", "opt"}, "Alt"},
	{ModSuper, []string{"super", "cmd", "win", "meta"}, "Super"},
}

// Binding is a global shortcut: a set of modifiers plus one key. Key is
// lower case: "space", "a".."z", "0".."9" or "f1".."f12".
type Binding struct {
	Mods Mod
	Key  string
}

var Default = Binding{Mods: ModCtrl | ModShift, Key: "space"}

// Parse reads a binding such as "ctrl+shift+space". At least one modifier is
// required so the shortcut cannot swallow normal typing. An empty string
// selects Default.
func Parse(s string) (Binding, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Default, nil
	}

	var b Binding
	parts := strings.Split(s, "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == len(parts)-1 {
			if !validKey(p) {
				return Binding{}, fmt.Errorf("hotkey %q: unsupported key %q", s, p)
			}
			b.Key = p
			break
		}
		mod, ok := parseMod(p)
		if !ok {
			return Binding{}, fmt.Errorf("hotkey %q: unknown modifier %q", s, p)
		}
		if b.Mods&mod != 0 {
			return Binding{}, fmt.Errorf("hotkey %q: %s listed twice", s, p)
		}
		b.Mods |= mod
	}
	if b.Mods == 0 {
		return Binding{}, fmt.Errorf("hotkey %q: needs at least one modifier", s)
	}
	return b, nil
}

func parseMod(s string) (Mod, bool) {
	for _, m := range modNames {
		for _, n := range m.names {
			if s == n {
				return m.mod, true
			}
		}
	}
	return 0, false
}

func validKey(k string) bool {
	switch {
	case k == "space":
		return true
	case len(k) == 1:
		return (k[0] >= 'a' && k[0] <= 'z') || (k[0] >= '0' && k[0] <= '9')
	case len(k) >= 2 && k[0] == 'f':
		n := 0
		for _, c := range k[1:] {
			if c < '0' || c > '9' {
				return false
			}
			n = n*10 + int(c-'0')
		}
		return n >= 1 && n <= 12
	}
	return false
}

// String renders the binding for display, e.g. "Ctrl+Shift+Space".
func (b Binding) String() string {
	var parts []string
	for _, m := range modNames {
		if b.Mods&m.mod != 0 {
			parts = append(parts, m.label)
		}
	}
	parts = append(parts, strings.ToUpper(b.Key[:1])+b.Key[1:])
	return strings.Join(parts, "+")
}
