package hotkey

import "golang.design/x/hotkey"

var platformMods = map[Mod]hotkey.Modifier{
	ModCtrl:  hotkey.ModCtrl,
	ModShift: hotkey.ModShift,
	ModAlt:   hotkey.ModAlt,
	ModSuper: hotkey.ModWin,
}
