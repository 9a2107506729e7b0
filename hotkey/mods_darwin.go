package hotkey

import "golang.design/x/hotkey"

var platformMods = map[Mod]hotkey.Modifier{
	ModCtrl:  hotkey.ModCtrl,
	ModShift: hotkey.ModShift,
	ModAlt:   hotkey.ModOption,
	ModSuper: hotkey.ModCmd,
}
