//go:build gui

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// scribeTheme is the TUI palette on a dark window: blue start button, red
// stop button and alerts.
type scribeTheme struct{}

var (
	colorBackground = color.RGBA{18, 18, 18, 255}
	colorForeground = color.RGBA{200, 200, 200, 255}
	colorPrimary    = color.RGBA{0, 95, 175, 255} // xterm 25
	colorDanger     = color.RGBA{215, 0, 0, 255}  // xterm 160
	colorDisabled   = color.RGBA{128, 128, 128, 255}
)

func (scribeTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return colorBackground
	case theme.ColorNameForeground:
		return colorForeground
	case theme.ColorNamePrimary:
		return colorPrimary
	case theme.ColorNameError:
		return colorDanger
	case theme.ColorNameDisabled:
		return colorDisabled
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (scribeTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (scribeTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (scribeTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText {
		return 15
	}
	return theme.DefaultTheme().Size(name)
}
