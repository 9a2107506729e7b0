//go:build gui

package gui

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"scribe/session"
)

// App is the desktop window. It renders snapshots the same way the TUI
// does: header, one primary button, a busy bar and the transcript.
type App struct {
	fyneApp fyne.App
	window  fyne.Window
	onReady func()

	button     *widget.Button
	progress   *widget.ProgressBarInfinite
	transcript *widget.Label
	status     *widget.Label
	footer     *widget.Label
	trayItem   *fyne.MenuItem
	trayMenu   *fyne.Menu

	// owned by the Fyne goroutine
	recording bool
	mode      string
	device    string

	mu      sync.Mutex
	primary func() bool
}

func NewApp(onReady func()) *App {
	return &App{onReady: onReady}
}

// SetPrimary connects the button and tray item to the session.
func (a *App) SetPrimary(fn func() bool) {
	a.mu.Lock()
	a.primary = fn
	a.mu.Unlock()
}

func (a *App) press() {
	a.mu.Lock()
	fn := a.primary
	a.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func Run(a *App) error {
	a.fyneApp = app.NewWithID("io.scribe.gui")
	a.fyneApp.Settings().SetTheme(scribeTheme{})

	a.window = a.fyneApp.NewWindow("Speech to Text")

	header := widget.NewLabelWithStyle("🎤 Speech to Text", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	a.button = widget.NewButton(session.Snapshot{}.ActionLabel(), a.press)
	a.button.Importance = widget.HighImportance
	a.progress = widget.NewProgressBarInfinite()
	a.progress.Stop()
	a.progress.Hide()
	a.status = widget.NewLabel("")
	a.transcript = widget.NewLabel("")
	a.transcript.Wrapping = fyne.TextWrapWord
	a.footer = widget.NewLabel("")
	a.footer.TextStyle = fyne.TextStyle{Italic: true}

	a.window.SetContent(container.NewBorder(
		container.NewVBox(header, a.button, a.progress, a.status),
		a.footer, nil, nil,
		container.NewVScroll(a.transcript),
	))
	a.window.Resize(fyne.NewSize(420, 320))

	if desk, ok := a.fyneApp.(desktop.App); ok {
		a.trayItem = fyne.NewMenuItem(session.Snapshot{}.ActionLabel(), a.press)
		a.trayMenu = fyne.NewMenu("scribe",
			a.trayItem,
			fyne.NewMenuItem("Show window", func() { a.window.Show() }),
		)
		desk.SetSystemTrayMenu(a.trayMenu)
		desk.SetSystemTrayIcon(micIcon(false))
	}

	go a.onReady()

	a.window.ShowAndRun()
	return nil
}

func (a *App) Quit() {
	if a.fyneApp != nil {
		a.fyneApp.Quit()
	}
}

// EventSink implementation. Widgets are only touched inside fyne.Do.

func (a *App) Snapshot(s session.Snapshot) {
	fyne.Do(func() {
		if a.button == nil {
			return
		}
		a.button.SetText(s.ActionLabel())
		if s.ActionEnabled() {
			a.button.Enable()
		} else {
			a.button.Disable()
		}
		if s.State == session.Recording {
			a.button.Importance = widget.DangerImportance
		} else {
			a.button.Importance = widget.HighImportance
		}
		a.button.Refresh()

		switch {
		case s.Busy():
			a.status.SetText("Uploading...")
			a.progress.Show()
			a.progress.Start()
		case s.State == session.Recording:
			a.status.SetText("● REC")
			a.progress.Stop()
			a.progress.Hide()
		case s.Starting():
			a.status.SetText("waiting for microphone")
		default:
			a.status.SetText("")
			a.progress.Stop()
			a.progress.Hide()
		}
		a.transcript.SetText(s.Transcript)

		if a.trayItem != nil {
			a.trayItem.Label = s.ActionLabel()
			a.trayItem.Disabled = !s.ActionEnabled()
			a.trayMenu.Refresh()
		}
		recording := s.State == session.Recording
		if desk, ok := a.fyneApp.(desktop.App); ok && recording != a.recording {
			desk.SetSystemTrayIcon(micIcon(recording))
		}
		a.recording = recording
	})
}

func (a *App) Alert(text string) {
	fyne.Do(func() {
		if a.window != nil {
			dialog.ShowInformation("Speech to Text", text, a.window)
		}
	})
}

func (a *App) Metrics(lines []string) {}

func (a *App) ModeLine(text string) {
	fyne.Do(func() {
		a.mode = text
		a.refreshFooter()
	})
}

func (a *App) DeviceLine(text string) {
	fyne.Do(func() {
		a.device = text
		a.refreshFooter()
	})
}

func (a *App) refreshFooter() {
	if a.footer != nil {
		a.footer.SetText(a.mode + "  " + a.device)
	}
}
