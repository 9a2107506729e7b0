package main

import (
	"fmt"
	"io"
	"sync"

	"scribe/audio"
	"scribe/session"
)

// EventSink abstracts the display layer so the Bubble Tea TUI, the Fyne
// GUI and the plain line printer receive the same session events.
type EventSink interface {
	Snapshot(s session.Snapshot)
	Alert(text string)
	Metrics(lines []string)
	ModeLine(text string)
	DeviceLine(text string)
}

type tuiSink struct{}

func (tuiSink) Snapshot(s session.Snapshot) { tuiSend(SnapshotMsg{Snapshot: s}) }
func (tuiSink) Alert(text string)           { tuiSend(AlertMsg{Text: text}) }
func (tuiSink) Metrics(lines []string)      { tuiSend(MetricsMsg{Lines: lines}) }
func (tuiSink) ModeLine(text string)        { tuiSend(ModeLineMsg{Text: text}) }
func (tuiSink) DeviceLine(text string)      { tuiSend(DeviceLineMsg{Text: text}) }

// lineSink prints one line per change. Used with -tui=false and in test mode.
type lineSink struct {
	mu         sync.Mutex
	w          io.Writer
	state      session.State
	transcript string
	verbose    bool
}

func newLineSink(w io.Writer, verbose bool) *lineSink {
	return &lineSink{w: w, verbose: verbose}
}

func (l *lineSink) Snapshot(s session.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s.State != l.state {
		fmt.Fprintf(l.w, "state: %s\n", s.State)
		l.state = s.State
	}
	if s.Transcript != l.transcript {
		fmt.Fprintf(l.w, "transcript: %s\n", s.Transcript)
		l.transcript = s.Transcript
	}
}

func (l *lineSink) Alert(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "alert: %s\n", text)
}

func (l *lineSink) Metrics(lines []string) {
	if !l.verbose {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range lines {
		fmt.Fprintf(l.w, "  %s\n", line)
	}
}

func (l *lineSink) ModeLine(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, text)
}

func (l *lineSink) DeviceLine(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, text)
}

func modeLineText(format, baseURL string) string {
	return fmt.Sprintf("[%s | %s]", format, baseURL)
}

func deviceLineText(name string) string {
	if name == "" || name == audio.DefaultName {
		return "mic: " + audio.DefaultName
	}
	if audio.IsBluetooth(name) {
		return "mic: " + name + " (BT!)"
	}
	return "mic: " + name
}
