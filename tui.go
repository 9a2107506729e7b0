package main

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scribe/session"
)

// TUI message types
type SnapshotMsg struct{ Snapshot session.Snapshot }
type AlertMsg struct{ Text string }
type MetricsMsg struct{ Lines []string }
type DeviceLineMsg struct{ Text string } // Microphone device name
type ModeLineMsg struct{ Text string }   // "[wav | http://host]"
type CopiedMsg struct{ Err error }
type tickMsg time.Time

const alertTTL = 6 * time.Second

type tuiModel struct {
	snap          session.Snapshot
	recordStart   time.Time
	now           time.Time
	spin          spinner.Model
	width, height int

	alert     string
	alertAt   time.Time
	metrics   []string
	modeLine  string
	device    string
	copied    bool
	copyErr   error
	msgCount  int
	primary   func() bool
	copyText  func(string) error
	hotkeyLbl string
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	buttonStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("25")).Padding(0, 2)
	stopStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")).Padding(0, 2)
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Background(lipgloss.Color("236")).Padding(0, 2)
	recStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	alertStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	metricsStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func newTUIModel(primary func() bool, copyText func(string) error, hotkeyLabel string) tuiModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	return tuiModel{
		spin:      s,
		primary:   primary,
		copyText:  copyText,
		hotkeyLbl: hotkeyLabel,
	}
}

func NewTUIProgram(primary func() bool, copyText func(string) error, hotkeyLabel string) *tea.Program {
	return tea.NewProgram(newTUIModel(primary, copyText, hotkeyLabel), tea.WithAltScreen())
}

// tuiSend delivers msg to the running program, if any.
func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(tuiTick(), m.spin.Tick)
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "enter":
			if m.primary != nil && m.snap.ActionEnabled() {
				m.primary()
			}
		case "c":
			if m.copyText != nil && m.snap.Transcript != "" {
				text, copyFn := m.snap.Transcript, m.copyText
				return m, func() tea.Msg { return CopiedMsg{Err: copyFn(text)} }
			}
		}

	case tickMsg:
		m.now = time.Time(msg)
		if m.alert != "" && m.now.Sub(m.alertAt) > alertTTL {
			m.alert = ""
		}
		return m, tuiTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case SnapshotMsg:
		prev := m.snap
		m.snap = msg.Snapshot
		if m.snap.State == session.Recording && prev.State != session.Recording {
			m.recordStart = time.Now()
			m.alert = ""
		}
		if m.snap.Transcript != prev.Transcript {
			m.msgCount++
			m.copied = false
			m.copyErr = nil
		}

	case AlertMsg:
		m.alert = msg.Text
		m.alertAt = time.Now()

	case MetricsMsg:
		m.metrics = msg.Lines

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.device = msg.Text

	case CopiedMsg:
		m.copied = msg.Err == nil
		m.copyErr = msg.Err
	}
	return m, nil
}

func (m tuiModel) actionButton() string {
	label := "[ " + m.snap.ActionLabel() + " ]"
	switch {
	case !m.snap.ActionEnabled():
		return disabledStyle.Render(label)
	case m.snap.State == session.Recording:
		return stopStyle.Render(label)
	}
	return buttonStyle.Render(label)
}

func (m tuiModel) statusLine() string {
	switch {
	case m.snap.Busy():
		return m.spin.View() + " Uploading..."
	case m.snap.State == session.Recording:
		now := m.now
		if now.Before(m.recordStart) {
			now = m.recordStart
		}
		return recStyle.Render(fmt.Sprintf("● REC %.1fs", now.Sub(m.recordStart).Seconds()))
	case m.snap.Starting():
		return dimStyle.Render("○ waiting for microphone")
	}
	return dimStyle.Render("○ STANDBY")
}

func (m tuiModel) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	wrapWidth := max(width-4, 10)

	var b strings.Builder
	b.WriteString(titleStyle.Render("🎤 Speech to Text") + "\n\n")
	b.WriteString(m.actionButton() + "\n")
	b.WriteString(m.statusLine() + "\n\n")

	if m.snap.Transcript != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("Transcript (#%d)", m.msgCount)) + "\n")
		lines := wrapText(m.snap.Transcript, wrapWidth)
		for i, line := range lines {
			b.WriteString(textStyle.Render(line))
			if i == len(lines)-1 && m.copied {
				b.WriteString(" " + okStyle.Render("[✓ copied]"))
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString(dimStyle.Render("No transcription yet") + "\n")
	}

	if m.alert != "" {
		b.WriteString("\n" + alertStyle.Render("⚠ "+m.alert) + "\n")
	}
	if m.copyErr != nil {
		b.WriteString(alertStyle.Render("copy failed: "+m.copyErr.Error()) + "\n")
	}

	if len(m.metrics) > 0 {
		b.WriteString("\n")
		for _, line := range m.metrics {
			b.WriteString(metricsStyle.Render(line) + "\n")
		}
	}

	b.WriteString("\n")
	if m.modeLine != "" {
		b.WriteString(dimStyle.Render(m.modeLine) + "\n")
	}
	if m.device != "" {
		b.WriteString(dimStyle.Render(m.device) + "\n")
	}

	help := "space record/stop · c copy · q quit"
	if m.hotkeyLbl != "" {
		help = m.hotkeyLbl + " or " + help
	}
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render(help) + "\n")
	return b.String()
}

// wrapText breaks text into lines of at most width runes, preferring to
// split at spaces.
func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		runes := []rune(para)
		for len(runes) > width {
			splitAt := width
			for i := width; i > 0; i-- {
				if runes[i] == ' ' {
					splitAt = i
					break
				}
			}
			lines = append(lines, string(runes[:splitAt]))
			runes = []rune(strings.TrimLeft(string(runes[splitAt:]), " "))
		}
		if len(runes) > 0 || utf8.RuneCountInString(para) == 0 {
			lines = append(lines, string(runes))
		}
	}
	return lines
}
