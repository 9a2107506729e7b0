// Package log writes the diagnostics log (zerolog console format, one event
// per line) and the plain transcript log into a per-user directory. Every
// function is a no-op until Init succeeds.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	diagName       = "diagnostics_log.txt"
	transcriptName = "transcribe_log.txt"

	// maxDiagSize is the size at which Init moves the diagnostics log aside.
	maxDiagSize = 5 << 20
)

var (
	mu             sync.Mutex
	ready          atomic.Bool
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcribeFile *os.File
	mirror         io.Writer
	pid            int
	dir            string
)

// UploadMetrics describes one POST to the transcription endpoint.
type UploadMetrics struct {
	Filename   string
	Format     string
	AudioKB    float64
	Status     int
	ConnReused bool
	TLSProto   string
	DNSMs      float64
	TLSMs      float64
	TTFBMs     float64
	TotalMs    float64
	Err        error
}

// ResolveDir picks the log directory: the -logpath flag, then
// SCRIBE_LOG_PATH, then the platform default. Relative paths are taken from
// the working directory.
func ResolveDir(flagPath string) (string, error) {
	for _, p := range []string{flagPath, os.Getenv("SCRIBE_LOG_PATH")} {
		if p == "" {
			continue
		}
		if filepath.IsAbs(p) {
			return p, nil
		}
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(wd, p), nil
	}
	return defaultDir(runtime.GOOS)
}

// defaultDir is ~/Library/Logs/scribe on macOS, %LOCALAPPDATA%\scribe\logs
// on Windows and $XDG_CONFIG_HOME/scribe/logs elsewhere.
func defaultDir(goos string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", "scribe"), nil
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, "scribe", "logs"), nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "scribe", "logs"), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// Mirror copies warnings and errors to w (usually stderr) from the next Init
// on. nil turns it off.
func Mirror(w io.Writer) {
	mu.Lock()
	mirror = w
	mu.Unlock()
}

// Init opens both log files for appending. The minimum level comes from
// SCRIBE_LOG_LEVEL (debug, info, warn, error), default info.
func Init() error {
	mu.Lock()
	defer mu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}
	pid = os.Getpid()

	diagPath := filepath.Join(dir, diagName)
	if err := rotate(diagPath); err != nil {
		return err
	}

	var err error
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	transcribeFile, err = os.OpenFile(filepath.Join(dir, transcriptName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		diagFile = nil
		return err
	}

	level := zerolog.InfoLevel
	if s := strings.TrimSpace(os.Getenv("SCRIBE_LOG_LEVEL")); s != "" {
		if l, err := zerolog.ParseLevel(s); err == nil {
			level = l
		}
	}

	var out io.Writer = zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	if mirror != nil {
		out = zerolog.MultiLevelWriter(out, &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{Out: mirror, TimeFormat: time.Kitchen, NoColor: true}},
			Level:  zerolog.WarnLevel,
		})
	}
	diagLog = zerolog.New(out).Level(level).With().Timestamp().Int("pid", pid).Logger()

	ready.Store(true)
	return nil
}

// rotate keeps one previous generation of an oversized log.
func rotate(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() < maxDiagSize {
		return nil
	}
	ext := filepath.Ext(path)
	return os.Rename(path, strings.TrimSuffix(path, ext)+".1"+ext)
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	ready.Store(false)
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcribeFile != nil {
		transcribeFile.Close()
		transcribeFile = nil
	}
}

func Info(msg string) {
	if ready.Load() {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if ready.Load() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if ready.Load() {
		diagLog.Error().Msgf(format, args...)
	}
}

func Warn(msg string) {
	if ready.Load() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if ready.Load() {
		diagLog.Warn().Msgf(format, args...)
	}
}

func Upload(m UploadMetrics) {
	if !ready.Load() {
		return
	}

	conn := "new"
	if m.ConnReused {
		conn = "reused"
	}

	ev := diagLog.Info()
	if m.Err != nil {
		ev = diagLog.Error().Err(m.Err)
	}
	ev = ev.Str("file", m.Filename).
		Str("format", m.Format).
		Str("conn", conn)
	if m.TLSProto != "" {
		ev = ev.Str("tls_proto", m.TLSProto)
	}
	if m.Status != 0 {
		ev = ev.Int("status", m.Status)
	}
	ev.Float64("audio_kb", m.AudioKB).
		Float64("dns_ms", m.DNSMs).
		Float64("tls_ms", m.TLSMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalMs).
		Msg("upload")
}

// TranscriptionText appends "time\t[pid]\ttext" to the transcript log.
func TranscriptionText(text string) {
	if !ready.Load() {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	if transcribeFile == nil {
		return
	}
	fmt.Fprintf(transcribeFile, "%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
}

// Recording logs a finished capture.
func Recording(device string, audio, elapsed time.Duration, frames uint64) {
	if !ready.Load() {
		return
	}
	diagLog.Info().
		Str("device", device).
		Float64("audio_s", audio.Seconds()).
		Float64("elapsed_s", elapsed.Seconds()).
		Uint64("frames", frames).
		Msg("recording")
}

func Transition(from, to string) {
	if !ready.Load() || from == to {
		return
	}
	diagLog.Info().
		Str("from", from).
		Str("to", to).
		Msg("transition")
}

func SessionStart(baseURL, format, device string) {
	if !ready.Load() {
		return
	}
	diagLog.Info().
		Str("url", baseURL).
		Str("format", format).
		Str("device", device).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !ready.Load() {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}
