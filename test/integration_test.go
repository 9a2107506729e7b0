//go:build integration

package test_test

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var testBinary string

var toneWAV string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("SCRIBE_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "SCRIBE_TEST_BIN not set; point it at a built scribe binary")
		os.Exit(1)
	}

	dir, err := os.MkdirTemp("", "scribe-integration")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	toneWAV = filepath.Join(dir, "tone.wav")
	if err := generateToneWAV(toneWAV, 16000, 1.0); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate tone.wav: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func generateToneWAV(path string, sampleRate int, seconds float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	n := int(float64(sampleRate) * seconds)
	data := make([]int, n)
	for i := range data {
		data[i] = int(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

type service struct {
	*httptest.Server
	requests atomic.Int32
	uploaded atomic.Int64
}

func newService(t *testing.T, status int, body string) *service {
	t.Helper()
	s := &service{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		if r.URL.Path != "/transcribe" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		n, _ := io.Copy(io.Discard, f)
		f.Close()
		if hdr.Filename == "" {
			http.Error(w, "no filename", http.StatusBadRequest)
			return
		}
		s.uploaded.Add(n)
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(s.Close)
	return s
}

func runScribe(t *testing.T, stdin string, args ...string) (logDir, stdout string) {
	t.Helper()
	logDir = t.TempDir()
	cmdArgs := append([]string{"-logpath", logDir, "-env", ""}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+t.TempDir(), "HOME="+t.TempDir())

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("scribe exited with error: %v\noutput: %s", err, out)
	}
	return logDir, string(out)
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func TestRoundTrip(t *testing.T) {
	srv := newService(t, http.StatusOK, `{"text":"hello world"}`)
	logDir, out := runScribe(t, cmds("TAP", "WAIT", "SLEEP 300", "TAP", "WAIT", "QUIT"),
		"-test", "-url", srv.URL, toneWAV)

	if !strings.Contains(out, "transcript: hello world") {
		t.Errorf("stdout missing transcript:\n%s", out)
	}
	if !strings.Contains(readLog(t, logDir, "transcribe_log.txt"), "hello world") {
		t.Error("transcribe_log.txt missing transcript")
	}
	if srv.uploaded.Load() == 0 {
		t.Error("service received an empty file")
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	for _, want := range []string{"session_start", "upload", "recording", "session_end"} {
		if !strings.Contains(diag, want) {
			t.Errorf("diagnostics missing %q", want)
		}
	}
}

func TestConnReuse(t *testing.T) {
	srv := newService(t, http.StatusOK, `{"text":"again"}`)
	logDir, _ := runScribe(t, cmds("TAP", "WAIT", "SLEEP 200", "TAP", "WAIT", "TAP", "WAIT", "SLEEP 200", "TAP", "WAIT", "QUIT"),
		"-test", "-url", srv.URL, toneWAV)
	if srv.requests.Load() != 2 {
		t.Errorf("requests = %d, want 2", srv.requests.Load())
	}
	if !strings.Contains(readLog(t, logDir, "diagnostics_log.txt"), "conn=reused") {
		t.Error("expected conn=reused in diagnostics")
	}
}

func TestFlac(t *testing.T) {
	srv := newService(t, http.StatusOK, `{"text":"lossless"}`)
	_, out := runScribe(t, cmds("TAP", "WAIT", "SLEEP 300", "TAP", "WAIT", "QUIT"),
		"-test", "-format", "flac", "-url", srv.URL, toneWAV)
	if !strings.Contains(out, "transcript: lossless") {
		t.Errorf("stdout:\n%s", out)
	}
}

func TestHotkeyHold(t *testing.T) {
	srv := newService(t, http.StatusOK, `{"text":"held"}`)
	_, out := runScribe(t, cmds("KEYDOWN", "WAIT", "SLEEP 500", "KEYUP", "SLEEP 100", "WAIT", "QUIT"),
		"-test", "-url", srv.URL, toneWAV)
	if !strings.Contains(out, "transcript: held") {
		t.Errorf("stdout:\n%s", out)
	}
}

func TestPermissionDenied(t *testing.T) {
	srv := newService(t, http.StatusOK, `{"text":"never"}`)
	_, out := runScribe(t, cmds("TAP", "WAIT", "QUIT"), "-test", "-deny-mic", "-url", srv.URL, toneWAV)
	if !strings.Contains(out, "alert: Please allow microphone access to record.") {
		t.Errorf("stdout missing alert:\n%s", out)
	}
	if srv.requests.Load() != 0 {
		t.Error("denied session still uploaded")
	}
}

func TestUploadFailure(t *testing.T) {
	srv := newService(t, http.StatusInternalServerError, "boom")
	logDir, out := runScribe(t, cmds("TAP", "WAIT", "SLEEP 200", "TAP", "WAIT", "QUIT"),
		"-test", "-url", srv.URL, toneWAV)
	if !strings.Contains(out, "alert: Upload failed, please try again later.") {
		t.Errorf("stdout missing alert:\n%s", out)
	}
	if strings.Contains(out, "transcript:") {
		t.Errorf("failed upload produced a transcript:\n%s", out)
	}
	if strings.TrimSpace(readLog(t, logDir, "transcribe_log.txt")) != "" {
		t.Error("transcribe_log.txt written for failed upload")
	}
}

func TestKeepRecordings(t *testing.T) {
	srv := newService(t, http.StatusOK, `{"text":"kept"}`)
	dir := t.TempDir()
	runScribe(t, cmds("TAP", "WAIT", "SLEEP 200", "TAP", "WAIT", "QUIT"),
		"-test", "-keep", "-dir", dir, "-url", srv.URL, toneWAV)
	matches, _ := filepath.Glob(filepath.Join(dir, "scribe-*.wav"))
	if len(matches) != 1 {
		t.Errorf("kept recordings = %v, want 1", matches)
	}
}
