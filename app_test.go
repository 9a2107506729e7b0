package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"scribe/audio"
	"scribe/config"
	"scribe/hotkey"
	"scribe/recorder"
	"scribe/session"
)

type recSink struct {
	mu     sync.Mutex
	snaps  []session.Snapshot
	alerts []string
	lines  []string
}

func (r *recSink) Snapshot(s session.Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recSink) Alert(text string) {
	r.mu.Lock()
	r.alerts = append(r.alerts, text)
	r.mu.Unlock()
}

func (r *recSink) Metrics(lines []string) {}
func (r *recSink) ModeLine(text string)   { r.line(text) }
func (r *recSink) DeviceLine(text string) { r.line(text) }

func (r *recSink) line(text string) {
	r.mu.Lock()
	r.lines = append(r.lines, text)
	r.mu.Unlock()
}

func (r *recSink) transcript() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return ""
	}
	return r.snaps[len(r.snaps)-1].Transcript
}

func (r *recSink) alertList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.alerts...)
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func tone(samples int) []byte {
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(i%200-100)))
	}
	return pcm
}

func transcribeServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	app    *app
	sink   *recSink
	hk     *hotkey.FakeHotkey
	ctx    context.Context
	cancel context.CancelFunc
	ran    chan error
}

func startApp(t *testing.T, baseURL string, rc recorder.Config) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.APIBaseURL = baseURL
	cfg.Beep = false
	rc.Dir = t.TempDir()

	h := &harness{sink: &recSink{}, hk: hotkey.NewFake(), ran: make(chan error, 1)}
	h.app = newApp(audio.NewFakeContextPCM(tone(8000), false), cfg, rc, h.sink)
	h.ctx, h.cancel = context.WithCancel(context.Background())
	go hotkey.Trigger(h.ctx, h.hk, 50*time.Millisecond, h.app.recording, func() { h.app.machine.PrimaryAction() })
	go func() { h.ran <- h.app.run(h.ctx) }()
	t.Cleanup(h.stop)
	return h
}

func (h *harness) drive(script string, limit time.Duration) error {
	return drive(h.ctx, h.app.machine, h.hk, strings.NewReader(script), limit)
}

func (h *harness) stop() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.ran
	h.cancel = nil
}

func TestAppRoundTrip(t *testing.T) {
	srv := transcribeServer(t, http.StatusOK, `{"text":"hello there"}`)
	h := startApp(t, srv.URL, recorder.Config{})

	err := h.drive("TAP\nWAIT\nSLEEP 50\nTAP\nWAIT\nQUIT\n", 5*time.Second)
	if !errors.Is(err, errQuit) {
		t.Fatalf("drive: %v", err)
	}
	if got := h.app.machine.Snapshot().Transcript; got != "hello there" {
		t.Fatalf("transcript = %q", got)
	}
	if h.app.count() != 1 {
		t.Errorf("count = %d, want 1", h.app.count())
	}
	eventually(t, "sink transcript", func() bool { return h.sink.transcript() == "hello there" })

	files := h.app.mic.Files()
	if len(files) != 1 {
		t.Fatalf("files = %v", files)
	}
	h.stop()
	h.app.close()
	if _, err := os.Stat(files[0]); !os.IsNotExist(err) {
		t.Errorf("recording not cleaned up: %v", err)
	}
}

func TestAppModeAndDeviceLines(t *testing.T) {
	srv := transcribeServer(t, http.StatusOK, `{"text":""}`)
	h := startApp(t, srv.URL, recorder.Config{})
	eventually(t, "mode line", func() bool {
		h.sink.mu.Lock()
		defer h.sink.mu.Unlock()
		return len(h.sink.lines) == 2
	})
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	if want := "[wav | " + srv.URL + "]"; h.sink.lines[0] != want {
		t.Errorf("mode line = %q, want %q", h.sink.lines[0], want)
	}
	if h.sink.lines[1] != "mic: system default" {
		t.Errorf("device line = %q", h.sink.lines[1])
	}
}

func TestAppUploadFailureAlerts(t *testing.T) {
	srv := transcribeServer(t, http.StatusInternalServerError, "boom")
	h := startApp(t, srv.URL, recorder.Config{})

	if err := h.drive("TAP\nWAIT\nTAP\nWAIT\n", 5*time.Second); err != nil {
		t.Fatalf("drive: %v", err)
	}
	alerts := h.sink.alertList()
	if len(alerts) != 1 || alerts[0] != "Upload failed, please try again later." {
		t.Errorf("alerts = %q", alerts)
	}
	if h.app.count() != 0 {
		t.Errorf("count = %d, want 0", h.app.count())
	}
	if s := h.app.machine.Snapshot(); s.State != session.Idle || s.Uploading {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestAppPermissionDenied(t *testing.T) {
	srv := transcribeServer(t, http.StatusOK, `{"text":"x"}`)
	h := startApp(t, srv.URL, recorder.Config{Deny: true})

	if err := h.drive("TAP\nWAIT\n", 5*time.Second); err != nil {
		t.Fatalf("drive: %v", err)
	}
	alerts := h.sink.alertList()
	if len(alerts) != 1 || alerts[0] != "Please allow microphone access to record." {
		t.Errorf("alerts = %q", alerts)
	}
	if len(h.app.mic.Files()) != 0 {
		t.Error("denied permission still created a recording")
	}
}

func TestAppHotkeyHold(t *testing.T) {
	srv := transcribeServer(t, http.StatusOK, `{"text":"held"}`)
	h := startApp(t, srv.URL, recorder.Config{})

	if err := h.drive("KEYDOWN\nWAIT\nSLEEP 100\nKEYUP\n", 5*time.Second); err != nil {
		t.Fatalf("drive: %v", err)
	}
	eventually(t, "transcript", func() bool {
		return h.app.machine.Snapshot().Transcript == "held"
	})
}

func TestDriveWaitTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{"text":"late"}`))
	}))
	defer srv.Close()
	defer close(release)
	h := startApp(t, srv.URL, recorder.Config{})

	err := h.drive("TAP\nWAIT\nTAP\nWAIT\n", 300*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "still uploading") {
		t.Fatalf("err = %v, want WAIT timeout", err)
	}
}

func TestDriveBadCommands(t *testing.T) {
	srv := transcribeServer(t, http.StatusOK, `{"text":""}`)
	h := startApp(t, srv.URL, recorder.Config{})

	if err := h.drive("# comment\n\nJUMP\n", time.Second); err == nil || !strings.Contains(err.Error(), "JUMP") {
		t.Errorf("unknown command: err = %v", err)
	}
	if err := h.drive("SLEEP soon\n", time.Second); err == nil {
		t.Error("bad SLEEP accepted")
	}
	if err := h.drive("", time.Second); err != nil {
		t.Errorf("empty script: %v", err)
	}
}

func TestLineSink(t *testing.T) {
	var buf bytes.Buffer
	l := newLineSink(&buf, true)
	l.Snapshot(session.Snapshot{})
	l.Snapshot(session.Snapshot{State: session.Recording})
	l.Snapshot(session.Snapshot{State: session.Recording})
	l.Snapshot(session.Snapshot{State: session.Uploading, Uploading: true})
	l.Snapshot(session.Snapshot{Transcript: "done"})
	l.Alert("careful")
	l.Metrics([]string{"total: 5ms"})

	want := "state: recording\nstate: uploading\nstate: idle\ntranscript: done\nalert: careful\n  total: 5ms\n"
	if buf.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestDeviceLineText(t *testing.T) {
	if got := deviceLineText(""); got != "mic: system default" {
		t.Errorf("default = %q", got)
	}
	if got := deviceLineText("USB Mic"); got != "mic: USB Mic" {
		t.Errorf("named = %q", got)
	}
	if got := deviceLineText("AirPods Pro"); !strings.HasSuffix(got, "(BT!)") {
		t.Errorf("bluetooth = %q", got)
	}
}
