package session

import (
	"errors"
	"testing"
)

type stubHandle struct{ name string }

func (h *stubHandle) Stop() error               { return nil }
func (h *stubHandle) Location() (string, error) { return "/tmp/" + h.name, nil }

func run(t *testing.T, s Snapshot, events ...Event) (Snapshot, []Effect) {
	t.Helper()
	var all []Effect
	for _, ev := range events {
		var effects []Effect
		s, effects = Transition(s, ev)
		all = append(all, effects...)
	}
	return s, all
}

func alerts(effects []Effect) []Alert {
	var out []Alert
	for _, e := range effects {
		if a, ok := e.(Alert); ok {
			out = append(out, a)
		}
	}
	return out
}

func TestStartGranted(t *testing.T) {
	h := &stubHandle{name: "a.wav"}
	s, effects := Transition(Snapshot{}, PrimaryAction{})
	if len(effects) != 1 || effects[0] != (RequestPermission{}) {
		t.Fatalf("effects = %#v, want RequestPermission", effects)
	}
	if !s.Starting() || s.State != Idle {
		t.Fatalf("after tap: %+v", s)
	}

	s, effects = Transition(s, PermissionResult{Granted: true})
	if len(effects) != 1 || effects[0] != (Acquire{}) {
		t.Fatalf("effects = %#v, want Acquire", effects)
	}

	s, effects = Transition(s, AcquireResult{Handle: h})
	if len(effects) != 0 {
		t.Errorf("unexpected effects %#v", effects)
	}
	if s.State != Recording || s.Handle != h || s.Starting() || s.Uploading {
		t.Fatalf("after acquire: %+v", s)
	}
	if s.ActionLabel() != "Stop recording" {
		t.Errorf("label = %q", s.ActionLabel())
	}
}

func TestStartDenied(t *testing.T) {
	s, effects := run(t, Snapshot{Transcript: "old"}, PrimaryAction{}, PermissionResult{Granted: false})
	if s.State != Idle || s.Handle != nil || s.Starting() {
		t.Fatalf("snapshot = %+v", s)
	}
	if s.Transcript != "old" {
		t.Errorf("transcript changed to %q", s.Transcript)
	}
	got := alerts(effects)
	if len(got) != 1 || got[0].Kind != AlertPermissionDenied {
		t.Fatalf("alerts = %+v, want one permission alert", got)
	}
	for _, e := range effects {
		if _, ok := e.(Acquire); ok {
			t.Fatal("acquired after denial")
		}
	}
}

func TestPermissionErrorTreatedAsDenial(t *testing.T) {
	s, effects := run(t, Snapshot{}, PrimaryAction{}, PermissionResult{Err: errors.New("pulse down")})
	if s.State != Idle || s.Starting() {
		t.Fatalf("snapshot = %+v", s)
	}
	if got := alerts(effects); len(got) != 1 {
		t.Fatalf("alerts = %+v", got)
	}
}

func TestAcquireFailureLoggedOnly(t *testing.T) {
	s, effects := run(t, Snapshot{}, PrimaryAction{}, PermissionResult{Granted: true}, AcquireResult{Err: errors.New("busy")})
	if s.State != Idle || s.Starting() || s.Handle != nil {
		t.Fatalf("snapshot = %+v", s)
	}
	if got := alerts(effects); len(got) != 0 {
		t.Errorf("acquire failure alerted: %+v", got)
	}
	last := effects[len(effects)-1]
	if le, ok := last.(LogError); !ok || le.Op != "acquire" {
		t.Errorf("last effect = %#v, want LogError(acquire)", last)
	}
	// Retrying works.
	if _, effects := Transition(s, PrimaryAction{}); len(effects) != 1 {
		t.Errorf("retry effects = %#v", effects)
	}
}

func TestTapWhileStartingIgnored(t *testing.T) {
	s, _ := Transition(Snapshot{}, PrimaryAction{})
	s2, effects := Transition(s, PrimaryAction{})
	if len(effects) != 0 || s2 != s {
		t.Fatalf("second tap produced %#v", effects)
	}
	if s.ActionEnabled() {
		t.Error("action enabled while starting")
	}
}

func TestStopReleasesAndUploads(t *testing.T) {
	h := &stubHandle{name: "a.wav"}
	s := Snapshot{State: Recording, Handle: h}

	s, effects := Transition(s, PrimaryAction{})
	if s.State != Uploading || !s.Uploading || s.Handle != nil {
		t.Fatalf("after stop tap: %+v", s)
	}
	if len(effects) != 1 || effects[0] != (FinalizeHandle{Handle: h}) {
		t.Fatalf("effects = %#v, want FinalizeHandle", effects)
	}

	s, effects = Transition(s, FinalizeResult{Location: "/tmp/a.wav"})
	if len(effects) != 1 || effects[0] != (Upload{Location: "/tmp/a.wav"}) {
		t.Fatalf("effects = %#v, want one Upload", effects)
	}
	if !s.Busy() {
		t.Error("indicator hidden during upload")
	}
}

func TestFinalizeErrorStillUploads(t *testing.T) {
	s := Snapshot{State: Recording, Handle: &stubHandle{}}
	s, _ = Transition(s, PrimaryAction{})
	_, effects := Transition(s, FinalizeResult{Err: errors.New("disk full")})

	var uploads int
	var logged bool
	for _, e := range effects {
		switch e := e.(type) {
		case Upload:
			uploads++
			if e.Location != "" {
				t.Errorf("location = %q", e.Location)
			}
		case LogError:
			logged = e.Op == "finalize"
		case Alert:
			t.Errorf("finalize failure alerted: %+v", e)
		}
	}
	if uploads != 1 || !logged {
		t.Errorf("uploads = %d logged = %v", uploads, logged)
	}
}

func TestUploadSuccess(t *testing.T) {
	s, _ := run(t, Snapshot{State: Recording, Handle: &stubHandle{}, Transcript: "old"},
		PrimaryAction{}, FinalizeResult{Location: "/tmp/a.wav"}, UploadResult{Text: "hello world"})
	if s.Transcript != "hello world" || s.Uploading || s.State != Idle {
		t.Fatalf("snapshot = %+v", s)
	}
	if s.ActionLabel() != "Start recording" || s.Busy() {
		t.Errorf("label %q busy %v", s.ActionLabel(), s.Busy())
	}
}

func TestUploadFailureKeepsTranscript(t *testing.T) {
	s, effects := run(t, Snapshot{State: Recording, Handle: &stubHandle{}, Transcript: "old"},
		PrimaryAction{}, FinalizeResult{Location: "/tmp/a.wav"}, UploadResult{Err: errors.New("HTTP 500")})
	if s.Transcript != "old" || s.Uploading || s.State != Idle {
		t.Fatalf("snapshot = %+v", s)
	}
	got := alerts(effects)
	if len(got) != 1 || got[0].Kind != AlertUploadFailed {
		t.Fatalf("alerts = %+v, want one upload alert", got)
	}
}

func TestTapWhileUploadingIgnored(t *testing.T) {
	s, _ := run(t, Snapshot{State: Recording, Handle: &stubHandle{}}, PrimaryAction{})
	for _, ev := range []Event{PrimaryAction{}, FinalizeResult{Location: "x"}, PrimaryAction{}} {
		var effects []Effect
		s, effects = Transition(s, ev)
		for _, e := range effects {
			switch e.(type) {
			case RequestPermission, Acquire, FinalizeHandle:
				t.Fatalf("tap while uploading produced %#v", e)
			}
		}
	}
	if s.State != Uploading {
		t.Fatalf("state = %v", s.State)
	}
	if s.ActionEnabled() {
		t.Error("action enabled while uploading")
	}
}

func TestStaleResultsIgnored(t *testing.T) {
	idle := Snapshot{Transcript: "keep"}
	for _, ev := range []Event{
		PermissionResult{Granted: true},
		FinalizeResult{Location: "x"},
		UploadResult{Text: "late"},
		AcquireResult{Err: errors.New("late")},
	} {
		s, effects := Transition(idle, ev)
		if s != idle || len(effects) != 0 {
			t.Errorf("%T: snapshot %+v effects %#v", ev, s, effects)
		}
	}

	// A late handle is released rather than leaked.
	h := &stubHandle{}
	_, effects := Transition(idle, AcquireResult{Handle: h})
	if len(effects) != 1 || effects[0] != (DiscardHandle{Handle: h}) {
		t.Errorf("effects = %#v, want DiscardHandle", effects)
	}
}

func TestInvariantUploadingNeverRecording(t *testing.T) {
	events := []Event{
		PrimaryAction{}, PermissionResult{Granted: true}, AcquireResult{Handle: &stubHandle{}},
		PrimaryAction{}, PrimaryAction{}, FinalizeResult{Location: "a"}, PrimaryAction{},
		UploadResult{Text: "t"}, PrimaryAction{}, PermissionResult{Granted: false},
	}
	s := Snapshot{}
	for i, ev := range events {
		s, _ = Transition(s, ev)
		if s.Uploading && s.State == Recording {
			t.Fatalf("step %d: uploading while recording", i)
		}
		if (s.Handle != nil) != (s.State == Recording) {
			t.Fatalf("step %d: handle %v in state %v", i, s.Handle, s.State)
		}
		if s.Uploading != (s.State == Uploading) {
			t.Fatalf("step %d: flag %v in state %v", i, s.Uploading, s.State)
		}
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Idle: "idle", Recording: "recording", Uploading: "uploading", State(9): "unknown"} {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", s, got, want)
		}
	}
}
