package session

import "errors"

var errNilHandle = errors.New("microphone returned no recording")

type step int

const (
	stepNone step = iota
	stepPermission
	stepAcquire
	stepFinalize
	stepUpload
)

// Snapshot is the complete session state. Handle is non-nil only while
// Recording; Uploading mirrors State == Uploading.
type Snapshot struct {
	State      State
	Handle     Handle
	Transcript string
	Uploading  bool

	// Seq counts the events a Machine has processed. Transition leaves it
	// alone.
	Seq uint64

	awaiting step
}

// Starting reports whether a permission request or acquisition is in flight.
func (s Snapshot) Starting() bool {
	return s.awaiting == stepPermission || s.awaiting == stepAcquire
}

// Busy reports whether the loading indicator should be visible.
func (s Snapshot) Busy() bool { return s.Uploading }

func (s Snapshot) ActionLabel() string {
	if s.State == Recording {
		return "Stop recording"
	}
	return "Start recording"
}

// ActionEnabled reports whether the primary action would do anything.
func (s Snapshot) ActionEnabled() bool {
	return s.State == Recording || (s.State == Idle && !s.Starting())
}

type Event interface{ event() }

type PrimaryAction struct{}

type PermissionResult struct {
	Granted bool
	Err     error
}

type AcquireResult struct {
	Handle Handle
	Err    error
}

type FinalizeResult struct {
	Location string
	Err      error
}

type UploadResult struct {
	Text string
	Err  error
}

func (PrimaryAction) event()    {}
func (PermissionResult) event() {}
func (AcquireResult) event()    {}
func (FinalizeResult) event()   {}
func (UploadResult) event()     {}

type Effect interface{ effect() }

type RequestPermission struct{}

type Acquire struct{}

type FinalizeHandle struct{ Handle Handle }

// DiscardHandle releases a handle nobody is waiting for.
type DiscardHandle struct{ Handle Handle }

type Upload struct{ Location string }

type LogError struct {
	Op  string
	Err error
}

type AlertKind int

const (
	AlertPermissionDenied AlertKind = iota + 1
	AlertUploadFailed
)

type Alert struct {
	Kind    AlertKind
	Message string
}

const (
	msgPermissionDenied = "Please allow microphone access to record."
	msgUploadFailed     = "Upload failed, please try again later."
)

func (RequestPermission) effect() {}
func (Acquire) effect()           {}
func (FinalizeHandle) effect()    {}
func (DiscardHandle) effect()     {}
func (Upload) effect()            {}
func (LogError) effect()          {}
func (Alert) effect()             {}

// Transition computes the next snapshot and the effects to perform. Result
// events are accepted only for the step currently awaited; anything else is
// stale and dropped.
func Transition(s Snapshot, ev Event) (Snapshot, []Effect) {
	switch ev := ev.(type) {
	case PrimaryAction:
		switch {
		case s.State == Idle && s.awaiting == stepNone:
			s.awaiting = stepPermission
			return s, []Effect{RequestPermission{}}
		case s.State == Recording:
			h := s.Handle
			s.State = Uploading
			s.Uploading = true
			s.Handle = nil
			s.awaiting = stepFinalize
			return s, []Effect{FinalizeHandle{Handle: h}}
		}
		return s, nil

	case PermissionResult:
		if s.awaiting != stepPermission {
			return s, nil
		}
		if ev.Err != nil {
			s.awaiting = stepNone
			return s, []Effect{
				LogError{Op: "permission", Err: ev.Err},
				Alert{Kind: AlertPermissionDenied, Message: msgPermissionDenied},
			}
		}
		if !ev.Granted {
			s.awaiting = stepNone
			return s, []Effect{Alert{Kind: AlertPermissionDenied, Message: msgPermissionDenied}}
		}
		s.awaiting = stepAcquire
		return s, []Effect{Acquire{}}

	case AcquireResult:
		if s.awaiting != stepAcquire {
			if ev.Handle != nil {
				return s, []Effect{DiscardHandle{Handle: ev.Handle}}
			}
			return s, nil
		}
		s.awaiting = stepNone
		if ev.Err != nil {
			return s, []Effect{LogError{Op: "acquire", Err: ev.Err}}
		}
		if ev.Handle == nil {
			return s, []Effect{LogError{Op: "acquire", Err: errNilHandle}}
		}
		s.State = Recording
		s.Handle = ev.Handle
		return s, nil

	case FinalizeResult:
		if s.awaiting != stepFinalize {
			return s, nil
		}
		s.awaiting = stepUpload
		var effects []Effect
		if ev.Err != nil {
			effects = append(effects, LogError{Op: "finalize", Err: ev.Err})
		}
		return s, append(effects, Upload{Location: ev.Location})

	case UploadResult:
		if s.awaiting != stepUpload {
			return s, nil
		}
		s.State = Idle
		s.Uploading = false
		s.awaiting = stepNone
		if ev.Err != nil {
			return s, []Effect{
				LogError{Op: "upload", Err: ev.Err},
				Alert{Kind: AlertUploadFailed, Message: msgUploadFailed},
			}
		}
		s.Transcript = ev.Text
		return s, nil
	}
	return s, nil
}
