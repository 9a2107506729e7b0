// Package session implements the record → stop → upload state machine behind
// the single primary action.
//
// Transition is a pure function over Snapshot; Machine owns the live snapshot,
// serializes events through one goroutine and performs the effects that
// Transition asks for.
package session

import (
	"context"
	"errors"
)

type State int

const (
	Idle State = iota
	Recording
	Uploading
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Uploading:
		return "uploading"
	}
	return "unknown"
}

// Handle is an exclusively owned, active recording. Stop ends capture and
// releases the device and file; Location reports where the finished audio
// lives and is only meaningful after Stop.
type Handle interface {
	Stop() error
	Location() (string, error)
}

type Microphone interface {
	RequestPermission(ctx context.Context) (bool, error)
	// Acquire configures the audio subsystem for recording and starts a
	// new recording.
	Acquire(ctx context.Context) (Handle, error)
}

// Uploader sends the audio at location to the transcription service and
// returns the transcript.
type Uploader interface {
	Upload(ctx context.Context, location string) (string, error)
}

type Notifier interface {
	Alert(a Alert)
}

type NotifierFunc func(a Alert)

func (f NotifierFunc) Alert(a Alert) { f(a) }

// Finalize stops h and then asks for its location. The stop always happens
// first, so the device is released even when the location lookup fails.
func Finalize(h Handle) (string, error) {
	stopErr := h.Stop()
	loc, locErr := h.Location()
	return loc, errors.Join(stopErr, locErr)
}
