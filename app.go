package main

import (
	"context"
	"sync"

	"scribe/audio"
	"scribe/beep"
	"scribe/config"
	"scribe/log"
	"scribe/recorder"
	"scribe/session"
	"scribe/transcriber"
)

// app wires the session machine to the real microphone, the HTTP client
// and whichever display is active.
type app struct {
	cfg     config.Config
	mic     *recorder.Mic
	client  *transcriber.Client
	machine *session.Machine
	sink    EventSink

	mu          sync.Mutex
	transcripts int
}

func newApp(actx audio.Context, cfg config.Config, rc recorder.Config, sink EventSink) *app {
	rc.Device = cfg.Device
	rc.Format = cfg.Format

	a := &app{cfg: cfg, sink: sink}
	a.mic = recorder.New(actx, rc)
	a.client = transcriber.New(cfg.APIBaseURL,
		transcriber.WithFormat(cfg.Format),
		transcriber.WithObserver(a.onUpload),
	)
	a.machine = session.New(a.mic, a.client, session.NotifierFunc(a.onAlert),
		session.WithErrorLog(func(op string, err error) {
			log.Errorf("%s error: %v", op, err)
		}),
		session.WithUploadTimeout(cfg.UploadTimeout),
	)
	return a
}

func (a *app) onAlert(al session.Alert) {
	if a.cfg.Beep {
		beep.Play(beep.Error)
	}
	log.Warn("alert: " + al.Message)
	a.sink.Alert(al.Message)
}

func (a *app) onUpload(r transcriber.Result) {
	m := log.UploadMetrics{
		Filename: r.Filename,
		Format:   a.cfg.Format,
		AudioKB:  float64(r.AudioBytes) / 1024,
		Status:   r.StatusCode,
		Err:      r.Err,
	}
	if nm := r.Metrics; nm != nil {
		m.ConnReused = nm.ConnReused
		m.TLSProto = nm.TLSProtocol
		m.DNSMs = float64(nm.DNS.Microseconds()) / 1000
		m.TLSMs = float64(nm.TLS.Microseconds()) / 1000
		m.TTFBMs = float64(nm.TTFB.Microseconds()) / 1000
		m.TotalMs = float64(nm.Sum().Microseconds()) / 1000
	}
	log.Upload(m)
	a.sink.Metrics(r.MetricsLines())

	if r.Err == nil {
		a.mu.Lock()
		a.transcripts++
		a.mu.Unlock()
		log.TranscriptionText(r.Text)
	}
}

func (a *app) recording() bool {
	return a.machine.Snapshot().State == session.Recording
}

func (a *app) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transcripts
}

// watch forwards snapshots to the sink and handles the side channels of a
// state change: logging and beeps. A snapshot still pending at shutdown is
// delivered before returning.
func (a *app) watch(ctx context.Context, updates <-chan session.Snapshot) {
	var prev session.Snapshot
	var rec *recorder.Recording
	observe := func(s session.Snapshot) {
		log.Transition(prev.State.String(), s.State.String())
		if a.cfg.Beep {
			switch {
			case s.State == session.Recording && prev.State != session.Recording:
				beep.Play(beep.Start)
			case s.State != session.Recording && prev.State == session.Recording:
				beep.Play(beep.End)
			}
		}

		// A recording is only finalized once the upload has finished.
		r, _ := s.Handle.(*recorder.Recording)
		if rec != nil && r != rec && s.State != session.Uploading {
			log.Recording(rec.Device(), rec.AudioLength(), rec.Elapsed(), rec.Frames())
			rec = nil
		}
		if r != nil {
			rec = r
		}

		a.sink.Snapshot(s)
		prev = s
	}

	for {
		select {
		case <-ctx.Done():
			select {
			case s := <-updates:
				observe(s)
			default:
			}
			return
		case s := <-updates:
			observe(s)
		}
	}
}

// run blocks until ctx is cancelled.
func (a *app) run(ctx context.Context) error {
	a.sink.ModeLine(modeLineText(a.cfg.Format, a.client.BaseURL()))
	a.sink.DeviceLine(deviceLineText(a.cfg.Device))

	updates := a.machine.Subscribe()
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		a.watch(ctx, updates)
	}()
	err := a.machine.Run(ctx)
	<-watched
	return err
}

func (a *app) close() {
	if err := a.mic.Cleanup(); err != nil {
		log.Warnf("cleanup: %v", err)
	}
	log.SessionEnd(a.count())
}
