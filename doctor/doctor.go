// Package doctor runs the end-to-end self check behind -doctor: config,
// capture devices, permission, a short test recording and a real upload.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"scribe/audio"
	"scribe/clipboard"
	"scribe/recorder"
	"scribe/session"
	"scribe/transcriber"
)

type Options struct {
	ConfigErr error
	Audio     audio.Context
	Mic       session.Microphone
	Client    *transcriber.Client
	RecordFor time.Duration
	// Hotkey reports whether the global shortcut can be registered. Optional.
	Hotkey func() (string, error)
	Out    io.Writer
}

type checker struct {
	out   io.Writer
	step  int
	total int
}

func (c *checker) header(name string) {
	c.step++
	fmt.Fprintf(c.out, "\n[%d/%d] %s\n", c.step, c.total, name)
}

func (c *checker) pass(format string, args ...any) {
	fmt.Fprintf(c.out, "  PASS: "+format+"\n", args...)
}

func (c *checker) fail(format string, args ...any) bool {
	fmt.Fprintf(c.out, "  FAIL: "+format+"\n", args...)
	return false
}

func (c *checker) warn(format string, args ...any) {
	fmt.Fprintf(c.out, "  WARN: "+format+"\n", args...)
}

// Run executes the checks in order, stopping at the first failure, and
// returns an exit code (0=all pass, 1=any fail). Hotkey and clipboard
// problems are reported as warnings only.
func Run(ctx context.Context, opts Options) int {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if opts.RecordFor <= 0 {
		opts.RecordFor = 2 * time.Second
	}
	c := &checker{out: out, total: 6}

	fmt.Fprintln(out, "scribe doctor - system diagnostics")
	fmt.Fprintln(out, "==================================")

	var location string
	allPass := c.checkConfig(opts) &&
		c.checkDevices(opts) &&
		c.checkPermission(ctx, opts) &&
		c.checkRecording(ctx, opts, &location) &&
		c.checkUpload(ctx, opts, location)
	c.checkDesktop(opts)

	fmt.Fprintln(out)
	if allPass {
		fmt.Fprintln(out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(out, "Some checks failed. See details above.")
	return 1
}

func (c *checker) checkConfig(opts Options) bool {
	c.header("Configuration")
	if opts.ConfigErr != nil {
		return c.fail("%v", opts.ConfigErr)
	}
	if opts.Client == nil {
		return c.fail("no transcription endpoint configured")
	}
	c.pass("endpoint %s", opts.Client.Endpoint())
	return true
}

func (c *checker) checkDevices(opts Options) bool {
	c.header("Capture devices")
	if opts.Audio == nil {
		return c.fail("cannot connect to audio")
	}
	devices, err := opts.Audio.Devices()
	if err != nil {
		return c.fail("cannot list devices: %v", err)
	}
	if len(devices) == 0 {
		return c.fail("%v", recorder.ErrNoDevices)
	}
	for _, d := range devices {
		note := ""
		if audio.IsBluetooth(d.Name) {
			note = " (bluetooth, may be low quality)"
		}
		fmt.Fprintf(c.out, "  - %s%s\n", d.Name, note)
	}
	c.pass("%d device(s)", len(devices))
	return true
}

func (c *checker) checkPermission(ctx context.Context, opts Options) bool {
	c.header("Microphone permission")
	granted, err := opts.Mic.RequestPermission(ctx)
	if err != nil {
		return c.fail("%v", err)
	}
	if !granted {
		return c.fail("microphone access denied (check -device and -deny-mic)")
	}
	c.pass("granted")
	return true
}

func (c *checker) checkRecording(ctx context.Context, opts Options, location *string) bool {
	c.header("Test recording")
	fmt.Fprintf(c.out, "  Recording %.0fs, speak now", opts.RecordFor.Seconds())

	h, err := opts.Mic.Acquire(ctx)
	if err != nil {
		fmt.Fprintln(c.out)
		return c.fail("%v", err)
	}

	timer := time.NewTimer(opts.RecordFor)
	ticker := time.NewTicker(500 * time.Millisecond)
loop:
	for {
		select {
		case <-ticker.C:
			fmt.Fprint(c.out, ".")
		case <-timer.C:
			break loop
		case <-ctx.Done():
			break loop
		}
	}
	ticker.Stop()
	timer.Stop()
	fmt.Fprintln(c.out, " done")

	loc, err := session.Finalize(h)
	if err != nil {
		return c.fail("finishing recording: %v", err)
	}
	info, err := os.Stat(loc)
	if err != nil {
		return c.fail("%v", err)
	}
	if rec, ok := h.(*recorder.Recording); ok && rec.Frames() == 0 {
		return c.fail("no audio captured")
	}
	*location = loc
	c.pass("%.1f KB at %s", float64(info.Size())/1024, loc)
	return true
}

func (c *checker) checkUpload(ctx context.Context, opts Options, location string) bool {
	c.header("Transcription endpoint")
	code, err := opts.Client.Probe(ctx)
	if err != nil {
		return c.fail("%s unreachable: %v", opts.Client.BaseURL(), err)
	}
	fmt.Fprintf(c.out, "  reachable: HEAD %s -> %d\n", opts.Client.BaseURL(), code)

	res := opts.Client.Transcribe(ctx, location)
	for _, line := range res.MetricsLines() {
		fmt.Fprintf(c.out, "  %s\n", line)
	}
	if res.Err != nil {
		var se *transcriber.StatusError
		if errors.As(res.Err, &se) {
			return c.fail("HTTP %d from %s: %s", se.Code, opts.Client.Endpoint(), se.Body)
		}
		return c.fail("%v", res.Err)
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		text = "(no speech detected)"
	}
	c.pass("HTTP %d, transcript: %s", res.StatusCode, text)
	return true
}

func (c *checker) checkDesktop(opts Options) {
	c.header("Desktop integration")
	if opts.Hotkey != nil {
		if msg, err := opts.Hotkey(); err != nil {
			c.warn("hotkey: %v", err)
		} else {
			fmt.Fprintf(c.out, "  hotkey: %s\n", msg)
		}
	}
	if err := clipboard.Available(); err != nil {
		c.warn("clipboard: %v", err)
	} else {
		fmt.Fprintln(c.out, "  clipboard: available")
	}
}
