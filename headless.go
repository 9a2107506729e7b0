package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"scribe/audio"
	"scribe/beep"
	"scribe/config"
	"scribe/hotkey"
	"scribe/log"
	"scribe/recorder"
	"scribe/session"
)

const waitLimit = 30 * time.Second

var errQuit = errors.New("quit")

// runTestMode replays wavPath as the microphone and reads commands from
// stdin, one per line:
//
//	TAP         primary action
//	KEYDOWN     press the hotkey
//	KEYUP       release the hotkey
//	WAIT        block until the last TAP or KEYDOWN settled (not starting, not uploading)
//	SLEEP <ms>
//	QUIT
func runTestMode(wavPath string, cfg config.Config, rc recorder.Config, longPress time.Duration) int {
	beep.Disable()

	fake, err := audio.NewFakeContext(wavPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}

	a := newApp(fake, cfg, rc, newLineSink(os.Stdout, false))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hk := hotkey.NewFake()
	go hotkey.Trigger(ctx, hk, longPress, a.recording, func() { a.machine.PrimaryAction() })

	ran := make(chan error, 1)
	go func() { ran <- a.run(ctx) }()

	code := 0
	if err := drive(ctx, a.machine, hk, os.Stdin, waitLimit); err != nil && !errors.Is(err, errQuit) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		log.Errorf("test driver: %v", err)
		code = 1
	}
	cancel()
	<-ran
	a.close()
	return code
}

func settled(s session.Snapshot) bool {
	return !s.Starting() && !s.Busy()
}

func drive(ctx context.Context, m *session.Machine, hk *hotkey.FakeHotkey, r io.Reader, limit time.Duration) error {
	updates := m.Subscribe()
	var mark uint64

	wait := func() error {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		s := m.Snapshot()
		for s.Seq <= mark || !settled(s) {
			select {
			case s = <-updates:
			case <-timer.C:
				return fmt.Errorf("WAIT: still %s after %s", s.State, limit)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch {
		case cmd == "" || strings.HasPrefix(cmd, "#"):
		case cmd == "TAP":
			mark = m.Snapshot().Seq
			m.PrimaryAction()
		case cmd == "KEYDOWN":
			mark = m.Snapshot().Seq
			hk.Press()
		case cmd == "KEYUP":
			hk.Release()
		case cmd == "WAIT":
			if err := wait(); err != nil {
				return err
			}
		case cmd == "QUIT":
			return errQuit
		case strings.HasPrefix(cmd, "SLEEP "):
			ms, err := strconv.Atoi(strings.TrimSpace(cmd[6:]))
			if err != nil {
				return fmt.Errorf("SLEEP: %w", err)
			}
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			return fmt.Errorf("unknown command %q", cmd)
		}
	}
	return scanner.Err()
}
