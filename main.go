package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"scribe/audio"
	"scribe/beep"
	"scribe/clipboard"
	"scribe/config"
	"scribe/doctor"
	"scribe/hotkey"
	"scribe/log"
	"scribe/recorder"
	"scribe/shutdown"
	"scribe/transcriber"
)

var version = "dev"

// guiMode is set before run when the Fyne window owns the main thread.
var guiMode bool

// wantsGUI scans the raw arguments for -gui. It runs before flag parsing
// because the window has to claim the main thread first.
func wantsGUI() bool {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "-gui", "--gui", "-gui=true", "--gui=true":
			return true
		}
	}
	return false
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func run() {
	configFlag := flag.String("config", "", "Config file (default: "+config.DefaultPath()+")")
	envFlag := flag.String("env", ".env", "dotenv file with SCRIBE_* variables")
	urlFlag := flag.String("url", "", "Transcription service base URL")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	formatFlag := flag.String("format", "", "Recording format: wav or flac")
	timeoutFlag := flag.Duration("timeout", 0, "Upload timeout (0 = none)")
	beepFlag := flag.Bool("beep", true, "Play start/stop/error sounds")
	hotkeyFlag := flag.Bool("hotkey", true, "Register the global shortcut")
	shortcutFlag := flag.String("shortcut", "", "Global shortcut, e.g. ctrl+shift+space")
	longPressFlag := flag.Duration("longpress", 350*time.Millisecond, "Hold the hotkey this long for push-to-talk (0 = toggle only)")
	keepFlag := flag.Bool("keep", false, "Keep recordings on disk after exit")
	dirFlag := flag.String("dir", "", "Directory for recordings (default: system temp)")
	gainFlag := flag.Int("gain", 0, "Software capture gain multiplier for backends without hardware volume")
	denyFlag := flag.Bool("deny-mic", false, "Refuse microphone permission (for testing)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	flag.Bool("gui", false, "Run with desktop window (requires -tags gui)")
	flag.Parse()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *versionFlag {
		fmt.Printf("scribe %s\n", version)
		os.Exit(0)
	}

	cfg, cfgErr := config.Load(*configFlag, *envFlag)
	if cfgErr == nil {
		flag.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "url":
				cfg.APIBaseURL = *urlFlag
			case "device":
				cfg.Device = *deviceFlag
			case "format":
				cfg.Format = *formatFlag
			case "timeout":
				cfg.UploadTimeout = *timeoutFlag
			case "beep":
				cfg.Beep = *beepFlag
			case "hotkey":
				cfg.Hotkey = *hotkeyFlag
			case "shortcut":
				cfg.Shortcut = *shortcutFlag
			}
		})
		cfgErr = cfg.Validate()
	}

	rc := recorder.Config{
		Device: cfg.Device,
		Format: cfg.Format,
		Dir:    *dirFlag,
		Gain:   *gainFlag,
		Deny:   *denyFlag,
		Keep:   *keepFlag,
	}

	if *doctorFlag {
		os.Exit(runDoctor(cfg, cfgErr, rc))
	}

	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cfgErr)
		os.Exit(1)
	}

	if !*tuiFlag && !guiMode && !*testFlag {
		log.Mirror(os.Stderr)
	}
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	log.SessionStart(cfg.APIBaseURL, cfg.Format, cfg.Device)

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: scribe -test <wav-file>")
			os.Exit(1)
		}
		code := runTestMode(args[0], cfg, rc, *longPressFlag)
		log.Close()
		os.Exit(code)
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	if *setupFlag && cfg.Device == "" {
		dev, err := audio.SelectDevice(actx)
		switch {
		case err == nil:
			cfg.Device = dev.Name
		case errors.Is(err, audio.ErrSelectionAborted):
			os.Exit(0)
		default:
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
		}
	}

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	if cfg.Beep {
		go beep.Init()
	} else {
		beep.Disable()
	}

	var sink EventSink
	switch {
	case guiMode:
		sink = guiSink()
		go func() {
			<-guiClosed
			stop()
		}()
	case *tuiFlag:
		sink = tuiSink{}
	default:
		sink = newLineSink(os.Stdout, true)
	}

	a := newApp(actx, cfg, rc, sink)
	defer a.close()
	attachGUI(a)

	binding, _ := hotkey.Parse(cfg.Shortcut)
	hotkeyLabel := ""
	if cfg.Hotkey {
		if hk, err := registerHotkey(binding); err != nil {
			log.Warnf("hotkey register error: %v", err)
			if !*tuiFlag {
				fmt.Printf("Warning: hotkey unavailable: %v\n", err)
			}
		} else {
			defer hk.Unregister()
			hotkeyLabel = binding.String()
			go hotkey.Trigger(ctx, hk, *longPressFlag, a.recording, func() {
				log.Info("hotkey")
				a.machine.PrimaryAction()
			})
		}
	}

	if *tuiFlag && !guiMode {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram(a.machine.PrimaryAction, clipboard.Copy, hotkeyLabel)
		tuiMu.Unlock()

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
			stop()
		}()
	}

	if err := a.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("session: %v", err)
	}
	if tuiProgram != nil {
		tuiProgram.Quit()
	}
}

func registerHotkey(b hotkey.Binding) (hotkey.Hotkey, error) {
	hk, err := hotkey.New(b)
	if err != nil {
		return nil, err
	}
	if err := hk.Register(); err != nil {
		return nil, err
	}
	return hk, nil
}

func runDoctor(cfg config.Config, cfgErr error, rc recorder.Config) int {
	binding, _ := hotkey.Parse(cfg.Shortcut)
	opts := doctor.Options{
		ConfigErr: cfgErr,
		Hotkey:    func() (string, error) { return hotkey.Diagnose(binding) },
	}
	if cfgErr == nil {
		actx, err := audio.NewContext()
		if err != nil {
			fmt.Printf("Error initializing audio context: %v\n", err)
			return 1
		}
		defer actx.Close()
		rc.Keep = false
		mic := recorder.New(actx, rc)
		defer mic.Cleanup()
		opts.Audio = actx
		opts.Mic = mic
		opts.Client = transcriber.New(cfg.APIBaseURL, transcriber.WithFormat(cfg.Format))
	}
	return doctor.Run(context.Background(), opts)
}
