//go:build gui

package main

import (
	"runtime"

	"scribe/gui"
)

var guiApp *gui.App

// guiClosed is closed once the window's event loop has returned.
var guiClosed = make(chan struct{})

func initGUI() {
	guiMode = true

	// Lock this goroutine to OS thread for Fyne/GLFW
	runtime.LockOSThread()

	ran := make(chan struct{})
	guiApp = gui.NewApp(func() {
		defer close(ran)
		run()
		guiApp.Quit()
	})
	err := gui.Run(guiApp)
	close(guiClosed)
	<-ran
	if err != nil {
		panic(err)
	}
}

func guiSink() EventSink { return guiApp }

func attachGUI(a *app) {
	if guiApp != nil {
		guiApp.SetPrimary(a.machine.PrimaryAction)
	}
}
