//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

// Cocoa and Win32 deliver hotkey and window events on the process's first
// thread, so main keeps it.
func init() { runtime.LockOSThread() }

func main() {
	if wantsGUI() {
		initGUI()
		return
	}
	mainthread.Init(run)
}
