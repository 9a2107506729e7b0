//go:build !gui

package main

// Never closed: guiMode is always false without the gui tag.
var guiClosed chan struct{}

func initGUI() {
	panic("scribe: built without GUI support (rebuild with -tags gui)")
}

func guiSink() EventSink { return nil }

func attachGUI(*app) {}
