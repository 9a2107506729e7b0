//go:build linux

package main

func main() {
	if wantsGUI() {
		initGUI()
		return
	}
	run()
}
