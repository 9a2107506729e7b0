//go:build gui

package gui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"fyne.io/fyne/v2"
)

// micIcon draws the tray dot: red while recording, grey otherwise.
func micIcon(recording bool) fyne.Resource {
	const size = 22
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	core := color.RGBA{120, 120, 120, 255}
	ring := color.RGBA{70, 70, 70, 255}
	name := "idle.png"
	if recording {
		core = color.RGBA{255, 50, 50, 255}
		ring = color.RGBA{80, 20, 20, 255}
		name = "rec.png"
	}

	center := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) - center + 0.5
			dy := float64(y) - center + 0.5
			dist := math.Sqrt(dx*dx + dy*dy)

			switch {
			case dist < 6:
				img.Set(x, y, core)
			case dist < 9:
				img.Set(x, y, ring)
			case dist < 10:
				img.Set(x, y, color.RGBA{40, 10, 10, 255})
			}
		}
	}

	var buf bytes.Buffer
	png.Encode(&buf, img)
	return fyne.NewStaticResource(name, buf.Bytes())
}
