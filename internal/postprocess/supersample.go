// Package postprocess reduces supersampled renders to their output size.
package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Downsample scales a square supersampled render down to size x size with a
// Catmull-Rom kernel. Filtering happens on premultiplied pixels so transparent
// edges do not pick up dark fringes. Images already at or below size are
// returned as is.
func Downsample(img *image.NRGBA, size int) *image.NRGBA {
	b := img.Bounds()
	if size <= 0 || (b.Dx() <= size && b.Dy() <= size) {
		return img
	}

	rect := image.Rect(0, 0, size, size)

	// RGBA is premultiplied; the scaler converts the NRGBA source into it
	premul := image.NewRGBA(rect)
	draw.CatmullRom.Scale(premul, rect, img, b, draw.Src, nil)

	out := image.NewNRGBA(rect)
	draw.Draw(out, rect, premul, image.Point{}, draw.Src)
	return out
}
