package library

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	placeholderBackground = color.RGBA{0x44, 0x44, 0x44, 0xff}
	placeholderText       = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

// Placeholder draws a size x size tile with label centered on it, used in
// place of a thumbnail for files that could not be decoded. The label is
// cut short to fit.
func Placeholder(size int, label string) *image.RGBA {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(placeholderBackground), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(placeholderText),
		Face: face,
	}

	runes := []rune(label)
	for len(runes) > 0 && d.MeasureString(string(runes)).Ceil() > size-4 {
		runes = runes[:len(runes)-1]
	}
	text := string(runes)

	width := d.MeasureString(text).Ceil()
	d.Dot = fixed.Point26_6{
		X: fixed.I((size - width) / 2),
		Y: fixed.I((size + face.Ascent - face.Descent) / 2),
	}
	d.DrawString(text)
	return img
}
