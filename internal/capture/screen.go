package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// ScreenGrabber reads the virtual desktop through the platform screen API
type ScreenGrabber struct{}

// VirtualScreen returns the union of all active display bounds
func (ScreenGrabber) VirtualScreen() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}

// CaptureRect grabs r, measured from the top-left corner of the virtual desktop
func (g ScreenGrabber) CaptureRect(r Rect) (*image.RGBA, error) {
	desktop, err := g.VirtualScreen()
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(r.Bounds().Add(desktop.Min))
	if err != nil {
		return nil, fmt.Errorf("failed to capture %v: %w", r, err)
	}
	return normalizeRGBA(img), nil
}

// normalizeRGBA rebases img to the origin and forces full alpha
func normalizeRGBA(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		copy(dst[:b.Dx()*4], src[:b.Dx()*4])
	}
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}
	return out
}
