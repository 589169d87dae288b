package capture

import (
	"errors"
	"image"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/window"
)

var (
	// ErrInvalidRect is returned when a rectangle fails Validate
	ErrInvalidRect = errors.New("capture rectangle is outside the virtual desktop")

	// ErrEmptyTitle is returned for a window capture without a title query
	ErrEmptyTitle = errors.New("window title is empty")

	// ErrWindowNotFound is returned when no window matches, or the handle is null
	ErrWindowNotFound = window.ErrWindowNotFound

	// ErrWindowRectUnavailable is returned when the OS cannot report window bounds
	ErrWindowRectUnavailable = errors.New("window bounds unavailable")
)

// Grabber produces raw 32bpp bitmaps from the screen or from a window
type Grabber interface {
	// VirtualScreen returns the rectangle spanning all monitors
	VirtualScreen() (image.Rectangle, error)

	// CaptureRect copies the screen contents under r. Callers must have
	// checked r with Validate first.
	CaptureRect(r Rect) (*image.RGBA, error)

	// CaptureWindow copies the full surface of the window behind h
	CaptureWindow(h window.Handle) (*image.RGBA, error)

	// Name returns a human-readable name for this grabber
	Name() string
}

// Locator finds a visible top-level window by partial title
type Locator interface {
	FindByTitle(query string) (window.Handle, error)
}

// bgraToRGBA converts tightly packed BGRA rows into an opaque RGBA image
func bgraToRGBA(data []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	n := width * height * 4
	if len(data) < n {
		n = len(data) - len(data)%4
	}
	for i := 0; i < n; i += 4 {
		img.Pix[i+0] = data[i+2]
		img.Pix[i+1] = data[i+1]
		img.Pix[i+2] = data[i+0]
		img.Pix[i+3] = 255
	}
	return img
}
