package capture

import (
	"fmt"
	"image"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/window"
)

// surfaces is the device-context API used to copy a window into a bitmap.
// Every acquire has a matching release; captureWindowGDI pairs them.
type surfaces interface {
	WindowRect(h window.Handle) (image.Rectangle, bool)

	WindowDC(h window.Handle) (uintptr, error)
	ReleaseWindowDC(h window.Handle, dc uintptr)

	CompatibleDC(dc uintptr) (uintptr, error)
	DeleteDC(mem uintptr)

	CompatibleBitmap(dc uintptr, width, height int) (uintptr, error)
	DeleteBitmap(bmp uintptr)

	// Select puts obj into mem and returns the object it replaced
	Select(mem, obj uintptr) (uintptr, error)

	Blit(dst, src uintptr, width, height int) error

	// ReadPixels returns top-down BGRA rows of bmp, which must not be
	// selected into any DC
	ReadPixels(dc, bmp uintptr, width, height int) ([]byte, error)
}

// captureWindowGDI copies the whole window surface of h. Each handle is
// released by its own defer, so every exit path frees them in reverse order:
// selected object, bitmap, memory DC, window DC. The bitmap is deselected
// before its pixels are read.
func captureWindowGDI(s surfaces, h window.Handle) (*image.RGBA, error) {
	if !h.Valid() {
		return nil, ErrWindowNotFound
	}

	rect, ok := s.WindowRect(h)
	if !ok {
		return nil, ErrWindowRectUnavailable
	}
	width, height := rect.Dx(), rect.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: empty bounds %v", ErrWindowRectUnavailable, rect)
	}

	windowDC, err := s.WindowDC(h)
	if err != nil {
		return nil, fmt.Errorf("failed to get window DC: %w", err)
	}
	defer s.ReleaseWindowDC(h, windowDC)

	memDC, err := s.CompatibleDC(windowDC)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory DC: %w", err)
	}
	defer s.DeleteDC(memDC)

	bitmap, err := s.CompatibleBitmap(windowDC, width, height)
	if err != nil {
		return nil, fmt.Errorf("failed to create bitmap: %w", err)
	}
	defer s.DeleteBitmap(bitmap)

	if err := blitInto(s, memDC, windowDC, bitmap, width, height); err != nil {
		return nil, err
	}

	pixels, err := s.ReadPixels(memDC, bitmap, width, height)
	if err != nil {
		return nil, fmt.Errorf("failed to read bitmap: %w", err)
	}
	return bgraToRGBA(pixels, width, height), nil
}

// blitInto selects bitmap into memDC, copies the window surface into it and
// restores the previous object before returning.
func blitInto(s surfaces, memDC, windowDC, bitmap uintptr, width, height int) error {
	previous, err := s.Select(memDC, bitmap)
	if err != nil {
		return fmt.Errorf("failed to select bitmap: %w", err)
	}
	defer s.Select(memDC, previous)

	if err := s.Blit(memDC, windowDC, width, height); err != nil {
		return fmt.Errorf("failed to copy window surface: %w", err)
	}
	return nil
}
