//go:build windows

package capture

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/window"
	"github.com/lxn/win"
)

// gdiSurfaces implements surfaces with user32/gdi32
type gdiSurfaces struct{}

func (gdiSurfaces) WindowRect(h window.Handle) (image.Rectangle, bool) {
	var r win.RECT
	if !win.GetWindowRect(win.HWND(h), &r) {
		return image.Rectangle{}, false
	}
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)), true
}

func (gdiSurfaces) WindowDC(h window.Handle) (uintptr, error) {
	dc := win.GetDC(win.HWND(h))
	if dc == 0 {
		return 0, fmt.Errorf("GetDC: error %d", win.GetLastError())
	}
	return uintptr(dc), nil
}

func (gdiSurfaces) ReleaseWindowDC(h window.Handle, dc uintptr) {
	win.ReleaseDC(win.HWND(h), win.HDC(dc))
}

func (gdiSurfaces) CompatibleDC(dc uintptr) (uintptr, error) {
	mem := win.CreateCompatibleDC(win.HDC(dc))
	if mem == 0 {
		return 0, fmt.Errorf("CreateCompatibleDC: error %d", win.GetLastError())
	}
	return uintptr(mem), nil
}

func (gdiSurfaces) DeleteDC(mem uintptr) {
	win.DeleteDC(win.HDC(mem))
}

func (gdiSurfaces) CompatibleBitmap(dc uintptr, width, height int) (uintptr, error) {
	bmp := win.CreateCompatibleBitmap(win.HDC(dc), int32(width), int32(height))
	if bmp == 0 {
		return 0, fmt.Errorf("CreateCompatibleBitmap: error %d", win.GetLastError())
	}
	return uintptr(bmp), nil
}

func (gdiSurfaces) DeleteBitmap(bmp uintptr) {
	win.DeleteObject(win.HGDIOBJ(bmp))
}

func (gdiSurfaces) Select(mem, obj uintptr) (uintptr, error) {
	prev := win.SelectObject(win.HDC(mem), win.HGDIOBJ(obj))
	if prev == 0 || prev == 0xffffffff {
		return 0, fmt.Errorf("SelectObject: error %d", win.GetLastError())
	}
	return uintptr(prev), nil
}

func (gdiSurfaces) Blit(dst, src uintptr, width, height int) error {
	if !win.BitBlt(win.HDC(dst), 0, 0, int32(width), int32(height), win.HDC(src), 0, 0, win.SRCCOPY) {
		return fmt.Errorf("BitBlt: error %d", win.GetLastError())
	}
	return nil
}

func (gdiSurfaces) ReadPixels(dc, bmp uintptr, width, height int) ([]byte, error) {
	bmi := win.BITMAPINFO{
		BmiHeader: win.BITMAPINFOHEADER{
			BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
			BiWidth:       int32(width),
			BiHeight:      int32(-height), // negative height: top-down rows
			BiPlanes:      1,
			BiBitCount:    32,
			BiCompression: win.BI_RGB,
		},
	}

	pixels := make([]byte, width*height*4)
	lines := win.GetDIBits(win.HDC(dc), win.HBITMAP(bmp), 0, uint32(height),
		&pixels[0], &bmi, win.DIB_RGB_COLORS)
	if lines == 0 {
		return nil, fmt.Errorf("GetDIBits: error %d", win.GetLastError())
	}
	return pixels, nil
}

// GDICapturer captures windows through a device-context blit
type GDICapturer struct{}

// NewWindowCapturer returns the platform window capturer
func NewWindowCapturer() (WindowCapturer, error) {
	return GDICapturer{}, nil
}

// Name returns the capturer name
func (GDICapturer) Name() string {
	return "gdi"
}

// CaptureWindow copies the window's device context into an RGBA image
func (GDICapturer) CaptureWindow(h window.Handle) (*image.RGBA, error) {
	return captureWindowGDI(gdiSurfaces{}, h)
}

// Close is a no-op; every capture releases its own handles
func (GDICapturer) Close() error {
	return nil
}
