package capture

import (
	"fmt"
	"image"
	"sync"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/logger"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/window"
)

// WindowCapturer copies the full surface of a single window
type WindowCapturer interface {
	Name() string
	CaptureWindow(h window.Handle) (*image.RGBA, error)
	Close() error
}

// Router routes rectangle grabs to the screen backend and window grabs to
// the platform window capturer
type Router struct {
	screen  *ScreenGrabber
	windows WindowCapturer
	mu      sync.RWMutex
	started bool
}

// NewRouter creates a new capture router
func NewRouter() (*Router, error) {
	return &Router{screen: &ScreenGrabber{}}, nil
}

// NewRouterWith creates a router around an existing window capturer
func NewRouterWith(wc WindowCapturer) *Router {
	return &Router{screen: &ScreenGrabber{}, windows: wc, started: true}
}

// Start initializes the window capturer. Rectangle capture works without it.
func (r *Router) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	log := logger.WithComponent("capture-router")

	wc, err := NewWindowCapturer()
	if err != nil {
		log.Warn().Err(err).Msg("Window capturer not available")
	} else {
		r.windows = wc
		log.Info().Str("backend", wc.Name()).Msg("Window capturer initialized")
	}

	r.started = true
	return nil
}

// Stop releases the window capturer
func (r *Router) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.windows != nil {
		err = r.windows.Close()
		r.windows = nil
	}
	r.started = false
	return err
}

// Name returns the router name
func (r *Router) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.windows != nil {
		return "screen+" + r.windows.Name()
	}
	return "screen"
}

// VirtualScreen returns the rectangle spanning all monitors
func (r *Router) VirtualScreen() (image.Rectangle, error) {
	return r.screen.VirtualScreen()
}

// CaptureRect captures a region of the virtual desktop
func (r *Router) CaptureRect(rect Rect) (*image.RGBA, error) {
	return r.screen.CaptureRect(rect)
}

// CaptureWindow captures a window using the platform capturer
func (r *Router) CaptureWindow(h window.Handle) (*image.RGBA, error) {
	r.mu.RLock()
	wc := r.windows
	r.mu.RUnlock()

	if wc == nil {
		return nil, fmt.Errorf("no capturer available for window %#x", uintptr(h))
	}

	logger.WithComponent("capture-router").Debug().
		Uint64("handle", uint64(h)).
		Str("backend", wc.Name()).
		Msg("Capturing window")
	return wc.CaptureWindow(h)
}

// HasWindowCapture returns true if window capture is available
func (r *Router) HasWindowCapture() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.windows != nil
}
