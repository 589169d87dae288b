package window

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

var (
	// ErrInvalidQuery is returned for empty or whitespace-only title queries
	ErrInvalidQuery = errors.New("window title query is empty")

	// ErrWindowNotFound is returned when no visible window matches, or a handle is null
	ErrWindowNotFound = errors.New("window not found")
)

// Handle identifies a top-level window (an X11 window ID or a Win32 HWND).
// The zero value never refers to a window.
type Handle uintptr

// Valid reports whether h can refer to a window at all
func (h Handle) Valid() bool {
	return h != 0
}

// Info describes a top-level window as reported by the OS
type Info struct {
	Handle  Handle          `json:"handle"`
	Title   string          `json:"title"`
	Class   string          `json:"class,omitempty"`
	PID     int             `json:"pid,omitempty"`
	Visible bool            `json:"visible"`
	Bounds  image.Rectangle `json:"bounds"`
}

// Enumerator walks the top-level windows in OS-defined order.
// Enumerate stops as soon as visit returns false.
type Enumerator interface {
	Enumerate(visit func(Info) bool) error

	// Name returns the backend name (e.g., "x11", "win32")
	Name() string

	// Close releases the display connection
	Close() error
}

// FindByTitle returns the first visible window whose title contains query,
// ignoring case. Enumeration stops at the first match, so the result depends on
// the OS enumeration order rather than on match quality.
func FindByTitle(e Enumerator, query string) (Handle, error) {
	if strings.TrimSpace(query) == "" {
		return 0, ErrInvalidQuery
	}

	needle := strings.ToLower(query)
	var found Handle
	err := e.Enumerate(func(info Info) bool {
		if info.Visible && strings.Contains(strings.ToLower(info.Title), needle) {
			found = info.Handle
			return false
		}
		return true
	})
	if found.Valid() {
		return found, nil
	}
	if err != nil {
		return 0, err
	}
	return 0, ErrWindowNotFound
}

// List returns every visible window that has a title
func List(e Enumerator) ([]Info, error) {
	windows := make([]Info, 0)
	err := e.Enumerate(func(info Info) bool {
		if info.Visible && info.Title != "" {
			windows = append(windows, info)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return windows, nil
}

// Locator adapts an Enumerator to the single-method lookup used by captures
type Locator struct {
	Enumerator Enumerator
}

// FindByTitle implements capture-side window lookup
func (l Locator) FindByTitle(query string) (Handle, error) {
	if l.Enumerator == nil {
		if strings.TrimSpace(query) == "" {
			return 0, ErrInvalidQuery
		}
		return 0, fmt.Errorf("%w: window enumeration not available", ErrWindowNotFound)
	}
	return FindByTitle(l.Enumerator, query)
}
