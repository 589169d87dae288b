//go:build windows

package window

import (
	"errors"
	"image"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

var procGetWindowTextW = windows.NewLazySystemDLL("user32.dll").NewProc("GetWindowTextW")

// syscall.NewCallback slots are never freed, so one trampoline serves every enumeration
var (
	enumMu       sync.Mutex
	enumVisit    func(windows.HWND) bool
	enumCallback = syscall.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		if enumVisit(hwnd) {
			return 1
		}
		return 0
	})
)

// Win32Enumerator walks top-level windows with EnumWindows
type Win32Enumerator struct{}

// NewWin32Enumerator returns the Win32 backend
func NewWin32Enumerator() *Win32Enumerator {
	return &Win32Enumerator{}
}

// Name returns the backend name
func (e *Win32Enumerator) Name() string {
	return "win32"
}

// Close is a no-op; EnumWindows holds nothing open
func (e *Win32Enumerator) Close() error {
	return nil
}

// Enumerate visits windows in EnumWindows (Z) order
func (e *Win32Enumerator) Enumerate(visit func(Info) bool) error {
	enumMu.Lock()
	defer enumMu.Unlock()

	stopped := false
	enumVisit = func(hwnd windows.HWND) bool {
		if !visit(win32Info(hwnd)) {
			stopped = true
			return false
		}
		return true
	}
	defer func() { enumVisit = nil }()

	err := windows.EnumWindows(enumCallback, nil)
	if stopped {
		// EnumWindows reports FALSE when the callback ends it early
		return nil
	}
	if err != nil && !errors.Is(err, windows.ERROR_SUCCESS) {
		return err
	}
	return nil
}

func win32Info(hwnd windows.HWND) Info {
	info := Info{
		Handle:  Handle(hwnd),
		Visible: windows.IsWindowVisible(hwnd),
	}

	buf := make([]uint16, 256)
	if n, _, _ := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf))); n > 0 {
		info.Title = windows.UTF16ToString(buf[:n])
	}
	if n, err := windows.GetClassName(hwnd, &buf[0], int32(len(buf))); err == nil && n > 0 {
		info.Class = windows.UTF16ToString(buf[:n])
	}

	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err == nil {
		info.PID = int(pid)
	}

	var r win.RECT
	if win.GetWindowRect(win.HWND(hwnd), &r) {
		info.Bounds = image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom))
	}
	return info
}
