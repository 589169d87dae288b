//go:build windows

package window

// NewEnumerator returns the platform window enumerator
func NewEnumerator() (Enumerator, error) {
	return NewWin32Enumerator(), nil
}
