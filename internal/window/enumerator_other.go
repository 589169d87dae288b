//go:build !windows

package window

// NewEnumerator returns the platform window enumerator
func NewEnumerator() (Enumerator, error) {
	e, err := NewX11Enumerator()
	if err != nil {
		return nil, err
	}
	return e, nil
}
