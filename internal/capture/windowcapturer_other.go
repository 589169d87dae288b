//go:build !windows

package capture

// NewWindowCapturer returns the platform window capturer
func NewWindowCapturer() (WindowCapturer, error) {
	c, err := NewX11Capturer()
	if err != nil {
		return nil, err
	}
	return c, nil
}
