package capture

import (
	"fmt"
	"image"
)

// Rect is a capture rectangle in virtual-desktop coordinates
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Bounds converts r to an image.Rectangle
func (r Rect) Bounds() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.Left, r.Top)
}

// Validate reports whether r is a capturable rectangle on a virtual desktop of
// screenWidth x screenHeight. It is the only place that decides this.
func Validate(r Rect, screenWidth, screenHeight int) bool {
	switch {
	case r.Left < 0, r.Top < 0:
		return false
	case r.Width <= 0, r.Height <= 0:
		return false
	case r.Left+r.Width > screenWidth, r.Top+r.Height > screenHeight:
		return false
	}
	return true
}
