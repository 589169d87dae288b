package capture

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/config"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/logger"
)

// FileExtension is the only format captures are written in
const FileExtension = ".png"

// StemLayout is the timestamp format for unnamed captures
const StemLayout = "20060102150405"

// Now is the clock used for default stems
var Now = time.Now

// Spec selects what to capture. It is either a RectSpec or a WindowSpec.
type Spec interface {
	isSpec()
	Kind() config.CaptureType
}

// RectSpec captures a fixed rectangle of the virtual desktop
type RectSpec struct {
	Rect Rect
}

// WindowSpec captures the first visible window whose title contains TitleQuery
type WindowSpec struct {
	TitleQuery string
}

func (RectSpec) isSpec()   {}
func (WindowSpec) isSpec() {}

// Kind returns the settings name of the strategy
func (RectSpec) Kind() config.CaptureType { return config.CaptureTypeScreenRect }

// Kind returns the settings name of the strategy
func (WindowSpec) Kind() config.CaptureType { return config.CaptureTypeWindow }

// State tracks an Item through a single capture
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Item is one capture request: what to grab and where it will be stored
type Item struct {
	Spec      Spec
	FileStem  string
	SubFolder string

	state State
	err   error
}

// NewItem builds an Item. An empty stem defaults to the current timestamp.
func NewItem(spec Spec, stem, subFolder string) *Item {
	stem = strings.TrimSpace(stem)
	if stem == "" {
		stem = Now().Format(StemLayout)
	}
	// "shot.png" and "shot" name the same file
	if strings.EqualFold(filepath.Ext(stem), FileExtension) {
		stem = stem[:len(stem)-len(FileExtension)]
	}
	return &Item{
		Spec:      spec,
		FileStem:  stem,
		SubFolder: strings.TrimSpace(subFolder),
	}
}

// SpecFromSettings returns the default spec stored in the project settings
func SpecFromSettings(s *config.ProjectSettings) Spec {
	if s.CaptureType == config.CaptureTypeWindow {
		return WindowSpec{TitleQuery: s.CaptureWindowTitle}
	}
	return RectSpec{Rect: Rect{
		Left:   s.Capture.Left,
		Top:    s.Capture.Top,
		Width:  s.Capture.Width,
		Height: s.Capture.Height,
	}}
}

// ItemFromSettings builds an Item from the project defaults
func ItemFromSettings(s *config.ProjectSettings, stem, subFolder string) *Item {
	return NewItem(SpecFromSettings(s), stem, subFolder)
}

// State returns where the item is in its capture lifecycle
func (it *Item) State() State {
	return it.state
}

// Err returns the failure reason once State is StateFailed
func (it *Item) Err() error {
	return it.err
}

// ResolvedFilePath returns rootFolder[/SubFolder]/FileStem.png without touching the OS
func (it *Item) ResolvedFilePath(rootFolder string) string {
	dir := rootFolder
	if it.SubFolder != "" {
		dir = filepath.Join(dir, it.SubFolder)
	}
	return filepath.Join(dir, it.FileStem+FileExtension)
}

// ValidStem reports whether stem can be used as a file name in a single folder
func ValidStem(stem string) error {
	switch {
	case strings.TrimSpace(stem) == "":
		return fmt.Errorf("file name must not be empty")
	case strings.ContainsAny(stem, `/\`):
		return fmt.Errorf("file name must not contain path separators: %q", stem)
	case stem == "." || stem == "..":
		return fmt.Errorf("invalid file name: %q", stem)
	}
	return nil
}

// Capture runs the item's strategy. Validation failures return before any OS
// resource is touched.
func (it *Item) Capture(g Grabber, l Locator) (*image.RGBA, error) {
	it.state = StateCapturing
	it.err = nil

	img, err := it.capture(g, l)
	if err != nil {
		it.state = StateFailed
		it.err = err
		logger.WithComponent("capture").Debug().
			Err(err).
			Str("kind", kindOf(it.Spec)).
			Msg("Capture failed")
		return nil, err
	}

	it.state = StateSucceeded
	logger.WithComponent("capture").Debug().
		Str("kind", kindOf(it.Spec)).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("Capture succeeded")
	return img, nil
}

func (it *Item) capture(g Grabber, l Locator) (*image.RGBA, error) {
	switch spec := it.Spec.(type) {
	case RectSpec:
		screen, err := g.VirtualScreen()
		if err != nil {
			return nil, fmt.Errorf("failed to read virtual desktop size: %w", err)
		}
		if !Validate(spec.Rect, screen.Dx(), screen.Dy()) {
			return nil, fmt.Errorf("%w: %v on %dx%d", ErrInvalidRect, spec.Rect, screen.Dx(), screen.Dy())
		}
		return g.CaptureRect(spec.Rect)

	case WindowSpec:
		if strings.TrimSpace(spec.TitleQuery) == "" {
			return nil, ErrEmptyTitle
		}
		h, err := l.FindByTitle(spec.TitleQuery)
		if err != nil {
			return nil, err
		}
		return g.CaptureWindow(h)

	case nil:
		return nil, fmt.Errorf("capture item has no spec")
	}
	return nil, fmt.Errorf("unsupported capture spec %T", it.Spec)
}

func kindOf(spec Spec) string {
	if spec == nil {
		return "none"
	}
	return string(spec.Kind())
}
