// Package session coordinates capture, file and library operations. Every
// operation runs under one lock, so the library has a single writer.
package session

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/capture"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/config"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/fileops"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/history"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/library"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/logger"
)

var (
	// ErrInvalidName is returned for file names that cannot live in the active folder
	ErrInvalidName = errors.New("invalid file name")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("session closed")

	// ErrNoCapturer is returned by Capture and Preview when the session was
	// opened without a grabber, or without a locator for window captures
	ErrNoCapturer = errors.New("capture backend not available")

	// ErrImageNotFound is returned for names with no record in the library
	ErrImageNotFound = errors.New("image not found")
)

// Journal records what happened to files. Failures never fail the operation.
type Journal interface {
	Record(event *history.Event) error
}

// Change is sent to subscribers after the library changes
type Change struct {
	Folder  string
	Records []library.Record
}

// CaptureRequest describes one capture. A nil Spec uses the configured default.
type CaptureRequest struct {
	Spec      capture.Spec
	FileStem  string
	SubFolder string
	Confirm   fileops.Confirmer
}

// CaptureResult describes a finished capture
type CaptureResult struct {
	Path        string
	FileName    string
	Outcome     fileops.WriteOutcome
	Width       int
	Height      int
	Overwritten bool
	Strategy    config.CaptureType
}

// Options wires a Session to its collaborators
type Options struct {
	Config  *config.Manager
	Grabber capture.Grabber
	Locator capture.Locator
	Files   *fileops.Ops
	Journal Journal
}

// Session is the single writer of the image library
type Session struct {
	cfg     *config.Manager
	grabber capture.Grabber
	locator capture.Locator
	files   *fileops.Ops
	journal Journal
	lib     *library.Library

	mu        sync.Mutex
	listeners []chan Change
	closed    bool
}

// New creates a session and loads the configured folder. A decode failure
// while loading is logged; the session is still usable.
func New(opts Options) (*Session, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("session requires a config manager")
	}
	settings := opts.Config.Get()

	files := opts.Files
	if files == nil {
		files = fileops.New(settings.Recycle)
	}

	s := &Session{
		cfg:     opts.Config,
		grabber: opts.Grabber,
		locator: opts.Locator,
		files:   files,
		journal: opts.Journal,
		lib:     library.New(settings.ThumbnailSize),
	}

	if err := s.lib.SetActiveFolder(settings.SaveFolder); err != nil {
		if !errors.Is(err, library.ErrDecodeFailure) {
			return nil, err
		}
		logger.WithComponent("session").Warn().Err(err).Msg("Some images could not be loaded")
	}
	return s, nil
}

// Capture grabs an image and stores it in the active folder
func (s *Session) Capture(req CaptureRequest) (*CaptureResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	log := logger.WithComponent("session")

	settings := s.cfg.Get()
	spec := req.Spec
	if spec == nil {
		spec = capture.SpecFromSettings(settings)
	}
	item := capture.NewItem(spec, req.FileStem, req.SubFolder)
	if err := capture.ValidStem(item.FileStem); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	if err := validSubFolder(item.SubFolder); err != nil {
		return nil, err
	}

	if err := s.canCapture(spec); err != nil {
		return nil, err
	}
	img, err := item.Capture(s.grabber, s.locator)
	if err != nil {
		return nil, err
	}

	path := item.ResolvedFilePath(s.lib.ActiveFolder())
	_, statErr := os.Stat(path)
	existed := statErr == nil

	result := &CaptureResult{
		Path:     path,
		FileName: filepath.Base(path),
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
		Strategy: spec.Kind(),
	}

	outcome, err := s.files.WritePNG(img, path, req.Confirm)
	result.Outcome = outcome
	if outcome == fileops.WriteFailed && existed {
		// the old file may already be gone
		if _, statErr := os.Stat(path); statErr != nil && s.lib.RemoveRecord(result.FileName) {
			log.Warn().Str("file", result.FileName).Msg("Overwrite failed after the old file was removed")
			s.notify()
		}
	}
	if outcome != fileops.Saved {
		return result, err
	}
	result.Overwritten = existed

	if _, err := s.lib.AddFile(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Saved image could not be loaded")
	}
	if _, err := s.cfg.RememberFileName(item.FileStem); err != nil {
		log.Warn().Err(err).Msg("Failed to remember file name")
	}

	action := history.ActionCaptured
	if existed {
		action = history.ActionOverwritten
	}
	s.record(&history.Event{
		Action:   action,
		FileName: result.FileName,
		Folder:   filepath.Dir(path),
		Strategy: string(result.Strategy),
		Width:    result.Width,
		Height:   result.Height,
	})
	s.notify()

	log.Info().
		Str("file", result.FileName).
		Str("strategy", string(result.Strategy)).
		Bool("overwritten", existed).
		Msg("Capture stored")
	return result, nil
}

// Preview captures without writing anything
func (s *Session) Preview(spec capture.Spec) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if spec == nil {
		spec = capture.SpecFromSettings(s.cfg.Get())
	}
	if err := s.canCapture(spec); err != nil {
		return nil, err
	}
	return capture.NewItem(spec, "preview", "").Capture(s.grabber, s.locator)
}

func (s *Session) canCapture(spec capture.Spec) error {
	if s.grabber == nil {
		return ErrNoCapturer
	}
	if _, ok := spec.(capture.WindowSpec); ok && s.locator == nil {
		return fmt.Errorf("%w: no window locator", ErrNoCapturer)
	}
	return nil
}

// Open opens the full image behind a library record for reading. The file is
// opened with shared access so other programs can still replace or delete it.
func (s *Session) Open(fileName string) (*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if err := validFileName(fileName); err != nil {
		return nil, err
	}
	if _, ok := s.lib.Lookup(fileName); !ok {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, fileName)
	}

	path := filepath.Join(s.lib.ActiveFolder(), fileName)
	f, err := fileops.OpenShared(path)
	if errors.Is(err, os.ErrNotExist) {
		s.lib.RemoveRecord(fileName)
		s.notify()
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, fileName)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fileops.ErrIOFailure, err)
	}
	return f, nil
}

// Delete removes fileName from the active folder, to the trash unless
// permanent. The record is dropped only when the file is gone.
func (s *Session) Delete(fileName string, permanent bool) (fileops.DeleteOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fileops.DeleteFailed, ErrClosed
	}
	if err := validFileName(fileName); err != nil {
		return fileops.DeleteFailed, err
	}

	folder := s.lib.ActiveFolder()
	outcome, err := s.files.DeleteFile(filepath.Join(folder, fileName), !permanent)
	if outcome != fileops.Deleted {
		return outcome, err
	}

	s.lib.RemoveRecord(fileName)
	s.record(&history.Event{
		Action:    history.ActionDeleted,
		FileName:  fileName,
		Folder:    folder,
		Permanent: permanent,
	})
	s.notify()
	return outcome, nil
}

// SetFolder makes folder the active folder and persists it
func (s *Session) SetFolder(folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(folder) == "" {
		return fmt.Errorf("folder must not be empty")
	}
	loadErr := s.lib.SetActiveFolder(folder)
	if loadErr != nil && !errors.Is(loadErr, library.ErrDecodeFailure) {
		return loadErr
	}
	if err := s.cfg.SetSaveFolder(s.lib.ActiveFolder()); err != nil {
		return err
	}
	s.notify()
	return loadErr
}

// Refresh reloads the active folder from disk
func (s *Session) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.lib.Refresh(s.lib.ActiveFolder())
	s.notify()
	return err
}

// Folder returns the active folder
func (s *Session) Folder() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lib.ActiveFolder()
}

// Records returns the current library records
func (s *Session) Records() []library.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lib.Records()
}

// Lookup returns the record for fileName
func (s *Session) Lookup(fileName string) (library.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lib.Lookup(fileName)
}

// Settings returns a copy of the current settings
func (s *Session) Settings() *config.ProjectSettings {
	return s.cfg.Get()
}

// Subscribe adds a listener for library changes
func (s *Session) Subscribe() chan Change {
	ch := make(chan Change, 10)
	s.mu.Lock()
	s.listeners = append(s.listeners, ch)
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener
func (s *Session) Unsubscribe(ch chan Change) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, listener := range s.listeners {
		if listener == ch {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// Close persists settings and closes every listener
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for _, ch := range s.listeners {
		close(ch)
	}
	s.listeners = nil
	return s.cfg.Save()
}

// notify must be called with s.mu held
func (s *Session) notify() {
	change := Change{Folder: s.lib.ActiveFolder(), Records: s.lib.Records()}
	for _, listener := range s.listeners {
		select {
		case listener <- change:
		default:
			// Skip if channel is full
		}
	}
}

func (s *Session) record(event *history.Event) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(event); err != nil {
		logger.WithComponent("session").Warn().
			Err(err).
			Str("action", string(event.Action)).
			Str("file", event.FileName).
			Msg("Failed to record history")
	}
}

func validFileName(name string) error {
	if err := capture.ValidStem(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	if !strings.EqualFold(filepath.Ext(name), capture.FileExtension) {
		return fmt.Errorf("%w: %q is not a %s file", ErrInvalidName, name, capture.FileExtension)
	}
	return nil
}

func validSubFolder(sub string) error {
	if sub == "" {
		return nil
	}
	if filepath.IsAbs(sub) {
		return fmt.Errorf("%w: sub folder must be relative: %q", ErrInvalidName, sub)
	}
	for _, part := range strings.FieldsFunc(sub, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return fmt.Errorf("%w: sub folder must stay inside the active folder: %q", ErrInvalidName, sub)
		}
	}
	return nil
}
