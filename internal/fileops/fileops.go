package fileops

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/logger"
)

var (
	// ErrFileLocked is returned when another process holds the file open
	ErrFileLocked = errors.New("file is locked by another process")

	// ErrIOFailure wraps failures to create, write or remove files
	ErrIOFailure = errors.New("i/o failure")
)

// WriteOutcome is the non-error result of WritePNG
type WriteOutcome int

const (
	WriteFailed WriteOutcome = iota
	Saved
	Cancelled
)

func (o WriteOutcome) String() string {
	switch o {
	case Saved:
		return "saved"
	case Cancelled:
		return "cancelled"
	}
	return "failed"
}

// DeleteOutcome is the non-error result of DeleteFile
type DeleteOutcome int

const (
	DeleteFailed DeleteOutcome = iota
	Deleted
	Locked
)

func (o DeleteOutcome) String() string {
	switch o {
	case Deleted:
		return "deleted"
	case Locked:
		return "locked"
	}
	return "failed"
}

// Confirmer answers the overwrite question for an existing file
type Confirmer interface {
	ConfirmOverwrite(path string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(path string) bool

// ConfirmOverwrite calls f
func (f ConfirmFunc) ConfirmOverwrite(path string) bool { return f(path) }

// Always answers every overwrite question with yes
func Always(yes bool) Confirmer {
	return ConfirmFunc(func(string) bool { return yes })
}

// Trasher moves a file somewhere it can be restored from
type Trasher interface {
	Trash(path string) error
}

// Ops performs file operations that respect other processes' locks
type Ops struct {
	// Trash receives files deleted with toTrash set
	Trash Trasher

	// Recycle selects the trash when WritePNG replaces an existing file
	Recycle bool

	// remove is the permanent delete call
	remove func(string) error
}

// New returns Ops backed by the platform trash
func New(recycle bool) *Ops {
	return &Ops{
		Trash:   DefaultTrasher(),
		Recycle: recycle,
		remove:  os.Remove,
	}
}

// IsLocked reports whether path cannot be opened exclusively. Any failure,
// including a missing file, counts as locked. The answer is stale as soon as
// it is returned.
func IsLocked(path string) bool {
	return lockProbe(path) != nil
}

// DeleteFile removes path, to the trash when toTrash is set. A missing file is
// Deleted without any OS call. A locked file is left in place.
func (o *Ops) DeleteFile(path string, toTrash bool) (DeleteOutcome, error) {
	log := logger.WithComponent("fileops")

	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", path).Msg("Delete skipped, file absent")
		return Deleted, nil
	}

	if err := lockProbe(path); err != nil {
		log.Info().Str("path", path).Err(err).Msg("File is locked, not deleting")
		return Locked, fmt.Errorf("%w: %s", ErrFileLocked, path)
	}

	var err error
	if toTrash && o.Trash != nil {
		err = o.Trash.Trash(path)
	} else {
		remove := o.remove
		if remove == nil {
			remove = os.Remove
		}
		err = remove(path)
	}
	if err != nil {
		return DeleteFailed, fmt.Errorf("%w: delete %s: %v", ErrIOFailure, path, err)
	}

	log.Info().Str("path", path).Bool("trash", toTrash).Msg("File deleted")
	return Deleted, nil
}

// WritePNG encodes img as a 32bpp PNG at path. An existing file is only
// replaced when c confirms and the old file could be deleted first; otherwise
// the result is Cancelled. The image reaches path by rename, so a failed write
// never leaves a partial file behind.
func (o *Ops) WritePNG(img image.Image, path string, c Confirmer) (WriteOutcome, error) {
	log := logger.WithComponent("fileops")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return WriteFailed, fmt.Errorf("%w: create %s: %v", ErrIOFailure, dir, err)
	}

	if _, err := os.Stat(path); err == nil {
		if c == nil || !c.ConfirmOverwrite(path) {
			log.Info().Str("path", path).Msg("Overwrite declined")
			return Cancelled, nil
		}
		outcome, err := o.DeleteFile(path, o.Recycle)
		if outcome != Deleted {
			log.Warn().Str("path", path).Err(err).Msg("Could not remove existing file, write cancelled")
			return Cancelled, err
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return WriteFailed, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if err := png.Encode(tmp, forceAlpha(img)); err != nil {
		tmp.Close()
		return WriteFailed, fmt.Errorf("%w: encode %s: %v", ErrIOFailure, path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return WriteFailed, fmt.Errorf("%w: sync %s: %v", ErrIOFailure, path, err)
	}
	if err := tmp.Close(); err != nil {
		return WriteFailed, fmt.Errorf("%w: close %s: %v", ErrIOFailure, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return WriteFailed, fmt.Errorf("%w: rename into %s: %v", ErrIOFailure, path, err)
	}
	committed = true

	b := img.Bounds()
	log.Info().
		Str("path", path).
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Msg("Image saved")
	return Saved, nil
}

// translucent reports itself as non-opaque so the PNG encoder always emits
// an alpha channel
type translucent struct {
	image.Image
}

func (translucent) Opaque() bool { return false }

func forceAlpha(img image.Image) image.Image {
	return translucent{img}
}
