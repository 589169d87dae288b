// Package library mirrors the PNG files of one folder as thumbnail records.
package library

import (
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/fileops"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/logger"
	"golang.org/x/image/draw"
)

// ErrDecodeFailure is returned when a PNG in the folder cannot be decoded
var ErrDecodeFailure = errors.New("failed to decode image")

// DefaultThumbnailSize is used when the library is created with a size <= 0
const DefaultThumbnailSize = 200

// Record is one PNG file in the active folder
type Record struct {
	FileName  string
	Thumbnail image.Image
	Width     int
	Height    int
}

// Library holds the records of the active folder. It is not safe for
// concurrent use; callers serialize access.
type Library struct {
	thumbSize    int
	activeFolder string
	records      []Record
}

// New creates an empty library producing thumbnails no larger than thumbSize
func New(thumbSize int) *Library {
	if thumbSize <= 0 {
		thumbSize = DefaultThumbnailSize
	}
	return &Library{thumbSize: thumbSize}
}

// ActiveFolder returns the folder the library mirrors
func (l *Library) ActiveFolder() string {
	return l.activeFolder
}

// ThumbnailSize returns the bounding box edge used for thumbnails
func (l *Library) ThumbnailSize() int {
	return l.thumbSize
}

// SetThumbnailSize changes the thumbnail bound for records loaded afterwards
func (l *Library) SetThumbnailSize(size int) {
	if size > 0 {
		l.thumbSize = size
	}
}

// SetActiveFolder switches to folder and reloads the records
func (l *Library) SetActiveFolder(folder string) error {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return err
	}
	l.activeFolder = abs
	return l.Refresh(abs)
}

// Refresh replaces all records with the *.png files directly inside folder,
// in directory listing order. A missing folder yields no records. Files that
// fail to decode keep a record without a thumbnail and are reported in the
// returned error.
func (l *Library) Refresh(folder string) error {
	log := logger.WithComponent("library")
	l.records = nil

	entries, err := os.ReadDir(folder)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("folder", folder).Msg("Folder does not exist, library empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", folder, err)
	}

	var errs []error
	for _, entry := range entries {
		if !isPNG(entry) {
			continue
		}
		rec, err := l.load(filepath.Join(folder, entry.Name()))
		if err != nil {
			errs = append(errs, err)
		}
		l.records = append(l.records, rec)
	}

	log.Debug().
		Str("folder", folder).
		Int("records", len(l.records)).
		Int("decode_failures", len(errs)).
		Msg("Library refreshed")
	return errors.Join(errs...)
}

// AddFile loads path as a record when it is a PNG lying directly in the
// active folder. It reports whether a record was added; a record with the
// same name is replaced. A missing file drops any record of that name.
func (l *Library) AddFile(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	if l.activeFolder == "" || filepath.Dir(abs) != l.activeFolder {
		logger.WithComponent("library").Debug().
			Str("path", abs).
			Str("active_folder", l.activeFolder).
			Msg("File outside active folder, not added")
		return false, nil
	}

	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		l.RemoveRecord(filepath.Base(abs))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	if !isPNG(fs.FileInfoToDirEntry(info)) {
		return false, nil
	}

	rec, err := l.load(abs)
	l.RemoveRecord(rec.FileName)
	l.records = append(l.records, rec)
	return true, err
}

// RemoveRecord drops the record for fileName. The file itself is not touched.
func (l *Library) RemoveRecord(fileName string) bool {
	for i, rec := range l.records {
		if rec.FileName == fileName {
			l.records = append(l.records[:i], l.records[i+1:]...)
			return true
		}
	}
	return false
}

// Lookup returns the record for fileName
func (l *Library) Lookup(fileName string) (Record, bool) {
	for _, rec := range l.records {
		if rec.FileName == fileName {
			return rec, true
		}
	}
	return Record{}, false
}

// Records returns a copy of the current records
func (l *Library) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records
func (l *Library) Len() int {
	return len(l.records)
}

func (l *Library) load(path string) (Record, error) {
	rec := Record{FileName: filepath.Base(path)}

	f, err := fileops.OpenShared(path)
	if err != nil {
		return rec, fmt.Errorf("%w: %s: %v", ErrDecodeFailure, rec.FileName, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		logger.WithComponent("library").Warn().
			Err(err).
			Str("file", rec.FileName).
			Msg("Failed to decode image")
		return rec, fmt.Errorf("%w: %s: %v", ErrDecodeFailure, rec.FileName, err)
	}

	b := img.Bounds()
	rec.Width = b.Dx()
	rec.Height = b.Dy()
	rec.Thumbnail = Thumbnail(img, l.thumbSize)
	return rec, nil
}

// Thumbnail scales img to fit a size x size box keeping its aspect ratio.
// Images already inside the box are returned unchanged.
func Thumbnail(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= size && h <= size {
		return img
	}

	tw, th := size, size
	if w >= h {
		th = max(1, h*size/w)
	} else {
		tw = max(1, w*size/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func isPNG(entry fs.DirEntry) bool {
	if entry.IsDir() {
		return false
	}
	return strings.EqualFold(filepath.Ext(entry.Name()), ".png")
}
