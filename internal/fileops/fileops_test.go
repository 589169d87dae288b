package fileops

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

type fakeTrasher struct {
	calls []string
	err   error
}

func (f *fakeTrasher) Trash(path string) error {
	f.calls = append(f.calls, path)
	if f.err != nil {
		return f.err
	}
	return os.Remove(path)
}

func newTestOps(trash *fakeTrasher) (*Ops, *[]string) {
	var removed []string
	ops := &Ops{
		Trash:   trash,
		Recycle: true,
		remove: func(p string) error {
			removed = append(removed, p)
			return os.Remove(p)
		},
	}
	return ops, &removed
}

func testImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestDeleteMissingFileIsNoop(t *testing.T) {
	trash := &fakeTrasher{}
	ops, removed := newTestOps(trash)

	for _, toTrash := range []bool{true, false} {
		outcome, err := ops.DeleteFile(filepath.Join(t.TempDir(), "nope.png"), toTrash)
		if err != nil || outcome != Deleted {
			t.Fatalf("DeleteFile = %v, %v; want Deleted, nil", outcome, err)
		}
	}
	if len(trash.calls) != 0 || len(*removed) != 0 {
		t.Errorf("OS deletion invoked: trash=%v remove=%v", trash.calls, *removed)
	}
}

func TestDeleteFile(t *testing.T) {
	tests := []struct {
		name        string
		toTrash     bool
		wantTrash   int
		wantRemoved int
	}{
		{name: "to trash", toTrash: true, wantTrash: 1},
		{name: "permanent", toTrash: false, wantRemoved: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "a.png")
			if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
				t.Fatal(err)
			}
			trash := &fakeTrasher{}
			ops, removed := newTestOps(trash)

			outcome, err := ops.DeleteFile(path, tt.toTrash)
			if err != nil || outcome != Deleted {
				t.Fatalf("DeleteFile = %v, %v", outcome, err)
			}
			if len(trash.calls) != tt.wantTrash || len(*removed) != tt.wantRemoved {
				t.Errorf("trash=%d remove=%d, want %d/%d", len(trash.calls), len(*removed), tt.wantTrash, tt.wantRemoved)
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Errorf("file still present: %v", err)
			}
		})
	}
}

func TestDeleteFileTrashFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	ops, _ := newTestOps(&fakeTrasher{err: errors.New("trash full")})

	outcome, err := ops.DeleteFile(path, true)
	if outcome != DeleteFailed || !errors.Is(err, ErrIOFailure) {
		t.Fatalf("DeleteFile = %v, %v; want failed ErrIOFailure", outcome, err)
	}
}

func TestWritePNGCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shots", "run", "a.png")
	ops, _ := newTestOps(&fakeTrasher{})

	outcome, err := ops.WritePNG(testImage(4, 3, color.RGBA{R: 10, G: 20, B: 30, A: 255}), path, nil)
	if err != nil || outcome != Saved {
		t.Fatalf("WritePNG = %v, %v", outcome, err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Errorf("size = %v", img.Bounds())
	}
	// 8-bit RGBA decodes to NRGBA; RGB without alpha would decode to RGBA
	if img.ColorModel() != color.NRGBAModel {
		t.Errorf("color model = %v, want NRGBA (32bpp)", img.ColorModel())
	}
	if r, g, b, a := img.At(1, 1).RGBA(); r>>8 != 10 || g>>8 != 20 || b>>8 != 30 || a>>8 != 255 {
		t.Errorf("pixel = %d,%d,%d,%d", r>>8, g>>8, b>>8, a>>8)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestWritePNGOverwrite(t *testing.T) {
	tests := []struct {
		name        string
		confirm     Confirmer
		trashErr    error
		wantOutcome WriteOutcome
		wantErr     bool
		wantPrompts int
		wantTrash   int
		wantOrig    bool
	}{
		{name: "declined", confirm: Always(false), wantOutcome: Cancelled, wantPrompts: 1, wantOrig: true},
		{name: "no confirmer", confirm: nil, wantOutcome: Cancelled, wantOrig: true},
		{name: "accepted", confirm: Always(true), wantOutcome: Saved, wantPrompts: 1, wantTrash: 1},
		{name: "delete fails", confirm: Always(true), trashErr: errors.New("boom"), wantOutcome: Cancelled, wantErr: true, wantPrompts: 1, wantTrash: 1, wantOrig: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "a.png")
			original := []byte("original contents")
			if err := os.WriteFile(path, original, 0644); err != nil {
				t.Fatal(err)
			}

			trash := &fakeTrasher{err: tt.trashErr}
			ops, _ := newTestOps(trash)

			prompts := 0
			var c Confirmer
			if tt.confirm != nil {
				c = ConfirmFunc(func(p string) bool {
					prompts++
					return tt.confirm.ConfirmOverwrite(p)
				})
			}

			outcome, err := ops.WritePNG(testImage(2, 2, color.RGBA{A: 255}), path, c)
			if outcome != tt.wantOutcome {
				t.Errorf("outcome = %v, want %v", outcome, tt.wantOutcome)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if prompts != tt.wantPrompts {
				t.Errorf("prompts = %d, want %d", prompts, tt.wantPrompts)
			}
			if len(trash.calls) != tt.wantTrash {
				t.Errorf("trash calls = %d, want %d", len(trash.calls), tt.wantTrash)
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantOrig != bytes.Equal(got, original) {
				t.Errorf("original preserved = %v, want %v", bytes.Equal(got, original), tt.wantOrig)
			}
		})
	}
}

func TestWritePNGTwiceDeclined(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shots", "a.png")
	ops, _ := newTestOps(&fakeTrasher{})

	if outcome, err := ops.WritePNG(testImage(3, 3, color.RGBA{R: 1, A: 255}), path, Always(false)); outcome != Saved || err != nil {
		t.Fatalf("first write = %v, %v", outcome, err)
	}
	first, _ := os.ReadFile(path)

	outcome, err := ops.WritePNG(testImage(5, 5, color.RGBA{G: 1, A: 255}), path, Always(false))
	if outcome != Cancelled || err != nil {
		t.Fatalf("second write = %v, %v; want Cancelled", outcome, err)
	}
	second, _ := os.ReadFile(path)
	if !bytes.Equal(first, second) {
		t.Error("declined overwrite changed the file")
	}
}

func TestIsLockedMissingFile(t *testing.T) {
	if !IsLocked(filepath.Join(t.TempDir(), "missing.png")) {
		t.Error("missing file should report locked")
	}
}

func TestIsLockedFreeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "free.png")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if IsLocked(path) {
		t.Error("free file reported locked")
	}
	// the probe must not leave its own lock behind
	if IsLocked(path) {
		t.Error("second probe reported locked")
	}
}

func TestOutcomeStrings(t *testing.T) {
	if Saved.String() != "saved" || Cancelled.String() != "cancelled" || WriteFailed.String() != "failed" {
		t.Error("unexpected WriteOutcome strings")
	}
	if Deleted.String() != "deleted" || Locked.String() != "locked" || DeleteFailed.String() != "failed" {
		t.Error("unexpected DeleteOutcome strings")
	}
}
