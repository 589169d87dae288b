package session

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/capture"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/config"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/fileops"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/history"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/window"
)

type fakeGrabber struct {
	screen image.Rectangle
	grabs  int
}

func (g *fakeGrabber) VirtualScreen() (image.Rectangle, error) { return g.screen, nil }

func (g *fakeGrabber) CaptureRect(r capture.Rect) (*image.RGBA, error) {
	g.grabs++
	return image.NewRGBA(image.Rect(0, 0, r.Width, r.Height)), nil
}

func (g *fakeGrabber) CaptureWindow(h window.Handle) (*image.RGBA, error) {
	g.grabs++
	return image.NewRGBA(image.Rect(0, 0, 30, 20)), nil
}

func (g *fakeGrabber) Name() string { return "fake" }

type fakeLocator struct{}

func (fakeLocator) FindByTitle(query string) (window.Handle, error) {
	if query == "Editor" {
		return 9, nil
	}
	return 0, window.ErrWindowNotFound
}

type fakeJournal struct {
	events []*history.Event
	err    error
}

func (j *fakeJournal) Record(e *history.Event) error {
	j.events = append(j.events, e)
	return j.err
}

type fakeTrash struct {
	calls int
	// dropFolder removes the whole folder along with the file
	dropFolder bool
}

func (f *fakeTrash) Trash(path string) error {
	f.calls++
	if f.dropFolder {
		return os.RemoveAll(filepath.Dir(path))
	}
	return os.Remove(path)
}

type fixture struct {
	session *Session
	cfg     *config.Manager
	grabber *fakeGrabber
	journal *fakeJournal
	trash   *fakeTrash
	folder  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.NewManager(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	folder := filepath.Join(dir, "shots")
	if err := cfg.SetSaveFolder(folder); err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		cfg:     cfg,
		grabber: &fakeGrabber{screen: image.Rect(0, 0, 800, 600)},
		journal: &fakeJournal{},
		trash:   &fakeTrash{},
		folder:  folder,
	}
	f.session, err = New(Options{
		Config:  cfg,
		Grabber: f.grabber,
		Locator: fakeLocator{},
		Files:   &fileops.Ops{Trash: f.trash, Recycle: true},
		Journal: f.journal,
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func rectSpec(l, t, w, h int) capture.Spec {
	return capture.RectSpec{Rect: capture.Rect{Left: l, Top: t, Width: w, Height: h}}
}

func TestCaptureThenRefresh(t *testing.T) {
	f := newFixture(t)

	res, err := f.session.Capture(CaptureRequest{Spec: rectSpec(0, 0, 100, 100), FileStem: "a"})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if res.Outcome != fileops.Saved || res.FileName != "a.png" || res.Width != 100 {
		t.Errorf("result = %+v", res)
	}
	if _, err := os.Stat(filepath.Join(f.folder, "a.png")); err != nil {
		t.Fatalf("file not written: %v", err)
	}

	if err := f.session.Refresh(); err != nil {
		t.Fatal(err)
	}
	records := f.session.Records()
	if len(records) != 1 || records[0].FileName != "a.png" {
		t.Fatalf("records = %+v", records)
	}

	if len(f.journal.events) != 1 || f.journal.events[0].Action != history.ActionCaptured {
		t.Errorf("journal = %+v", f.journal.events)
	}
	if names := f.cfg.Get().FileNames; !contains(names, "a") {
		t.Errorf("stem not remembered: %v", names)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestCaptureDefaultsFromSettings(t *testing.T) {
	f := newFixture(t)
	if err := f.cfg.SetCaptureRect(config.CaptureRect{Left: 10, Top: 10, Width: 50, Height: 40}); err != nil {
		t.Fatal(err)
	}

	res, err := f.session.Capture(CaptureRequest{FileStem: "defaults"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Width != 50 || res.Height != 40 || res.Strategy != config.CaptureTypeScreenRect {
		t.Errorf("result = %+v", res)
	}
}

func TestCaptureValidationTouchesNothing(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  CaptureRequest
		want error
	}{
		{name: "rect outside desktop", req: CaptureRequest{Spec: rectSpec(700, 0, 200, 10), FileStem: "x"}, want: capture.ErrInvalidRect},
		{name: "empty title", req: CaptureRequest{Spec: capture.WindowSpec{}, FileStem: "x"}, want: capture.ErrEmptyTitle},
		{name: "window missing", req: CaptureRequest{Spec: capture.WindowSpec{TitleQuery: "Nope"}, FileStem: "x"}, want: capture.ErrWindowNotFound},
		{name: "bad stem", req: CaptureRequest{Spec: rectSpec(0, 0, 1, 1), FileStem: "a/b"}, want: ErrInvalidName},
		{name: "escaping sub folder", req: CaptureRequest{Spec: rectSpec(0, 0, 1, 1), FileStem: "a", SubFolder: "../out"}, want: ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.session.Capture(tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if f.grabber.grabs != 0 {
		t.Errorf("grabber used %d times", f.grabber.grabs)
	}
	if entries, _ := os.ReadDir(f.folder); len(entries) != 0 {
		t.Errorf("files written: %d", len(entries))
	}
}

func TestCaptureOverwrite(t *testing.T) {
	f := newFixture(t)
	req := CaptureRequest{Spec: rectSpec(0, 0, 10, 10), FileStem: "a"}
	if _, err := f.session.Capture(req); err != nil {
		t.Fatal(err)
	}
	original, _ := os.ReadFile(filepath.Join(f.folder, "a.png"))

	req.Spec = rectSpec(0, 0, 20, 20)
	req.Confirm = fileops.Always(false)
	res, err := f.session.Capture(req)
	if err != nil || res.Outcome != fileops.Cancelled {
		t.Fatalf("declined overwrite = %+v, %v", res, err)
	}
	now, _ := os.ReadFile(filepath.Join(f.folder, "a.png"))
	if string(now) != string(original) {
		t.Error("declined overwrite changed the file")
	}
	if rec, _ := f.session.Lookup("a.png"); rec.Width != 10 {
		t.Errorf("record changed: %+v", rec)
	}

	req.Confirm = fileops.Always(true)
	res, err = f.session.Capture(req)
	if err != nil || res.Outcome != fileops.Saved || !res.Overwritten {
		t.Fatalf("accepted overwrite = %+v, %v", res, err)
	}
	if f.trash.calls != 1 {
		t.Errorf("old file trashed %d times, want 1", f.trash.calls)
	}
	if len(f.session.Records()) != 1 {
		t.Errorf("records = %d, want 1", len(f.session.Records()))
	}
	if rec, _ := f.session.Lookup("a.png"); rec.Width != 20 {
		t.Errorf("record not updated: %+v", rec)
	}
	last := f.journal.events[len(f.journal.events)-1]
	if last.Action != history.ActionOverwritten {
		t.Errorf("last journal action = %s", last.Action)
	}
}

func TestCaptureOverwriteWriteFailureDropsRecord(t *testing.T) {
	f := newFixture(t)
	req := CaptureRequest{Spec: rectSpec(0, 0, 10, 10), FileStem: "a"}
	if _, err := f.session.Capture(req); err != nil {
		t.Fatal(err)
	}
	ch := f.session.Subscribe()
	defer f.session.Unsubscribe(ch)

	f.trash.dropFolder = true
	req.Confirm = fileops.Always(true)
	res, err := f.session.Capture(req)
	if !errors.Is(err, fileops.ErrIOFailure) || res.Outcome != fileops.WriteFailed {
		t.Fatalf("overwrite = %+v, %v; want WriteFailed", res, err)
	}
	if _, err := os.Stat(filepath.Join(f.folder, "a.png")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("old file still on disk: %v", err)
	}
	if _, ok := f.session.Lookup("a.png"); ok {
		t.Error("record kept for a file that no longer exists")
	}

	select {
	case change := <-ch:
		if len(change.Records) != 0 {
			t.Errorf("change records = %d, want 0", len(change.Records))
		}
	default:
		t.Error("no change notification")
	}
}

func TestCaptureWithoutBackend(t *testing.T) {
	f := newFixture(t)
	s, err := New(Options{Config: f.cfg, Files: &fileops.Ops{Trash: f.trash}})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Capture(CaptureRequest{Spec: rectSpec(0, 0, 5, 5), FileStem: "a"}); !errors.Is(err, ErrNoCapturer) {
		t.Errorf("Capture err = %v, want ErrNoCapturer", err)
	}
	if _, err := s.Preview(rectSpec(0, 0, 5, 5)); !errors.Is(err, ErrNoCapturer) {
		t.Errorf("Preview err = %v, want ErrNoCapturer", err)
	}

	s, err = New(Options{Config: f.cfg, Grabber: f.grabber, Files: &fileops.Ops{Trash: f.trash}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Preview(capture.WindowSpec{TitleQuery: "Editor"}); !errors.Is(err, ErrNoCapturer) {
		t.Errorf("window Preview without locator err = %v, want ErrNoCapturer", err)
	}
}

func TestCaptureIntoSubFolderSkipsLibrary(t *testing.T) {
	f := newFixture(t)
	res, err := f.session.Capture(CaptureRequest{Spec: rectSpec(0, 0, 5, 5), FileStem: "a", SubFolder: "run1"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != filepath.Join(f.folder, "run1", "a.png") {
		t.Errorf("path = %s", res.Path)
	}
	if len(f.session.Records()) != 0 {
		t.Error("sub folder file added to library")
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	if _, err := f.session.Capture(CaptureRequest{Spec: rectSpec(0, 0, 5, 5), FileStem: "a"}); err != nil {
		t.Fatal(err)
	}

	outcome, err := f.session.Delete("a.png", false)
	if err != nil || outcome != fileops.Deleted {
		t.Fatalf("Delete = %v, %v", outcome, err)
	}
	if f.trash.calls != 1 {
		t.Errorf("trash calls = %d", f.trash.calls)
	}
	if len(f.session.Records()) != 0 {
		t.Error("record kept after delete")
	}

	outcome, err = f.session.Delete("a.png", true)
	if err != nil || outcome != fileops.Deleted {
		t.Errorf("delete of missing file = %v, %v", outcome, err)
	}
	if f.trash.calls != 1 {
		t.Error("missing file sent to trash")
	}

	for _, bad := range []string{"", "../x.png", "notes.txt"} {
		if _, err := f.session.Delete(bad, false); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Delete(%q) err = %v", bad, err)
		}
	}
}

func TestJournalFailureDoesNotFailCapture(t *testing.T) {
	f := newFixture(t)
	f.journal.err = errors.New("disk full")

	if _, err := f.session.Capture(CaptureRequest{Spec: rectSpec(0, 0, 5, 5), FileStem: "a"}); err != nil {
		t.Fatalf("Capture: %v", err)
	}
}

func TestSetFolderPersistsAndNotifies(t *testing.T) {
	f := newFixture(t)
	ch := f.session.Subscribe()
	defer f.session.Unsubscribe(ch)

	other := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if _, err := fileops.New(false).WritePNG(img, filepath.Join(other, "x.png"), nil); err != nil {
		t.Fatal(err)
	}

	if err := f.session.SetFolder(other); err != nil {
		t.Fatal(err)
	}
	if f.session.Folder() != other {
		t.Errorf("Folder = %s, want %s", f.session.Folder(), other)
	}
	if f.cfg.Get().SaveFolder != other {
		t.Errorf("config folder = %s", f.cfg.Get().SaveFolder)
	}

	change := <-ch
	if change.Folder != other || len(change.Records) != 1 {
		t.Errorf("change = %+v", change)
	}
}

func TestCloseRejectsWork(t *testing.T) {
	f := newFixture(t)
	ch := f.session.Subscribe()

	if err := f.session.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-ch; ok {
		t.Error("listener not closed")
	}
	if _, err := f.session.Capture(CaptureRequest{Spec: rectSpec(0, 0, 1, 1)}); !errors.Is(err, ErrClosed) {
		t.Errorf("Capture after Close err = %v", err)
	}
	if _, err := f.session.Preview(rectSpec(0, 0, 1, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Preview after Close err = %v", err)
	}
}

func TestOpen(t *testing.T) {
	f := newFixture(t)
	if _, err := f.session.Capture(CaptureRequest{Spec: rectSpec(0, 0, 12, 8), FileStem: "a"}); err != nil {
		t.Fatal(err)
	}

	file, err := f.session.Open("a.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	img, err := png.Decode(file)
	file.Close()
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 8 {
		t.Errorf("image size = %v", img.Bounds())
	}

	if _, err := f.session.Open("missing.png"); !errors.Is(err, ErrImageNotFound) {
		t.Errorf("Open missing err = %v, want ErrImageNotFound", err)
	}
	if _, err := f.session.Open("notes.txt"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Open non-png err = %v, want ErrInvalidName", err)
	}

	if err := os.Remove(filepath.Join(f.folder, "a.png")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.session.Open("a.png"); !errors.Is(err, ErrImageNotFound) {
		t.Errorf("Open removed file err = %v, want ErrImageNotFound", err)
	}
	if _, ok := f.session.Lookup("a.png"); ok {
		t.Error("record kept after the file disappeared")
	}
}
