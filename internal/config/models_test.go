package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewManagerCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}

	s := m.Get()
	if s.Capture.Width != 1920 || s.Capture.Height != 1280 {
		t.Errorf("default capture = %dx%d, want 1920x1280", s.Capture.Width, s.Capture.Height)
	}
	if s.CaptureType != CaptureTypeScreenRect {
		t.Errorf("CaptureType = %s, want %s", s.CaptureType, CaptureTypeScreenRect)
	}
	if s.ThumbnailSize != 200 {
		t.Errorf("ThumbnailSize = %d, want 200", s.ThumbnailSize)
	}
	if !s.Recycle {
		t.Error("Recycle = false, want true")
	}
	if len(s.FileNames) != len(DefaultFileNames) {
		t.Errorf("FileNames = %v, want %v", s.FileNames, DefaultFileNames)
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "capture_window_title: Notepad\ncapture_type: window\nthumbnail_size: 0\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	s := m.Get()
	if s.CaptureWindowTitle != "Notepad" {
		t.Errorf("CaptureWindowTitle = %q, want Notepad", s.CaptureWindowTitle)
	}
	if s.CaptureType != CaptureTypeWindow {
		t.Errorf("CaptureType = %s, want window", s.CaptureType)
	}
	if s.ThumbnailSize != 200 {
		t.Errorf("ThumbnailSize = %d, want fallback 200", s.ThumbnailSize)
	}
	if s.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want default 8080", s.ServerPort)
	}
}

func TestLoadRejectsUnknownCaptureType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("capture_type: video\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	if got := m.Get().CaptureType; got != CaptureTypeScreenRect {
		t.Errorf("CaptureType = %s, want fallback screen_rect", got)
	}
}

func TestSettersPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}

	folder := t.TempDir()
	if err := m.SetSaveFolder(folder); err != nil {
		t.Fatalf("SetSaveFolder() error: %v", err)
	}
	if err := m.SetCaptureRect(CaptureRect{Left: 10, Top: 20, Width: 300, Height: 200}); err != nil {
		t.Fatalf("SetCaptureRect() error: %v", err)
	}
	if err := m.SetCaptureType(CaptureTypeWindow); err != nil {
		t.Fatalf("SetCaptureType() error: %v", err)
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	s := reloaded.Get()
	if s.SaveFolder != folder {
		t.Errorf("SaveFolder = %q, want %q", s.SaveFolder, folder)
	}
	if s.Capture != (CaptureRect{Left: 10, Top: 20, Width: 300, Height: 200}) {
		t.Errorf("Capture = %+v", s.Capture)
	}
	if s.CaptureType != CaptureTypeWindow {
		t.Errorf("CaptureType = %s, want window", s.CaptureType)
	}
}

func TestSetterValidation(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	if err := m.SetSaveFolder("  "); err == nil {
		t.Error("SetSaveFolder(blank) expected error")
	}
	if err := m.SetCaptureType("video"); err == nil {
		t.Error("SetCaptureType(video) expected error")
	}
	if err := m.SetThumbnailSize(0); err == nil {
		t.Error("SetThumbnailSize(0) expected error")
	}
	if err := m.SetPort(70000); err == nil {
		t.Error("SetPort(70000) expected error")
	}
	if err := m.SetLogLevel("trace"); err == nil || !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("SetLogLevel(trace) error = %v", err)
	}
}

func TestRememberFileName(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	added, err := m.RememberFileName("login-page")
	if err != nil || !added {
		t.Fatalf("first RememberFileName() = %v, %v; want true, nil", added, err)
	}
	added, err = m.RememberFileName("login-page")
	if err != nil || added {
		t.Errorf("duplicate RememberFileName() = %v, %v; want false, nil", added, err)
	}
	added, _ = m.RememberFileName("   ")
	if added {
		t.Error("blank stem should not be remembered")
	}

	count := 0
	for _, n := range m.Get().FileNames {
		if n == "login-page" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("login-page stored %d times, want 1", count)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	s := m.Get()
	s.FileNames[0] = "mutated"
	s.ThumbnailSize = 1

	fresh := m.Get()
	if fresh.FileNames[0] == "mutated" || fresh.ThumbnailSize == 1 {
		t.Error("Get() leaked internal state")
	}
}

func TestHistoryPathDefaultsNextToConfig(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := m.HistoryPath(), filepath.Join(dir, "history.db"); got != want {
		t.Errorf("HistoryPath() = %q, want %q", got, want)
	}
}
