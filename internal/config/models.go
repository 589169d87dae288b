package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/logger"
	"gopkg.in/yaml.v3"
)

// CaptureType selects the capture strategy used when a request does not name one
type CaptureType string

const (
	CaptureTypeScreenRect CaptureType = "screen_rect"
	CaptureTypeWindow     CaptureType = "window"
)

// ParseCaptureType accepts the yaml names plus a few CLI spellings
func ParseCaptureType(s string) (CaptureType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "screen_rect", "screenrect", "rect", "screen":
		return CaptureTypeScreenRect, nil
	case "window":
		return CaptureTypeWindow, nil
	}
	return "", fmt.Errorf("unknown capture type: %q (use screen_rect or window)", s)
}

// CaptureRect is the default rectangle for screen captures
type CaptureRect struct {
	Left   int `json:"left" yaml:"left"`
	Top    int `json:"top" yaml:"top"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// WindowBounds remembers where the viewer window was placed
type WindowBounds struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// ProjectSettings is the persisted project state
type ProjectSettings struct {
	Capture            CaptureRect  `json:"capture" yaml:"capture"`
	CaptureWindowTitle string       `json:"capture_window_title" yaml:"capture_window_title"`
	CaptureType        CaptureType  `json:"capture_type" yaml:"capture_type"`
	ThumbnailSize      int          `json:"thumbnail_size" yaml:"thumbnail_size"`
	FileNames          []string     `json:"file_names" yaml:"file_names"`
	SaveFolder         string       `json:"save_folder" yaml:"save_folder"`
	Window             WindowBounds `json:"window" yaml:"window"`
	Recycle            bool         `json:"recycle" yaml:"recycle"`
	HistoryDB          string       `json:"history_db" yaml:"history_db"`
	ServerPort         int          `json:"server_port" yaml:"server_port"`
	LogLevel           string       `json:"log_level" yaml:"log_level"`
}

// DefaultFileNames are offered as stems before the user has typed any
var DefaultFileNames = []string{"flow", "expected1", "expected2", "expected3", "condition1", "condition2", "condition3"}

// Defaults returns the settings used when no config file exists
func Defaults() *ProjectSettings {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	names := make([]string, len(DefaultFileNames))
	copy(names, DefaultFileNames)

	return &ProjectSettings{
		Capture: CaptureRect{
			Left:   0,
			Top:    0,
			Width:  1920,
			Height: 1280,
		},
		CaptureType:   CaptureTypeScreenRect,
		ThumbnailSize: 200,
		FileNames:     names,
		SaveFolder:    filepath.Join(cwd, "CapturedImages"),
		Recycle:       true,
		ServerPort:    8080,
		LogLevel:      "info",
	}
}

// Clone returns a deep copy
func (s *ProjectSettings) Clone() *ProjectSettings {
	c := *s
	c.FileNames = append([]string(nil), s.FileNames...)
	return &c
}

// Manager handles configuration
type Manager struct {
	configPath string
	settings   *ProjectSettings
	mu         sync.RWMutex
}

// DefaultDir returns $HOME/.config/screencapture
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "screencapture"), nil
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		actualConfigPath = filepath.Join(dir, "config.yaml")
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.settings = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Str("save_folder", m.settings.SaveFolder).
		Msg("Config loaded")

	return m, nil
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	// Start from defaults so keys missing from older files keep sane values
	s := Defaults()
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if s.FileNames == nil {
		s.FileNames = []string{}
	}
	if s.ThumbnailSize <= 0 {
		s.ThumbnailSize = 200
	}
	if _, err := ParseCaptureType(string(s.CaptureType)); err != nil {
		logger.WithComponent("config").Warn().
			Str("capture_type", string(s.CaptureType)).
			Msg("Unknown capture type in config, using screen_rect")
		s.CaptureType = CaptureTypeScreenRect
	}

	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current settings
func (m *Manager) Get() *ProjectSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.settings == nil {
		return Defaults()
	}
	return m.settings.Clone()
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	s := m.settings
	if s == nil {
		s = Defaults()
	}
	data, err := yaml.Marshal(s)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Update replaces the entire configuration and saves it
func (m *Manager) Update(s *ProjectSettings) error {
	if s == nil {
		return fmt.Errorf("settings must not be nil")
	}
	m.mu.Lock()
	m.settings = s.Clone()
	m.mu.Unlock()
	return m.Save()
}

// Modify applies fn to the live settings under the write lock and saves
func (m *Manager) Modify(fn func(s *ProjectSettings) error) error {
	m.mu.Lock()
	if m.settings == nil {
		m.settings = Defaults()
	}
	err := fn(m.settings)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.Save()
}

// SetSaveFolder changes the active image folder
func (m *Manager) SetSaveFolder(folder string) error {
	if strings.TrimSpace(folder) == "" {
		return fmt.Errorf("save folder must not be empty")
	}
	abs, err := filepath.Abs(folder)
	if err != nil {
		return fmt.Errorf("failed to resolve folder: %w", err)
	}
	return m.Modify(func(s *ProjectSettings) error {
		s.SaveFolder = abs
		return nil
	})
}

// SetCaptureRect stores the default capture rectangle
func (m *Manager) SetCaptureRect(r CaptureRect) error {
	return m.Modify(func(s *ProjectSettings) error {
		s.Capture = r
		return nil
	})
}

// SetCaptureWindowTitle stores the default window title query
func (m *Manager) SetCaptureWindowTitle(title string) error {
	return m.Modify(func(s *ProjectSettings) error {
		s.CaptureWindowTitle = title
		return nil
	})
}

// SetCaptureType stores the default strategy
func (m *Manager) SetCaptureType(t CaptureType) error {
	if _, err := ParseCaptureType(string(t)); err != nil {
		return err
	}
	return m.Modify(func(s *ProjectSettings) error {
		s.CaptureType = t
		return nil
	})
}

// SetThumbnailSize stores the thumbnail edge length in pixels
func (m *Manager) SetThumbnailSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("thumbnail size must be positive: %d", size)
	}
	return m.Modify(func(s *ProjectSettings) error {
		s.ThumbnailSize = size
		return nil
	})
}

// RememberFileName adds a stem to the known list if it is new.
// Returns true when the list changed.
func (m *Manager) RememberFileName(stem string) (bool, error) {
	stem = strings.TrimSpace(stem)
	if stem == "" {
		return false, nil
	}

	added := false
	err := m.Modify(func(s *ProjectSettings) error {
		for _, existing := range s.FileNames {
			if existing == stem {
				return nil
			}
		}
		s.FileNames = append(s.FileNames, stem)
		added = true
		return nil
	})
	return added, err
}

// SetWindowBounds remembers the viewer window placement
func (m *Manager) SetWindowBounds(b WindowBounds) error {
	return m.Modify(func(s *ProjectSettings) error {
		s.Window = b
		return nil
	})
}

// SetPort sets the server port
func (m *Manager) SetPort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port number: %d", port)
	}
	return m.Modify(func(s *ProjectSettings) error {
		s.ServerPort = port
		return nil
	})
}

// SetLogLevel sets the log level
func (m *Manager) SetLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", level)
	}
	return m.Modify(func(s *ProjectSettings) error {
		s.LogLevel = level
		return nil
	})
}

// GetConfigPath returns the config file path
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetConfigDir returns the directory holding the config file
func (m *Manager) GetConfigDir() string {
	return filepath.Dir(m.configPath)
}

// HistoryPath returns the journal database path, defaulting next to the config file
func (m *Manager) HistoryPath() string {
	s := m.Get()
	if s.HistoryDB != "" {
		return s.HistoryDB
	}
	return filepath.Join(m.GetConfigDir(), "history.db")
}
