package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Screen Capture Tool configuration",
	Long:  `View and manage the capture defaults, active folder and server settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration.`,
	Example: `  # Show configuration as YAML (default)
  screencapture config show

  # Show configuration as JSON
  screencapture config show --format json`,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value.

Keys: capture.left, capture.top, capture.width, capture.height,
capture_window_title, capture_type, thumbnail_size, save_folder, recycle,
history_db, server_port, log_level`,
	Example: `  # Capture windows by default
  screencapture config set capture_type window
  screencapture config set capture_window_title "Visual Studio"

  # Set server port
  screencapture config set server_port 9090`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Long:  `Get a specific configuration value. Nested keys use dots.`,
	Example: `  # Get the default capture width
  screencapture config get capture.width

  # Get log level
  screencapture config get log_level`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

var formatFlag string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configPathCmd)

	configShowCmd.Flags().StringVarP(&formatFlag, "format", "f", "yaml", "output format (yaml or json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg := configMgr.Get()

	switch formatFlag {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (use 'yaml' or 'json')", formatFlag)
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := setConfigValue(configMgr, key, value); err != nil {
		return err
	}

	fmt.Printf("Configuration updated: %s = %s\n", key, value)
	return nil
}

func setConfigValue(m *config.Manager, key, value string) error {
	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid number: %s", value)
		}
		return n, nil
	}

	switch key {
	case "capture.left", "capture.top", "capture.width", "capture.height":
		n, err := atoi()
		if err != nil {
			return err
		}
		r := m.Get().Capture
		switch key {
		case "capture.left":
			r.Left = n
		case "capture.top":
			r.Top = n
		case "capture.width":
			r.Width = n
		case "capture.height":
			r.Height = n
		}
		return m.SetCaptureRect(r)
	case "capture_window_title":
		return m.SetCaptureWindowTitle(value)
	case "capture_type":
		t, err := config.ParseCaptureType(value)
		if err != nil {
			return err
		}
		return m.SetCaptureType(t)
	case "thumbnail_size":
		n, err := atoi()
		if err != nil {
			return err
		}
		return m.SetThumbnailSize(n)
	case "save_folder":
		return m.SetSaveFolder(value)
	case "server_port":
		n, err := atoi()
		if err != nil {
			return fmt.Errorf("invalid port number: %s", value)
		}
		return m.SetPort(n)
	case "log_level":
		return m.SetLogLevel(value)
	case "recycle":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s (use: true or false)", value)
		}
		return m.Modify(func(s *config.ProjectSettings) error {
			s.Recycle = b
			return nil
		})
	case "history_db":
		return m.Modify(func(s *config.ProjectSettings) error {
			s.HistoryDB = value
			return nil
		})
	}
	return fmt.Errorf("unknown or read-only configuration key: %s", key)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configMgr.GetConfigPath())
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key not found: %s", key)
	}

	fmt.Println(v.Get(key))
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println(configMgr.GetConfigPath())
	return nil
}
