package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/config"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "screencapture",
		Short: "Screen Capture Tool - capture screen regions and windows into a PNG folder",
		Long: `Screen Capture Tool captures a fixed rectangle of the desktop or a window
found by its title, stores the result as a 32-bit PNG in the active folder, and
keeps a thumbnail library of that folder.

Features:
  • Rectangle capture validated against the virtual desktop
  • Window capture by partial, case-insensitive title
  • Safe overwrite and delete (locked files are never touched, deletes go to the trash)
  • Capture history journal
  • REST API and live web view of the active folder`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := viper.GetString("log_level")
			if level == "" {
				level = "info"
			}
			logger.Init(level, viper.GetBool("pretty"))
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/screencapture/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("folder", "", "active image folder (saved to the config)")
	rootCmd.PersistentFlags().Bool("pretty", true, "human-readable log output")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("save_folder", rootCmd.PersistentFlags().Lookup("folder"))
	viper.BindPFlag("pretty", rootCmd.PersistentFlags().Lookup("pretty"))
	viper.SetEnvPrefix("SCREENCAPTURE")
	viper.AutomaticEnv()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig opens the config file and applies flag overrides
func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Override port from flag if provided
	if port := viper.GetInt("server_port"); port > 0 {
		if err := configMgr.SetPort(port); err != nil {
			return nil, err
		}
	}

	// Override log level from flag if provided
	if level := viper.GetString("log_level"); level != "" {
		if err := configMgr.SetLogLevel(level); err != nil {
			return nil, err
		}
	}

	if viper.GetString("log_level") == "" {
		logger.Init(configMgr.Get().LogLevel, viper.GetBool("pretty"))
	}

	if folder := viper.GetString("save_folder"); folder != "" {
		if err := configMgr.SetSaveFolder(folder); err != nil {
			return nil, err
		}
	}

	return configMgr, nil
}
