package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/api"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Screen Capture Tool server",
	Long: `Start the HTTP server. It provides a REST API for capturing, listing and
deleting images, and a web page that shows the active folder live.`,
	Example: `  # Start server on default port (8080)
  screencapture serve

  # Start server on custom port
  screencapture serve --port 9090

  # Start with specific config file
  screencapture serve --config /path/to/config.yaml

  # Start with debug logging
  screencapture serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	a, err := openApp(appOptions{capture: true, windows: true})
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.config.Get()
	log.Info().
		Str("config", a.config.GetConfigPath()).
		Str("folder", a.session.Folder()).
		Str("capture", a.router.Name()).
		Msg("Configuration loaded")

	var hist api.HistorySource
	if a.history != nil {
		hist = a.history
	}
	server := api.NewServer(a.session, a.windows, hist)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.ServerPort)
	}()

	fmt.Println()
	fmt.Println("Screen Capture Tool is running!")
	fmt.Printf("   - Web UI: http://localhost:%d\n", cfg.ServerPort)
	fmt.Printf("   - API: http://localhost:%d/api\n", cfg.ServerPort)
	fmt.Println("   - Press Ctrl+C to stop")
	fmt.Println()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-sigChan:
	}

	log.Info().Msg("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
