package commands

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/capture"
	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open NAME",
	Short: "Open a captured image in the default viewer",
	Long: `Open NAME from the active folder with the desktop's default image viewer.
With --print only the full path is printed.`,
	Example: `  # Show flow.png
  screencapture open flow

  # Print the path for use in scripts
  screencapture open flow --print`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

var openPrint bool

func init() {
	rootCmd.AddCommand(openCmd)

	openCmd.Flags().BoolVar(&openPrint, "print", false, "print the image path instead of opening it")
}

func runOpen(cmd *cobra.Command, args []string) error {
	a, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	name := imageFileName(args[0])
	f, err := a.session.Open(name)
	if err != nil {
		return err
	}
	path := f.Name()
	f.Close()

	if openPrint {
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}

	argv := viewerCommand(runtime.GOOS, path)
	if err := exec.Command(argv[0], argv[1:]...).Start(); err != nil {
		return fmt.Errorf("failed to start viewer %s: %w", argv[0], err)
	}
	return nil
}

// imageFileName turns a stem or path argument into a file name in the active folder
func imageFileName(arg string) string {
	name := filepath.Base(arg)
	if !strings.EqualFold(filepath.Ext(name), capture.FileExtension) {
		name += capture.FileExtension
	}
	return name
}

// viewerCommand returns the command that opens path with the default application
func viewerCommand(goos, path string) []string {
	switch goos {
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", path}
	case "darwin":
		return []string{"open", path}
	}
	return []string{"xdg-open", path}
}
