package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/capture"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/config"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/fileops"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/session"
	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture [NAME]",
	Short: "Capture a screen rectangle or a window to PNG",
	Long: `Capture a rectangle of the virtual desktop or the first visible window whose
title contains the given text, and save it as NAME.png in the active folder.

Without --rect or --window the capture type, rectangle and window title stored
in the config are used. Without NAME the file is named after the current time.`,
	Example: `  # Capture the configured default
  screencapture capture

  # Capture a rectangle as flow.png
  screencapture capture flow --rect 0,0,800,600

  # Capture a window by partial title, replacing any existing file
  screencapture capture expected1 --window "notepad" --yes

  # Capture into a sub folder of the active folder
  screencapture capture condition1 --sub run-2`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCapture,
}

var (
	captureRect      string
	captureWindow    string
	captureSub       string
	captureYes       bool
	captureNoClobber bool
	captureSave      bool
)

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringVarP(&captureRect, "rect", "r", "", "rectangle to capture as LEFT,TOP,WIDTH,HEIGHT")
	captureCmd.Flags().StringVarP(&captureWindow, "window", "w", "", "capture the first window whose title contains this text")
	captureCmd.Flags().StringVarP(&captureSub, "sub", "s", "", "sub folder of the active folder")
	captureCmd.Flags().BoolVarP(&captureYes, "yes", "y", false, "overwrite existing files without asking")
	captureCmd.Flags().BoolVarP(&captureNoClobber, "no-clobber", "n", false, "never overwrite existing files")
	captureCmd.Flags().BoolVar(&captureSave, "save-default", false, "store --rect or --window as the new default")
	captureCmd.MarkFlagsMutuallyExclusive("rect", "window")
	captureCmd.MarkFlagsMutuallyExclusive("yes", "no-clobber")
}

func runCapture(cmd *cobra.Command, args []string) error {
	spec, err := captureSpecFromFlags()
	if err != nil {
		return err
	}

	a, err := openApp(appOptions{capture: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if captureSave && spec != nil {
		if err := saveDefaultSpec(a.config, spec); err != nil {
			return err
		}
	}

	var stem string
	if len(args) > 0 {
		stem = args[0]
	}

	res, err := a.session.Capture(session.CaptureRequest{
		Spec:      spec,
		FileStem:  stem,
		SubFolder: captureSub,
		Confirm:   overwriteConfirmer(captureYes, captureNoClobber),
	})
	if err != nil {
		return err
	}
	printCaptureResult(cmd.OutOrStdout(), res)
	return nil
}

func printCaptureResult(w io.Writer, res *session.CaptureResult) {
	switch res.Outcome {
	case fileops.Saved:
		verb := "Saved"
		if res.Overwritten {
			verb = "Replaced"
		}
		fmt.Fprintf(w, "%s %s (%dx%d)\n", verb, res.Path, res.Width, res.Height)
	case fileops.Cancelled:
		fmt.Fprintf(w, "Cancelled: %s already exists\n", res.Path)
	}
}

func captureSpecFromFlags() (capture.Spec, error) {
	if captureWindow != "" {
		return capture.WindowSpec{TitleQuery: captureWindow}, nil
	}
	if captureRect != "" {
		r, err := parseRect(captureRect)
		if err != nil {
			return nil, err
		}
		return capture.RectSpec{Rect: r}, nil
	}
	return nil, nil
}

// parseRect reads LEFT,TOP,WIDTH,HEIGHT
func parseRect(s string) (capture.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return capture.Rect{}, fmt.Errorf("invalid rectangle %q (use LEFT,TOP,WIDTH,HEIGHT)", s)
	}
	var n [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return capture.Rect{}, fmt.Errorf("invalid rectangle %q: %w", s, err)
		}
		n[i] = v
	}
	return capture.Rect{Left: n[0], Top: n[1], Width: n[2], Height: n[3]}, nil
}

func saveDefaultSpec(m *config.Manager, spec capture.Spec) error {
	switch s := spec.(type) {
	case capture.RectSpec:
		if err := m.SetCaptureRect(config.CaptureRect{
			Left: s.Rect.Left, Top: s.Rect.Top, Width: s.Rect.Width, Height: s.Rect.Height,
		}); err != nil {
			return err
		}
	case capture.WindowSpec:
		if err := m.SetCaptureWindowTitle(s.TitleQuery); err != nil {
			return err
		}
	}
	return m.SetCaptureType(spec.Kind())
}

func overwriteConfirmer(yes, noClobber bool) fileops.Confirmer {
	switch {
	case yes:
		return fileops.Always(true)
	case noClobber:
		return fileops.Always(false)
	}
	return promptConfirmer{}
}

// promptConfirmer asks on the terminal. Anything but y/yes declines.
type promptConfirmer struct{}

func (promptConfirmer) ConfirmOverwrite(path string) bool {
	return confirm(fmt.Sprintf("%s already exists. Overwrite?", path))
}

var stdin = bufio.NewReader(os.Stdin)

func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
