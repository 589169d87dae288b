package commands

import (
	"errors"
	"fmt"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/library"
	"github.com/spf13/cobra"
)

var folderCmd = &cobra.Command{
	Use:   "folder [PATH]",
	Short: "Show or change the active image folder",
	Long: `Without arguments, print the active folder. With PATH, make it the active
folder, load its images and save it to the config.`,
	Example: `  # Show the active folder
  screencapture folder

  # Switch to another folder
  screencapture folder ~/projects/report/shots`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFolder,
}

func init() {
	rootCmd.AddCommand(folderCmd)
}

func runFolder(cmd *cobra.Command, args []string) error {
	a, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		fmt.Println(a.session.Folder())
		return nil
	}

	err = a.session.SetFolder(args[0])
	if err != nil && !errors.Is(err, library.ErrDecodeFailure) {
		return err
	}
	fmt.Printf("Active folder: %s (%d images)\n", a.session.Folder(), len(a.session.Records()))
	return nil
}
