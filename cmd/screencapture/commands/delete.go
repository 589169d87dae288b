package commands

import (
	"fmt"
	"io"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/fileops"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete NAME...",
	Aliases: []string{"rm"},
	Short:   "Delete images from the active folder",
	Long: `Delete images from the active folder. Files go to the trash unless
--permanent is given. Files held open by another program are left alone.`,
	Example: `  # Move flow.png to the trash
  screencapture delete flow

  # Delete two files permanently without asking
  screencapture delete expected1.png expected2.png --permanent --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

var (
	deletePermanent bool
	deleteYes       bool
)

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVarP(&deletePermanent, "permanent", "p", false, "delete permanently instead of moving to the trash")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "do not ask for confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	ask := confirm
	if deleteYes {
		ask = func(string) bool { return true }
	}
	return deleteImages(cmd.OutOrStdout(), a.session, args, deletePermanent, ask)
}

type imageDeleter interface {
	Delete(fileName string, permanent bool) (fileops.DeleteOutcome, error)
}

// deleteImages deletes each named image after ask approves it and reports
// how many could not be deleted
func deleteImages(w io.Writer, d imageDeleter, args []string, permanent bool, ask func(question string) bool) error {
	failed := 0
	for _, arg := range args {
		name := imageFileName(arg)

		if !ask(fmt.Sprintf("Delete %s?", name)) {
			fmt.Fprintf(w, "Skipped %s\n", name)
			continue
		}

		outcome, err := d.Delete(name, permanent)
		switch outcome {
		case fileops.Deleted:
			fmt.Fprintf(w, "Deleted %s\n", name)
		case fileops.Locked:
			failed++
			fmt.Fprintf(w, "Locked: %s is in use by another program\n", name)
		default:
			failed++
			fmt.Fprintf(w, "Failed to delete %s: %v\n", name, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files not deleted", failed, len(args))
	}
	return nil
}
