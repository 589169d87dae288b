package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/history"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the capture and delete journal",
	Example: `  # Show the last 20 events
  screencapture history

  # Show the last 100 events as JSON
  screencapture history --limit 100 --json

  # Forget all events
  screencapture history --clear`,
	RunE: runHistory,
}

var (
	historyLimit int
	historyJSON  bool
	historyClear bool
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "number of events to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete all events")
}

func runHistory(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := history.Open(configMgr.HistoryPath())
	if err != nil {
		return err
	}
	defer db.Close()
	repo := history.NewRepository(db)

	if historyClear {
		n, err := repo.Clear()
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d events\n", n)
		return nil
	}

	events, err := repo.Recent(historyLimit)
	if err != nil {
		return err
	}

	if historyJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(events)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "TIME\tACTION\tFILE\tSIZE\tFOLDER")
	fmt.Fprintln(w, "----\t------\t----\t----\t------")
	for _, e := range events {
		size := "-"
		if e.Width > 0 {
			size = fmt.Sprintf("%dx%d", e.Width, e.Height)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Action, e.FileName, size, e.Folder)
	}
	return nil
}
