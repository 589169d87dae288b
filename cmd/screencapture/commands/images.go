package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/library"
	"github.com/spf13/cobra"
)

var imagesCmd = &cobra.Command{
	Use:     "images",
	Aliases: []string{"ls"},
	Short:   "List the images in the active folder",
	Long: `List every PNG file directly inside the active folder with its size.
Files that cannot be decoded are listed without a size.`,
	Example: `  # List images in table format (default)
  screencapture images

  # List images in JSON format
  screencapture images --format json`,
	RunE: runImages,
}

var imagesFormat string

func init() {
	rootCmd.AddCommand(imagesCmd)

	imagesCmd.Flags().StringVarP(&imagesFormat, "format", "f", "table", "output format (table or json)")
}

type imageRow struct {
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Readable bool   `json:"readable"`
}

func runImages(cmd *cobra.Command, args []string) error {
	a, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Refresh(); err != nil && !errors.Is(err, library.ErrDecodeFailure) {
		return err
	}

	records := a.session.Records()
	rows := make([]imageRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, imageRow{
			FileName: rec.FileName,
			Width:    rec.Width,
			Height:   rec.Height,
			Readable: rec.Thumbnail != nil,
		})
	}

	switch imagesFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]interface{}{
			"folder": a.session.Folder(),
			"images": rows,
		})
	case "table":
		fmt.Printf("Folder: %s\n\n", a.session.Folder())
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, "NAME\tSIZE")
		fmt.Fprintln(w, "----\t----")
		for _, row := range rows {
			size := "unreadable"
			if row.Readable {
				size = fmt.Sprintf("%dx%d", row.Width, row.Height)
			}
			fmt.Fprintf(w, "%s\t%s\n", row.FileName, size)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", imagesFormat)
	}
}
