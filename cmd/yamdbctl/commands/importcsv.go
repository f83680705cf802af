package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/yamdb/internal/importer"
)

var importDir string

var importCSVCmd = &cobra.Command{
	Use:   "import-csv",
	Short: "Load fixture CSV files into the database",
	Long: `Load users, categories, genres, titles, reviews and comments from CSV
files. Missing files are skipped. Rows that conflict with existing data are
skipped, so the command can be re-run.

Examples:
  yamdbctl import-csv                      # reads ./static/data
  yamdbctl import-csv --dir ./fixtures -v  # log every skipped row`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		report, err := importer.New(db, logger).Import(cmd.Context(), importDir)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tIMPORTED\tSKIPPED")
		for _, res := range report {
			if res.Missing {
				fmt.Fprintf(w, "%s\t-\t-\n", res.File)
				continue
			}
			fmt.Fprintf(w, "%s\t%d\t%d\n", res.File, res.Imported, res.Skipped)
		}
		return w.Flush()
	},
}

func init() {
	importCSVCmd.Flags().StringVar(&importDir, "dir", "static/data", "Directory holding the CSV files")
	rootCmd.AddCommand(importCSVCmd)
}
