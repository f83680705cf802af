package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Long: `Open the database and apply the schema. Safe to run repeatedly; the
server does the same on startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "schema up to date: %s\n", cfg.Database.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
