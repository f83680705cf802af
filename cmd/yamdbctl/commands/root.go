package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/yamdb/internal/config"
	"github.com/sakif/yamdb/internal/logging"
	sqliteRepo "github.com/sakif/yamdb/internal/repository/sqlite"
)

var (
	// Global flags
	dbPath  string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "yamdbctl",
	Short: "YaMDb administration tool",
	Long: `yamdbctl manages a YaMDb database outside the API server.

Configuration is read the same way the server reads it: defaults, then
config.yaml (or $YAMDB_CONFIG), then YAMDB_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger = logging.New(cfg.Logging, os.Stderr)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides database.path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

// openDB opens the configured database, creating its directory if needed.
// Opening runs the schema migrations.
func openDB() (*sqliteRepo.DB, error) {
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}
