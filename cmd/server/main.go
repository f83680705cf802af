// Package main is the entry point for the YaMDb API server.
//
// main stays small: load configuration, build the logger, open the
// database, build the mail sender, hand everything to internal/server.
// All behaviour lives in the internal packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/yamdb/internal/config"
	"github.com/sakif/yamdb/internal/logging"
	"github.com/sakif/yamdb/internal/mail"
	sqliteRepo "github.com/sakif/yamdb/internal/repository/sqlite"
	"github.com/sakif/yamdb/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	// Defaults, then config.yaml (or $YAMDB_CONFIG), then YAMDB_* env vars.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := logging.New(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	// === 3. DATABASE ===
	if cfg.Database.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 4. MAIL ===
	mailer := mail.New(cfg.Mail, logger)
	if cfg.Mail.Backend == config.MailBackendLog {
		logger.Warn("mail backend is \"log\": confirmation codes are written to the log, not emailed")
	}

	// === 5. SERVE ===
	srv, err := server.New(cfg, db, mailer, logger)
	if err != nil {
		db.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM and closes the database on return.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
