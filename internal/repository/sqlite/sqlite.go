// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// ONE CONNECTION:
// SQLite serializes writers anyway, and two settings we rely on are
// per-connection: PRAGMA foreign_keys (cascades!) and the contents of a
// ":memory:" database. Pinning the pool to a single connection keeps both
// consistent for every query.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/sakif/yamdb/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides every repository method.
type DB struct {
	conn *sql.DB
}

// querier is what both *sql.DB and *sql.Tx offer. Helpers that may run
// inside or outside a transaction take one of these.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/yamdb.db" → file-based database
//   - ":memory:"      → in-memory database, gone on Close
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight. It is a no-op for
	// ":memory:" databases.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. Every cascade in the schema
	// below depends on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// withTx runs fn inside a transaction and commits if fn returns nil.
// fn must use tx for every statement: with a single pooled connection, a
// query on db.conn would wait forever for the connection tx is holding.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
//
// Deletion rules live here, in the schema:
//   - deleting a title removes its reviews, and through them their comments
//   - deleting an account removes the reviews and comments it authored
//   - deleting a category leaves its titles uncategorized
//   - deleting a genre or title drops only the association rows
func (db *DB) migrate() error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id             TEXT PRIMARY KEY,
				username       TEXT NOT NULL UNIQUE,
				email          TEXT NOT NULL UNIQUE,
				first_name     TEXT NOT NULL DEFAULT '',
				last_name      TEXT NOT NULL DEFAULT '',
				bio            TEXT NOT NULL DEFAULT '',
				role           TEXT NOT NULL DEFAULT 'user',
				is_superuser   INTEGER NOT NULL DEFAULT 0,
				is_active      INTEGER NOT NULL DEFAULT 0,
				code_hash      TEXT NOT NULL DEFAULT '',
				code_issued_at DATETIME,
				created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`},
		{"categories", `
			CREATE TABLE IF NOT EXISTS categories (
				id   TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				slug TEXT NOT NULL UNIQUE
			);`},
		{"genres", `
			CREATE TABLE IF NOT EXISTS genres (
				id   TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				slug TEXT NOT NULL UNIQUE
			);`},
		{"titles", `
			CREATE TABLE IF NOT EXISTS titles (
				id          TEXT PRIMARY KEY,
				name        TEXT NOT NULL,
				year        INTEGER NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_titles_category_id ON titles(category_id);
			CREATE INDEX IF NOT EXISTS idx_titles_year ON titles(year);`},
		{"title_genres", `
			CREATE TABLE IF NOT EXISTS title_genres (
				title_id TEXT NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
				genre_id TEXT NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
				PRIMARY KEY (title_id, genre_id)
			);
			CREATE INDEX IF NOT EXISTS idx_title_genres_genre_id ON title_genres(genre_id);`},
		{"reviews", `
			CREATE TABLE IF NOT EXISTS reviews (
				id        TEXT PRIMARY KEY,
				title_id  TEXT NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
				author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				text      TEXT NOT NULL,
				score     INTEGER NOT NULL CHECK (score BETWEEN 1 AND 10),
				pub_date  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (author_id, title_id)
			);
			CREATE INDEX IF NOT EXISTS idx_reviews_title_id ON reviews(title_id);`},
		{"comments", `
			CREATE TABLE IF NOT EXISTS comments (
				id        TEXT PRIMARY KEY,
				review_id TEXT NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
				author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				text      TEXT NOT NULL,
				pub_date  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_comments_review_id ON comments(review_id);`},
	}

	for _, s := range stmts {
		if _, err := db.conn.Exec(s.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", s.name, err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is SQLite's UNIQUE constraint error
// for the given "table.column" (or any column when target is empty).
func isUniqueViolation(err error, target string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return target == "" || strings.Contains(msg, target)
}

// likePattern turns a search term into a LIKE pattern with % and _ escaped.
// Queries using it must add ESCAPE '\'.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

// count runs a COUNT(*) query.
func count(ctx context.Context, q querier, query string, args ...any) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// affectedOne returns apperror-style not-found when an UPDATE/DELETE touched
// no rows. notFound is only called in that case.
func affectedOne(res sql.Result, notFound func() error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if n == 0 {
		return notFound()
	}
	return nil
}

// limitClause appends LIMIT/OFFSET when a limit is set.
func limitClause(opts repository.ListOptions) (string, []any) {
	if opts.Limit <= 0 {
		return "", nil
	}
	return " LIMIT ? OFFSET ?", []any{opts.Limit, opts.Offset}
}
