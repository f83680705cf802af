package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
)

var (
	_ repository.CategoryRepository = (*DB)(nil)
	_ repository.GenreRepository    = (*DB)(nil)
)

// Categories and genres share one shape (id, name, unique slug), so both go
// through the slugTable helpers below. table is always one of two constants,
// never user input.
type slugTable struct {
	table    string
	resource string
}

var (
	categoriesTable = slugTable{table: "categories", resource: "category"}
	genresTable     = slugTable{table: "genres", resource: "genre"}
)

func (t slugTable) create(ctx context.Context, q querier, name, slug string) (string, error) {
	id := xid.New().String()
	_, err := q.ExecContext(ctx,
		`INSERT INTO `+t.table+` (id, name, slug) VALUES (?, ?, ?)`, id, name, slug)
	if err != nil {
		if isUniqueViolation(err, t.table+".slug") {
			return "", apperror.FieldTaken("slug", slug)
		}
		return "", fmt.Errorf("sqlite: inserting %s %q: %w", t.resource, slug, err)
	}
	return id, nil
}

func (t slugTable) get(ctx context.Context, q querier, slug string) (id, name string, err error) {
	err = q.QueryRowContext(ctx,
		`SELECT id, name FROM `+t.table+` WHERE slug = ?`, slug,
	).Scan(&id, &name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", apperror.NotFound(t.resource)
		}
		return "", "", fmt.Errorf("sqlite: getting %s %q: %w", t.resource, slug, err)
	}
	return id, name, nil
}

type slugRow struct{ id, name, slug string }

func (t slugTable) list(ctx context.Context, q querier, opts repository.ListOptions) ([]slugRow, int, error) {
	where := ""
	var args []any
	if opts.Search != "" {
		where = ` WHERE name LIKE ? ESCAPE '\'`
		args = append(args, likePattern(opts.Search))
	}

	n, err := count(ctx, q, `SELECT COUNT(*) FROM `+t.table+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting %s: %w", t.table, err)
	}

	limit, limitArgs := limitClause(opts)
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, slug FROM `+t.table+where+` ORDER BY name, slug`+limit,
		append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing %s: %w", t.table, err)
	}
	defer rows.Close()

	var out []slugRow
	for rows.Next() {
		var r slugRow
		if err := rows.Scan(&r.id, &r.name, &r.slug); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning %s row: %w", t.resource, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating %s rows: %w", t.table, err)
	}
	return out, n, nil
}

func (t slugTable) delete(ctx context.Context, q querier, slug string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM `+t.table+` WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("sqlite: deleting %s %q: %w", t.resource, slug, err)
	}
	return affectedOne(res, func() error { return apperror.NotFound(t.resource) })
}

// =========================================================================
// CATEGORIES
// =========================================================================

func (db *DB) CreateCategory(ctx context.Context, c *model.Category) error {
	id, err := categoriesTable.create(ctx, db.conn, c.Name, c.Slug)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (db *DB) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	id, name, err := categoriesTable.get(ctx, db.conn, slug)
	if err != nil {
		return nil, err
	}
	return &model.Category{ID: id, Name: name, Slug: slug}, nil
}

func (db *DB) ListCategories(ctx context.Context, opts repository.ListOptions) (repository.Page[model.Category], error) {
	rows, n, err := categoriesTable.list(ctx, db.conn, opts)
	if err != nil {
		return repository.Page[model.Category]{}, err
	}
	items := make([]model.Category, 0, len(rows))
	for _, r := range rows {
		items = append(items, model.Category{ID: r.id, Name: r.name, Slug: r.slug})
	}
	return repository.Page[model.Category]{Items: items, Count: n}, nil
}

// DeleteCategory removes the category. Titles in it become uncategorized.
func (db *DB) DeleteCategory(ctx context.Context, slug string) error {
	return categoriesTable.delete(ctx, db.conn, slug)
}

// =========================================================================
// GENRES
// =========================================================================

func (db *DB) CreateGenre(ctx context.Context, g *model.Genre) error {
	id, err := genresTable.create(ctx, db.conn, g.Name, g.Slug)
	if err != nil {
		return err
	}
	g.ID = id
	return nil
}

func (db *DB) GetGenreBySlug(ctx context.Context, slug string) (*model.Genre, error) {
	id, name, err := genresTable.get(ctx, db.conn, slug)
	if err != nil {
		return nil, err
	}
	return &model.Genre{ID: id, Name: name, Slug: slug}, nil
}

func (db *DB) ListGenres(ctx context.Context, opts repository.ListOptions) (repository.Page[model.Genre], error) {
	rows, n, err := genresTable.list(ctx, db.conn, opts)
	if err != nil {
		return repository.Page[model.Genre]{}, err
	}
	items := make([]model.Genre, 0, len(rows))
	for _, r := range rows {
		items = append(items, model.Genre{ID: r.id, Name: r.name, Slug: r.slug})
	}
	return repository.Page[model.Genre]{Items: items, Count: n}, nil
}

// DeleteGenre removes the genre and its title associations; titles stay.
func (db *DB) DeleteGenre(ctx context.Context, slug string) error {
	return genresTable.delete(ctx, db.conn, slug)
}
