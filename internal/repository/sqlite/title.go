package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
)

var _ repository.TitleRepository = (*DB)(nil)

// titleSelect reads a title with its category and the live average score.
// The average is never stored: it's recomputed from reviews on every read.
const titleSelect = `
	SELECT t.id, t.name, t.year, t.description, t.created_at,
	       c.id, c.name, c.slug,
	       (SELECT AVG(r.score) FROM reviews r WHERE r.title_id = t.id)
	FROM titles t
	LEFT JOIN categories c ON c.id = t.category_id`

func scanTitle(s scanner) (*model.Title, error) {
	var (
		t                       model.Title
		catID, catName, catSlug sql.NullString
		avg                     sql.NullFloat64
	)
	err := s.Scan(
		&t.ID,
		&t.Name,
		&t.Year,
		&t.Description,
		&t.CreatedAt,
		&catID,
		&catName,
		&catSlug,
		&avg,
	)
	if err != nil {
		return nil, err
	}
	if catID.Valid {
		t.Category = &model.Category{ID: catID.String, Name: catName.String, Slug: catSlug.String}
	}
	if avg.Valid {
		v := avg.Float64
		t.Rating = &v
	}
	t.Genres = []model.Genre{}
	return &t, nil
}

// loadGenres fills Genres for every title in one query.
func loadGenres(ctx context.Context, q querier, titles []*model.Title) error {
	if len(titles) == 0 {
		return nil
	}
	byID := make(map[string]*model.Title, len(titles))
	args := make([]any, 0, len(titles))
	for _, t := range titles {
		byID[t.ID] = t
		args = append(args, t.ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(titles)), ",")

	rows, err := q.QueryContext(ctx,
		`SELECT tg.title_id, g.id, g.name, g.slug
		 FROM title_genres tg
		 JOIN genres g ON g.id = tg.genre_id
		 WHERE tg.title_id IN (`+placeholders+`)
		 ORDER BY g.name, g.slug`, args...)
	if err != nil {
		return fmt.Errorf("sqlite: loading title genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var titleID string
		var g model.Genre
		if err := rows.Scan(&titleID, &g.ID, &g.Name, &g.Slug); err != nil {
			return fmt.Errorf("sqlite: scanning title genre: %w", err)
		}
		if t, ok := byID[titleID]; ok {
			t.Genres = append(t.Genres, g)
		}
	}
	return rows.Err()
}

func replaceGenres(ctx context.Context, tx *sql.Tx, title *model.Title) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM title_genres WHERE title_id = ?`, title.ID); err != nil {
		return fmt.Errorf("sqlite: clearing genres of title %s: %w", title.ID, err)
	}
	for _, g := range title.Genres {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO title_genres (title_id, genre_id) VALUES (?, ?)`,
			title.ID, g.ID); err != nil {
			return fmt.Errorf("sqlite: linking genre %q to title %s: %w", g.Slug, title.ID, err)
		}
	}
	return nil
}

func categoryID(title *model.Title) any {
	if title.Category == nil {
		return nil
	}
	return title.Category.ID
}

// CreateTitle inserts the title row and its genre links in one transaction,
// so a failure never leaves a title without genres.
func (db *DB) CreateTitle(ctx context.Context, title *model.Title) error {
	title.ID = xid.New().String()
	title.CreatedAt = time.Now().UTC()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO titles (id, name, year, description, category_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			title.ID,
			title.Name,
			title.Year,
			title.Description,
			categoryID(title),
			title.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting title %q: %w", title.Name, err)
		}
		return replaceGenres(ctx, tx, title)
	})
}

func (db *DB) GetTitle(ctx context.Context, id string) (*model.Title, error) {
	t, err := scanTitle(db.conn.QueryRowContext(ctx, titleSelect+` WHERE t.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("title")
		}
		return nil, fmt.Errorf("sqlite: getting title %s: %w", id, err)
	}
	if err := loadGenres(ctx, db.conn, []*model.Title{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTitles returns titles ordered by name, narrowed by filter.
func (db *DB) ListTitles(ctx context.Context, filter repository.TitleFilter) (repository.Page[model.Title], error) {
	var page repository.Page[model.Title]

	var conds []string
	var args []any
	if filter.GenreSlug != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM title_genres tg JOIN genres g ON g.id = tg.genre_id
			WHERE tg.title_id = t.id AND g.slug = ?)`)
		args = append(args, filter.GenreSlug)
	}
	if filter.CategorySlug != "" {
		conds = append(conds, `c.slug = ?`)
		args = append(args, filter.CategorySlug)
	}
	if filter.Year != nil {
		conds = append(conds, `t.year = ?`)
		args = append(args, *filter.Year)
	}
	if filter.Name != "" {
		conds = append(conds, `t.name LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.Name))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	n, err := count(ctx, db.conn,
		`SELECT COUNT(*) FROM titles t LEFT JOIN categories c ON c.id = t.category_id`+where,
		args...)
	if err != nil {
		return page, fmt.Errorf("sqlite: counting titles: %w", err)
	}
	page.Count = n

	limit, limitArgs := limitClause(filter.ListOptions)
	rows, err := db.conn.QueryContext(ctx,
		titleSelect+where+` ORDER BY t.name, t.id`+limit,
		append(args, limitArgs...)...)
	if err != nil {
		return page, fmt.Errorf("sqlite: listing titles: %w", err)
	}

	var titles []*model.Title
	for rows.Next() {
		t, err := scanTitle(rows)
		if err != nil {
			rows.Close()
			return page, fmt.Errorf("sqlite: scanning title row: %w", err)
		}
		titles = append(titles, t)
	}
	err = rows.Err()
	// Close before loadGenres: the single connection is busy until then.
	rows.Close()
	if err != nil {
		return page, fmt.Errorf("sqlite: iterating title rows: %w", err)
	}

	if err := loadGenres(ctx, db.conn, titles); err != nil {
		return page, err
	}

	page.Items = make([]model.Title, 0, len(titles))
	for _, t := range titles {
		page.Items = append(page.Items, *t)
	}
	return page, nil
}

func (db *DB) UpdateTitle(ctx context.Context, title *model.Title) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE titles SET name = ?, year = ?, description = ?, category_id = ?
			 WHERE id = ?`,
			title.Name,
			title.Year,
			title.Description,
			categoryID(title),
			title.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating title %s: %w", title.ID, err)
		}
		if err := affectedOne(res, func() error { return apperror.NotFound("title") }); err != nil {
			return err
		}
		return replaceGenres(ctx, tx, title)
	})
}

// DeleteTitle removes the title; its reviews and their comments go with it.
func (db *DB) DeleteTitle(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM titles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting title %s: %w", id, err)
	}
	return affectedOne(res, func() error { return apperror.NotFound("title") })
}
