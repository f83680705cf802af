package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
)

const commentSelect = `
	SELECT c.id, c.review_id, c.author_id, u.username, c.text, c.pub_date
	FROM comments c
	JOIN users u ON u.id = c.author_id`

func scanComment(s scanner) (*model.Comment, error) {
	var c model.Comment
	if err := s.Scan(&c.ID, &c.ReviewID, &c.AuthorID, &c.Author, &c.Text, &c.PubDate); err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) CreateComment(ctx context.Context, c *model.Comment) error {
	c.ID = xid.New().String()
	if c.PubDate.IsZero() {
		c.PubDate = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, review_id, author_id, text, pub_date) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.ReviewID, c.AuthorID, c.Text, c.PubDate,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting comment on review %s: %w", c.ReviewID, err)
	}
	return nil
}

func (db *DB) GetComment(ctx context.Context, reviewID, id string) (*model.Comment, error) {
	c, err := scanComment(db.conn.QueryRowContext(ctx,
		commentSelect+` WHERE c.id = ? AND c.review_id = ?`, id, reviewID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("comment")
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}
	return c, nil
}

// ListComments returns a review's comments, newest first.
func (db *DB) ListComments(ctx context.Context, reviewID string, opts repository.ListOptions) (repository.Page[model.Comment], error) {
	var page repository.Page[model.Comment]

	n, err := count(ctx, db.conn, `SELECT COUNT(*) FROM comments WHERE review_id = ?`, reviewID)
	if err != nil {
		return page, fmt.Errorf("sqlite: counting comments: %w", err)
	}
	page.Count = n

	limit, limitArgs := limitClause(opts)
	rows, err := db.conn.QueryContext(ctx,
		commentSelect+` WHERE c.review_id = ? ORDER BY c.pub_date DESC, c.id DESC`+limit,
		append([]any{reviewID}, limitArgs...)...)
	if err != nil {
		return page, fmt.Errorf("sqlite: listing comments: %w", err)
	}
	defer rows.Close()

	page.Items = []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return page, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		page.Items = append(page.Items, *c)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("sqlite: iterating comment rows: %w", err)
	}
	return page, nil
}

func (db *DB) UpdateComment(ctx context.Context, c *model.Comment) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE comments SET text = ? WHERE id = ?`, c.Text, c.ID)
	if err != nil {
		return fmt.Errorf("sqlite: updating comment %s: %w", c.ID, err)
	}
	return affectedOne(res, func() error { return apperror.NotFound("comment") })
}

func (db *DB) DeleteComment(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}
	return affectedOne(res, func() error { return apperror.NotFound("comment") })
}
