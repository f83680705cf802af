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

var (
	_ repository.ReviewRepository  = (*DB)(nil)
	_ repository.CommentRepository = (*DB)(nil)
)

const duplicateReviewMessage = "review already exists for this title by this author"

const reviewSelect = `
	SELECT r.id, r.title_id, r.author_id, u.username, r.text, r.score, r.pub_date
	FROM reviews r
	JOIN users u ON u.id = r.author_id`

func scanReview(s scanner) (*model.Review, error) {
	var r model.Review
	err := s.Scan(&r.ID, &r.TitleID, &r.AuthorID, &r.Author, &r.Text, &r.Score, &r.PubDate)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReview inserts a review. PubDate is kept when already set (imports),
// otherwise it's stamped now. The UNIQUE(author_id, title_id) index is the
// final word on duplicates: a violation here becomes a conflict even if a
// concurrent request slipped past the service's pre-check.
func (db *DB) CreateReview(ctx context.Context, r *model.Review) error {
	r.ID = xid.New().String()
	if r.PubDate.IsZero() {
		r.PubDate = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO reviews (id, title_id, author_id, text, score, pub_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.TitleID, r.AuthorID, r.Text, r.Score, r.PubDate,
	)
	if err != nil {
		if isUniqueViolation(err, "reviews.") {
			return apperror.Conflict(duplicateReviewMessage)
		}
		return fmt.Errorf("sqlite: inserting review on title %s: %w", r.TitleID, err)
	}
	return nil
}

// GetReview looks a review up by ID within a title. A review that exists but
// belongs to another title is reported as not found.
func (db *DB) GetReview(ctx context.Context, titleID, id string) (*model.Review, error) {
	r, err := scanReview(db.conn.QueryRowContext(ctx,
		reviewSelect+` WHERE r.id = ? AND r.title_id = ?`, id, titleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("review")
		}
		return nil, fmt.Errorf("sqlite: getting review %s: %w", id, err)
	}
	return r, nil
}

// ListReviews returns a title's reviews, newest first.
func (db *DB) ListReviews(ctx context.Context, titleID string, opts repository.ListOptions) (repository.Page[model.Review], error) {
	var page repository.Page[model.Review]

	n, err := count(ctx, db.conn, `SELECT COUNT(*) FROM reviews WHERE title_id = ?`, titleID)
	if err != nil {
		return page, fmt.Errorf("sqlite: counting reviews: %w", err)
	}
	page.Count = n

	limit, limitArgs := limitClause(opts)
	rows, err := db.conn.QueryContext(ctx,
		reviewSelect+` WHERE r.title_id = ? ORDER BY r.pub_date DESC, r.id DESC`+limit,
		append([]any{titleID}, limitArgs...)...)
	if err != nil {
		return page, fmt.Errorf("sqlite: listing reviews: %w", err)
	}
	defer rows.Close()

	page.Items = []model.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return page, fmt.Errorf("sqlite: scanning review row: %w", err)
		}
		page.Items = append(page.Items, *r)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("sqlite: iterating review rows: %w", err)
	}
	return page, nil
}

func (db *DB) ReviewExists(ctx context.Context, titleID, authorID string) (bool, error) {
	n, err := count(ctx, db.conn,
		`SELECT COUNT(*) FROM reviews WHERE title_id = ? AND author_id = ?`, titleID, authorID)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking review existence: %w", err)
	}
	return n > 0, nil
}

// UpdateReview writes text and score only. Author, title and pub_date never
// change after creation.
func (db *DB) UpdateReview(ctx context.Context, r *model.Review) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE reviews SET text = ?, score = ? WHERE id = ?`, r.Text, r.Score, r.ID)
	if err != nil {
		return fmt.Errorf("sqlite: updating review %s: %w", r.ID, err)
	}
	return affectedOne(res, func() error { return apperror.NotFound("review") })
}

// DeleteReview removes the review and, by cascade, its comments.
func (db *DB) DeleteReview(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting review %s: %w", id, err)
	}
	return affectedOne(res, func() error { return apperror.NotFound("review") })
}
