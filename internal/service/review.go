package service

import (
	"context"
	"log/slog"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/permission"
	"github.com/sakif/yamdb/internal/repository"
	"github.com/sakif/yamdb/internal/validation"
)

// duplicateReviewMessage matches the store's conflict for the same case.
const duplicateReviewMessage = "review already exists for this title by this author"

type ReviewInput struct {
	Text  string `json:"text" validate:"required"`
	Score int    `json:"score" validate:"required,min=1,max=10"`
}

// ReviewPatch changes text and/or score. Author and pub_date are fixed.
type ReviewPatch struct {
	Text  *string `json:"text" validate:"omitnil,min=1"`
	Score *int    `json:"score" validate:"omitnil,min=1,max=10"`
}

// ReviewService manages reviews on titles.
type ReviewService struct {
	reviews repository.ReviewRepository
	titles  repository.TitleRepository
	perm    *permission.Evaluator
	logger  *slog.Logger
}

func NewReviewService(
	reviews repository.ReviewRepository,
	titles repository.TitleRepository,
	perm *permission.Evaluator,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		titles:  titles,
		perm:    perm,
		logger:  logger,
	}
}

// Create adds the actor's review of a title. One review per author per
// title: a second attempt is a conflict.
func (s *ReviewService) Create(ctx context.Context, actor permission.Actor, titleID string, in ReviewInput) (*model.Review, error) {
	if err := s.perm.CanCreateContent(actor); err != nil {
		return nil, err
	}
	if _, err := s.titles.GetTitle(ctx, titleID); err != nil {
		return nil, err
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	exists, err := s.reviews.ReviewExists(ctx, titleID, actor.AccountID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.Conflict(duplicateReviewMessage)
	}

	r := &model.Review{
		TitleID:  titleID,
		AuthorID: actor.AccountID,
		Author:   actor.Username,
		Text:     in.Text,
		Score:    in.Score,
	}
	if err := s.reviews.CreateReview(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info("review created",
		slog.String("review_id", r.ID),
		slog.String("title_id", titleID),
		slog.String("by", actor.Username),
	)
	return r, nil
}

func (s *ReviewService) Get(ctx context.Context, actor permission.Actor, titleID, id string) (*model.Review, error) {
	if err := s.perm.CanRead(actor); err != nil {
		return nil, err
	}
	return s.reviews.GetReview(ctx, titleID, id)
}

func (s *ReviewService) List(ctx context.Context, actor permission.Actor, titleID string, opts repository.ListOptions) (repository.Page[model.Review], error) {
	if err := s.perm.CanRead(actor); err != nil {
		return repository.Page[model.Review]{}, err
	}
	if _, err := s.titles.GetTitle(ctx, titleID); err != nil {
		return repository.Page[model.Review]{}, err
	}
	return s.reviews.ListReviews(ctx, titleID, opts)
}

func (s *ReviewService) Update(ctx context.Context, actor permission.Actor, titleID, id string, patch ReviewPatch) (*model.Review, error) {
	r, err := s.modifiable(ctx, actor, titleID, id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(&patch); err != nil {
		return nil, err
	}

	if patch.Text != nil {
		r.Text = *patch.Text
	}
	if patch.Score != nil {
		r.Score = *patch.Score
	}
	if err := s.reviews.UpdateReview(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes a review and its comments.
func (s *ReviewService) Delete(ctx context.Context, actor permission.Actor, titleID, id string) error {
	r, err := s.modifiable(ctx, actor, titleID, id)
	if err != nil {
		return err
	}
	if err := s.reviews.DeleteReview(ctx, r.ID); err != nil {
		return err
	}
	s.logger.Info("review deleted",
		slog.String("review_id", r.ID),
		slog.String("by", actor.Username),
	)
	return nil
}

// modifiable loads a review the actor may edit or delete. Anonymous callers
// are turned away before the lookup.
func (s *ReviewService) modifiable(ctx context.Context, actor permission.Actor, titleID, id string) (*model.Review, error) {
	if err := s.perm.CanCreateContent(actor); err != nil {
		return nil, err
	}
	r, err := s.reviews.GetReview(ctx, titleID, id)
	if err != nil {
		return nil, err
	}
	if err := s.perm.CanModifyContent(actor, r.AuthorID); err != nil {
		return nil, err
	}
	return r, nil
}
