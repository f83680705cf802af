package service

import (
	"context"
	"log/slog"

	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/permission"
	"github.com/sakif/yamdb/internal/repository"
	"github.com/sakif/yamdb/internal/validation"
)

type CommentInput struct {
	Text string `json:"text" validate:"required"`
}

// CommentService manages comments on reviews. Every operation is addressed
// by (title, review, comment); a review that does not belong to the title is
// not found.
type CommentService struct {
	comments repository.CommentRepository
	reviews  repository.ReviewRepository
	perm     *permission.Evaluator
	logger   *slog.Logger
}

func NewCommentService(
	comments repository.CommentRepository,
	reviews repository.ReviewRepository,
	perm *permission.Evaluator,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		comments: comments,
		reviews:  reviews,
		perm:     perm,
		logger:   logger,
	}
}

func (s *CommentService) Create(ctx context.Context, actor permission.Actor, titleID, reviewID string, in CommentInput) (*model.Comment, error) {
	if err := s.perm.CanCreateContent(actor); err != nil {
		return nil, err
	}
	if _, err := s.reviews.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	c := &model.Comment{
		ReviewID: reviewID,
		AuthorID: actor.AccountID,
		Author:   actor.Username,
		Text:     in.Text,
	}
	if err := s.comments.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CommentService) Get(ctx context.Context, actor permission.Actor, titleID, reviewID, id string) (*model.Comment, error) {
	if err := s.perm.CanRead(actor); err != nil {
		return nil, err
	}
	if _, err := s.reviews.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	return s.comments.GetComment(ctx, reviewID, id)
}

func (s *CommentService) List(ctx context.Context, actor permission.Actor, titleID, reviewID string, opts repository.ListOptions) (repository.Page[model.Comment], error) {
	if err := s.perm.CanRead(actor); err != nil {
		return repository.Page[model.Comment]{}, err
	}
	if _, err := s.reviews.GetReview(ctx, titleID, reviewID); err != nil {
		return repository.Page[model.Comment]{}, err
	}
	return s.comments.ListComments(ctx, reviewID, opts)
}

func (s *CommentService) Update(ctx context.Context, actor permission.Actor, titleID, reviewID, id string, in CommentInput) (*model.Comment, error) {
	c, err := s.modifiable(ctx, actor, titleID, reviewID, id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	c.Text = in.Text
	if err := s.comments.UpdateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CommentService) Delete(ctx context.Context, actor permission.Actor, titleID, reviewID, id string) error {
	c, err := s.modifiable(ctx, actor, titleID, reviewID, id)
	if err != nil {
		return err
	}
	if err := s.comments.DeleteComment(ctx, c.ID); err != nil {
		return err
	}
	s.logger.Info("comment deleted",
		slog.String("comment_id", c.ID),
		slog.String("by", actor.Username),
	)
	return nil
}

func (s *CommentService) modifiable(ctx context.Context, actor permission.Actor, titleID, reviewID, id string) (*model.Comment, error) {
	if err := s.perm.CanCreateContent(actor); err != nil {
		return nil, err
	}
	if _, err := s.reviews.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	c, err := s.comments.GetComment(ctx, reviewID, id)
	if err != nil {
		return nil, err
	}
	if err := s.perm.CanModifyContent(actor, c.AuthorID); err != nil {
		return nil, err
	}
	return c, nil
}
