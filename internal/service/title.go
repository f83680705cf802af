package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/permission"
	"github.com/sakif/yamdb/internal/repository"
	"github.com/sakif/yamdb/internal/validation"
)

// TitleInput is the body of POST /titles. Category and genres are referenced
// by slug.
type TitleInput struct {
	Name        string   `json:"name" validate:"required,max=256"`
	Year        int      `json:"year" validate:"required,pastyear"`
	Description string   `json:"description"`
	Category    string   `json:"category" validate:"omitempty,slug"`
	Genre       []string `json:"genre" validate:"required,min=1,dive,required,slug"`
}

// TitlePatch is a partial title update. An empty Category string removes the
// category; a Genre list replaces the whole set and may not be empty.
type TitlePatch struct {
	Name        *string   `json:"name" validate:"omitnil,min=1,max=256"`
	Year        *int      `json:"year" validate:"omitnil,pastyear"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Genre       *[]string `json:"genre" validate:"omitnil,min=1,dive,required,slug"`
}

// TitleService manages titles. Ratings on every title it returns are rounded
// to one decimal.
type TitleService struct {
	titles     repository.TitleRepository
	categories repository.CategoryRepository
	genres     repository.GenreRepository
	perm       *permission.Evaluator
	logger     *slog.Logger
}

func NewTitleService(
	titles repository.TitleRepository,
	categories repository.CategoryRepository,
	genres repository.GenreRepository,
	perm *permission.Evaluator,
	logger *slog.Logger,
) *TitleService {
	return &TitleService{
		titles:     titles,
		categories: categories,
		genres:     genres,
		perm:       perm,
		logger:     logger,
	}
}

func (s *TitleService) Create(ctx context.Context, actor permission.Actor, in TitleInput) (*model.Title, error) {
	if err := s.perm.CanWriteCatalog(actor); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	category, err := s.resolveCategory(ctx, in.Category)
	if err != nil {
		return nil, err
	}
	genres, err := s.resolveGenres(ctx, in.Genre)
	if err != nil {
		return nil, err
	}

	t := &model.Title{
		Name:        in.Name,
		Year:        in.Year,
		Description: in.Description,
		Category:    category,
		Genres:      genres,
	}
	if err := s.titles.CreateTitle(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("title created", slog.String("title_id", t.ID), slog.String("by", actor.Username))
	return t, nil
}

func (s *TitleService) Get(ctx context.Context, actor permission.Actor, id string) (*model.Title, error) {
	if err := s.perm.CanRead(actor); err != nil {
		return nil, err
	}
	t, err := s.titles.GetTitle(ctx, id)
	if err != nil {
		return nil, err
	}
	return withRating(t), nil
}

func (s *TitleService) List(ctx context.Context, actor permission.Actor, filter repository.TitleFilter) (repository.Page[model.Title], error) {
	if err := s.perm.CanRead(actor); err != nil {
		return repository.Page[model.Title]{}, err
	}
	page, err := s.titles.ListTitles(ctx, filter)
	if err != nil {
		return page, err
	}
	for i := range page.Items {
		withRating(&page.Items[i])
	}
	return page, nil
}

func (s *TitleService) Update(ctx context.Context, actor permission.Actor, id string, patch TitlePatch) (*model.Title, error) {
	if err := s.perm.CanWriteCatalog(actor); err != nil {
		return nil, err
	}
	if err := validation.Struct(&patch); err != nil {
		return nil, err
	}

	t, err := s.titles.GetTitle(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		t.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Year != nil {
		t.Year = *patch.Year
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Category != nil {
		if t.Category, err = s.resolveCategory(ctx, *patch.Category); err != nil {
			return nil, err
		}
	}
	if patch.Genre != nil {
		if t.Genres, err = s.resolveGenres(ctx, *patch.Genre); err != nil {
			return nil, err
		}
	}

	if err := s.titles.UpdateTitle(ctx, t); err != nil {
		return nil, err
	}
	return withRating(t), nil
}

// Delete removes a title together with its reviews and their comments.
func (s *TitleService) Delete(ctx context.Context, actor permission.Actor, id string) error {
	if err := s.perm.CanWriteCatalog(actor); err != nil {
		return err
	}
	if err := s.titles.DeleteTitle(ctx, id); err != nil {
		return err
	}
	s.logger.Info("title deleted", slog.String("title_id", id), slog.String("by", actor.Username))
	return nil
}

// resolveCategory maps a slug to a category. An empty slug means none.
func (s *TitleService) resolveCategory(ctx context.Context, slug string) (*model.Category, error) {
	if slug == "" {
		return nil, nil
	}
	c, err := s.categories.GetCategoryBySlug(ctx, slug)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.ValidationFailed("category", fmt.Sprintf("Unknown category slug %q.", slug))
		}
		return nil, err
	}
	return c, nil
}

// resolveGenres maps slugs to genres, dropping duplicates.
func (s *TitleService) resolveGenres(ctx context.Context, slugs []string) ([]model.Genre, error) {
	seen := make(map[string]bool, len(slugs))
	genres := make([]model.Genre, 0, len(slugs))
	for _, slug := range slugs {
		if seen[slug] {
			continue
		}
		seen[slug] = true
		g, err := s.genres.GetGenreBySlug(ctx, slug)
		if err != nil {
			if isNotFound(err) {
				return nil, apperror.ValidationFailed("genre", fmt.Sprintf("Unknown genre slug %q.", slug))
			}
			return nil, err
		}
		genres = append(genres, *g)
	}
	return genres, nil
}
