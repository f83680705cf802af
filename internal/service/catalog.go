package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/permission"
	"github.com/sakif/yamdb/internal/repository"
	"github.com/sakif/yamdb/internal/validation"
)

// SlugInput is the body for creating a category or a genre.
type SlugInput struct {
	Name string `json:"name" validate:"required,max=256"`
	Slug string `json:"slug" validate:"required,max=50,slug"`
}

func (in *SlugInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
}

// CatalogService manages categories and genres. Reads are public; writes are
// admin-only.
type CatalogService struct {
	categories repository.CategoryRepository
	genres     repository.GenreRepository
	perm       *permission.Evaluator
	logger     *slog.Logger
}

func NewCatalogService(
	categories repository.CategoryRepository,
	genres repository.GenreRepository,
	perm *permission.Evaluator,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		categories: categories,
		genres:     genres,
		perm:       perm,
		logger:     logger,
	}
}

// =========================================================================
// CATEGORIES
// =========================================================================

func (s *CatalogService) CreateCategory(ctx context.Context, actor permission.Actor, in SlugInput) (*model.Category, error) {
	if err := s.perm.CanWriteCatalog(actor); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	c := &model.Category{Name: in.Name, Slug: in.Slug}
	if err := s.categories.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("category created", slog.String("slug", c.Slug), slog.String("by", actor.Username))
	return c, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, actor permission.Actor, slug string) (*model.Category, error) {
	if err := s.perm.CanRead(actor); err != nil {
		return nil, err
	}
	return s.categories.GetCategoryBySlug(ctx, slug)
}

func (s *CatalogService) ListCategories(ctx context.Context, actor permission.Actor, opts repository.ListOptions) (repository.Page[model.Category], error) {
	if err := s.perm.CanRead(actor); err != nil {
		return repository.Page[model.Category]{}, err
	}
	return s.categories.ListCategories(ctx, opts)
}

// DeleteCategory removes a category. Its titles are kept, uncategorized.
func (s *CatalogService) DeleteCategory(ctx context.Context, actor permission.Actor, slug string) error {
	if err := s.perm.CanWriteCatalog(actor); err != nil {
		return err
	}
	if err := s.categories.DeleteCategory(ctx, slug); err != nil {
		return err
	}
	s.logger.Info("category deleted", slog.String("slug", slug), slog.String("by", actor.Username))
	return nil
}

// =========================================================================
// GENRES
// =========================================================================

func (s *CatalogService) CreateGenre(ctx context.Context, actor permission.Actor, in SlugInput) (*model.Genre, error) {
	if err := s.perm.CanWriteCatalog(actor); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	g := &model.Genre{Name: in.Name, Slug: in.Slug}
	if err := s.genres.CreateGenre(ctx, g); err != nil {
		return nil, err
	}
	s.logger.Info("genre created", slog.String("slug", g.Slug), slog.String("by", actor.Username))
	return g, nil
}

func (s *CatalogService) GetGenre(ctx context.Context, actor permission.Actor, slug string) (*model.Genre, error) {
	if err := s.perm.CanRead(actor); err != nil {
		return nil, err
	}
	return s.genres.GetGenreBySlug(ctx, slug)
}

func (s *CatalogService) ListGenres(ctx context.Context, actor permission.Actor, opts repository.ListOptions) (repository.Page[model.Genre], error) {
	if err := s.perm.CanRead(actor); err != nil {
		return repository.Page[model.Genre]{}, err
	}
	return s.genres.ListGenres(ctx, opts)
}

// DeleteGenre removes a genre and its title associations.
func (s *CatalogService) DeleteGenre(ctx context.Context, actor permission.Actor, slug string) error {
	if err := s.perm.CanWriteCatalog(actor); err != nil {
		return err
	}
	if err := s.genres.DeleteGenre(ctx, slug); err != nil {
		return err
	}
	s.logger.Info("genre deleted", slog.String("slug", slug), slog.String("by", actor.Username))
	return nil
}
