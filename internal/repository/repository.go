// Package repository declares the data-access contracts the service layer
// depends on. Implementations live in sub-packages (see repository/sqlite).
package repository

import (
	"context"
	"errors"

	"github.com/sakif/yamdb/internal/model"
)

// ErrCodeSpent is returned by Activate when the account no longer holds the
// code hash the caller verified: another exchange spent it, or a new code
// replaced it.
var ErrCodeSpent = errors.New("repository: confirmation code already spent")

type ListOptions struct {
	Limit  int
	Offset int
	Search string // substring match; which columns depends on the repository
}

// TitleFilter narrows a title listing. Empty strings and a nil Year mean
// "don't filter".
type TitleFilter struct {
	ListOptions
	GenreSlug    string
	CategorySlug string
	Year         *int
	Name         string
}

// Page is one window of a listing plus the total number of matching rows.
type Page[T any] struct {
	Items []T
	Count int
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	ListAccounts(ctx context.Context, opts ListOptions) (Page[model.Account], error)
	UpdateAccount(ctx context.Context, account *model.Account) error
	// SetConfirmationCode replaces the stored code hash; an empty hash clears it.
	SetConfirmationCode(ctx context.Context, id, codeHash string) error
	// Activate marks the account active and clears its confirmation code,
	// provided the stored hash still equals codeHash. Otherwise ErrCodeSpent.
	Activate(ctx context.Context, id, codeHash string) error
	DeleteAccount(ctx context.Context, id string) error
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error)
	ListCategories(ctx context.Context, opts ListOptions) (Page[model.Category], error)
	DeleteCategory(ctx context.Context, slug string) error
}

type GenreRepository interface {
	CreateGenre(ctx context.Context, genre *model.Genre) error
	GetGenreBySlug(ctx context.Context, slug string) (*model.Genre, error)
	ListGenres(ctx context.Context, opts ListOptions) (Page[model.Genre], error)
	DeleteGenre(ctx context.Context, slug string) error
}

type TitleRepository interface {
	// CreateTitle inserts the title and its genre associations atomically.
	// title.Category and title.Genres must reference existing rows by ID.
	CreateTitle(ctx context.Context, title *model.Title) error
	GetTitle(ctx context.Context, id string) (*model.Title, error)
	ListTitles(ctx context.Context, filter TitleFilter) (Page[model.Title], error)
	// UpdateTitle rewrites the scalar columns, the category reference, and the
	// full genre set in one transaction.
	UpdateTitle(ctx context.Context, title *model.Title) error
	DeleteTitle(ctx context.Context, id string) error
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, review *model.Review) error
	GetReview(ctx context.Context, titleID, id string) (*model.Review, error)
	ListReviews(ctx context.Context, titleID string, opts ListOptions) (Page[model.Review], error)
	ReviewExists(ctx context.Context, titleID, authorID string) (bool, error)
	UpdateReview(ctx context.Context, review *model.Review) error
	DeleteReview(ctx context.Context, id string) error
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetComment(ctx context.Context, reviewID, id string) (*model.Comment, error)
	ListComments(ctx context.Context, reviewID string, opts ListOptions) (Page[model.Comment], error)
	UpdateComment(ctx context.Context, comment *model.Comment) error
	DeleteComment(ctx context.Context, id string) error
}

// Store bundles every repository. *sqlite.DB satisfies it.
type Store interface {
	AccountRepository
	CategoryRepository
	GenreRepository
	TitleRepository
	ReviewRepository
	CommentRepository
}
