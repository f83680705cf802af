package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
)

// newTestDB returns a fresh in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestAccount(t *testing.T, db *DB, username string) *model.Account {
	t.Helper()
	a := &model.Account{
		Username: username,
		Email:    username + "@example.com",
		IsActive: true,
	}
	if err := db.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return a
}

func createTestCategory(t *testing.T, db *DB, slug string) *model.Category {
	t.Helper()
	c := &model.Category{Name: "Category " + slug, Slug: slug}
	if err := db.CreateCategory(context.Background(), c); err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return c
}

func createTestGenre(t *testing.T, db *DB, slug string) *model.Genre {
	t.Helper()
	g := &model.Genre{Name: "Genre " + slug, Slug: slug}
	if err := db.CreateGenre(context.Background(), g); err != nil {
		t.Fatalf("failed to create test genre: %v", err)
	}
	return g
}

func createTestTitle(t *testing.T, db *DB, name string, category *model.Category, genres ...*model.Genre) *model.Title {
	t.Helper()
	title := &model.Title{Name: name, Year: 1999, Category: category}
	for _, g := range genres {
		title.Genres = append(title.Genres, *g)
	}
	if err := db.CreateTitle(context.Background(), title); err != nil {
		t.Fatalf("failed to create test title: %v", err)
	}
	return title
}

func createTestReview(t *testing.T, db *DB, title *model.Title, author *model.Account, score int) *model.Review {
	t.Helper()
	r := &model.Review{TitleID: title.ID, AuthorID: author.ID, Text: "text", Score: score}
	if err := db.CreateReview(context.Background(), r); err != nil {
		t.Fatalf("failed to create test review: %v", err)
	}
	return r
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}

func TestLikePattern_EscapesWildcards(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abc", "%abc%"},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
		{`c:\x`, `%c:\\x%`},
	}
	for _, tt := range tests {
		if got := likePattern(tt.in); got != tt.want {
			t.Errorf("likePattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)")

	if !isUniqueViolation(err, "users.email") {
		t.Error("expected match on users.email")
	}
	if isUniqueViolation(err, "users.username") {
		t.Error("unexpected match on users.username")
	}
	if !isUniqueViolation(err, "") {
		t.Error("expected match with empty target")
	}
	if isUniqueViolation(nil, "") {
		t.Error("nil error must not match")
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db := newTestDB(t)

	r := &model.Review{TitleID: "missing", AuthorID: "missing", Text: "x", Score: 5}
	err := db.CreateReview(context.Background(), r)
	if err == nil {
		t.Fatal("CreateReview() with dangling references should fail")
	}
	if errors.Is(err, apperror.ErrConflict) {
		t.Errorf("FK failure must not be reported as a duplicate review: %v", err)
	}
}

func intPtr(v int) *int { return &v }
