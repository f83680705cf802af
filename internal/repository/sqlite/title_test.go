package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
)

// =========================================================================
// CATALOG
// =========================================================================

func TestCreateCategory_DuplicateSlug(t *testing.T) {
	db := newTestDB(t)
	createTestCategory(t, db, "films")

	err := db.CreateCategory(context.Background(), &model.Category{Name: "Other", Slug: "films"})
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Field != "slug" {
		t.Fatalf("CreateCategory() error = %v, want field error on slug", err)
	}
}

func TestListGenres_Search(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for _, g := range []model.Genre{
		{Name: "Drama", Slug: "drama"},
		{Name: "Comedy", Slug: "comedy"},
		{Name: "Dramedy", Slug: "dramedy"},
	} {
		g := g
		if err := db.CreateGenre(ctx, &g); err != nil {
			t.Fatal(err)
		}
	}

	page, err := db.ListGenres(ctx, repository.ListOptions{Search: "dram"})
	if err != nil {
		t.Fatalf("ListGenres() error = %v", err)
	}
	if page.Count != 2 {
		t.Errorf("Count = %d, want 2", page.Count)
	}
	if page.Items[0].Slug != "drama" {
		t.Errorf("first = %q, want drama (ordered by name)", page.Items[0].Slug)
	}
}

func TestDeleteCategory_NullsTitleCategory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cat := createTestCategory(t, db, "books")
	title := createTestTitle(t, db, "Emma", cat, createTestGenre(t, db, "novel"))

	if err := db.DeleteCategory(ctx, "books"); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}

	got, err := db.GetTitle(ctx, title.ID)
	if err != nil {
		t.Fatalf("GetTitle() error = %v (title must survive category deletion)", err)
	}
	if got.Category != nil {
		t.Errorf("Category = %+v, want nil", got.Category)
	}
}

func TestDeleteGenre_KeepsTitle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	drama := createTestGenre(t, db, "drama")
	war := createTestGenre(t, db, "war")
	title := createTestTitle(t, db, "1917", nil, drama, war)

	if err := db.DeleteGenre(ctx, "war"); err != nil {
		t.Fatalf("DeleteGenre() error = %v", err)
	}
	got, err := db.GetTitle(ctx, title.ID)
	if err != nil {
		t.Fatalf("GetTitle() error = %v", err)
	}
	if len(got.Genres) != 1 || got.Genres[0].Slug != "drama" {
		t.Errorf("Genres = %+v, want only drama", got.Genres)
	}
}

// =========================================================================
// TITLES
// =========================================================================

func TestGetTitle_RatingNullWithoutReviews(t *testing.T) {
	db := newTestDB(t)
	title := createTestTitle(t, db, "Alien", nil, createTestGenre(t, db, "horror"))

	got, err := db.GetTitle(context.Background(), title.ID)
	if err != nil {
		t.Fatalf("GetTitle() error = %v", err)
	}
	if got.Rating != nil {
		t.Errorf("Rating = %v, want nil", *got.Rating)
	}
}

func TestGetTitle_RatingIsAverage(t *testing.T) {
	db := newTestDB(t)
	title := createTestTitle(t, db, "Heat", nil, createTestGenre(t, db, "crime"))
	createTestReview(t, db, title, createTestAccount(t, db, "a1"), 7)
	createTestReview(t, db, title, createTestAccount(t, db, "a2"), 8)
	createTestReview(t, db, title, createTestAccount(t, db, "a3"), 8)

	got, err := db.GetTitle(context.Background(), title.ID)
	if err != nil {
		t.Fatalf("GetTitle() error = %v", err)
	}
	if got.Rating == nil {
		t.Fatal("Rating = nil, want average")
	}
	if want := 23.0 / 3.0; *got.Rating < want-1e-9 || *got.Rating > want+1e-9 {
		t.Errorf("Rating = %v, want %v", *got.Rating, want)
	}
}

func TestListTitles_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	films := createTestCategory(t, db, "films")
	books := createTestCategory(t, db, "books")
	drama := createTestGenre(t, db, "drama")
	comedy := createTestGenre(t, db, "comedy")

	createTestTitle(t, db, "The Godfather", films, drama)
	createTestTitle(t, db, "Some Like It Hot", films, comedy)
	createTestTitle(t, db, "Godfather Novel", books, drama, comedy)

	tests := []struct {
		name   string
		filter repository.TitleFilter
		want   int
	}{
		{"no filter", repository.TitleFilter{}, 3},
		{"genre", repository.TitleFilter{GenreSlug: "comedy"}, 2},
		{"category", repository.TitleFilter{CategorySlug: "films"}, 2},
		{"name substring", repository.TitleFilter{Name: "godfather"}, 2},
		{"year", repository.TitleFilter{Year: intPtr(1999)}, 3},
		{"year miss", repository.TitleFilter{Year: intPtr(2001)}, 0},
		{"year zero", repository.TitleFilter{Year: intPtr(0)}, 0},
		{"combined", repository.TitleFilter{GenreSlug: "drama", CategorySlug: "books"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := db.ListTitles(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListTitles() error = %v", err)
			}
			if page.Count != tt.want || len(page.Items) != tt.want {
				t.Errorf("Count = %d, len = %d, want %d", page.Count, len(page.Items), tt.want)
			}
		})
	}
}

func TestListTitles_LoadsGenres(t *testing.T) {
	db := newTestDB(t)
	a := createTestGenre(t, db, "a")
	b := createTestGenre(t, db, "b")
	createTestTitle(t, db, "Two", nil, a, b)
	createTestTitle(t, db, "One", nil, b)

	page, err := db.ListTitles(context.Background(), repository.TitleFilter{})
	if err != nil {
		t.Fatalf("ListTitles() error = %v", err)
	}
	if page.Items[0].Name != "One" || len(page.Items[0].Genres) != 1 {
		t.Errorf("first = %+v", page.Items[0])
	}
	if page.Items[1].Name != "Two" || len(page.Items[1].Genres) != 2 {
		t.Errorf("second = %+v", page.Items[1])
	}
}

func TestUpdateTitle_ReplacesGenres(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestGenre(t, db, "a")
	b := createTestGenre(t, db, "b")
	title := createTestTitle(t, db, "T", nil, a)

	title.Name = "T2"
	title.Genres = []model.Genre{*b}
	if err := db.UpdateTitle(ctx, title); err != nil {
		t.Fatalf("UpdateTitle() error = %v", err)
	}
	got, _ := db.GetTitle(ctx, title.ID)
	if got.Name != "T2" || len(got.Genres) != 1 || got.Genres[0].Slug != "b" {
		t.Errorf("got %+v", got)
	}
}

func TestDeleteTitle_CascadesReviewsAndComments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestAccount(t, db, "gina")
	title := createTestTitle(t, db, "Jaws", nil, createTestGenre(t, db, "thriller"))
	review := createTestReview(t, db, title, author, 9)
	comment := &model.Comment{ReviewID: review.ID, AuthorID: author.ID, Text: "agreed"}
	if err := db.CreateComment(ctx, comment); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteTitle(ctx, title.ID); err != nil {
		t.Fatalf("DeleteTitle() error = %v", err)
	}

	if _, err := db.GetReview(ctx, title.ID, review.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("review survived: %v", err)
	}
	if _, err := db.GetComment(ctx, review.ID, comment.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("comment survived: %v", err)
	}
}

// =========================================================================
// REVIEWS & COMMENTS
// =========================================================================

func TestCreateReview_OnePerAuthorPerTitle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestAccount(t, db, "hank")
	title := createTestTitle(t, db, "Rocky", nil, createTestGenre(t, db, "sport"))
	createTestReview(t, db, title, author, 6)

	err := db.CreateReview(ctx, &model.Review{TitleID: title.ID, AuthorID: author.ID, Text: "again", Score: 2})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second CreateReview() error = %v, want ErrConflict", err)
	}

	exists, err := db.ReviewExists(ctx, title.ID, author.ID)
	if err != nil || !exists {
		t.Errorf("ReviewExists() = %v, %v; want true", exists, err)
	}

	page, _ := db.ListReviews(ctx, title.ID, repository.ListOptions{})
	if page.Count != 1 {
		t.Errorf("review count = %d, want 1", page.Count)
	}
}

func TestGetReview_WrongTitle(t *testing.T) {
	db := newTestDB(t)
	g := createTestGenre(t, db, "g")
	t1 := createTestTitle(t, db, "T1", nil, g)
	t2 := createTestTitle(t, db, "T2", nil, g)
	review := createTestReview(t, db, t1, createTestAccount(t, db, "ivy"), 5)

	_, err := db.GetReview(context.Background(), t2.ID, review.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetReview() under another title error = %v, want ErrNotFound", err)
	}
}

func TestUpdateReview_KeepsAuthor(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestAccount(t, db, "jack")
	title := createTestTitle(t, db, "Up", nil, createTestGenre(t, db, "family"))
	review := createTestReview(t, db, title, author, 3)

	review.Text = "changed my mind"
	review.Score = 9
	if err := db.UpdateReview(ctx, review); err != nil {
		t.Fatalf("UpdateReview() error = %v", err)
	}
	got, _ := db.GetReview(ctx, title.ID, review.ID)
	if got.Score != 9 || got.Text != "changed my mind" || got.Author != "jack" {
		t.Errorf("got %+v", got)
	}
}

func TestComments_ListAndDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestAccount(t, db, "kate")
	title := createTestTitle(t, db, "Cars", nil, createTestGenre(t, db, "kids"))
	review := createTestReview(t, db, title, author, 4)

	for _, text := range []string{"first", "second"} {
		if err := db.CreateComment(ctx, &model.Comment{ReviewID: review.ID, AuthorID: author.ID, Text: text}); err != nil {
			t.Fatal(err)
		}
	}
	page, err := db.ListComments(ctx, review.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if page.Count != 2 {
		t.Fatalf("Count = %d, want 2", page.Count)
	}
	if page.Items[0].Author != "kate" {
		t.Errorf("Author = %q, want kate", page.Items[0].Author)
	}

	if err := db.DeleteReview(ctx, review.ID); err != nil {
		t.Fatalf("DeleteReview() error = %v", err)
	}
	page, _ = db.ListComments(ctx, review.ID, repository.ListOptions{})
	if page.Count != 0 {
		t.Errorf("comments after review delete = %d, want 0", page.Count)
	}
}
