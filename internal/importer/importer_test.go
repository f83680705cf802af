package importer

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
	sqliteRepo "github.com/sakif/yamdb/internal/repository/sqlite"
)

var fixtures = map[string]string{
	UsersFile: `id,username,email,role,bio,first_name,last_name
100,bingobongo,bingobongo@yamdb.fake,user,,,
101,capt_obvious,capt_obvious@yamdb.fake,admin,,,
102,faust,faust@yamdb.fake,moderator,,Johann,
`,
	CategoriesFile: `id,name,slug
1,Фильм,movie
2,Книга,book
`,
	GenresFile: `id,name,slug
1,Драма,drama
2,Комедия,comedy
3,Вестерн,western
`,
	GenreTitleFile: `id,title_id,genre_id
1,1,1
2,1,3
3,2,2
`,
	TitlesFile: `id,name,year,category
1,Побег из Шоушенка,1994,1
2,Крестный отец,1972,1
3,Broken,nineteen,1
`,
	ReviewsFile: `id,title_id,text,author,score,pub_date
1,1,Ещё раз про Шоушенк.,100,10,2019-09-24T21:08:21.567Z
2,1,Второй отзыв того же автора.,100,9,2019-09-24T21:08:21.567Z
3,1,Модератор тоже смотрел.,102,7,2019-09-24T21:08:21.567Z
4,2,Нет такого автора.,999,5,2019-09-24T21:08:21.567Z
`,
	CommentsFile: `id,review_id,text,author,pub_date
1,1,Согласен.,101,2019-09-24T21:08:21.567Z
2,4,Ответ на пропущенный отзыв.,101,2019-09-24T21:08:21.567Z
`,
}

func writeFixtures(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func newStore(t *testing.T) *sqliteRepo.DB {
	t.Helper()
	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func resultFor(t *testing.T, report Report, file string) FileResult {
	t.Helper()
	for _, res := range report {
		if res.File == file {
			return res
		}
	}
	t.Fatalf("no result for %s", file)
	return FileResult{}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)

	report, err := New(db, discard()).Import(ctx, writeFixtures(t, fixtures))
	require.NoError(t, err)
	require.Len(t, report, 7)

	assert.Equal(t, 3, resultFor(t, report, UsersFile).Imported)
	assert.Equal(t, 2, resultFor(t, report, CategoriesFile).Imported)
	assert.Equal(t, 3, resultFor(t, report, GenresFile).Imported)

	titles := resultFor(t, report, TitlesFile)
	assert.Equal(t, 2, titles.Imported)
	assert.Equal(t, 1, titles.Skipped, "non-numeric year")

	reviews := resultFor(t, report, ReviewsFile)
	assert.Equal(t, 2, reviews.Imported)
	assert.Equal(t, 2, reviews.Skipped, "duplicate author and unknown author")

	comments := resultFor(t, report, CommentsFile)
	assert.Equal(t, 1, comments.Imported)
	assert.Equal(t, 1, comments.Skipped)

	admin, err := db.GetAccountByUsername(ctx, "capt_obvious")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.True(t, admin.IsActive)

	page, err := db.ListTitles(ctx, repository.TitleFilter{
		ListOptions: repository.ListOptions{Limit: 10},
		GenreSlug:   "western",
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	shawshank := page.Items[0]
	assert.Equal(t, 1994, shawshank.Year)
	require.NotNil(t, shawshank.Category)
	assert.Equal(t, "movie", shawshank.Category.Slug)
	assert.Len(t, shawshank.Genres, 2)

	revs, err := db.ListReviews(ctx, shawshank.ID, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, revs.Count)
	for _, r := range revs.Items {
		assert.Equal(t, 2019, r.PubDate.Year())
	}
}

func TestImport_MissingFilesAreSkipped(t *testing.T) {
	dir := writeFixtures(t, map[string]string{
		CategoriesFile: fixtures[CategoriesFile],
	})

	report, err := New(newStore(t), discard()).Import(context.Background(), dir)
	require.NoError(t, err)

	assert.True(t, resultFor(t, report, UsersFile).Missing)
	assert.True(t, resultFor(t, report, CommentsFile).Missing)
	cats := resultFor(t, report, CategoriesFile)
	assert.False(t, cats.Missing)
	assert.Equal(t, 2, cats.Imported)
}

func TestImport_RerunIgnoresConflicts(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)
	dir := writeFixtures(t, map[string]string{
		UsersFile:      fixtures[UsersFile],
		CategoriesFile: fixtures[CategoriesFile],
		GenresFile:     fixtures[GenresFile],
	})

	_, err := New(db, discard()).Import(ctx, dir)
	require.NoError(t, err)

	report, err := New(db, discard()).Import(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, resultFor(t, report, UsersFile).Imported)
	assert.Equal(t, 3, resultFor(t, report, UsersFile).Skipped)
	assert.Equal(t, 2, resultFor(t, report, CategoriesFile).Skipped)

	cats, err := db.ListCategories(ctx, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, cats.Count)
}

func TestReadCSV_EmptyFile(t *testing.T) {
	dir := writeFixtures(t, map[string]string{GenresFile: ""})
	rows, err := readCSV(filepath.Join(dir, GenresFile))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadCSV_StripsByteOrderMark(t *testing.T) {
	dir := writeFixtures(t, map[string]string{GenresFile: "\ufeffid,name,slug\n1,Драма,drama\n"})
	rows, err := readCSV(filepath.Join(dir, GenresFile))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].get("id"))
	assert.Equal(t, "drama", rows[0].get("slug"))
}
