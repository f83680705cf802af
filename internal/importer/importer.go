// Package importer loads the fixture CSV files (static/data in the original
// deployment) into the store.
//
// Files and load order:
//
//	users.csv → category.csv → genre.csv → genre_title.csv + titles.csv → review.csv → comments.csv
//
// The CSV files reference each other by integer ids. The store assigns its
// own ids, so the importer keeps one csv-id → store-id map per entity and
// resolves references through it. genre_title.csv is read before titles.csv
// because a title is created together with its genres.
//
// A missing file is skipped with a warning. A row that conflicts with
// existing data (taken username, duplicate slug, second review by the same
// author) or references something that wasn't imported is skipped and counted;
// it never aborts the import.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
)

// File names, in load order.
const (
	UsersFile      = "users.csv"
	CategoriesFile = "category.csv"
	GenresFile     = "genre.csv"
	TitlesFile     = "titles.csv"
	GenreTitleFile = "genre_title.csv"
	ReviewsFile    = "review.csv"
	CommentsFile   = "comments.csv"
)

// FileResult counts what happened to the rows of one file.
type FileResult struct {
	File     string
	Missing  bool
	Imported int
	Skipped  int
}

// Report is the outcome of one Import run, in load order.
type Report []FileResult

type Importer struct {
	store  repository.Store
	logger *slog.Logger

	// csv id → store id
	accounts   map[string]string
	categories map[string]*model.Category
	genres     map[string]*model.Genre
	titles     map[string]string
	reviews    map[string]string

	// title csv id → genre csv ids, from genre_title.csv
	titleGenres map[string][]string
}

func New(store repository.Store, logger *slog.Logger) *Importer {
	return &Importer{
		store:       store,
		logger:      logger,
		accounts:    make(map[string]string),
		categories:  make(map[string]*model.Category),
		genres:      make(map[string]*model.Genre),
		titles:      make(map[string]string),
		reviews:     make(map[string]string),
		titleGenres: make(map[string][]string),
	}
}

// Import loads every known file found in dir.
func (im *Importer) Import(ctx context.Context, dir string) (Report, error) {
	steps := []struct {
		file string
		load func(context.Context, *FileResult, []row) error
	}{
		{UsersFile, im.loadUsers},
		{CategoriesFile, im.loadCategories},
		{GenresFile, im.loadGenres},
		{GenreTitleFile, im.loadGenreTitles},
		{TitlesFile, im.loadTitles},
		{ReviewsFile, im.loadReviews},
		{CommentsFile, im.loadComments},
	}

	var report Report
	for _, step := range steps {
		res := FileResult{File: step.file}
		rows, err := readCSV(filepath.Join(dir, step.file))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			im.logger.Warn("import file not found, skipping", slog.String("file", step.file))
			res.Missing = true
		case err != nil:
			return report, err
		default:
			if err := step.load(ctx, &res, rows); err != nil {
				return report, fmt.Errorf("importer: %s: %w", step.file, err)
			}
			im.logger.Info("import file loaded",
				slog.String("file", step.file),
				slog.Int("imported", res.Imported),
				slog.Int("skipped", res.Skipped),
			)
		}
		report = append(report, res)
	}
	return report, nil
}

// skip records a row that was not imported. Conflicts and dangling
// references are expected in fixture data; anything else is a real error.
func (im *Importer) skip(res *FileResult, r row, err error) error {
	if err != nil && !isRowError(err) {
		return err
	}
	res.Skipped++
	attrs := []any{slog.String("file", res.File), slog.Int("line", r.line)}
	if err != nil {
		attrs = append(attrs, slog.String("reason", err.Error()))
	}
	im.logger.Debug("import row skipped", attrs...)
	return nil
}

func isRowError(err error) bool {
	return errors.Is(err, apperror.ErrValidation) ||
		errors.Is(err, apperror.ErrConflict) ||
		errors.Is(err, apperror.ErrNotFound) ||
		errors.Is(err, errBadRow)
}

var errBadRow = errors.New("malformed row")

func badRow(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRow, fmt.Sprintf(format, args...))
}

// =========================================================================
// LOADERS
// =========================================================================

func (im *Importer) loadUsers(ctx context.Context, res *FileResult, rows []row) error {
	for _, r := range rows {
		a := &model.Account{
			Username:  r.get("username"),
			Email:     r.get("email"),
			FirstName: r.get("first_name"),
			LastName:  r.get("last_name"),
			Bio:       r.get("bio"),
			Role:      model.Role(r.get("role")).Normalize(),
			IsActive:  true,
		}
		if a.Username == "" || a.Email == "" {
			if err := im.skip(res, r, badRow("username and email are required")); err != nil {
				return err
			}
			continue
		}

		err := im.store.CreateAccount(ctx, a)
		if errors.Is(err, apperror.ErrValidation) {
			// Already there from an earlier run: reuse it for references.
			if existing, getErr := im.store.GetAccountByUsername(ctx, a.Username); getErr == nil {
				im.accounts[r.get("id")] = existing.ID
			}
		}
		if err != nil {
			if err := im.skip(res, r, err); err != nil {
				return err
			}
			continue
		}
		im.accounts[r.get("id")] = a.ID
		res.Imported++
	}
	return nil
}

func (im *Importer) loadCategories(ctx context.Context, res *FileResult, rows []row) error {
	for _, r := range rows {
		c := &model.Category{Name: r.get("name"), Slug: r.get("slug")}
		err := im.store.CreateCategory(ctx, c)
		if errors.Is(err, apperror.ErrValidation) {
			if existing, getErr := im.store.GetCategoryBySlug(ctx, c.Slug); getErr == nil {
				im.categories[r.get("id")] = existing
			}
		}
		if err != nil {
			if err := im.skip(res, r, err); err != nil {
				return err
			}
			continue
		}
		im.categories[r.get("id")] = c
		res.Imported++
	}
	return nil
}

func (im *Importer) loadGenres(ctx context.Context, res *FileResult, rows []row) error {
	for _, r := range rows {
		g := &model.Genre{Name: r.get("name"), Slug: r.get("slug")}
		err := im.store.CreateGenre(ctx, g)
		if errors.Is(err, apperror.ErrValidation) {
			if existing, getErr := im.store.GetGenreBySlug(ctx, g.Slug); getErr == nil {
				im.genres[r.get("id")] = existing
			}
		}
		if err != nil {
			if err := im.skip(res, r, err); err != nil {
				return err
			}
			continue
		}
		im.genres[r.get("id")] = g
		res.Imported++
	}
	return nil
}

// loadGenreTitles only collects the links; they're written with the titles.
func (im *Importer) loadGenreTitles(_ context.Context, res *FileResult, rows []row) error {
	for _, r := range rows {
		titleID, genreID := r.get("title_id"), r.get("genre_id")
		if titleID == "" || genreID == "" {
			if err := im.skip(res, r, badRow("title_id and genre_id are required")); err != nil {
				return err
			}
			continue
		}
		im.titleGenres[titleID] = append(im.titleGenres[titleID], genreID)
		res.Imported++
	}
	return nil
}

func (im *Importer) loadTitles(ctx context.Context, res *FileResult, rows []row) error {
	for _, r := range rows {
		year, err := strconv.Atoi(r.get("year"))
		if err != nil {
			if err := im.skip(res, r, badRow("year %q", r.get("year"))); err != nil {
				return err
			}
			continue
		}

		t := &model.Title{
			Name:        r.get("name"),
			Year:        year,
			Description: r.get("description"),
			Category:    im.categories[r.get("category")],
		}
		for _, gid := range im.titleGenres[r.get("id")] {
			if g, ok := im.genres[gid]; ok {
				t.Genres = append(t.Genres, *g)
			}
		}

		if err := im.store.CreateTitle(ctx, t); err != nil {
			if err := im.skip(res, r, err); err != nil {
				return err
			}
			continue
		}
		im.titles[r.get("id")] = t.ID
		res.Imported++
	}
	return nil
}

func (im *Importer) loadReviews(ctx context.Context, res *FileResult, rows []row) error {
	for _, r := range rows {
		titleID, okTitle := im.titles[r.get("title_id")]
		authorID, okAuthor := im.accounts[r.get("author")]
		score, scoreErr := strconv.Atoi(r.get("score"))
		pub, pubErr := parseTime(r.get("pub_date"))

		var rowErr error
		switch {
		case !okTitle:
			rowErr = badRow("unknown title %q", r.get("title_id"))
		case !okAuthor:
			rowErr = badRow("unknown author %q", r.get("author"))
		case scoreErr != nil || score < model.MinScore || score > model.MaxScore:
			rowErr = badRow("score %q", r.get("score"))
		case pubErr != nil:
			rowErr = badRow("pub_date %q", r.get("pub_date"))
		}
		if rowErr != nil {
			if err := im.skip(res, r, rowErr); err != nil {
				return err
			}
			continue
		}

		rev := &model.Review{
			TitleID:  titleID,
			AuthorID: authorID,
			Text:     r.get("text"),
			Score:    score,
			PubDate:  pub,
		}
		if err := im.store.CreateReview(ctx, rev); err != nil {
			if err := im.skip(res, r, err); err != nil {
				return err
			}
			continue
		}
		im.reviews[r.get("id")] = rev.ID
		res.Imported++
	}
	return nil
}

func (im *Importer) loadComments(ctx context.Context, res *FileResult, rows []row) error {
	for _, r := range rows {
		reviewID, okReview := im.reviews[r.get("review_id")]
		authorID, okAuthor := im.accounts[r.get("author")]
		pub, pubErr := parseTime(r.get("pub_date"))

		var rowErr error
		switch {
		case !okReview:
			rowErr = badRow("unknown review %q", r.get("review_id"))
		case !okAuthor:
			rowErr = badRow("unknown author %q", r.get("author"))
		case pubErr != nil:
			rowErr = badRow("pub_date %q", r.get("pub_date"))
		}
		if rowErr != nil {
			if err := im.skip(res, r, rowErr); err != nil {
				return err
			}
			continue
		}

		c := &model.Comment{
			ReviewID: reviewID,
			AuthorID: authorID,
			Text:     r.get("text"),
			PubDate:  pub,
		}
		if err := im.store.CreateComment(ctx, c); err != nil {
			if err := im.skip(res, r, err); err != nil {
				return err
			}
			continue
		}
		res.Imported++
	}
	return nil
}

// =========================================================================
// CSV
// =========================================================================

// row is one CSV record keyed by header name.
type row struct {
	line   int
	fields map[string]string
}

func (r row) get(key string) string {
	return strings.TrimSpace(r.fields[key])
}

// readCSV reads a headed CSV file. An empty pub_date is allowed; the store
// stamps the current time.
func readCSV(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("importer: reading header of %s: %w", path, err)
	}
	for i, h := range header {
		header[i] = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
	}

	var rows []row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("importer: reading %s: %w", path, err)
		}
		fields := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				fields[h] = rec[i]
			}
		}
		rows = append(rows, row{line: line, fields: fields})
	}
	return rows, nil
}

// parseTime accepts the fixture format ("2019-09-24T21:08:21.567Z") and
// plain RFC 3339. Empty means "now", decided by the store.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
