package handler

import (
	"github.com/sakif/yamdb/internal/model"
)

// Response shapes. Storage types carry internal columns (ids, hashes, flags)
// that never leave the server; the views below list exactly what each
// endpoint returns.

// UserView is an account as the users endpoints show it.
type UserView struct {
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Bio       string     `json:"bio"`
	Role      model.Role `json:"role"`
}

func userView(a *model.Account) UserView {
	return UserView{
		Username:  a.Username,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Bio:       a.Bio,
		Role:      a.Role.Normalize(),
	}
}

// SignupView echoes the signup request. Warning is present only when the
// confirmation email could not be sent.
type SignupView struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Warning  string `json:"warning,omitempty"`
}

type TokenView struct {
	Token string `json:"token"`
}

// SlugView is a category or a genre.
type SlugView struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// TitleView nests the category and genres as {name, slug}. A title without
// a category shows "category": null, one without reviews "rating": null.
type TitleView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Year        int        `json:"year"`
	Rating      *float64   `json:"rating"`
	Description string     `json:"description"`
	Genre       []SlugView `json:"genre"`
	Category    *SlugView  `json:"category"`
}

func titleView(t *model.Title) TitleView {
	v := TitleView{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Rating:      t.Rating,
		Description: t.Description,
		Genre:       make([]SlugView, 0, len(t.Genres)),
	}
	for _, g := range t.Genres {
		v.Genre = append(v.Genre, SlugView{Name: g.Name, Slug: g.Slug})
	}
	if t.Category != nil {
		v.Category = &SlugView{Name: t.Category.Name, Slug: t.Category.Slug}
	}
	return v
}

// mapItems applies view to every item of a listing.
func mapItems[T, V any](items []T, view func(*T) V) []V {
	out := make([]V, 0, len(items))
	for i := range items {
		out = append(out, view(&items[i]))
	}
	return out
}

func categoryView(c *model.Category) SlugView { return SlugView{Name: c.Name, Slug: c.Slug} }
func genreView(g *model.Genre) SlugView       { return SlugView{Name: g.Name, Slug: g.Slug} }

// Reviews and comments are returned as stored: model.Review and
// model.Comment already hide their internal ids behind json:"-".
func reviewView(r *model.Review) *model.Review    { return r }
func commentView(c *model.Comment) *model.Comment { return c }
