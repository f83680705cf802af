package model

import "time"

// Category groups titles by kind ("Films", "Books", "Music").
// A title belongs to at most one category.
type Category struct {
	ID   string `json:"-"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Genre is a free tag attached to titles; a title has one or more.
type Genre struct {
	ID   string `json:"-"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Title is a reviewable work.
//
// Rating is derived, never stored: it's the average of the title's review
// scores rounded to one decimal, recomputed on every read, and nil when the
// title has no reviews yet. A nil pointer marshals to JSON null, which is
// what clients expect for "no rating" (zero would be a real, terrible score).
type Title struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Year        int       `json:"year"`
	Description string    `json:"description"`
	Category    *Category `json:"category"`
	Genres      []Genre   `json:"genre"`
	Rating      *float64  `json:"rating"`
	CreatedAt   time.Time `json:"-"`
}
