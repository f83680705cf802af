package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/repository"
)

// Pager reads limit/offset query parameters and builds the list envelope.
type Pager struct {
	DefaultLimit int
	MaxLimit     int
}

// PageResponse is the list envelope:
//
//	{"count": 12, "next": ".../titles?limit=5&offset=5", "previous": null, "results": [...]}
type PageResponse[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Options parses limit, offset and search. A limit above MaxLimit is
// clamped; negative or non-numeric values are rejected.
func (p Pager) Options(r *http.Request) (repository.ListOptions, error) {
	q := r.URL.Query()
	opts := repository.ListOptions{Limit: p.DefaultLimit, Search: q.Get("search")}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, apperror.ValidationFailed("limit", "Enter a positive integer.")
		}
		opts.Limit = n
	}
	if p.MaxLimit > 0 && opts.Limit > p.MaxLimit {
		opts.Limit = p.MaxLimit
	}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, apperror.ValidationFailed("offset", "Enter a non-negative integer.")
		}
		opts.Offset = n
	}
	return opts, nil
}

// newPage builds the envelope for one window of count items.
func newPage[T any](r *http.Request, opts repository.ListOptions, count int, results []T) PageResponse[T] {
	if results == nil {
		results = []T{}
	}
	page := PageResponse[T]{Count: count, Results: results}

	if opts.Limit <= 0 {
		return page
	}
	if next := opts.Offset + opts.Limit; next < count {
		page.Next = pageLink(r, opts.Limit, next)
	}
	if opts.Offset > 0 {
		prev := max(opts.Offset-opts.Limit, 0)
		page.Previous = pageLink(r, opts.Limit, prev)
	}
	return page
}

// pageLink rewrites the request URL with a new limit/offset, keeping the
// other query parameters (filters, search).
func pageLink(r *http.Request, limit, offset int) *string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	q := r.URL.Query()
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	s := u.String()
	return &s
}
