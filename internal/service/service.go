// Package service contains the business rules of the API.
//
//	Handler (HTTP)  → parses requests, shapes responses
//	Service         → validates input, asks the permission evaluator, enforces invariants
//	Repository      → reads/writes the database
//
// Services take a permission.Actor instead of an *http.Request, so the same
// rules apply whether the caller is an HTTP handler, the admin CLI, or a test.
// They return apperror values; the handler layer maps those to status codes.
package service

import (
	"errors"

	"github.com/sakif/yamdb/internal/apperror"
)

// isNotFound reports whether err is an apperror not-found.
func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
