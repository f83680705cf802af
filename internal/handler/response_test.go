package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/repository"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		field  string
	}{
		{"validation", apperror.ValidationFailed("email", "bad"), http.StatusBadRequest, "validation_error", "email"},
		{"field taken", apperror.FieldTaken("username", "bob"), http.StatusBadRequest, "validation_error", "username"},
		{"unauthenticated", apperror.Unauthenticated("who"), http.StatusUnauthorized, "not_authenticated", ""},
		{"forbidden", apperror.Forbidden("access denied"), http.StatusForbidden, "permission_denied", ""},
		{"not found", apperror.NotFound("title"), http.StatusNotFound, "not_found", ""},
		{"conflict", apperror.Conflict("dup"), http.StatusConflict, "conflict", ""},
		{"wrapped", fmt.Errorf("outer: %w", apperror.NotFound("review")), http.StatusNotFound, "not_found", ""},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, httptest.NewRequest(http.MethodGet, "/", nil), discard(), tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error)
			assert.Equal(t, tt.field, body.Field)
			assert.NotEmpty(t, body.Detail)
		})
	}
}

func TestWriteError_InternalDetailIsGeneric(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, httptest.NewRequest(http.MethodGet, "/", nil), discard(), errors.New("sqlite: table users is locked"))
	assert.NotContains(t, rr.Body.String(), "sqlite")
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, decodeJSON(httptest.NewRecorder(), r, &dst))
	assert.Equal(t, "x", dst.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	assert.ErrorIs(t, decodeJSON(httptest.NewRecorder(), r, &dst), apperror.ErrValidation)

	big := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	assert.ErrorIs(t, decodeJSON(httptest.NewRecorder(), r, &dst), apperror.ErrValidation)
}

func TestPagerOptions(t *testing.T) {
	p := Pager{DefaultLimit: 5, MaxLimit: 100}

	opts, err := p.Options(httptest.NewRequest(http.MethodGet, "/x?search=foo", nil))
	require.NoError(t, err)
	assert.Equal(t, repository.ListOptions{Limit: 5, Search: "foo"}, opts)

	opts, err = p.Options(httptest.NewRequest(http.MethodGet, "/x?limit=1000&offset=20", nil))
	require.NoError(t, err)
	assert.Equal(t, 100, opts.Limit)
	assert.Equal(t, 20, opts.Offset)

	for _, q := range []string{"limit=0", "limit=abc", "offset=-1"} {
		_, err := p.Options(httptest.NewRequest(http.MethodGet, "/x?"+q, nil))
		assert.ErrorIs(t, err, apperror.ErrValidation, q)
	}
}

func TestNewPage(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://api.test/api/v1/titles?genre=drama&limit=2&offset=2", nil)
	opts := repository.ListOptions{Limit: 2, Offset: 2}

	page := newPage(r, opts, 5, []int{3, 4})
	assert.Equal(t, 5, page.Count)
	require.NotNil(t, page.Next)
	assert.Equal(t, "http://api.test/api/v1/titles?genre=drama&limit=2&offset=4", *page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://api.test/api/v1/titles?genre=drama&limit=2", *page.Previous)

	last := newPage(r, repository.ListOptions{Limit: 2, Offset: 4}, 5, []int{5})
	assert.Nil(t, last.Next)

	empty := newPage[int](r, opts, 0, nil)
	assert.NotNil(t, empty.Results, "results must encode as [] not null")
}

func TestWriteJSON_EncodeFailureUsesInjectedLogger(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	writeJSON(httptest.NewRecorder(), logger, http.StatusOK, map[string]any{"c": make(chan int)})
	assert.Contains(t, buf.String(), "failed to encode JSON response")
}

func TestFallbackHandlers(t *testing.T) {
	tests := []struct {
		name   string
		h      http.HandlerFunc
		status int
		code   string
	}{
		{"not found", NotFound(discard()), http.StatusNotFound, "not_found"},
		{"method not allowed", MethodNotAllowed(discard()), http.StatusMethodNotAllowed, "method_not_allowed"},
		{"throttled", TooManyRequests(discard()), http.StatusTooManyRequests, "throttled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.h(rr, httptest.NewRequest(http.MethodPut, "/x", nil))
			assert.Equal(t, tt.status, rr.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error)
		})
	}
}
