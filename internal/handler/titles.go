package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/permission"
	"github.com/sakif/yamdb/internal/repository"
	"github.com/sakif/yamdb/internal/service"
)

// TitleHandler serves /titles.
type TitleHandler struct {
	titles *service.TitleService
	pager  Pager
	logger *slog.Logger
}

func NewTitleHandler(titles *service.TitleService, pager Pager, logger *slog.Logger) *TitleHandler {
	return &TitleHandler{titles: titles, pager: pager, logger: logger}
}

// HandleList: GET /titles?genre=&category=&year=&name=&limit=&offset=
func (h *TitleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := h.pager.Options(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	q := r.URL.Query()
	filter := repository.TitleFilter{
		ListOptions:  opts,
		GenreSlug:    q.Get("genre"),
		CategorySlug: q.Get("category"),
		Name:         q.Get("name"),
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, h.logger, apperror.ValidationFailed("year", "Enter a whole number."))
			return
		}
		filter.Year = &year
	}

	page, err := h.titles.List(r.Context(), permission.ActorFrom(r.Context()), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newPage(r, opts, page.Count, mapItems(page.Items, titleView)))
}

// HandleCreate: POST /titles {name, year, description, category, genre: [slugs]}
func (h *TitleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.TitleInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	t, err := h.titles.Create(r.Context(), permission.ActorFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, titleView(t))
}

func (h *TitleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	t, err := h.titles.Get(r.Context(), permission.ActorFrom(r.Context()), r.PathValue("title_id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, titleView(t))
}

func (h *TitleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.TitlePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	t, err := h.titles.Update(r.Context(), permission.ActorFrom(r.Context()), r.PathValue("title_id"), patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, titleView(t))
}

func (h *TitleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.titles.Delete(r.Context(), permission.ActorFrom(r.Context()), r.PathValue("title_id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
