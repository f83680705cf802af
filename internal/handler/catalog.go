package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/yamdb/internal/permission"
	"github.com/sakif/yamdb/internal/service"
)

// CatalogHandler serves /categories and /genres. Both resources have the
// same shape and are addressed by slug.
type CatalogHandler struct {
	catalog *service.CatalogService
	pager   Pager
	logger  *slog.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, pager Pager, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, pager: pager, logger: logger}
}

func (h *CatalogHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	opts, err := h.pager.Options(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	page, err := h.catalog.ListCategories(r.Context(), permission.ActorFrom(r.Context()), opts)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newPage(r, opts, page.Count, mapItems(page.Items, categoryView)))
}

func (h *CatalogHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in service.SlugInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	c, err := h.catalog.CreateCategory(r.Context(), permission.ActorFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, categoryView(c))
}

func (h *CatalogHandler) HandleGetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.catalog.GetCategory(r.Context(), permission.ActorFrom(r.Context()), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, categoryView(c))
}

func (h *CatalogHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteCategory(r.Context(), permission.ActorFrom(r.Context()), r.PathValue("slug")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) HandleListGenres(w http.ResponseWriter, r *http.Request) {
	opts, err := h.pager.Options(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	page, err := h.catalog.ListGenres(r.Context(), permission.ActorFrom(r.Context()), opts)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newPage(r, opts, page.Count, mapItems(page.Items, genreView)))
}

func (h *CatalogHandler) HandleCreateGenre(w http.ResponseWriter, r *http.Request) {
	var in service.SlugInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	g, err := h.catalog.CreateGenre(r.Context(), permission.ActorFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, genreView(g))
}

func (h *CatalogHandler) HandleGetGenre(w http.ResponseWriter, r *http.Request) {
	g, err := h.catalog.GetGenre(r.Context(), permission.ActorFrom(r.Context()), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, genreView(g))
}

func (h *CatalogHandler) HandleDeleteGenre(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteGenre(r.Context(), permission.ActorFrom(r.Context()), r.PathValue("slug")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
