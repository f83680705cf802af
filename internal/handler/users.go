package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/yamdb/internal/permission"
	"github.com/sakif/yamdb/internal/service"
)

// UserHandler serves /users (admin account management) and /users/me.
type UserHandler struct {
	accounts *service.AccountService
	pager    Pager
	logger   *slog.Logger
}

func NewUserHandler(accounts *service.AccountService, pager Pager, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, pager: pager, logger: logger}
}

// HandleList: GET /users?search=&limit=&offset=
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := h.pager.Options(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	page, err := h.accounts.List(r.Context(), permission.ActorFrom(r.Context()), opts)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newPage(r, opts, page.Count, mapItems(page.Items, userView)))
}

// HandleCreate: POST /users
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.AccountInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	a, err := h.accounts.Create(r.Context(), permission.ActorFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, userView(a))
}

// HandleGet: GET /users/{username}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	a, err := h.accounts.Get(r.Context(), permission.ActorFrom(r.Context()), r.PathValue("username"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, userView(a))
}

// HandleUpdate: PATCH /users/{username}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.AccountPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	a, err := h.accounts.Update(r.Context(), permission.ActorFrom(r.Context()), r.PathValue("username"), patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, userView(a))
}

// HandleDelete: DELETE /users/{username}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Delete(r.Context(), permission.ActorFrom(r.Context()), r.PathValue("username")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe: GET /users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	a, err := h.accounts.Me(r.Context(), permission.ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, userView(a))
}

// HandleUpdateMe: PATCH /users/me. A "role" in the body only takes effect
// for admins.
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var patch service.AccountPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	a, err := h.accounts.UpdateMe(r.Context(), permission.ActorFrom(r.Context()), patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, userView(a))
}
