package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/yamdb/internal/permission"
	"github.com/sakif/yamdb/internal/service"
)

// ReviewHandler serves /titles/{title_id}/reviews and the comments nested
// under each review.
type ReviewHandler struct {
	reviews  *service.ReviewService
	comments *service.CommentService
	pager    Pager
	logger   *slog.Logger
}

func NewReviewHandler(reviews *service.ReviewService, comments *service.CommentService, pager Pager, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, comments: comments, pager: pager, logger: logger}
}

// =========================================================================
// REVIEWS
// =========================================================================

func (h *ReviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := h.pager.Options(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	page, err := h.reviews.List(r.Context(), permission.ActorFrom(r.Context()), r.PathValue("title_id"), opts)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newPage(r, opts, page.Count, mapItems(page.Items, reviewView)))
}

func (h *ReviewHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.ReviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	rev, err := h.reviews.Create(r.Context(), permission.ActorFrom(r.Context()), r.PathValue("title_id"), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, reviewView(rev))
}

func (h *ReviewHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rev, err := h.reviews.Get(r.Context(), permission.ActorFrom(r.Context()), r.PathValue("title_id"), r.PathValue("review_id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, reviewView(rev))
}

func (h *ReviewHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.ReviewPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	rev, err := h.reviews.Update(r.Context(), permission.ActorFrom(r.Context()),
		r.PathValue("title_id"), r.PathValue("review_id"), patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, reviewView(rev))
}

func (h *ReviewHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.reviews.Delete(r.Context(), permission.ActorFrom(r.Context()), r.PathValue("title_id"), r.PathValue("review_id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =========================================================================
// COMMENTS
// =========================================================================

func (h *ReviewHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	opts, err := h.pager.Options(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	page, err := h.comments.List(r.Context(), permission.ActorFrom(r.Context()),
		r.PathValue("title_id"), r.PathValue("review_id"), opts)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newPage(r, opts, page.Count, mapItems(page.Items, commentView)))
}

func (h *ReviewHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	var in service.CommentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	c, err := h.comments.Create(r.Context(), permission.ActorFrom(r.Context()),
		r.PathValue("title_id"), r.PathValue("review_id"), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, commentView(c))
}

func (h *ReviewHandler) HandleGetComment(w http.ResponseWriter, r *http.Request) {
	c, err := h.comments.Get(r.Context(), permission.ActorFrom(r.Context()),
		r.PathValue("title_id"), r.PathValue("review_id"), r.PathValue("comment_id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, commentView(c))
}

func (h *ReviewHandler) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	var in service.CommentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	c, err := h.comments.Update(r.Context(), permission.ActorFrom(r.Context()),
		r.PathValue("title_id"), r.PathValue("review_id"), r.PathValue("comment_id"), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, commentView(c))
}

func (h *ReviewHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	err := h.comments.Delete(r.Context(), permission.ActorFrom(r.Context()),
		r.PathValue("title_id"), r.PathValue("review_id"), r.PathValue("comment_id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
