package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidyavistaar/portal/internal/doubt"
	appI18n "github.com/vidyavistaar/portal/internal/i18n"
	"github.com/vidyavistaar/portal/internal/model"
)

// handleListDoubts lists the caller's own doubts for students and every doubt
// for staff, optionally narrowed by ?q= in the request language.
func (h *Handler) handleListDoubts(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	var (
		doubts []model.Doubt
		err    error
	)
	if user.Role == model.UserRoleStudent {
		doubts, err = h.doubts.ListForStudent(r.Context(), user.ID)
	} else {
		doubts, err = h.doubts.ListAll(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if q := r.URL.Query().Get("q"); q != "" {
		doubts = doubt.Filter(doubts, q, appI18n.Language(r.Context()))
	}
	writeJSON(w, http.StatusOK, list(doubts))
}

type postDoubtRequest struct {
	ChapterID string `json:"chapter_id" validate:"required"`
	Question  string `json:"question" validate:"required,max=2000"`
}

func (h *Handler) handlePostDoubt(w http.ResponseWriter, r *http.Request) {
	var req postDoubtRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user := model.UserFromContext(r.Context())
	d, err := h.doubts.Post(r.Context(), user.ID, req.ChapterID, req.Question)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

type resolveDoubtRequest struct {
	Answer string `json:"answer" validate:"required,max=4000"`
}

func (h *Handler) handleResolveDoubt(w http.ResponseWriter, r *http.Request) {
	var req resolveDoubtRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.doubts.Resolve(r.Context(), chi.URLParam(r, "doubtID"), req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
