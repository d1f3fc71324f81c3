package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidyavistaar/portal/internal/model"
)

type subjectRequest struct {
	ID     string       `json:"id" validate:"omitempty,max=64"`
	Name   model.Text   `json:"name"`
	Stream model.Stream `json:"stream" validate:"required,oneof=ncert pseb"`
}

func (h *Handler) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name.IsZero() {
		writeError(w, r, model.NewValidationError("name", "failed required"))
		return
	}
	sub, err := h.store.CreateSubject(r.Context(), model.Subject{ID: req.ID, Name: req.Name, Stream: req.Stream})
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("subject created", "subject_id", sub.ID, "by", model.UserFromContext(r.Context()).ID)
	writeJSON(w, http.StatusCreated, sub)
}

type chapterRequest struct {
	ID       string     `json:"id" validate:"omitempty,max=64"`
	Title    model.Text `json:"title"`
	VideoURL string     `json:"video_url" validate:"omitempty,url"`
	PDFURL   string     `json:"pdf_url" validate:"omitempty,url"`
	QuizID   string     `json:"quiz_id" validate:"required"`
}

func (h *Handler) handleCreateChapter(w http.ResponseWriter, r *http.Request) {
	var req chapterRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Title.IsZero() {
		writeError(w, r, model.NewValidationError("title", "failed required"))
		return
	}
	ch, err := h.store.CreateChapter(r.Context(), model.Chapter{
		ID:        req.ID,
		SubjectID: chi.URLParam(r, "subjectID"),
		Title:     req.Title,
		VideoURL:  req.VideoURL,
		PDFURL:    req.PDFURL,
		QuizID:    req.QuizID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("chapter created", "chapter_id", ch.ID, "subject_id", ch.SubjectID)
	writeJSON(w, http.StatusCreated, ch)
}

type quizRequest struct {
	ID        string           `json:"id" validate:"required,max=64"`
	Title     model.Text       `json:"title"`
	Questions []model.Question `json:"questions" validate:"required,min=1,max=100"`
}

// handleCreateQuiz stores a new quiz and returns it with its answer key.
func (h *Handler) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Title.IsZero() {
		writeError(w, r, model.NewValidationError("title", "failed required"))
		return
	}
	q, err := h.store.CreateQuiz(r.Context(), model.Quiz{ID: req.ID, Title: req.Title, Questions: req.Questions})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.quizzes.Invalidate(r.Context(), q.ID); err != nil {
		slog.Warn("failed to invalidate cached quiz", "quiz_id", q.ID, "error", err)
	}
	slog.Info("quiz created", "quiz_id", q.ID, "questions", len(q.Questions))
	writeJSON(w, http.StatusCreated, q)
}
