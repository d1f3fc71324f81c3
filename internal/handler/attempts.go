package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vidyavistaar/portal/internal/model"
	"github.com/vidyavistaar/portal/internal/quiz"
)

// questionView hides the answer key until the attempt is over.
type questionView struct {
	ID             string             `json:"id"`
	Text           model.Text         `json:"text"`
	Type           model.QuestionType `json:"type"`
	Options        []string           `json:"options,omitempty"`
	PunjabiOptions []string           `json:"punjabi_options,omitempty"`
	CorrectAnswer  *model.AnswerKey   `json:"correct_answer,omitempty"`
}

func newQuestionView(q model.Question, reveal bool) questionView {
	v := questionView{
		ID:             q.ID,
		Text:           q.Text,
		Type:           q.Type,
		Options:        q.Options,
		PunjabiOptions: q.PunjabiOptions,
	}
	if reveal {
		key := q.CorrectAnswer
		v.CorrectAnswer = &key
	}
	return v
}

type attemptView struct {
	ID           string         `json:"id"`
	QuizID       string         `json:"quiz_id"`
	Title        model.Text     `json:"title"`
	ContestID    string         `json:"contest_id,omitempty"`
	CurrentIndex int            `json:"current_index"`
	Total        int            `json:"total"`
	Answers      []*int         `json:"answers"`
	Finished     bool           `json:"finished"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at,omitzero"`
	Deadline     time.Time      `json:"deadline,omitzero"`
	Current      *questionView  `json:"current,omitempty"`
	Score        *int           `json:"score,omitempty"`
	Percent      *int           `json:"percent,omitempty"`
	Review       []questionView `json:"review,omitempty"`
}

// newAttemptView shows the current question while in progress, and the score
// with every answer key once finished.
func newAttemptView(a quiz.Attempt) attemptView {
	v := attemptView{
		ID:           a.ID,
		QuizID:       a.Quiz.ID,
		Title:        a.Quiz.Title,
		ContestID:    a.ContestID,
		CurrentIndex: a.CurrentIndex,
		Total:        a.Total(),
		Answers:      a.Answers,
		Finished:     a.Finished,
		StartedAt:    a.StartedAt,
		FinishedAt:   a.FinishedAt,
		Deadline:     a.Deadline,
	}
	if !a.Finished {
		cur := newQuestionView(a.Current(), false)
		v.Current = &cur
		return v
	}
	score, percent := a.Score(), a.Percent()
	v.Score, v.Percent = &score, &percent
	v.Review = make([]questionView, len(a.Quiz.Questions))
	for i, q := range a.Quiz.Questions {
		v.Review[i] = newQuestionView(q, true)
	}
	return v
}

func (h *Handler) handleStartQuiz(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	a, err := h.attempts.Start(r.Context(), user.ID, chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAttemptView(a))
}

func (h *Handler) handleStartContest(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	a, err := h.attempts.StartContest(r.Context(), user.ID, chi.URLParam(r, "contestID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAttemptView(a))
}

func (h *Handler) handleGetAttempt(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	a, err := h.attempts.Get(r.Context(), user.ID, chi.URLParam(r, "attemptID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAttemptView(a))
}

type answerRequest struct {
	Option *int `json:"option" validate:"required,min=0"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user := model.UserFromContext(r.Context())
	a, err := h.attempts.Answer(r.Context(), user.ID, chi.URLParam(r, "attemptID"), *req.Option)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAttemptView(a))
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	a, err := h.attempts.Advance(r.Context(), user.ID, chi.URLParam(r, "attemptID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAttemptView(a))
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	a, err := h.attempts.Retry(r.Context(), user.ID, chi.URLParam(r, "attemptID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAttemptView(a))
}

// handleDiscardAttempt closes an attempt once its result has been viewed.
func (h *Handler) handleDiscardAttempt(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	if err := h.attempts.Discard(user.ID, chi.URLParam(r, "attemptID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
