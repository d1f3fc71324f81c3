package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vidyavistaar/portal/internal/assistant"
	"github.com/vidyavistaar/portal/internal/auth"
	"github.com/vidyavistaar/portal/internal/cache"
	"github.com/vidyavistaar/portal/internal/doubt"
	appI18n "github.com/vidyavistaar/portal/internal/i18n"
	"github.com/vidyavistaar/portal/internal/llm"
	"github.com/vidyavistaar/portal/internal/model"
	"github.com/vidyavistaar/portal/internal/quiz"
	"github.com/vidyavistaar/portal/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	quizzes   cache.QuizCache
	attempts  *quiz.Service
	doubts    *doubt.Manager
	assistant *assistant.Registry
	auth      *auth.Authenticator
	gen       llm.Generator
	config    model.PortalConfig
	validate  *validator.Validate
	now       func() time.Time
}

// New creates a new Handler. gen backs both the assistant and the analysis
// report page.
func New(s *store.Store, quizzes cache.QuizCache, gen llm.Generator, authn *auth.Authenticator, cfg model.PortalConfig) (*Handler, error) {
	return &Handler{
		store:     s,
		quizzes:   quizzes,
		attempts:  quiz.NewService(quizzes, s),
		doubts:    doubt.NewManager(s),
		assistant: assistant.NewRegistry(gen, s),
		auth:      authn,
		gen:       gen,
		config:    cfg,
		validate:  newValidator(),
		now:       time.Now,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(appI18n.Middleware(h.config.Lang))

	r.Get("/healthz", h.handleHealth)
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/logout", h.handleLogout)

		r.Get("/subjects", h.handleListSubjects)
		r.Get("/subjects/all", h.handleListAllSubjects)
		r.Get("/chapters/{chapterID}", h.handleGetChapter)
		r.With(requireRole(model.UserRoleStudent)).Post("/chapters/{chapterID}/viewed", h.handleMarkVideoViewed)
		r.Get("/quizzes/{quizID}", h.handleGetQuiz)
		r.Get("/textbooks", h.handleListTextbooks)
		r.Get("/contests", h.handleListContests)
		r.Get("/contests/{contestID}/leaderboard", h.handleLeaderboard)
		r.Get("/resources", h.handleListResources)
		r.Get("/faqs", h.handleListFAQs)
		r.Get("/careers", h.handleListCareers)
		r.Get("/stories", h.handleListStories)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleTeacher, model.UserRoleAdmin))
			r.Post("/subjects", h.handleCreateSubject)
			r.Post("/subjects/{subjectID}/chapters", h.handleCreateChapter)
			r.Post("/quizzes", h.handleCreateQuiz)
		})

		r.With(requireRole(model.UserRoleTeacher, model.UserRoleAdmin)).Get("/students", h.handleListStudents)
		r.With(requireRole(model.UserRoleTeacher)).Put("/students/{studentID}/notes", h.handleUpdateNotes)
		r.With(requireRole(model.UserRoleTeacher, model.UserRoleAdmin)).Get("/performance", h.handleListPerformance)
		r.Get("/performance/{studentID}", h.handleGetPerformance)
		r.Get("/performance/{studentID}/report", h.handleStudentReport)
		r.With(requireRole(model.UserRoleTeacher)).Post("/performance/{studentID}/weak-areas", h.handleAddWeakArea)
		r.With(requireRole(model.UserRoleTeacher, model.UserRoleAdmin)).Get("/attendance", h.handleListAttendance)
		r.With(requireRole(model.UserRoleTeacher)).Post("/attendance", h.handleMarkAttendance)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleStudent))
			r.Post("/quizzes/{quizID}/attempts", h.handleStartQuiz)
			r.Post("/contests/{contestID}/attempts", h.handleStartContest)
			r.Get("/attempts/{attemptID}", h.handleGetAttempt)
			r.Post("/attempts/{attemptID}/answer", h.handleAnswer)
			r.Post("/attempts/{attemptID}/advance", h.handleAdvance)
			r.Post("/attempts/{attemptID}/retry", h.handleRetry)
			r.Delete("/attempts/{attemptID}", h.handleDiscardAttempt)
		})

		r.Get("/doubts", h.handleListDoubts)
		r.With(requireRole(model.UserRoleStudent)).Post("/doubts", h.handlePostDoubt)
		r.With(requireRole(model.UserRoleTeacher)).Post("/doubts/{doubtID}/resolve", h.handleResolveDoubt)

		r.Post("/assistant", h.handleCreateConversation)
		r.Get("/assistant/{convID}", h.handleGetConversation)
		r.Delete("/assistant/{convID}", h.handleDeleteConversation)
		r.Post("/assistant/{convID}/language", h.handleSelectLanguage)
		r.With(requireRole(model.UserRoleTeacher)).Post("/assistant/{convID}/mode", h.handleSelectMode)
		r.Post("/assistant/{convID}/messages", h.handleSendMessage)
		r.Post("/assistant/{convID}/reset", h.handleResetConversation)

		r.With(requireRole(model.UserRoleTeacher)).Get("/reports/analysis", h.handleAnalysisReport)
		r.With(requireRole(model.UserRoleAdmin)).Post("/admin/fixtures", h.handleUploadFixtures)
	})
}

// Prune drops stale quiz attempts and idle assistant conversations.
func (h *Handler) Prune(ctx context.Context) (attempts, conversations int) {
	return h.attempts.Prune(ctx), h.assistant.Prune()
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
