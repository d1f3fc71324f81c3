package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vidyavistaar/portal/internal/model"
	"github.com/vidyavistaar/portal/internal/quiz"
)

// list keeps empty collections encoded as [] rather than null.
func list[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func parseStream(r *http.Request) (model.Stream, error) {
	stream := model.Stream(r.URL.Query().Get("stream"))
	switch stream {
	case model.StreamNCERT, model.StreamPSEB:
		return stream, nil
	case "":
		return model.StreamNCERT, nil
	}
	return "", model.NewValidationError("stream", "must be ncert or pseb")
}

func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	stream, err := parseStream(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	subjects, err := h.store.ListSubjects(r.Context(), stream)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(subjects))
}

func (h *Handler) handleListAllSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.store.ListSubjects(r.Context(), "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(subjects))
}

type chapterResponse struct {
	model.Chapter
	Subject model.Text `json:"subject"`
}

func (h *Handler) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	ch, sub, err := h.store.GetChapter(r.Context(), chi.URLParam(r, "chapterID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chapterResponse{Chapter: ch, Subject: sub.Name})
}

// handleMarkVideoViewed records that the student watched a chapter's video.
func (h *Handler) handleMarkVideoViewed(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	ch, _, err := h.store.GetChapter(r.Context(), chi.URLParam(r, "chapterID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.RecordVideoView(r.Context(), user.ID, ch.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetQuiz returns the quiz without its answer key.
func (h *Handler) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	q, err := h.quizzes.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	questions := make([]questionView, len(q.Questions))
	for i, qu := range q.Questions {
		questions[i] = newQuestionView(qu, false)
	}
	writeJSON(w, http.StatusOK, struct {
		ID        string         `json:"id"`
		Title     model.Text     `json:"title"`
		Questions []questionView `json:"questions"`
	}{q.ID, q.Title, questions})
}

func (h *Handler) handleListTextbooks(w http.ResponseWriter, r *http.Request) {
	stream, err := parseStream(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	class := 0
	if v := r.URL.Query().Get("class"); v != "" {
		class, err = strconv.Atoi(v)
		if err != nil || class < 1 {
			writeError(w, r, model.NewValidationError("class", "must be a positive number"))
			return
		}
	}
	books, err := h.store.ListTextbooks(r.Context(), stream, class)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(books))
}

func (h *Handler) handleListContests(w http.ResponseWriter, r *http.Request) {
	contests, err := h.store.ListContests(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(contests))
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetContest(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(c.Leaderboard))
}

func (h *Handler) handleListResources(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.ListResources(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(res))
}

func (h *Handler) handleListFAQs(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	faqs, err := h.store.ListFAQs(r.Context(), user.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(faqs))
}

func (h *Handler) handleListCareers(w http.ResponseWriter, r *http.Request) {
	careers, err := h.store.ListCareerPaths(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(careers))
}

func (h *Handler) handleListStories(w http.ResponseWriter, r *http.Request) {
	stories, err := h.store.ListStories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(stories))
}

func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.ListStudents(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(students))
}

type notesRequest struct {
	Notes string `json:"notes" validate:"max=4000"`
}

func (h *Handler) handleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.store.UpdateTeacherNotes(r.Context(), chi.URLParam(r, "studentID"), req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// studentFor resolves the student named in the URL. Students may only
// address themselves.
func (h *Handler) studentFor(r *http.Request) (*model.User, error) {
	user := model.UserFromContext(r.Context())
	id := chi.URLParam(r, "studentID")
	if user.Role == model.UserRoleStudent && user.ID != id {
		return nil, model.ErrForbidden
	}
	student, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if student == nil || student.Role != model.UserRoleStudent {
		return nil, model.NewNotFoundError("student", id)
	}
	return student, nil
}

func (h *Handler) performanceFor(r *http.Request, studentID string) (model.StudentPerformance, error) {
	perf, err := h.store.GetStudentPerformance(r.Context(), studentID)
	if err != nil {
		return model.StudentPerformance{}, err
	}
	if perf == nil {
		return model.StudentPerformance{
			StudentID:  studentID,
			QuizScores: map[string]int{},
			VideoViews: map[string]bool{},
			WeakAreas:  []string{},
		}, nil
	}
	return *perf, nil
}

func (h *Handler) handleListPerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.store.ListPerformance(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(perf))
}

func (h *Handler) handleGetPerformance(w http.ResponseWriter, r *http.Request) {
	student, err := h.studentFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	perf, err := h.performanceFor(r, student.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

type weakAreaRequest struct {
	Area string `json:"area" validate:"required,max=200"`
}

func (h *Handler) handleAddWeakArea(w http.ResponseWriter, r *http.Request) {
	var req weakAreaRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	student, err := h.studentFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.AddWeakArea(r.Context(), student.ID, req.Area); err != nil {
		writeError(w, r, err)
		return
	}
	perf, err := h.performanceFor(r, student.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

func (h *Handler) handleStudentReport(w http.ResponseWriter, r *http.Request) {
	student, err := h.studentFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	perf, err := h.store.GetStudentPerformance(r.Context(), student.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	index, err := h.store.QuizIndex(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz.Report(student.ID, perf, index))
}

func (h *Handler) handleListAttendance(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.now().Format(time.DateOnly)
	} else if _, err := time.Parse(time.DateOnly, date); err != nil {
		writeError(w, r, model.NewValidationError("date", "must be YYYY-MM-DD"))
		return
	}
	marks, err := h.store.ListAttendance(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(marks))
}

type attendanceRequest struct {
	StudentID string                 `json:"student_id" validate:"required"`
	Date      string                 `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Status    model.AttendanceStatus `json:"status" validate:"required,oneof=present absent late"`
}

func (h *Handler) handleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	student, err := h.store.GetUserByID(r.Context(), req.StudentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if student == nil || student.Role != model.UserRoleStudent {
		writeError(w, r, model.NewNotFoundError("student", req.StudentID))
		return
	}
	if req.Date == "" {
		req.Date = h.now().Format(time.DateOnly)
	}
	a := model.Attendance{StudentID: req.StudentID, Date: req.Date, Status: req.Status}
	if err := h.store.MarkAttendance(r.Context(), a); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
