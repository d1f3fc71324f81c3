package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidyavistaar/portal/internal/auth"
	"github.com/vidyavistaar/portal/internal/cache"
	appI18n "github.com/vidyavistaar/portal/internal/i18n"
	"github.com/vidyavistaar/portal/internal/llm/prompts"
	"github.com/vidyavistaar/portal/internal/model"
	"github.com/vidyavistaar/portal/internal/store"
	"github.com/vidyavistaar/portal/internal/store/seed"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	if err := prompts.Load(prompts.Templates); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeGen struct {
	mu    sync.Mutex
	reply string
	users []string
}

func (f *fakeGen) Generate(_ context.Context, _, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, user)
	return f.reply, nil
}

type testEnv struct {
	router http.Handler
	gen    *fakeGen
	store  *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	fx, err := store.ParseFixtures(seed.Fixtures)
	if err != nil {
		t.Fatalf("ParseFixtures: %v", err)
	}
	if err := s.ImportFixtures(context.Background(), fx); err != nil {
		t.Fatalf("ImportFixtures: %v", err)
	}
	authn, err := auth.New(s, "123456", auth.WithCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("auth.New: %v", err)
	}
	gen := &fakeGen{reply: "Here is an explanation."}
	h, err := New(s, cache.NewMemory(s, time.Minute), gen, authn, model.PortalConfig{
		LLMModel: "test-model",
		Lang:     "en",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	h.Routes(r)
	return &testEnv{router: r, gen: gen, store: s}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, email string, role model.UserRole, class int) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/login", "", map[string]any{
		"email": email, "password": "123456", "role": role, "class": class,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, rec.Code, rec.Body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &resp)
	return resp.Token
}

func (e *testEnv) student(t *testing.T) string {
	return e.login(t, "pranav@example.com", model.UserRoleStudent, 10)
}

func (e *testEnv) teacher(t *testing.T) string {
	return e.login(t, "sai_pranav@example.com", model.UserRoleTeacher, 0)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	decodeBody(t, rec, &body)
	return body.Error
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name     string
		body     map[string]any
		lang     string
		wantCode int
		wantMsg  string
	}{
		{"ok", map[string]any{"email": "pranav@example.com", "password": "123456", "role": "student", "class": 10}, "", http.StatusOK, ""},
		{"wrong class", map[string]any{"email": "pranav@example.com", "password": "123456", "role": "student", "class": 9}, "",
			http.StatusUnauthorized, "Invalid class. Please check your class and try again."},
		{"wrong class punjabi", map[string]any{"email": "pranav@example.com", "password": "123456", "role": "student", "class": 9}, "pa",
			http.StatusUnauthorized, "ਗਲਤ ਜਮਾਤ। ਕਿਰਪਾ ਕਰਕੇ ਆਪਣੀ ਜਮਾਤ ਦੀ ਜਾਂਚ ਕਰੋ ਅਤੇ ਦੁਬਾਰਾ ਕੋਸ਼ਿਸ਼ ਕਰੋ।"},
		{"wrong password", map[string]any{"email": "neha@example.com", "password": "nope", "role": "admin"}, "",
			http.StatusUnauthorized, "Invalid credentials."},
		{"missing email", map[string]any{"password": "123456", "role": "admin"}, "", http.StatusBadRequest, "email: failed required"},
		{"bad role", map[string]any{"email": "neha@example.com", "password": "123456", "role": "parent"}, "",
			http.StatusBadRequest, "role: failed oneof=student teacher admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/login"
			if tt.lang != "" {
				path += "?lang=" + tt.lang
			}
			rec := e.do(t, http.MethodPost, path, "", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body)
			}
			if tt.wantMsg != "" {
				if got := errorMessage(t, rec); got != tt.wantMsg {
					t.Errorf("error = %q, want %q", got, tt.wantMsg)
				}
			}
		})
	}
}

func TestAccessControl(t *testing.T) {
	e := newTestEnv(t)
	student := e.student(t)
	teacher := e.teacher(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"anonymous", http.MethodGet, "/subjects", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/subjects", "nope", http.StatusUnauthorized},
		{"student catalog", http.MethodGet, "/subjects?stream=pseb", student, http.StatusOK},
		{"student roster", http.MethodGet, "/students", student, http.StatusForbidden},
		{"teacher roster", http.MethodGet, "/students", teacher, http.StatusOK},
		{"other student's performance", http.MethodGet, "/performance/s2", student, http.StatusForbidden},
		{"own performance", http.MethodGet, "/performance/s1", student, http.StatusOK},
		{"teacher starts quiz", http.MethodPost, "/quizzes/mq1/attempts", teacher, http.StatusForbidden},
		{"student report page", http.MethodGet, "/reports/analysis", student, http.StatusForbidden},
		{"unknown student", http.MethodGet, "/performance/zz", teacher, http.StatusNotFound},
		{"bad stream", http.MethodGet, "/subjects?stream=cbse", student, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, tt.method, tt.path, tt.token, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)
	token := e.student(t)
	if rec := e.do(t, http.MethodPost, "/logout", token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/faqs", token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("token still valid after logout: %d", rec.Code)
	}
}

func TestGetQuizHidesAnswers(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/quizzes/mq1", e.student(t), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "correct_answer") {
		t.Error("quiz response leaks the answer key")
	}
}

type attemptResp struct {
	ID       string `json:"id"`
	Finished bool   `json:"finished"`
	Current  *struct {
		ID            string `json:"id"`
		CorrectAnswer any    `json:"correct_answer"`
	} `json:"current"`
	Percent *int `json:"percent"`
	Review  []struct {
		CorrectAnswer any `json:"correct_answer"`
	} `json:"review"`
}

func TestQuizAttemptFlow(t *testing.T) {
	e := newTestEnv(t)
	token := e.student(t)

	rec := e.do(t, http.MethodPost, "/quizzes/mq1/attempts", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rec.Code, rec.Body)
	}
	var a attemptResp
	decodeBody(t, rec, &a)
	if a.Current == nil || a.Current.ID != "mq1q1" || a.Current.CorrectAnswer != nil {
		t.Fatalf("unexpected first question: %s", rec.Body)
	}

	if rec := e.do(t, http.MethodPost, "/attempts/"+a.ID+"/advance", token, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("advance without answer: %d", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, "/attempts/"+a.ID+"/answer", token, map[string]any{"option": 7}); rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range option: %d", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, "/attempts/"+a.ID+"/answer", token, map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Errorf("missing option: %d", rec.Code)
	}

	for _, opt := range []int{1, 0, 1, 0, 1} {
		if rec := e.do(t, http.MethodPost, "/attempts/"+a.ID+"/answer", token, map[string]any{"option": opt}); rec.Code != http.StatusOK {
			t.Fatalf("answer: %d %s", rec.Code, rec.Body)
		}
		rec := e.do(t, http.MethodPost, "/attempts/"+a.ID+"/advance", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("advance: %d %s", rec.Code, rec.Body)
		}
		decodeBody(t, rec, &a)
	}
	if !a.Finished || a.Percent == nil || *a.Percent != 80 {
		t.Fatalf("finished attempt = %+v", a)
	}
	if len(a.Review) != 5 || a.Review[0].CorrectAnswer == nil {
		t.Errorf("review should reveal answers: %+v", a.Review)
	}

	if rec := e.do(t, http.MethodPost, "/attempts/"+a.ID+"/answer", token, map[string]any{"option": 0}); rec.Code != http.StatusConflict {
		t.Errorf("answer after finish: %d", rec.Code)
	}

	var perf model.StudentPerformance
	decodeBody(t, e.do(t, http.MethodGet, "/performance/s1", token, nil), &perf)
	if perf.QuizScores["mq1"] != 80 {
		t.Errorf("recorded score = %d, want 80", perf.QuizScores["mq1"])
	}

	rec = e.do(t, http.MethodPost, "/attempts/"+a.ID+"/retry", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("retry: %d %s", rec.Code, rec.Body)
	}
	var fresh attemptResp
	decodeBody(t, rec, &fresh)
	if fresh.ID == a.ID || fresh.Finished || fresh.Current.ID != "mq1q1" {
		t.Errorf("retry = %s", rec.Body)
	}

	other := e.login(t, "nithin@example.com", model.UserRoleStudent, 9)
	if rec := e.do(t, http.MethodGet, "/attempts/"+fresh.ID, other, nil); rec.Code != http.StatusNotFound {
		t.Errorf("foreign attempt: %d", rec.Code)
	}
	if rec := e.do(t, http.MethodDelete, "/attempts/"+fresh.ID, other, nil); rec.Code != http.StatusNotFound {
		t.Errorf("discarding foreign attempt: %d", rec.Code)
	}

	if rec := e.do(t, http.MethodDelete, "/attempts/"+fresh.ID, token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("discard: %d %s", rec.Code, rec.Body)
	}
	if rec := e.do(t, http.MethodGet, "/attempts/"+fresh.ID, token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("discarded attempt still served: %d", rec.Code)
	}
}

func TestContestAttemptCannotBeRetried(t *testing.T) {
	e := newTestEnv(t)
	token := e.student(t)

	rec := e.do(t, http.MethodPost, "/contests/c1/attempts", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start contest: %d %s", rec.Code, rec.Body)
	}
	var a attemptResp
	decodeBody(t, rec, &a)

	rec = e.do(t, http.MethodPost, "/attempts/"+a.ID+"/retry", token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("contest retry: %d %s", rec.Code, rec.Body)
	}
	var body errorBody
	decodeBody(t, rec, &body)
	if !strings.Contains(body.Error, "cannot be retried") {
		t.Errorf("error = %q", body.Error)
	}

	var again attemptResp
	decodeBody(t, e.do(t, http.MethodPost, "/contests/c1/attempts", token, nil), &again)
	if again.ID != a.ID {
		t.Errorf("restarting an open contest gave a new attempt %s, want %s", again.ID, a.ID)
	}
}

func TestStudentReport(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/performance/s1/report", e.teacher(t), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	var rep model.StudentReport
	decodeBody(t, rec, &rep)
	if rep.StudentID != "s1" || rep.AverageScore != 95 {
		t.Errorf("report = %+v", rep)
	}
}

func TestDoubtFlow(t *testing.T) {
	e := newTestEnv(t)
	student := e.student(t)
	teacher := e.teacher(t)

	rec := e.do(t, http.MethodPost, "/doubts", student, map[string]string{
		"chapter_id": "p1-ncert", "question": "Why does a ball keep rolling?",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("post: %d %s", rec.Code, rec.Body)
	}
	var d model.Doubt
	decodeBody(t, rec, &d)
	if d.Subject.En != "Physics" || d.Chapter.En != "Laws of Motion" || d.IsResolved {
		t.Errorf("doubt = %+v", d)
	}

	if rec := e.do(t, http.MethodPost, "/doubts/"+d.ID+"/resolve", student, map[string]string{"answer": "x"}); rec.Code != http.StatusForbidden {
		t.Errorf("student resolve: %d", rec.Code)
	}
	rec = e.do(t, http.MethodPost, "/doubts/"+d.ID+"/resolve", teacher, map[string]string{"answer": "Inertia."})
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve: %d %s", rec.Code, rec.Body)
	}
	rec = e.do(t, http.MethodPost, "/doubts/"+d.ID+"/resolve", teacher, map[string]string{"answer": "Again."})
	if rec.Code != http.StatusConflict {
		t.Errorf("second resolve: %d", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, "/doubts/missing/resolve", teacher, map[string]string{"answer": "x"}); rec.Code != http.StatusNotFound {
		t.Errorf("missing doubt: %d", rec.Code)
	}

	var mine []model.Doubt
	decodeBody(t, e.do(t, http.MethodGet, "/doubts?q=ROLLING", student, nil), &mine)
	if len(mine) != 1 || mine[0].ID != d.ID || mine[0].Answer == nil || mine[0].Answer.En != "Inertia." {
		t.Errorf("filtered doubts = %+v", mine)
	}

	var all []model.Doubt
	decodeBody(t, e.do(t, http.MethodGet, "/doubts", teacher, nil), &all)
	for _, x := range all {
		if x.StudentID == "" {
			t.Fatalf("doubt without student: %+v", x)
		}
	}
	if len(all) <= len(mine) {
		t.Errorf("teacher should see every doubt, got %d", len(all))
	}
}

func TestUpdateNotes(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.teacher(t)
	rec := e.do(t, http.MethodPut, "/students/s3/notes", teacher, map[string]string{"notes": "Great progress."})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	var u model.User
	decodeBody(t, rec, &u)
	if u.TeacherNotes != "Great progress." {
		t.Errorf("notes = %q", u.TeacherNotes)
	}
	if rec := e.do(t, http.MethodPut, "/students/t1/notes", teacher, map[string]string{"notes": "x"}); rec.Code != http.StatusNotFound {
		t.Errorf("non-student notes: %d", rec.Code)
	}
}

func TestAttendance(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.teacher(t)
	rec := e.do(t, http.MethodPost, "/attendance", teacher, map[string]string{
		"student_id": "s2", "date": "2024-06-02", "status": "late",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("mark: %d %s", rec.Code, rec.Body)
	}
	var marks []model.Attendance
	decodeBody(t, e.do(t, http.MethodGet, "/attendance?date=2024-06-02", teacher, nil), &marks)
	if len(marks) != 1 || marks[0].StudentID != "s2" || marks[0].Status != model.AttendanceLate {
		t.Errorf("marks = %+v", marks)
	}
	if rec := e.do(t, http.MethodGet, "/attendance?date=June", teacher, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: %d", rec.Code)
	}
}

func TestAssistantConversation(t *testing.T) {
	e := newTestEnv(t)
	token := e.student(t)

	rec := e.do(t, http.MethodPost, "/assistant", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}
	var snap struct {
		ID       string `json:"id"`
		Step     string `json:"step"`
		Messages []struct {
			Sender string `json:"sender"`
			Text   string `json:"text"`
		} `json:"messages"`
	}
	decodeBody(t, rec, &snap)
	base := "/assistant/" + snap.ID

	if rec := e.do(t, http.MethodPost, base+"/messages", token, map[string]string{"text": "hi"}); rec.Code != http.StatusBadRequest {
		t.Errorf("message before language: %d", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, base+"/mode", token, map[string]string{"mode": "normal"}); rec.Code != http.StatusForbidden {
		t.Errorf("student mode selection: %d", rec.Code)
	}

	decodeBody(t, e.do(t, http.MethodPost, base+"/language", token, map[string]string{"language": "punjabi"}), &snap)
	if snap.Step != "chat" || len(snap.Messages) != 1 {
		t.Fatalf("after language = %+v", snap)
	}

	decodeBody(t, e.do(t, http.MethodPost, base+"/messages", token, map[string]string{"text": "What is inertia?"}), &snap)
	if len(snap.Messages) != 3 || snap.Messages[2].Text != "Here is an explanation." {
		t.Errorf("after message = %+v", snap)
	}

	other := e.teacher(t)
	if rec := e.do(t, http.MethodGet, base, other, nil); rec.Code != http.StatusNotFound {
		t.Errorf("foreign conversation: %d", rec.Code)
	}

	decodeBody(t, e.do(t, http.MethodPost, base+"/reset", token, nil), &snap)
	if snap.Step != "language-select" || len(snap.Messages) != 0 {
		t.Errorf("after reset = %+v", snap)
	}
	if rec := e.do(t, http.MethodDelete, base, token, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete: %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, base, token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d", rec.Code)
	}
}

func TestAssistantStream(t *testing.T) {
	e := newTestEnv(t)
	token := e.student(t)

	var snap struct {
		ID string `json:"id"`
	}
	decodeBody(t, e.do(t, http.MethodPost, "/assistant", token, nil), &snap)
	base := "/assistant/" + snap.ID

	if rec := e.do(t, http.MethodPost, base+"/messages?stream=1", token, map[string]string{"text": "hi"}); rec.Code != http.StatusBadRequest {
		t.Errorf("stream before language should fail as JSON: %d", rec.Code)
	}

	e.do(t, http.MethodPost, base+"/language", token, map[string]string{"language": "english"})
	rec := e.do(t, http.MethodPost, base+"/messages?stream=1", token, map[string]string{"text": "What is inertia?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"event: delta\ndata: {\"text\":\"Here is an explanation.\"}\n\n",
		"event: done\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %q:\n%s", want, body)
		}
	}
}

func TestTeacherAnalysisMode(t *testing.T) {
	e := newTestEnv(t)
	token := e.teacher(t)
	e.gen.reply = "## Top Performers\nNithin and Pranav"

	var snap struct {
		ID               string `json:"id"`
		Step             string `json:"step"`
		AnalysisComplete bool   `json:"analysis_complete"`
	}
	decodeBody(t, e.do(t, http.MethodPost, "/assistant", token, nil), &snap)
	base := "/assistant/" + snap.ID

	decodeBody(t, e.do(t, http.MethodPost, base+"/language", token, map[string]string{"language": "english"}), &snap)
	if snap.Step != "mode-select" {
		t.Fatalf("teacher step = %s", snap.Step)
	}
	decodeBody(t, e.do(t, http.MethodPost, base+"/mode", token, map[string]string{"mode": "analysis"}), &snap)
	if !snap.AnalysisComplete {
		t.Errorf("analysis not complete: %+v", snap)
	}
	if rec := e.do(t, http.MethodPost, base+"/messages", token, map[string]string{"text": "more"}); rec.Code != http.StatusBadRequest {
		t.Errorf("message after analysis: %d", rec.Code)
	}

	e.gen.mu.Lock()
	defer e.gen.mu.Unlock()
	if len(e.gen.users) != 1 || !strings.Contains(e.gen.users[0], "Student: Pranav\n") {
		t.Errorf("analysis input = %q", e.gen.users)
	}
}

func TestAnalysisReportPage(t *testing.T) {
	e := newTestEnv(t)
	e.gen.reply = "Everyone is <doing> well."
	rec := e.do(t, http.MethodGet, "/reports/analysis", e.teacher(t), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<h1>Monthly Report Analysis</h1>",
		"Generated 2024-06-01 12:00:00 with test-model",
		"No student is below the threshold this month.",
		"<strong>Nithin</strong>",
		"Everyone is &lt;doing&gt; well.",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}

	rec = e.do(t, http.MethodGet, "/reports/analysis?analyze=0&lang=pa", e.teacher(t), nil)
	if !strings.Contains(rec.Body.String(), `<html lang="pa">`) {
		t.Error("Punjabi page should declare its language")
	}
}

func TestUploadFixtures(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login(t, "neha@example.com", model.UserRoleAdmin, 0)
	doc := "quizzes:\n  - id: nq1\n    title: {en: New Quiz}\n    questions:\n      - {id: nq1a, text: {en: \"One?\"}, type: mcq, options: [a, b], correct_answer: 0}\n"

	upload := func(content string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("fixtures_file", "extra.yaml")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
		mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/admin/fixtures", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+admin)
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)
		return rec
	}

	rec := upload(doc)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body)
	}
	var resp uploadResponse
	decodeBody(t, rec, &resp)
	if !resp.Imported || resp.Quizzes != 1 {
		t.Errorf("first upload = %+v", resp)
	}

	decodeBody(t, upload(doc), &resp)
	if !resp.Duplicate || resp.Imported {
		t.Errorf("second upload = %+v", resp)
	}

	if rec := upload("quizzes: [{id: bad, questions: []}]"); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid fixtures: %d", rec.Code)
	}

	if rec := e.do(t, http.MethodGet, "/quizzes/nq1", admin, nil); rec.Code != http.StatusOK {
		t.Errorf("imported quiz not served: %d", rec.Code)
	}
}
