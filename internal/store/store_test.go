package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/vidyavistaar/portal/internal/model"
	"github.com/vidyavistaar/portal/internal/store/seed"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:", WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newSeededStore(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)
	fx, err := ParseFixtures(seed.Fixtures)
	if err != nil {
		t.Fatalf("ParseFixtures: %v", err)
	}
	if err := s.ImportFixtures(context.Background(), fx); err != nil {
		t.Fatalf("ImportFixtures: %v", err)
	}
	return s
}

func TestParseFixturesRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty quiz", "quizzes:\n  - id: q1\n    questions: []\n"},
		{"unknown chapter quiz", "subjects:\n  - id: s\n    chapters:\n      - {id: c, quiz: nope}\n"},
		{"unknown contest quiz", "contests:\n  - {id: c1, quiz: nope}\n"},
		{"bad role", "users:\n  - {id: u1, role: janitor}\n"},
		{"bad answer", "quizzes:\n  - id: q1\n    questions:\n      - {id: a, correct_answer: [1, 2]}\n"},
		{"unknown question type", "quizzes:\n  - id: q1\n    questions:\n      - {id: a, type: fill-in-blank, correct_answer: x}\n"},
		{"mcq without options", "quizzes:\n  - id: q1\n    questions:\n      - {id: a, type: mcq, correct_answer: 0}\n"},
		{"mcq answer out of range", "quizzes:\n  - id: q1\n    questions:\n      - {id: a, options: [x, y], correct_answer: 2}\n"},
		{"mcq negative answer", "quizzes:\n  - id: q1\n    questions:\n      - {id: a, options: [x, y], correct_answer: -1}\n"},
		{"mcq text answer", "quizzes:\n  - id: q1\n    questions:\n      - {id: a, options: [x, y], correct_answer: y}\n"},
		{"punjabi options mismatch", "quizzes:\n  - id: q1\n    questions:\n      - {id: a, options: [x, y], punjabi_options: [p], correct_answer: 0}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFixtures([]byte(tt.doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseSeedFixtures(t *testing.T) {
	fx, err := ParseFixtures(seed.Fixtures)
	if err != nil {
		t.Fatalf("ParseFixtures(seed): %v", err)
	}
	var pq1 *FixtureQuiz
	for i := range fx.Quizzes {
		if fx.Quizzes[i].ID == "pq1" {
			pq1 = &fx.Quizzes[i]
		}
	}
	if pq1 == nil {
		t.Fatal("seed has no pq1 quiz")
	}
	want := model.Text{
		En: "Which law is known as the law of inertia?",
		Pa: "ਕਿਹੜਾ ਨਿਯਮ ਜੜਤਾ ਦਾ ਨਿਯਮ ਵਜੋਂ ਜਾਣਿਆ ਜਾਂਦਾ ਹੈ?",
	}
	if got := pq1.Questions[0].Text; got != want {
		t.Errorf("question text = %+v, want %+v", got, want)
	}
}

func TestFreeTextAnswerKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	doc := `quizzes:
  - id: ft
    title: {en: Free text}
    questions:
      - {id: a, text: {en: "How many letters?"}, type: fill-in-the-blank, correct_answer: 41}
      - {id: b, text: {en: "Define force."}, type: short-answer, correct_answer: mass times acceleration}
`
	fx, err := ParseFixtures([]byte(doc))
	if err != nil {
		t.Fatalf("ParseFixtures: %v", err)
	}
	if err := s.ImportFixtures(ctx, fx); err != nil {
		t.Fatalf("ImportFixtures: %v", err)
	}
	q, err := s.GetQuiz(ctx, "ft")
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if got := q.Questions[0].CorrectAnswer; got != model.TextKey("41") {
		t.Errorf("numeric fill-in answer = %+v, want text 41", got)
	}
	if got := q.Questions[1]; got.Type != model.QuestionShortAnswer || got.CorrectAnswer != model.TextKey("mass times acceleration") {
		t.Errorf("short answer = %+v", got)
	}
}

func TestGetQuiz(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	q, err := s.GetQuiz(ctx, "pq1")
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if q.Title.En != "Laws of Motion Quiz" {
		t.Errorf("title = %q", q.Title.En)
	}
	if len(q.Questions) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(q.Questions))
	}
	first := q.Questions[0]
	if first.ID != "pq1q1" || first.Type != model.QuestionMCQ {
		t.Errorf("first question = %+v", first)
	}
	if !first.CorrectAnswer.IsIndex || first.CorrectAnswer.Index != 0 {
		t.Errorf("correct answer = %+v", first.CorrectAnswer)
	}
	if len(first.PunjabiOptions) != 3 || first.PunjabiOptions[0] != "ਨਿਊਟਨ ਦਾ ਪਹਿਲਾ ਨਿਯਮ" {
		t.Errorf("punjabi options = %v", first.PunjabiOptions)
	}
	// Options without a Punjabi translation fall back to the English ones.
	if got := q.Questions[1].PunjabiOptions; len(got) != 3 || got[0] != "F = ma" {
		t.Errorf("fallback punjabi options = %v", got)
	}

	_, err = s.GetQuiz(ctx, "missing")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReadsAreIsolated(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	q1, err := s.GetQuiz(ctx, "mq1")
	if err != nil {
		t.Fatal(err)
	}
	q1.Questions[0].Options[0] = "tampered"
	q1.Questions = q1.Questions[:1]

	q2, err := s.GetQuiz(ctx, "mq1")
	if err != nil {
		t.Fatal(err)
	}
	if len(q2.Questions) != 5 || q2.Questions[0].Options[0] != "4x" {
		t.Errorf("second read observed mutation: %+v", q2.Questions[0])
	}
}

func TestListSubjects(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	ncert, err := s.ListSubjects(ctx, model.StreamNCERT)
	if err != nil {
		t.Fatalf("ListSubjects: %v", err)
	}
	if len(ncert) != 4 {
		t.Fatalf("expected 4 ncert subjects, got %d", len(ncert))
	}
	if ncert[0].ID != "math-ncert" || len(ncert[0].Chapters) != 2 {
		t.Errorf("first subject = %s with %d chapters", ncert[0].ID, len(ncert[0].Chapters))
	}
	if ncert[0].Chapters[0].ID != "m1-ncert" || !ncert[0].Chapters[0].Completed {
		t.Errorf("first chapter = %+v", ncert[0].Chapters[0])
	}

	all, err := s.ListSubjects(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 8 {
		t.Errorf("expected 8 subjects, got %d", len(all))
	}
}

func TestQuizIndexUsesFirstChapter(t *testing.T) {
	s := newSeededStore(t)
	index, err := s.QuizIndex(context.Background())
	if err != nil {
		t.Fatalf("QuizIndex: %v", err)
	}
	tests := []struct {
		quiz, subject, chapter string
	}{
		{"mq1", "Mathematics", "Algebra Basics"},
		{"pq1", "Physics", "Laws of Motion"},
		{"cq1", "Chemistry", "Periodic Table"},
		{"puq1", "Punjabi", "Punjabi Grammar"},
	}
	for _, tt := range tests {
		ref, ok := index[tt.quiz]
		if !ok {
			t.Errorf("%s missing from index", tt.quiz)
			continue
		}
		if ref.Subject.En != tt.subject || ref.Chapter.En != tt.chapter {
			t.Errorf("%s -> (%s, %s), want (%s, %s)", tt.quiz, ref.Subject.En, ref.Chapter.En, tt.subject, tt.chapter)
		}
	}
}

func TestGetChapter(t *testing.T) {
	s := newSeededStore(t)
	ch, sub, err := s.GetChapter(context.Background(), "s1-pseb")
	if err != nil {
		t.Fatalf("GetChapter: %v", err)
	}
	if ch.QuizID != "pq1" || sub.ID != "science-pseb" || sub.Name.Pa != "ਵਿਗਿਆਨ" {
		t.Errorf("got chapter %+v subject %+v", ch, sub)
	}
	if _, _, err := s.GetChapter(context.Background(), "nope"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogFilters(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	books, err := s.ListTextbooks(ctx, model.StreamNCERT, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 3 {
		t.Errorf("expected 3 ncert class 10 textbooks, got %d", len(books))
	}

	faqs, err := s.ListFAQs(ctx, model.UserRoleTeacher)
	if err != nil {
		t.Fatal(err)
	}
	if len(faqs) != 1 || faqs[0].ID != "faq-t1" {
		t.Errorf("teacher faqs = %+v", faqs)
	}

	careers, err := s.ListCareerPaths(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(careers) != 3 || careers[1].Name.En != "Movie Director" {
		t.Errorf("careers = %+v", careers)
	}
	med := careers[2]
	if len(med.Roadmap) != 3 || med.Roadmap[0].Title.En != "Excel in Biology" || med.Roadmap[0].Description.Pa == "" {
		t.Errorf("medical roadmap = %+v", med.Roadmap)
	}
	if len(med.Resources) != 1 || med.Resources[0].ID != "res-med-1" || med.Tasks[0].Skill != "Empathy & Care" {
		t.Errorf("medical details = %+v / %+v", med.Resources, med.Tasks)
	}

	stories, err := s.ListStories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stories) != 2 || stories[0].Name.Pa != "ਡਾ. ਏ.ਪੀ.ਜੇ. ਅਬਦੁਲ ਕਲਾਮ" {
		t.Errorf("stories = %+v", stories)
	}

	att, err := s.ListAttendance(ctx, fixedNow.Format(time.DateOnly))
	if err != nil {
		t.Fatal(err)
	}
	if len(att) != 3 || att[1].Status != model.AttendanceAbsent {
		t.Errorf("attendance = %+v", att)
	}
}

func TestUsers(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	u, err := s.GetUserByEmail(ctx, "PRANAV@example.com", model.UserRoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	if u == nil || u.ID != "s1" || u.Class != 10 {
		t.Fatalf("GetUserByEmail = %+v", u)
	}

	u, err = s.GetUserByEmail(ctx, "pranav@example.com", model.UserRoleTeacher)
	if err != nil {
		t.Fatal(err)
	}
	if u != nil {
		t.Errorf("expected nil for role mismatch, got %+v", u)
	}

	students, err := s.ListStudents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(students) != 3 {
		t.Errorf("expected 3 students, got %d", len(students))
	}
}

func TestUpdateTeacherNotes(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	u, err := s.UpdateTeacherNotes(ctx, "s3", "Met parents on Friday.")
	if err != nil {
		t.Fatalf("UpdateTeacherNotes: %v", err)
	}
	if u.TeacherNotes != "Met parents on Friday." || u.Name != "DChai" {
		t.Errorf("returned user = %+v", u)
	}
	got, _ := s.GetUserByID(ctx, "s3")
	if got.TeacherNotes != "Met parents on Friday." {
		t.Errorf("stored notes = %q", got.TeacherNotes)
	}

	if _, err := s.UpdateTeacherNotes(ctx, "t1", "x"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("updating a teacher: expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpdateTeacherNotes(ctx, "nobody", "x"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPerformance(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	p, err := s.GetStudentPerformance(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.QuizScores["pq1"] != 100 || !p.VideoViews["p1"] || len(p.WeakAreas) != 1 {
		t.Fatalf("s1 performance = %+v", p)
	}
	if !p.Attempted("mq1") || p.Attempted("cq1") {
		t.Errorf("attempted flags wrong: %+v", p.QuizScores)
	}

	if err := s.RecordQuizScore(ctx, "s2", "pq1", 50); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordQuizScore(ctx, "s2", "pq1", 60); err != nil {
		t.Fatal(err)
	}
	if err := s.AddWeakArea(ctx, "s2", "Laws of Motion"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddWeakArea(ctx, "s2", "Laws of Motion"); err != nil {
		t.Fatal(err)
	}
	p, _ = s.GetStudentPerformance(ctx, "s2")
	if p.QuizScores["pq1"] != 60 {
		t.Errorf("expected latest score 60, got %d", p.QuizScores["pq1"])
	}
	if len(p.WeakAreas) != 2 || p.WeakAreas[1] != "Laws of Motion" {
		t.Errorf("weak areas = %v", p.WeakAreas)
	}

	none, err := s.GetStudentPerformance(ctx, "t1")
	if err != nil || none != nil {
		t.Errorf("expected nil performance for t1, got %+v, %v", none, err)
	}

	all, err := s.ListPerformance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].StudentID != "s1" || all[2].StudentID != "s3" {
		t.Errorf("ListPerformance order = %+v", all)
	}
}

func TestLeaderboard(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	c, err := s.GetContest(ctx, "c2")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"s2", "s1", "s3"}
	for i, e := range c.Leaderboard {
		if e.StudentID != want[i] {
			t.Fatalf("leaderboard = %+v", c.Leaderboard)
		}
	}
	if c.Leaderboard[0].StudentName != "Nithin" {
		t.Errorf("expected student name, got %+v", c.Leaderboard[0])
	}

	// A lower score never replaces a better one.
	if err := s.RecordContestScore(ctx, "c2", "s3", 10); err != nil {
		t.Fatal(err)
	}
	// A tie on score is broken by name: DChai before Nithin.
	if err := s.RecordContestScore(ctx, "c2", "s3", 95); err != nil {
		t.Fatal(err)
	}
	c, _ = s.GetContest(ctx, "c2")
	if c.Leaderboard[0].StudentID != "s3" || c.Leaderboard[0].Score != 95 || c.Leaderboard[1].StudentID != "s2" {
		t.Errorf("leaderboard after update = %+v", c.Leaderboard)
	}

	if _, err := s.GetContest(ctx, "c9"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDoubts(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	all, err := s.ListDoubts(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 doubts, got %d", len(all))
	}
	mine, err := s.ListDoubts(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Errorf("expected 2 doubts for s1, got %d", len(mine))
	}

	d1, err := s.GetDoubt(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if !d1.IsResolved || d1.Answer == nil || d1.Answer.En == "" {
		t.Errorf("d1 = %+v", d1)
	}

	resolved, err := s.ResolveDoubt(ctx, "d2", model.Text{En: "Rockets push gas down.", Pa: "ਰਾਕੇਟ"})
	if err != nil {
		t.Fatalf("ResolveDoubt: %v", err)
	}
	if !resolved.IsResolved || resolved.Answer.En != "Rockets push gas down." {
		t.Errorf("resolved = %+v", resolved)
	}

	_, err = s.ResolveDoubt(ctx, "d2", model.Text{En: "second"})
	var already *model.AlreadyResolvedError
	if !errors.As(err, &already) || already.ID != "d2" {
		t.Fatalf("expected AlreadyResolvedError, got %v", err)
	}
	again, _ := s.GetDoubt(ctx, "d2")
	if again.Answer.En != "Rockets push gas down." {
		t.Errorf("answer changed to %q", again.Answer.En)
	}

	if _, err := s.ResolveDoubt(ctx, "nope", model.Text{En: "x"}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAuthSessions(t *testing.T) {
	now := fixedNow
	s, err := New(":memory:", WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()

	token, err := s.CreateAuthSession(ctx, "s1", model.UserRoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	if len(token) != 43 {
		t.Errorf("token length = %d", len(token))
	}
	sess, err := s.GetAuthSession(ctx, token)
	if err != nil || sess == nil || sess.UserID != "s1" || sess.Role != model.UserRoleStudent {
		t.Fatalf("GetAuthSession = %+v, %v", sess, err)
	}

	other, err := s.CreateAuthSession(ctx, "t1", model.UserRoleTeacher)
	if err != nil {
		t.Fatal(err)
	}

	now = now.Add(25 * time.Hour)
	sess, err = s.GetAuthSession(ctx, token)
	if err != nil || sess != nil {
		t.Errorf("expected expired session to be gone, got %+v, %v", sess, err)
	}

	n, err := s.CleanupExpiredSessions(ctx)
	if err != nil || n != 1 {
		t.Errorf("CleanupExpiredSessions = %d, %v", n, err)
	}
	if sess, _ := s.GetAuthSession(ctx, other); sess != nil {
		t.Errorf("cleaned session still present: %+v", sess)
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h, err := s.GetImportedFileHash(ctx, "fixtures.yaml")
	if err != nil || h != "" {
		t.Fatalf("expected empty hash, got %q, %v", h, err)
	}
	if err := s.SetImportedFileHash(ctx, "fixtures.yaml", "abc"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetImportedFileHash(ctx, "fixtures.yaml", "def"); err != nil {
		t.Fatal(err)
	}
	h, _ = s.GetImportedFileHash(ctx, "fixtures.yaml")
	if h != "def" {
		t.Errorf("hash = %q", h)
	}
}

func TestReimportKeepsLiveData(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	if _, err := s.ResolveDoubt(ctx, "d3", model.Text{En: "Full shells are stable."}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateTeacherNotes(ctx, "s1", "new notes"); err != nil {
		t.Fatal(err)
	}

	fx, _ := ParseFixtures(seed.Fixtures)
	if err := s.ImportFixtures(ctx, fx); err != nil {
		t.Fatalf("second import: %v", err)
	}

	d3, _ := s.GetDoubt(ctx, "d3")
	if !d3.IsResolved {
		t.Error("re-import reopened a resolved doubt")
	}
	u, _ := s.GetUserByID(ctx, "s1")
	if u.TeacherNotes != "new notes" {
		t.Errorf("re-import overwrote notes: %q", u.TeacherNotes)
	}
	v, _ := s.GetMetadata(ctx, "fixtures_version")
	if v != "2024.05" {
		t.Errorf("fixtures_version = %q", v)
	}
}

func TestLatencyHonorsContext(t *testing.T) {
	s, err := New(":memory:", WithLatency(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.ListResources(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestOldCareerTableGainsDetailColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.db")
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec(`DROP TABLE career_paths;
		CREATE TABLE career_paths (
			id TEXT PRIMARY KEY, position INTEGER NOT NULL, name_en TEXT NOT NULL, name_pa TEXT NOT NULL,
			description_en TEXT NOT NULL DEFAULT '', description_pa TEXT NOT NULL DEFAULT '',
			parent_info_en TEXT NOT NULL DEFAULT '', parent_info_pa TEXT NOT NULL DEFAULT '');
		INSERT INTO career_paths (id, position, name_en, name_pa) VALUES ('pilot', 0, 'Pilot', 'ਪਾਇਲਟ');`); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	careers, err := s.ListCareerPaths(context.Background())
	if err != nil {
		t.Fatalf("ListCareerPaths: %v", err)
	}
	if len(careers) != 1 || careers[0].Roadmap == nil || len(careers[0].Tasks) != 0 {
		t.Errorf("careers = %+v", careers)
	}
}

func TestCreateQuiz(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	q, err := s.CreateQuiz(ctx, model.Quiz{
		ID:    "fresh",
		Title: model.Text{En: "Fresh"},
		Questions: []model.Question{
			{Text: model.Text{En: "Pick one"}, Options: []string{"a", "b"}, CorrectAnswer: model.IndexKey(1)},
			{Text: model.Text{En: "Seven times six"}, Type: model.QuestionFillInBlank, CorrectAnswer: model.IndexKey(42)},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	if q.Questions[0].ID != "fresh-1" || q.Questions[0].Type != model.QuestionMCQ {
		t.Errorf("first question = %+v", q.Questions[0])
	}
	got, err := s.GetQuiz(ctx, "fresh")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title.Pa != "Fresh" || got.Questions[1].CorrectAnswer != model.TextKey("42") {
		t.Errorf("stored quiz = %+v", got)
	}

	tests := []struct {
		name string
		quiz model.Quiz
		want error
	}{
		{"existing quiz id", model.Quiz{ID: "pq1", Questions: got.Questions[:1]}, model.ErrAlreadyExists},
		{"existing question id", model.Quiz{ID: "other", Questions: []model.Question{
			{ID: "pq1q1", Text: model.Text{En: "Again"}, Options: []string{"a"}, CorrectAnswer: model.IndexKey(0)},
		}}, model.ErrAlreadyExists},
		{"no questions", model.Quiz{ID: "none"}, nil},
		{"text answer on mcq", model.Quiz{ID: "bad", Questions: []model.Question{
			{Text: model.Text{En: "Pick"}, Options: []string{"a"}, CorrectAnswer: model.TextKey("a")},
		}}, nil},
	}
	for _, tt := range tests {
		_, err := s.CreateQuiz(ctx, tt.quiz)
		if err == nil {
			t.Errorf("%s: expected an error", tt.name)
			continue
		}
		var verr *model.ValidationError
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		} else if tt.want == nil && !errors.As(err, &verr) {
			t.Errorf("%s: err = %v, want a validation error", tt.name, err)
		}
	}
	if _, err := s.GetQuiz(ctx, "other"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("rejected quiz was stored: %v", err)
	}
}

func TestCreateSubjectAndChapter(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	sub, err := s.CreateSubject(ctx, model.Subject{Name: model.Text{En: "Music"}, Stream: model.StreamPSEB})
	if err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	if sub.ID == "" || sub.Name.Pa != "Music" {
		t.Errorf("subject = %+v", sub)
	}
	if _, err := s.CreateSubject(ctx, model.Subject{Name: model.Text{En: "MUSIC"}, Stream: model.StreamPSEB}); !errors.Is(err, model.ErrAlreadyExists) {
		t.Errorf("duplicate name in stream: %v", err)
	}
	if _, err := s.CreateSubject(ctx, model.Subject{Name: model.Text{En: "Music"}, Stream: model.StreamNCERT}); err != nil {
		t.Errorf("same name in another stream: %v", err)
	}

	for i, title := range []string{"Ragas", "Rhythm"} {
		ch, err := s.CreateChapter(ctx, model.Chapter{SubjectID: sub.ID, Title: model.Text{En: title}, QuizID: "pq1"})
		if err != nil {
			t.Fatalf("CreateChapter %d: %v", i, err)
		}
		if _, _, err := s.GetChapter(ctx, ch.ID); err != nil {
			t.Errorf("GetChapter(%s): %v", ch.ID, err)
		}
	}
	subjects, err := s.ListSubjects(ctx, model.StreamPSEB)
	if err != nil {
		t.Fatal(err)
	}
	last := subjects[len(subjects)-1]
	if last.ID != sub.ID || len(last.Chapters) != 2 || last.Chapters[1].Title.En != "Rhythm" {
		t.Errorf("listed subject = %+v", last)
	}

	if _, err := s.CreateChapter(ctx, model.Chapter{SubjectID: "nope", Title: model.Text{En: "X"}, QuizID: "pq1"}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown subject: %v", err)
	}
	if _, err := s.CreateChapter(ctx, model.Chapter{SubjectID: sub.ID, Title: model.Text{En: "ragas"}, QuizID: "pq1"}); !errors.Is(err, model.ErrAlreadyExists) {
		t.Errorf("duplicate chapter title: %v", err)
	}
}
