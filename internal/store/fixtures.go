package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vidyavistaar/portal/internal/model"
)

// Fixtures is the YAML document the store is seeded from.
type Fixtures struct {
	Version     string               `yaml:"version"`
	Users       []FixtureUser        `yaml:"users"`
	Quizzes     []FixtureQuiz        `yaml:"quizzes"`
	Subjects    []FixtureSubject     `yaml:"subjects"`
	Contests    []FixtureContest     `yaml:"contests"`
	Performance []FixturePerformance `yaml:"performance"`
	Doubts      []FixtureDoubt       `yaml:"doubts"`
	Resources   []FixtureResource    `yaml:"resources"`
	FAQs        []FixtureFAQ         `yaml:"faqs"`
	Attendance  []FixtureAttendance  `yaml:"attendance"`
	Textbooks   []FixtureTextbook    `yaml:"textbooks"`
	Careers     []FixtureCareer      `yaml:"careers"`
	Stories     []FixtureStory       `yaml:"stories"`
}

type FixtureUser struct {
	ID             string     `yaml:"id"`
	Name           string     `yaml:"name"`
	Email          string     `yaml:"email"`
	Role           string     `yaml:"role"`
	ProfilePicture string     `yaml:"profile_picture"`
	ParentName     string     `yaml:"parent_name"`
	ParentPhone    string     `yaml:"parent_phone"`
	TeacherNotes   string     `yaml:"teacher_notes"`
	Class          int        `yaml:"class"`
	Subject        model.Text `yaml:"subject"`
}

type FixtureQuiz struct {
	ID        string            `yaml:"id"`
	Title     model.Text        `yaml:"title"`
	Questions []FixtureQuestion `yaml:"questions"`
}

type FixtureQuestion struct {
	ID             string     `yaml:"id"`
	Text           model.Text `yaml:"text"`
	Type           string     `yaml:"type"`
	Options        []string   `yaml:"options"`
	PunjabiOptions []string   `yaml:"punjabi_options"`
	// CorrectAnswer is an option index for MCQs or a literal string.
	CorrectAnswer any `yaml:"correct_answer"`
}

type FixtureSubject struct {
	ID       string           `yaml:"id"`
	Name     model.Text       `yaml:"name"`
	Stream   string           `yaml:"stream"`
	Chapters []FixtureChapter `yaml:"chapters"`
}

type FixtureChapter struct {
	ID        string     `yaml:"id"`
	Title     model.Text `yaml:"title"`
	VideoURL  string     `yaml:"video_url"`
	PDFURL    string     `yaml:"pdf_url"`
	Quiz      string     `yaml:"quiz"`
	Completed bool       `yaml:"completed"`
}

type FixtureContest struct {
	ID              string         `yaml:"id"`
	Subject         string         `yaml:"subject"`
	Title           string         `yaml:"title"`
	Quiz            string         `yaml:"quiz"`
	DurationMinutes int            `yaml:"duration_minutes"`
	Leaderboard     map[string]int `yaml:"leaderboard"`
}

type FixturePerformance struct {
	Student    string         `yaml:"student"`
	QuizScores map[string]int `yaml:"quiz_scores"`
	VideoViews []string       `yaml:"video_views"`
	WeakAreas  []string       `yaml:"weak_areas"`
}

type FixtureDoubt struct {
	ID        string      `yaml:"id"`
	Student   string      `yaml:"student"`
	Subject   model.Text  `yaml:"subject"`
	Chapter   model.Text  `yaml:"chapter"`
	Question  model.Text  `yaml:"question"`
	Answer    *model.Text `yaml:"answer"`
	Timestamp time.Time   `yaml:"timestamp"`
}

type FixtureResource struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Type        string `yaml:"type"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

type FixtureFAQ struct {
	ID       string   `yaml:"id"`
	Question string   `yaml:"question"`
	Answer   string   `yaml:"answer"`
	For      []string `yaml:"for"`
}

type FixtureAttendance struct {
	Student string `yaml:"student"`
	// Date is YYYY-MM-DD, or "today" for the import date.
	Date   string `yaml:"date"`
	Status string `yaml:"status"`
}

type FixtureTextbook struct {
	ID      string     `yaml:"id"`
	Class   int        `yaml:"class"`
	Subject model.Text `yaml:"subject"`
	Stream  string     `yaml:"stream"`
	URL     string     `yaml:"url"`
}

type FixtureCareer struct {
	ID          string               `yaml:"id"`
	Name        model.Text           `yaml:"name"`
	Description model.Text           `yaml:"description"`
	ParentInfo  model.Text           `yaml:"parent_info"`
	Roadmap     []FixtureRoadmapStep `yaml:"roadmap"`
	Resources   []FixtureResource    `yaml:"resources"`
	Tasks       []FixtureCareerTask  `yaml:"tasks"`
}

type FixtureRoadmapStep struct {
	Title       model.Text `yaml:"title"`
	Description model.Text `yaml:"description"`
}

type FixtureCareerTask struct {
	Title       model.Text `yaml:"title"`
	Description model.Text `yaml:"description"`
	Skill       string     `yaml:"skill"`
}

type FixtureStory struct {
	ID       string     `yaml:"id"`
	Name     model.Text `yaml:"name"`
	ImageURL string     `yaml:"image_url"`
	Story    model.Text `yaml:"story"`
}

// ParseFixtures decodes and validates a fixture document.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	quizzes := make(map[string]bool, len(fx.Quizzes))
	for _, q := range fx.Quizzes {
		if len(q.Questions) == 0 {
			return nil, fmt.Errorf("quiz %s has no questions", q.ID)
		}
		for _, qq := range q.Questions {
			if _, err := fixtureQuestion(qq); err != nil {
				return nil, fmt.Errorf("question %s: %w", qq.ID, err)
			}
		}
		quizzes[q.ID] = true
	}
	for _, s := range fx.Subjects {
		for _, ch := range s.Chapters {
			if !quizzes[ch.Quiz] {
				return nil, fmt.Errorf("chapter %s references unknown quiz %q", ch.ID, ch.Quiz)
			}
		}
	}
	for _, c := range fx.Contests {
		if !quizzes[c.Quiz] {
			return nil, fmt.Errorf("contest %s references unknown quiz %q", c.ID, c.Quiz)
		}
	}
	for _, c := range fx.Careers {
		for _, r := range c.Resources {
			if r.URL == "" {
				return nil, fmt.Errorf("career %s resource %q has no url", c.ID, r.ID)
			}
		}
		for _, t := range c.Tasks {
			if t.Title.IsZero() {
				return nil, fmt.Errorf("career %s has a task without a title", c.ID)
			}
		}
	}
	for _, st := range fx.Stories {
		if st.ID == "" || st.Name.IsZero() {
			return nil, fmt.Errorf("story %q needs an id and a name", st.ID)
		}
	}
	for _, u := range fx.Users {
		if !model.UserRole(u.Role).Valid() {
			return nil, fmt.Errorf("user %s has unknown role %q", u.ID, u.Role)
		}
	}
	return &fx, nil
}

// fixtureQuestion converts and validates a fixture question.
func fixtureQuestion(qq FixtureQuestion) (model.Question, error) {
	key, err := answerKey(qq.CorrectAnswer)
	if err != nil {
		return model.Question{}, err
	}
	return checkQuestion(model.Question{
		ID:             qq.ID,
		Text:           qq.Text.Filled(),
		Type:           model.QuestionType(qq.Type),
		Options:        qq.Options,
		PunjabiOptions: qq.PunjabiOptions,
		CorrectAnswer:  key,
	})
}

// checkQuestion validates a question's type, options and answer key and
// returns it normalized. An empty type means multiple choice, missing Punjabi
// options repeat the English ones, and free-text answers written as bare
// numbers are kept as text.
func checkQuestion(q model.Question) (model.Question, error) {
	key := q.CorrectAnswer
	switch q.Type {
	case "", model.QuestionMCQ:
		q.Type = model.QuestionMCQ
		if len(q.Options) == 0 {
			return q, fmt.Errorf("multiple choice question has no options")
		}
		if len(q.PunjabiOptions) > 0 && len(q.PunjabiOptions) != len(q.Options) {
			return q, fmt.Errorf("%d punjabi_options for %d options", len(q.PunjabiOptions), len(q.Options))
		}
		if !key.IsIndex {
			return q, fmt.Errorf("multiple choice correct_answer must be an option index, got %q", key.Text)
		}
		if key.Index < 0 || key.Index >= len(q.Options) {
			return q, fmt.Errorf("correct_answer %d out of range for %d options", key.Index, len(q.Options))
		}
		if len(q.PunjabiOptions) == 0 {
			q.PunjabiOptions = q.Options
		}
	case model.QuestionFillInBlank, model.QuestionShortAnswer:
		if key.IsIndex {
			q.CorrectAnswer = model.TextKey(strconv.Itoa(key.Index))
		}
	default:
		return q, fmt.Errorf("unknown question type %q", q.Type)
	}
	return q, nil
}

func answerKey(v any) (model.AnswerKey, error) {
	switch a := v.(type) {
	case int:
		return model.IndexKey(a), nil
	case string:
		return model.TextKey(a), nil
	default:
		return model.AnswerKey{}, fmt.Errorf("correct_answer must be an index or a string, got %T", v)
	}
}

// ImportFixtures loads fixtures in one transaction. Catalog rows are replaced;
// users, doubts, scores and attendance already present are left untouched.
func (s *Store) ImportFixtures(ctx context.Context, fx *Fixtures) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, u := range fx.Users {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.Name, u.Email, u.Role, u.ProfilePicture, u.ParentName, u.ParentPhone,
			u.TeacherNotes, u.Class, u.Subject.En, u.Subject.Pa); err != nil {
			return fmt.Errorf("insert user %s: %w", u.ID, err)
		}
	}

	for _, q := range fx.Quizzes {
		if err := importQuiz(ctx, tx, q); err != nil {
			return err
		}
	}

	for i, sub := range fx.Subjects {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO subjects (id, position, name_en, name_pa, stream) VALUES (?, ?, ?, ?, ?)`,
			sub.ID, i, sub.Name.En, sub.Name.Pa, sub.Stream); err != nil {
			return fmt.Errorf("insert subject %s: %w", sub.ID, err)
		}
		for j, ch := range sub.Chapters {
			title := ch.Title.Filled()
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO chapters
				 (id, subject_id, position, title_en, title_pa, video_url, pdf_url, quiz_id, completed)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				ch.ID, sub.ID, j, title.En, title.Pa, ch.VideoURL, ch.PDFURL, ch.Quiz, ch.Completed); err != nil {
				return fmt.Errorf("insert chapter %s: %w", ch.ID, err)
			}
		}
	}

	for i, c := range fx.Contests {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO contests (id, position, subject, title, quiz_id, duration_minutes)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, i, c.Subject, c.Title, c.Quiz, c.DurationMinutes); err != nil {
			return fmt.Errorf("insert contest %s: %w", c.ID, err)
		}
		for student, score := range c.Leaderboard {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO contest_scores (contest_id, student_id, score) VALUES (?, ?, ?)`,
				c.ID, student, score); err != nil {
				return fmt.Errorf("insert contest score %s/%s: %w", c.ID, student, err)
			}
		}
	}

	now := s.now()
	for _, p := range fx.Performance {
		for quizID, score := range p.QuizScores {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO quiz_scores (student_id, quiz_id, score, recorded_at) VALUES (?, ?, ?, ?)`,
				p.Student, quizID, score, now); err != nil {
				return fmt.Errorf("insert quiz score %s/%s: %w", p.Student, quizID, err)
			}
		}
		for _, v := range p.VideoViews {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO video_views (student_id, video_key) VALUES (?, ?)`, p.Student, v); err != nil {
				return fmt.Errorf("insert video view %s/%s: %w", p.Student, v, err)
			}
		}
		for i, area := range p.WeakAreas {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO weak_areas (student_id, position, area) VALUES (?, ?, ?)`,
				p.Student, i, area); err != nil {
				return fmt.Errorf("insert weak area %s/%s: %w", p.Student, area, err)
			}
		}
	}

	for _, d := range fx.Doubts {
		var answer model.Text
		resolved := d.Answer != nil && !d.Answer.IsZero()
		if resolved {
			answer = d.Answer.Filled()
		}
		subject, chapter, question := d.Subject.Filled(), d.Chapter.Filled(), d.Question.Filled()
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO doubts (`+doubtColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.Student, subject.En, subject.Pa, chapter.En, chapter.Pa, question.En, question.Pa,
			resolved, answer.En, answer.Pa, d.Timestamp.UTC()); err != nil {
			return fmt.Errorf("insert doubt %s: %w", d.ID, err)
		}
	}

	for i, r := range fx.Resources {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO resources (id, position, title, type, url, description) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, i, r.Title, r.Type, r.URL, r.Description); err != nil {
			return fmt.Errorf("insert resource %s: %w", r.ID, err)
		}
	}

	for i, f := range fx.FAQs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO faqs (id, position, question, answer, roles) VALUES (?, ?, ?, ?, ?)`,
			f.ID, i, f.Question, f.Answer, strings.Join(f.For, ",")); err != nil {
			return fmt.Errorf("insert faq %s: %w", f.ID, err)
		}
	}

	today := now.Format(time.DateOnly)
	for _, a := range fx.Attendance {
		date := a.Date
		if date == "" || date == "today" {
			date = today
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO attendance (student_id, date, status) VALUES (?, ?, ?)`,
			a.Student, date, a.Status); err != nil {
			return fmt.Errorf("insert attendance %s: %w", a.Student, err)
		}
	}

	for i, b := range fx.Textbooks {
		subject := b.Subject.Filled()
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO textbooks (id, position, class, subject_en, subject_pa, stream, url)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.ID, i, b.Class, subject.En, subject.Pa, b.Stream, b.URL); err != nil {
			return fmt.Errorf("insert textbook %s: %w", b.ID, err)
		}
	}

	for i, c := range fx.Careers {
		roadmap, resources, tasks := careerDetails(c)
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO career_paths
			 (id, position, name_en, name_pa, description_en, description_pa, parent_info_en, parent_info_pa,
			  roadmap, resources, tasks)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, i, c.Name.En, c.Name.Pa, c.Description.En, c.Description.Pa, c.ParentInfo.En, c.ParentInfo.Pa,
			roadmap, resources, tasks); err != nil {
			return fmt.Errorf("insert career %s: %w", c.ID, err)
		}
	}

	for i, st := range fx.Stories {
		name, story := st.Name.Filled(), st.Story.Filled()
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO motivational_stories (id, position, name_en, name_pa, image_url, story_en, story_pa)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			st.ID, i, name.En, name.Pa, st.ImageURL, story.En, story.Pa); err != nil {
			return fmt.Errorf("insert story %s: %w", st.ID, err)
		}
	}

	if fx.Version != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO portal_metadata (key, value) VALUES ('fixtures_version', ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fx.Version); err != nil {
			return fmt.Errorf("record fixtures version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("imported fixtures",
		"users", len(fx.Users),
		"quizzes", len(fx.Quizzes),
		"subjects", len(fx.Subjects),
		"doubts", len(fx.Doubts),
	)
	return nil
}

// careerDetails encodes a career's roadmap, resources and tasks as the JSON
// columns stored alongside it.
func careerDetails(c FixtureCareer) (roadmap, resources, tasks string) {
	steps := make([]model.RoadmapStep, len(c.Roadmap))
	for i, st := range c.Roadmap {
		steps[i] = model.RoadmapStep{Title: st.Title.Filled(), Description: st.Description.Filled()}
	}
	links := make([]model.Resource, len(c.Resources))
	for i, r := range c.Resources {
		links[i] = model.Resource{ID: r.ID, Title: r.Title, Type: r.Type, URL: r.URL, Description: r.Description}
	}
	todo := make([]model.CareerTask, len(c.Tasks))
	for i, t := range c.Tasks {
		todo[i] = model.CareerTask{Title: t.Title.Filled(), Description: t.Description.Filled(), Skill: t.Skill}
	}
	a, _ := json.Marshal(steps)
	b, _ := json.Marshal(links)
	d, _ := json.Marshal(todo)
	return string(a), string(b), string(d)
}

func importQuiz(ctx context.Context, tx *sql.Tx, q FixtureQuiz) error {
	title := q.Title.Filled()
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO quizzes (id, title_en, title_pa) VALUES (?, ?, ?)`,
		q.ID, title.En, title.Pa); err != nil {
		return fmt.Errorf("insert quiz %s: %w", q.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id = ?`, q.ID); err != nil {
		return fmt.Errorf("clear questions of %s: %w", q.ID, err)
	}
	for i, qq := range q.Questions {
		question, err := fixtureQuestion(qq)
		if err != nil {
			return fmt.Errorf("question %s: %w", qq.ID, err)
		}
		if err := insertQuestion(ctx, tx, q.ID, i, question); err != nil {
			return err
		}
	}
	return nil
}

// insertQuestion writes a checked question at position pos of quizID.
func insertQuestion(ctx context.Context, tx *sql.Tx, quizID string, pos int, q model.Question) error {
	answer, _ := json.Marshal(q.CorrectAnswer)
	opts, _ := json.Marshal(nonNil(q.Options))
	pa, _ := json.Marshal(nonNil(q.PunjabiOptions))
	text := q.Text.Filled()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO questions (id, quiz_id, position, text_en, text_pa, type, options, punjabi_options, correct_answer)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, quizID, pos, text.En, text.Pa, q.Type, string(opts), string(pa), string(answer)); err != nil {
		return fmt.Errorf("insert question %s: %w", q.ID, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
