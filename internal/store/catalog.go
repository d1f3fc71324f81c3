package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vidyavistaar/portal/internal/model"
)

// GetQuiz returns a quiz with its questions in order.
func (s *Store) GetQuiz(ctx context.Context, id string) (model.Quiz, error) {
	if err := s.pause(ctx); err != nil {
		return model.Quiz{}, err
	}
	return s.loadQuiz(ctx, id)
}

func (s *Store) loadQuiz(ctx context.Context, id string) (model.Quiz, error) {
	q := model.Quiz{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT title_en, title_pa FROM quizzes WHERE id = ?`, id,
	).Scan(&q.Title.En, &q.Title.Pa)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Quiz{}, model.NewNotFoundError("quiz", id)
	}
	if err != nil {
		return model.Quiz{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text_en, text_pa, type, options, punjabi_options, correct_answer
		 FROM questions WHERE quiz_id = ? ORDER BY position`, id)
	if err != nil {
		return model.Quiz{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			qq                   model.Question
			opts, paOpts, answer string
		)
		if err := rows.Scan(&qq.ID, &qq.Text.En, &qq.Text.Pa, &qq.Type, &opts, &paOpts, &answer); err != nil {
			return model.Quiz{}, err
		}
		if err := json.Unmarshal([]byte(opts), &qq.Options); err != nil {
			return model.Quiz{}, fmt.Errorf("decode options of %s: %w", qq.ID, err)
		}
		if err := json.Unmarshal([]byte(paOpts), &qq.PunjabiOptions); err != nil {
			return model.Quiz{}, fmt.Errorf("decode punjabi options of %s: %w", qq.ID, err)
		}
		if err := json.Unmarshal([]byte(answer), &qq.CorrectAnswer); err != nil {
			return model.Quiz{}, fmt.Errorf("decode answer of %s: %w", qq.ID, err)
		}
		q.Questions = append(q.Questions, qq)
	}
	return q, rows.Err()
}

// ListQuizIDs returns every quiz id.
func (s *Store) ListQuizIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListSubjects returns the subjects of a stream with their chapters, in catalog order.
// An empty stream returns every subject.
func (s *Store) ListSubjects(ctx context.Context, stream model.Stream) ([]model.Subject, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	query := `SELECT id, name_en, name_pa, stream FROM subjects`
	var args []any
	if stream != "" {
		query += ` WHERE stream = ?`
		args = append(args, stream)
	}
	query += ` ORDER BY position`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var subjects []model.Subject
	index := make(map[string]int)
	for rows.Next() {
		var sub model.Subject
		if err := rows.Scan(&sub.ID, &sub.Name.En, &sub.Name.Pa, &sub.Stream); err != nil {
			rows.Close()
			return nil, err
		}
		index[sub.ID] = len(subjects)
		subjects = append(subjects, sub)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	chapters, err := s.listChapters(ctx)
	if err != nil {
		return nil, err
	}
	for _, ch := range chapters {
		if i, ok := index[ch.SubjectID]; ok {
			subjects[i].Chapters = append(subjects[i].Chapters, ch)
		}
	}
	return subjects, nil
}

func (s *Store) listChapters(ctx context.Context) ([]model.Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.subject_id, c.title_en, c.title_pa, c.video_url, c.pdf_url, c.quiz_id, c.completed
		 FROM chapters c JOIN subjects s ON s.id = c.subject_id
		 ORDER BY s.position, c.position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chapters []model.Chapter
	for rows.Next() {
		var ch model.Chapter
		if err := rows.Scan(&ch.ID, &ch.SubjectID, &ch.Title.En, &ch.Title.Pa,
			&ch.VideoURL, &ch.PDFURL, &ch.QuizID, &ch.Completed); err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	return chapters, rows.Err()
}

// GetChapter returns a chapter and the subject it belongs to.
func (s *Store) GetChapter(ctx context.Context, id string) (model.Chapter, model.Subject, error) {
	if err := s.pause(ctx); err != nil {
		return model.Chapter{}, model.Subject{}, err
	}
	var (
		ch  model.Chapter
		sub model.Subject
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT c.id, c.subject_id, c.title_en, c.title_pa, c.video_url, c.pdf_url, c.quiz_id, c.completed,
		        s.id, s.name_en, s.name_pa, s.stream
		 FROM chapters c JOIN subjects s ON s.id = c.subject_id WHERE c.id = ?`, id,
	).Scan(&ch.ID, &ch.SubjectID, &ch.Title.En, &ch.Title.Pa, &ch.VideoURL, &ch.PDFURL, &ch.QuizID, &ch.Completed,
		&sub.ID, &sub.Name.En, &sub.Name.Pa, &sub.Stream)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Chapter{}, model.Subject{}, model.NewNotFoundError("chapter", id)
	}
	return ch, sub, err
}

// QuizIndex maps each quiz id to the first (subject, chapter) that references it,
// in catalog order: subject position, then chapter position.
func (s *Store) QuizIndex(ctx context.Context) (map[string]model.QuizRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.quiz_id, s.name_en, s.name_pa, c.title_en, c.title_pa
		 FROM chapters c JOIN subjects s ON s.id = c.subject_id
		 ORDER BY s.position, c.position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	index := make(map[string]model.QuizRef)
	for rows.Next() {
		var (
			quizID string
			ref    model.QuizRef
		)
		if err := rows.Scan(&quizID, &ref.Subject.En, &ref.Subject.Pa, &ref.Chapter.En, &ref.Chapter.Pa); err != nil {
			return nil, err
		}
		if _, seen := index[quizID]; !seen {
			index[quizID] = ref
		}
	}
	return index, rows.Err()
}

// ListTextbooks returns textbooks for a stream and class. Zero values match everything.
func (s *Store) ListTextbooks(ctx context.Context, stream model.Stream, class int) ([]model.Textbook, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	query := `SELECT id, class, subject_en, subject_pa, stream, url FROM textbooks WHERE 1=1`
	var args []any
	if stream != "" {
		query += ` AND stream = ?`
		args = append(args, stream)
	}
	if class != 0 {
		query += ` AND class = ?`
		args = append(args, class)
	}
	query += ` ORDER BY position`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var books []model.Textbook
	for rows.Next() {
		var b model.Textbook
		if err := rows.Scan(&b.ID, &b.Class, &b.Subject.En, &b.Subject.Pa, &b.Stream, &b.URL); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// ListResources returns all learning resources.
func (s *Store) ListResources(ctx context.Context) ([]model.Resource, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, type, url, description FROM resources ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Resource
	for rows.Next() {
		var r model.Resource
		if err := rows.Scan(&r.ID, &r.Title, &r.Type, &r.URL, &r.Description); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListFAQs returns the FAQ items shown to role. An empty role returns all items.
func (s *Store) ListFAQs(ctx context.Context, role model.UserRole) ([]model.FaqItem, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, roles FROM faqs ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.FaqItem
	for rows.Next() {
		var (
			f     model.FaqItem
			roles string
		)
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer, &roles); err != nil {
			return nil, err
		}
		for _, r := range strings.Split(roles, ",") {
			if r != "" {
				f.For = append(f.For, model.UserRole(r))
			}
		}
		if role == "" || containsRole(f.For, role) {
			out = append(out, f)
		}
	}
	return out, rows.Err()
}

func containsRole(roles []model.UserRole, role model.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// ListCareerPaths returns the career catalog in display order.
func (s *Store) ListCareerPaths(ctx context.Context) ([]model.CareerPath, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name_en, name_pa, description_en, description_pa, parent_info_en, parent_info_pa,
		        roadmap, resources, tasks
		 FROM career_paths ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CareerPath
	for rows.Next() {
		var (
			c                         model.CareerPath
			roadmap, resources, tasks string
		)
		if err := rows.Scan(&c.ID, &c.Name.En, &c.Name.Pa, &c.Description.En, &c.Description.Pa,
			&c.ParentInfo.En, &c.ParentInfo.Pa, &roadmap, &resources, &tasks); err != nil {
			return nil, err
		}
		c.Roadmap, c.Resources, c.Tasks = []model.RoadmapStep{}, []model.Resource{}, []model.CareerTask{}
		if err := json.Unmarshal([]byte(roadmap), &c.Roadmap); err != nil {
			return nil, fmt.Errorf("decode roadmap of %s: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(resources), &c.Resources); err != nil {
			return nil, fmt.Errorf("decode resources of %s: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(tasks), &c.Tasks); err != nil {
			return nil, fmt.Errorf("decode tasks of %s: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListStories returns the motivational stories in display order.
func (s *Store) ListStories(ctx context.Context) ([]model.MotivationalStory, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name_en, name_pa, image_url, story_en, story_pa FROM motivational_stories ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MotivationalStory
	for rows.Next() {
		var st model.MotivationalStory
		if err := rows.Scan(&st.ID, &st.Name.En, &st.Name.Pa, &st.ImageURL, &st.Story.En, &st.Story.Pa); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListAttendance returns attendance marks for a date (YYYY-MM-DD) ordered by student.
func (s *Store) ListAttendance(ctx context.Context, date string) ([]model.Attendance, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT student_id, date, status FROM attendance WHERE date = ? ORDER BY student_id`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Attendance
	for rows.Next() {
		var a model.Attendance
		if err := rows.Scan(&a.StudentID, &a.Date, &a.Status); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkAttendance records a student's attendance status for a date.
func (s *Store) MarkAttendance(ctx context.Context, a model.Attendance) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance (student_id, date, status) VALUES (?, ?, ?)
		 ON CONFLICT(student_id, date) DO UPDATE SET status = excluded.status`,
		a.StudentID, a.Date, a.Status)
	return err
}
