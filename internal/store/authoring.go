package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vidyavistaar/portal/internal/model"
)

// CreateSubject appends a subject to the catalog. The id is generated when
// empty. A subject sharing the id, or the English name within the same
// stream, is a conflict.
func (s *Store) CreateSubject(ctx context.Context, sub model.Subject) (model.Subject, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.Name = sub.Name.Filled()
	sub.Chapters = []model.Chapter{}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Subject{}, err
	}
	defer tx.Rollback()

	var clash string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM subjects WHERE id = ? OR (stream = ? AND lower(name_en) = lower(?)) LIMIT 1`,
		sub.ID, sub.Stream, sub.Name.En,
	).Scan(&clash)
	switch {
	case err == nil:
		return model.Subject{}, model.NewAlreadyExistsError("subject", clash)
	case !errors.Is(err, sql.ErrNoRows):
		return model.Subject{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO subjects (id, position, name_en, name_pa, stream)
		 VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM subjects), ?, ?, ?)`,
		sub.ID, sub.Name.En, sub.Name.Pa, sub.Stream); err != nil {
		return model.Subject{}, fmt.Errorf("insert subject %s: %w", sub.ID, err)
	}
	return sub, tx.Commit()
}

// CreateChapter appends a chapter to its subject. The subject and the quiz
// the chapter points at must exist. A chapter sharing the id, or the English
// title within the same subject, is a conflict.
func (s *Store) CreateChapter(ctx context.Context, ch model.Chapter) (model.Chapter, error) {
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	ch.Title = ch.Title.Filled()
	ch.Completed = false

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Chapter{}, err
	}
	defer tx.Rollback()

	if err := exists(ctx, tx, `SELECT 1 FROM subjects WHERE id = ?`, ch.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Chapter{}, model.NewNotFoundError("subject", ch.SubjectID)
		}
		return model.Chapter{}, err
	}
	if err := exists(ctx, tx, `SELECT 1 FROM quizzes WHERE id = ?`, ch.QuizID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Chapter{}, model.NewNotFoundError("quiz", ch.QuizID)
		}
		return model.Chapter{}, err
	}

	var clash string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM chapters WHERE id = ? OR (subject_id = ? AND lower(title_en) = lower(?)) LIMIT 1`,
		ch.ID, ch.SubjectID, ch.Title.En,
	).Scan(&clash)
	switch {
	case err == nil:
		return model.Chapter{}, model.NewAlreadyExistsError("chapter", clash)
	case !errors.Is(err, sql.ErrNoRows):
		return model.Chapter{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chapters (id, subject_id, position, title_en, title_pa, video_url, pdf_url, quiz_id, completed)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM chapters WHERE subject_id = ?), ?, ?, ?, ?, ?, 0)`,
		ch.ID, ch.SubjectID, ch.SubjectID, ch.Title.En, ch.Title.Pa, ch.VideoURL, ch.PDFURL, ch.QuizID); err != nil {
		return model.Chapter{}, fmt.Errorf("insert chapter %s: %w", ch.ID, err)
	}
	return ch, tx.Commit()
}

// CreateQuiz stores a new quiz. Questions are checked with the same rules as
// fixture imports; question ids default to <quiz>-<n>. An existing quiz id or
// question id is a conflict.
func (s *Store) CreateQuiz(ctx context.Context, q model.Quiz) (model.Quiz, error) {
	if len(q.Questions) == 0 {
		return model.Quiz{}, model.NewValidationError("questions", "a quiz needs at least one question")
	}
	q.Title = q.Title.Filled()
	q.Questions = append([]model.Question(nil), q.Questions...)
	seen := make(map[string]bool, len(q.Questions))
	for i, qq := range q.Questions {
		if qq.ID == "" {
			qq.ID = fmt.Sprintf("%s-%d", q.ID, i+1)
		}
		if seen[qq.ID] {
			return model.Quiz{}, model.NewValidationError("questions", fmt.Sprintf("duplicate question id %q", qq.ID))
		}
		seen[qq.ID] = true
		if strings.TrimSpace(qq.Text.En+qq.Text.Pa) == "" {
			return model.Quiz{}, model.NewValidationError("questions", fmt.Sprintf("question %s has no text", qq.ID))
		}
		checked, err := checkQuestion(qq)
		if err != nil {
			return model.Quiz{}, model.NewValidationError("questions", fmt.Sprintf("question %s: %v", qq.ID, err))
		}
		checked.Text = checked.Text.Filled()
		q.Questions[i] = checked
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Quiz{}, err
	}
	defer tx.Rollback()

	switch err := exists(ctx, tx, `SELECT 1 FROM quizzes WHERE id = ?`, q.ID); {
	case err == nil:
		return model.Quiz{}, model.NewAlreadyExistsError("quiz", q.ID)
	case !errors.Is(err, sql.ErrNoRows):
		return model.Quiz{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO quizzes (id, title_en, title_pa) VALUES (?, ?, ?)`, q.ID, q.Title.En, q.Title.Pa); err != nil {
		return model.Quiz{}, fmt.Errorf("insert quiz %s: %w", q.ID, err)
	}
	for i, qq := range q.Questions {
		switch err := exists(ctx, tx, `SELECT 1 FROM questions WHERE id = ?`, qq.ID); {
		case err == nil:
			return model.Quiz{}, model.NewAlreadyExistsError("question", qq.ID)
		case !errors.Is(err, sql.ErrNoRows):
			return model.Quiz{}, err
		}
		if err := insertQuestion(ctx, tx, q.ID, i, qq); err != nil {
			return model.Quiz{}, err
		}
	}
	return q, tx.Commit()
}

// exists returns sql.ErrNoRows when query matches nothing.
func exists(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	var one int
	return tx.QueryRowContext(ctx, query, args...).Scan(&one)
}
