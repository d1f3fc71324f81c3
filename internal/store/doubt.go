package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vidyavistaar/portal/internal/model"
)

const doubtColumns = `id, student_id, subject_en, subject_pa, chapter_en, chapter_pa,
	question_en, question_pa, is_resolved, answer_en, answer_pa, created_at`

func scanDoubt(sc rowScanner) (model.Doubt, error) {
	var (
		d      model.Doubt
		answer model.Text
	)
	err := sc.Scan(&d.ID, &d.StudentID, &d.Subject.En, &d.Subject.Pa, &d.Chapter.En, &d.Chapter.Pa,
		&d.Question.En, &d.Question.Pa, &d.IsResolved, &answer.En, &answer.Pa, &d.Timestamp)
	if err != nil {
		return d, err
	}
	if d.IsResolved {
		d.Answer = &answer
	}
	return d, nil
}

// InsertDoubt stores a new doubt.
func (s *Store) InsertDoubt(ctx context.Context, d model.Doubt) error {
	var answer model.Text
	if d.Answer != nil {
		answer = *d.Answer
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO doubts (`+doubtColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.StudentID, d.Subject.En, d.Subject.Pa, d.Chapter.En, d.Chapter.Pa,
		d.Question.En, d.Question.Pa, d.IsResolved, answer.En, answer.Pa, d.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("insert doubt %s: %w", d.ID, err)
	}
	return nil
}

// GetDoubt returns a doubt by id.
func (s *Store) GetDoubt(ctx context.Context, id string) (model.Doubt, error) {
	d, err := scanDoubt(s.db.QueryRowContext(ctx,
		`SELECT `+doubtColumns+` FROM doubts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Doubt{}, model.NewNotFoundError("doubt", id)
	}
	return d, err
}

// ListDoubts returns doubts posted by studentID, or every doubt when studentID is empty.
// Rows come back newest first.
func (s *Store) ListDoubts(ctx context.Context, studentID string) ([]model.Doubt, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	query := `SELECT ` + doubtColumns + ` FROM doubts`
	var args []any
	if studentID != "" {
		query += ` WHERE student_id = ?`
		args = append(args, studentID)
	}
	query += ` ORDER BY created_at DESC, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Doubt
	for rows.Next() {
		d, err := scanDoubt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ResolveDoubt atomically marks an unresolved doubt as resolved with the given answer.
// It fails with *model.NotFoundError for unknown ids and *model.AlreadyResolvedError
// when the doubt was resolved before.
func (s *Store) ResolveDoubt(ctx context.Context, id string, answer model.Text) (model.Doubt, error) {
	d, err := scanDoubt(s.db.QueryRowContext(ctx,
		`UPDATE doubts SET is_resolved = 1, answer_en = ?, answer_pa = ?
		 WHERE id = ? AND is_resolved = 0
		 RETURNING `+doubtColumns,
		answer.En, answer.Pa, id))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Doubt{}, err
	}
	if _, err := s.GetDoubt(ctx, id); err != nil {
		return model.Doubt{}, err
	}
	return model.Doubt{}, &model.AlreadyResolvedError{ID: id}
}
