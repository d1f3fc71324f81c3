package store

import (
	"context"
	"log/slog"

	"github.com/vidyavistaar/portal/internal/model"
)

// GetStudentPerformance returns a student's performance record, or nil if the
// student has no scores, video views or weak areas.
func (s *Store) GetStudentPerformance(ctx context.Context, studentID string) (*model.StudentPerformance, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	all, err := s.loadPerformance(ctx, studentID)
	if err != nil {
		return nil, err
	}
	p, ok := all[studentID]
	if !ok {
		return nil, nil
	}
	return p, nil
}

// ListPerformance returns every performance record ordered by student id.
func (s *Store) ListPerformance(ctx context.Context) ([]model.StudentPerformance, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	all, err := s.loadPerformance(ctx, "")
	if err != nil {
		return nil, err
	}
	ids, err := s.performanceStudentIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.StudentPerformance, 0, len(ids))
	for _, id := range ids {
		if p, ok := all[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *Store) performanceStudentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT student_id FROM quiz_scores
		 UNION SELECT student_id FROM video_views
		 UNION SELECT student_id FROM weak_areas
		 ORDER BY student_id`)
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

// loadPerformance reads the three performance tables. An empty studentID loads everyone.
func (s *Store) loadPerformance(ctx context.Context, studentID string) (map[string]*model.StudentPerformance, error) {
	out := make(map[string]*model.StudentPerformance)
	get := func(id string) *model.StudentPerformance {
		p, ok := out[id]
		if !ok {
			p = &model.StudentPerformance{
				StudentID:  id,
				QuizScores: map[string]int{},
				VideoViews: map[string]bool{},
				WeakAreas:  []string{},
			}
			out[id] = p
		}
		return p
	}

	filter, args := "", []any(nil)
	if studentID != "" {
		filter, args = ` WHERE student_id = ?`, []any{studentID}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT student_id, quiz_id, score FROM quiz_scores`+filter, args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			id, quizID string
			score      int
		)
		if err := rows.Scan(&id, &quizID, &score); err != nil {
			rows.Close()
			return nil, err
		}
		get(id).QuizScores[quizID] = score
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT student_id, video_key FROM video_views`+filter, args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id, key string
		if err := rows.Scan(&id, &key); err != nil {
			rows.Close()
			return nil, err
		}
		get(id).VideoViews[key] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT student_id, area FROM weak_areas`+filter+` ORDER BY student_id, position`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, area string
		if err := rows.Scan(&id, &area); err != nil {
			return nil, err
		}
		p := get(id)
		p.WeakAreas = append(p.WeakAreas, area)
	}
	return out, rows.Err()
}

// RecordQuizScore stores a student's percentage score for a quiz, replacing any earlier one.
func (s *Store) RecordQuizScore(ctx context.Context, studentID, quizID string, percent int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_scores (student_id, quiz_id, score, recorded_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(student_id, quiz_id) DO UPDATE SET score = excluded.score, recorded_at = excluded.recorded_at`,
		studentID, quizID, percent, s.now())
	if err != nil {
		return err
	}
	slog.Info("recorded quiz score", "student_id", studentID, "quiz_id", quizID, "score", percent)
	return nil
}

// RecordVideoView flags a chapter video as watched by a student.
func (s *Store) RecordVideoView(ctx context.Context, studentID, videoKey string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO video_views (student_id, video_key) VALUES (?, ?)`, studentID, videoKey)
	return err
}

// AddWeakArea tags a student with a weak area. Duplicate tags are ignored.
func (s *Store) AddWeakArea(ctx context.Context, studentID, area string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO weak_areas (student_id, position, area)
		 VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM weak_areas WHERE student_id = ?), ?)`,
		studentID, studentID, area)
	return err
}
