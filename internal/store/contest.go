package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sort"

	"github.com/vidyavistaar/portal/internal/model"
)

// ListContests returns all contests with their leaderboards.
func (s *Store) ListContests(ctx context.Context) ([]model.Contest, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject, title, quiz_id, duration_minutes FROM contests ORDER BY position`)
	if err != nil {
		return nil, err
	}
	var contests []model.Contest
	for rows.Next() {
		var c model.Contest
		if err := rows.Scan(&c.ID, &c.Subject, &c.Title, &c.QuizID, &c.DurationMinutes); err != nil {
			rows.Close()
			return nil, err
		}
		contests = append(contests, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range contests {
		board, err := s.leaderboard(ctx, contests[i].ID)
		if err != nil {
			return nil, err
		}
		contests[i].Leaderboard = board
	}
	return contests, nil
}

// GetContest returns a contest with its leaderboard.
func (s *Store) GetContest(ctx context.Context, id string) (model.Contest, error) {
	if err := s.pause(ctx); err != nil {
		return model.Contest{}, err
	}
	var c model.Contest
	err := s.db.QueryRowContext(ctx,
		`SELECT id, subject, title, quiz_id, duration_minutes FROM contests WHERE id = ?`, id,
	).Scan(&c.ID, &c.Subject, &c.Title, &c.QuizID, &c.DurationMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contest{}, model.NewNotFoundError("contest", id)
	}
	if err != nil {
		return model.Contest{}, err
	}
	c.Leaderboard, err = s.leaderboard(ctx, id)
	return c, err
}

// leaderboard orders entries by score descending, then student name, then student id.
func (s *Store) leaderboard(ctx context.Context, contestID string) ([]model.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cs.student_id, COALESCE(u.name, ''), cs.score
		 FROM contest_scores cs LEFT JOIN users u ON u.id = cs.student_id
		 WHERE cs.contest_id = ?`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var board []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.StudentID, &e.StudentName, &e.Score); err != nil {
			return nil, err
		}
		board = append(board, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(board, func(i, j int) bool {
		if board[i].Score != board[j].Score {
			return board[i].Score > board[j].Score
		}
		if board[i].StudentName != board[j].StudentName {
			return board[i].StudentName < board[j].StudentName
		}
		return board[i].StudentID < board[j].StudentID
	})
	return board, nil
}

// RecordContestScore stores a student's contest score, keeping the best one.
func (s *Store) RecordContestScore(ctx context.Context, contestID, studentID string, score int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contest_scores (contest_id, student_id, score) VALUES (?, ?, ?)
		 ON CONFLICT(contest_id, student_id) DO UPDATE SET score = MAX(score, excluded.score)`,
		contestID, studentID, score)
	if err != nil {
		return err
	}
	slog.Info("recorded contest score", "contest_id", contestID, "student_id", studentID, "score", score)
	return nil
}
