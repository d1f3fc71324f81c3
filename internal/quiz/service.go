package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vidyavistaar/portal/internal/cache"
	"github.com/vidyavistaar/portal/internal/model"
)

// Recorder persists final scores.
type Recorder interface {
	GetContest(ctx context.Context, id string) (model.Contest, error)
	RecordQuizScore(ctx context.Context, studentID, quizID string, percent int) error
	RecordContestScore(ctx context.Context, contestID, studentID string, score int) error
}

const (
	// FinishedRetention is how long a finished attempt stays viewable.
	FinishedRetention = 30 * time.Minute
	// AbandonedAfter drops unfinished attempts this long after they started.
	AbandonedAfter = 12 * time.Hour
)

// Service keeps in-progress attempts in memory and records each finished
// attempt's percentage in the performance store.
type Service struct {
	quizzes  cache.QuizCache
	recorder Recorder
	now      func() time.Time

	mu       sync.Mutex
	attempts map[string]Attempt
}

// NewService creates a Service.
func NewService(quizzes cache.QuizCache, recorder Recorder) *Service {
	return &Service{
		quizzes:  quizzes,
		recorder: recorder,
		now:      time.Now,
		attempts: make(map[string]Attempt),
	}
}

// SetClock overrides the clock used for start times and contest deadlines.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Start opens a practice attempt on quizID.
func (s *Service) Start(ctx context.Context, studentID, quizID string) (Attempt, error) {
	q, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	a, err := Start(q)
	if err != nil {
		return Attempt{}, err
	}
	a.StudentID = studentID
	return s.register(a, 0), nil
}

// StartContest opens a timed attempt on the contest's quiz. The deadline is
// the start time plus the contest duration. While the student still has an
// open attempt on the contest, that attempt is returned with its deadline
// unchanged.
func (s *Service) StartContest(ctx context.Context, studentID, contestID string) (Attempt, error) {
	c, err := s.recorder.GetContest(ctx, contestID)
	if err != nil {
		return Attempt{}, err
	}
	if open, ok := s.openContestAttempt(studentID, c.ID); ok {
		return s.Get(ctx, studentID, open)
	}
	q, err := s.quizzes.GetQuiz(ctx, c.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	a, err := Start(q)
	if err != nil {
		return Attempt{}, err
	}
	a.StudentID = studentID
	a.ContestID = c.ID
	return s.register(a, time.Duration(c.DurationMinutes)*time.Minute), nil
}

func (s *Service) openContestAttempt(studentID, contestID string) (string, bool) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.attempts {
		if a.StudentID == studentID && a.ContestID == contestID && !a.Finished && !a.Expired(now) {
			return id, true
		}
	}
	return "", false
}

func (s *Service) register(a Attempt, limit time.Duration) Attempt {
	a.ID = uuid.NewString()
	a.StartedAt = s.now()
	if limit > 0 {
		a.Deadline = a.StartedAt.Add(limit)
	}
	s.mu.Lock()
	s.attempts[a.ID] = a
	s.mu.Unlock()
	return a.clone()
}

// Get returns the student's attempt. A contest attempt past its deadline is
// finished and recorded first.
func (s *Service) Get(ctx context.Context, studentID, attemptID string) (Attempt, error) {
	a, err := s.update(ctx, studentID, attemptID, func(a Attempt) (Attempt, error) {
		return a, nil
	})
	if errors.Is(err, model.ErrDeadlineExceeded) {
		return a, nil
	}
	return a, err
}

// Answer selects option for the current question.
func (s *Service) Answer(ctx context.Context, studentID, attemptID string, option int) (Attempt, error) {
	return s.update(ctx, studentID, attemptID, func(a Attempt) (Attempt, error) {
		return a.Select(option)
	})
}

// Advance moves to the next question or finishes the attempt.
func (s *Service) Advance(ctx context.Context, studentID, attemptID string) (Attempt, error) {
	return s.update(ctx, studentID, attemptID, func(a Attempt) (Attempt, error) {
		return a.Advance()
	})
}

// Retry replaces a practice attempt with a fresh one for the same quiz.
// Contest attempts are final.
func (s *Service) Retry(ctx context.Context, studentID, attemptID string) (Attempt, error) {
	s.mu.Lock()
	old, ok := s.attempts[attemptID]
	if !ok || old.StudentID != studentID {
		s.mu.Unlock()
		return Attempt{}, model.NewNotFoundError("attempt", attemptID)
	}
	if old.ContestID != "" {
		s.mu.Unlock()
		return Attempt{}, model.ErrRetryNotAllowed
	}
	delete(s.attempts, attemptID)
	s.mu.Unlock()

	return s.register(old.Retry(), 0), nil
}

// Discard forgets the attempt once its result has been viewed.
func (s *Service) Discard(studentID, attemptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok || a.StudentID != studentID {
		return model.NewNotFoundError("attempt", attemptID)
	}
	delete(s.attempts, attemptID)
	return nil
}

// update applies op to the stored attempt and records the score when the
// attempt transitions to finished. Attempts owned by another student are
// reported as not found.
func (s *Service) update(ctx context.Context, studentID, attemptID string, op func(Attempt) (Attempt, error)) (Attempt, error) {
	s.mu.Lock()
	a, ok := s.attempts[attemptID]
	if !ok || a.StudentID != studentID {
		s.mu.Unlock()
		return Attempt{}, model.NewNotFoundError("attempt", attemptID)
	}

	var opErr error
	next := a
	if !a.Finished && a.Expired(s.now()) {
		next = a.Finish()
		opErr = model.ErrDeadlineExceeded
	} else {
		next, opErr = op(a)
	}
	justFinished := !a.Finished && next.Finished
	if justFinished {
		next.FinishedAt = s.now()
	}
	s.attempts[attemptID] = next
	s.mu.Unlock()

	if justFinished {
		if err := s.record(ctx, next); err != nil {
			return next.clone(), err
		}
	}
	return next.clone(), opErr
}

// Prune drops attempts finished more than FinishedRetention ago and those
// abandoned for AbandonedAfter. Contest attempts past their deadline are
// finished and recorded so the score counts even if the student never
// returns. It reports how many attempts were dropped.
func (s *Service) Prune(ctx context.Context) int {
	now := s.now()
	var expired []Attempt
	removed := 0
	s.mu.Lock()
	for id, a := range s.attempts {
		switch {
		case a.Finished:
			if now.Sub(a.FinishedAt) >= FinishedRetention {
				delete(s.attempts, id)
				removed++
			}
		case a.Expired(now):
			done := a.Finish()
			done.FinishedAt = now
			s.attempts[id] = done
			expired = append(expired, done)
		case now.Sub(a.StartedAt) >= AbandonedAfter:
			delete(s.attempts, id)
			removed++
		}
	}
	s.mu.Unlock()

	for _, a := range expired {
		if err := s.record(ctx, a); err != nil {
			slog.Warn("failed to record expired contest attempt", "attempt", a.ID, "error", err)
		}
	}
	return removed
}

// Len returns the number of attempts held in memory.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

func (s *Service) record(ctx context.Context, a Attempt) error {
	percent := a.Percent()
	if err := s.recorder.RecordQuizScore(ctx, a.StudentID, a.Quiz.ID, percent); err != nil {
		return fmt.Errorf("record quiz score: %w", err)
	}
	if a.ContestID != "" {
		if err := s.recorder.RecordContestScore(ctx, a.ContestID, a.StudentID, percent); err != nil {
			return fmt.Errorf("record contest score: %w", err)
		}
	}
	slog.Info("quiz attempt finished",
		"attempt", a.ID, "student", a.StudentID, "quiz", a.Quiz.ID,
		"contest", a.ContestID, "score", a.Score(), "total", a.Total())
	return nil
}
