// Package quiz drives question-by-question answer collection and scoring.
//
// Attempt operations never mutate their receiver: each returns a new Attempt,
// so callers can keep earlier values without observing later changes.
package quiz

import (
	"math"
	"time"

	"github.com/vidyavistaar/portal/internal/model"
)

// Attempt is one learner's pass through a quiz.
type Attempt struct {
	ID           string     `json:"id"`
	StudentID    string     `json:"student_id"`
	ContestID    string     `json:"contest_id,omitempty"`
	Quiz         model.Quiz `json:"quiz"`
	Answers      []*int     `json:"answers"`
	CurrentIndex int        `json:"current_index"`
	Finished     bool       `json:"finished"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   time.Time  `json:"finished_at,omitzero"`
	Deadline     time.Time  `json:"deadline,omitzero"`
}

// Start returns a fresh attempt at the first question with every answer unset.
func Start(q model.Quiz) (Attempt, error) {
	if len(q.Questions) == 0 {
		return Attempt{}, model.NewValidationError("questions", "quiz "+q.ID+" has no questions")
	}
	return Attempt{
		Quiz:    q,
		Answers: make([]*int, len(q.Questions)),
	}, nil
}

func (a Attempt) clone() Attempt {
	out := a
	out.Answers = make([]*int, len(a.Answers))
	for i, v := range a.Answers {
		if v != nil {
			n := *v
			out.Answers[i] = &n
		}
	}
	return out
}

// Current returns the question being answered.
func (a Attempt) Current() model.Question {
	return a.Quiz.Questions[a.CurrentIndex]
}

// Select records option as the answer to the current question, replacing any earlier choice.
func (a Attempt) Select(option int) (Attempt, error) {
	if a.Finished {
		return a, model.ErrAttemptFinished
	}
	q := a.Current()
	if len(q.Options) == 0 {
		return a, model.NewValidationError("option", "question "+q.ID+" has no options to choose from")
	}
	if option < 0 || option >= len(q.Options) {
		return a, model.NewValidationError("option", "option index out of range")
	}
	out := a.clone()
	out.Answers[a.CurrentIndex] = &option
	return out, nil
}

// Advance moves to the next question, or finishes the attempt on the last one.
// A question with options must be answered first; free-text questions without
// options are passed over unanswered and score nothing.
func (a Attempt) Advance() (Attempt, error) {
	if a.Finished {
		return a, model.ErrAttemptFinished
	}
	if len(a.Current().Options) > 0 && a.Answers[a.CurrentIndex] == nil {
		return a, model.NewValidationError("answer", "current question is not answered")
	}
	out := a.clone()
	if a.CurrentIndex < len(a.Quiz.Questions)-1 {
		out.CurrentIndex++
	} else {
		out.Finished = true
	}
	return out, nil
}

// Finish freezes the attempt where it is, unanswered questions included.
func (a Attempt) Finish() Attempt {
	out := a.clone()
	out.Finished = true
	return out
}

// Score counts multiple-choice questions answered with the correct option.
// Free-text questions never score.
func (a Attempt) Score() int {
	score := 0
	for i, q := range a.Quiz.Questions {
		ans := a.Answers[i]
		if q.Type != model.QuestionMCQ || ans == nil || !q.CorrectAnswer.IsIndex {
			continue
		}
		if *ans == q.CorrectAnswer.Index {
			score++
		}
	}
	return score
}

// Total is the number of questions in the quiz.
func (a Attempt) Total() int {
	return len(a.Quiz.Questions)
}

// Percent is Score as a rounded percentage of Total.
func (a Attempt) Percent() int {
	if a.Total() == 0 {
		return 0
	}
	return int(math.Round(float64(a.Score()) * 100 / float64(a.Total())))
}

// Retry returns a brand-new attempt for the same quiz and owner.
func (a Attempt) Retry() Attempt {
	return Attempt{
		StudentID: a.StudentID,
		ContestID: a.ContestID,
		Quiz:      a.Quiz,
		Answers:   make([]*int, len(a.Quiz.Questions)),
	}
}

// Expired reports whether the attempt has a deadline at or before now.
func (a Attempt) Expired(now time.Time) bool {
	return !a.Deadline.IsZero() && !now.Before(a.Deadline)
}
