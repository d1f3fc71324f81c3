// Package doubt manages question threads between students and teachers.
// A doubt moves once from unresolved to resolved and stays there.
package doubt

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/vidyavistaar/portal/internal/model"
)

// Repository is the persistence the doubt manager needs.
type Repository interface {
	GetChapter(ctx context.Context, id string) (model.Chapter, model.Subject, error)
	InsertDoubt(ctx context.Context, d model.Doubt) error
	ListDoubts(ctx context.Context, studentID string) ([]model.Doubt, error)
	ResolveDoubt(ctx context.Context, id string, answer model.Text) (model.Doubt, error)
}

// Manager posts, resolves and lists doubts.
type Manager struct {
	repo Repository
	now  func() time.Time
}

// NewManager creates a Manager backed by repo.
func NewManager(repo Repository) *Manager {
	return &Manager{repo: repo, now: time.Now}
}

// SetClock overrides the clock used to timestamp new doubts.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Post creates an unresolved doubt about chapterID. The subject and chapter
// titles are copied from the catalog so the doubt reads the same after the
// catalog changes.
func (m *Manager) Post(ctx context.Context, studentID, chapterID, question string) (model.Doubt, error) {
	question = strings.TrimSpace(question)
	if studentID == "" {
		return model.Doubt{}, model.NewValidationError("student_id", "is required")
	}
	if question == "" {
		return model.Doubt{}, model.NewValidationError("question", "must not be empty")
	}
	ch, subj, err := m.repo.GetChapter(ctx, chapterID)
	if err != nil {
		return model.Doubt{}, err
	}
	d := model.Doubt{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Subject:   subj.Name,
		Chapter:   ch.Title,
		Question:  model.Text{En: question, Pa: question},
		Timestamp: m.now().UTC(),
	}
	if err := m.repo.InsertDoubt(ctx, d); err != nil {
		return model.Doubt{}, err
	}
	return d, nil
}

// Resolve answers an unresolved doubt. Resolving twice fails with
// *model.AlreadyResolvedError and leaves the first answer untouched.
func (m *Manager) Resolve(ctx context.Context, id, answer string) (model.Doubt, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return model.Doubt{}, model.NewValidationError("answer", "must not be empty")
	}
	return m.repo.ResolveDoubt(ctx, id, model.Text{En: answer, Pa: answer})
}

// ListForStudent returns the student's doubts, newest first.
func (m *Manager) ListForStudent(ctx context.Context, studentID string) ([]model.Doubt, error) {
	doubts, err := m.repo.ListDoubts(ctx, studentID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(doubts, func(i, j int) bool {
		return newer(doubts[i], doubts[j])
	})
	return doubts, nil
}

// ListAll returns every doubt for the teacher view: unresolved before
// resolved, newest first within each group.
func (m *Manager) ListAll(ctx context.Context) ([]model.Doubt, error) {
	doubts, err := m.repo.ListDoubts(ctx, "")
	if err != nil {
		return nil, err
	}
	SortForTeacher(doubts)
	return doubts, nil
}

// SortForTeacher orders doubts unresolved first, then by timestamp descending.
func SortForTeacher(doubts []model.Doubt) {
	sort.SliceStable(doubts, func(i, j int) bool {
		if doubts[i].IsResolved != doubts[j].IsResolved {
			return !doubts[i].IsResolved
		}
		return newer(doubts[i], doubts[j])
	})
}

func newer(a, b model.Doubt) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID < b.ID
}

// Filter keeps doubts whose subject, chapter or question contains query,
// ignoring case, in the given display language. An empty query keeps everything.
func Filter(doubts []model.Doubt, query string, lang model.Language) []model.Doubt {
	query = strings.TrimSpace(query)
	if query == "" {
		return doubts
	}
	fold := cases.Fold()
	needle := fold.String(query)
	out := make([]model.Doubt, 0, len(doubts))
	for _, d := range doubts {
		for _, field := range []model.Text{d.Subject, d.Chapter, d.Question} {
			if strings.Contains(fold.String(field.In(lang)), needle) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
