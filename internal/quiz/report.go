package quiz

import (
	"math"
	"sort"

	"github.com/vidyavistaar/portal/internal/model"
)

// WeakSubjectThreshold is the rounded subject average below which a subject is weak.
const WeakSubjectThreshold = 70

// Report averages a student's recorded quiz scores per subject. Quizzes
// missing from index are ignored. A nil perf yields an empty report.
func Report(studentID string, perf *model.StudentPerformance, index map[string]model.QuizRef) model.StudentReport {
	rep := model.StudentReport{
		StudentID:     studentID,
		SubjectScores: []model.SubjectScore{},
		WeakSubjects:  []model.Text{},
	}
	if perf == nil {
		return rep
	}

	type acc struct {
		subject model.Text
		total   int
		count   int
	}
	bySubject := make(map[string]*acc)
	total, count := 0, 0
	for quizID, score := range perf.QuizScores {
		ref, ok := index[quizID]
		if !ok {
			continue
		}
		a := bySubject[ref.Subject.En]
		if a == nil {
			a = &acc{subject: ref.Subject}
			bySubject[ref.Subject.En] = a
		}
		a.total += score
		a.count++
		total += score
		count++
	}

	names := make([]string, 0, len(bySubject))
	for name := range bySubject {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a := bySubject[name]
		avg := roundDiv(a.total, a.count)
		rep.SubjectScores = append(rep.SubjectScores, model.SubjectScore{Subject: a.subject, Score: avg})
		if avg < WeakSubjectThreshold {
			rep.WeakSubjects = append(rep.WeakSubjects, a.subject)
		}
	}
	if count > 0 {
		rep.AverageScore = roundDiv(total, count)
	}
	return rep
}

func roundDiv(total, count int) int {
	return int(math.Round(float64(total) / float64(count)))
}
