package assistant

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/vidyavistaar/portal/internal/llm/prompts"
	"github.com/vidyavistaar/portal/internal/model"
)

// MaxTopPerformers caps the acknowledged top performers in a digest.
const MaxTopPerformers = 2

// Summarize renders the monthly performance data fed to the analysis prompt.
// Every student appears, sorted by id, with quizzes sorted by id, so the same
// snapshot always produces the same text. Subject and chapter names follow lang.
func Summarize(snap model.PerformanceSnapshot, lang model.Language) string {
	var sb strings.Builder
	sb.WriteString("Here is the monthly performance data for all students:\n\n")
	for _, st := range sortedStudents(snap.Students) {
		perf := snap.Performance[st.ID]
		sb.WriteString("Student: " + st.Name + "\n")
		if len(perf.QuizScores) > 0 {
			sb.WriteString("Quiz Scores:\n")
			for _, sq := range scoredQuizzes(perf, snap.QuizIndex, lang) {
				sb.WriteString("- Subject: " + sq.Subject + ", Chapter: " + sq.Chapter +
					", Score: " + strconv.Itoa(sq.Score) + "%\n")
			}
		} else {
			sb.WriteString("No quizzes attempted this month.\n")
		}
		weak := "None"
		if len(perf.WeakAreas) > 0 {
			weak = strings.Join(perf.WeakAreas, ", ")
		}
		sb.WriteString("Identified Weak Areas: " + weak + "\n\n")
	}
	return sb.String()
}

// BuildDigest computes the struggling students (any quiz below the threshold)
// and up to MaxTopPerformers other students with the highest average.
func BuildDigest(snap model.PerformanceSnapshot, lang model.Language) model.Digest {
	d := model.Digest{
		Struggling:    []model.StrugglingStudent{},
		TopPerformers: []model.TopPerformer{},
	}
	var candidates []model.TopPerformer
	for _, st := range sortedStudents(snap.Students) {
		perf := snap.Performance[st.ID]
		scored := scoredQuizzes(perf, snap.QuizIndex, lang)
		if len(scored) == 0 {
			continue
		}
		var low []model.ScoredQuiz
		total := 0
		for _, sq := range scored {
			total += sq.Score
			if sq.Score < prompts.StruggleThreshold {
				low = append(low, sq)
			}
		}
		if len(low) > 0 {
			d.Struggling = append(d.Struggling, model.StrugglingStudent{
				StudentID: st.ID,
				Name:      st.Name,
				LowScores: low,
				WeakAreas: append([]string{}, perf.WeakAreas...),
			})
			continue
		}
		candidates = append(candidates, model.TopPerformer{
			StudentID:    st.ID,
			Name:         st.Name,
			AverageScore: int(math.Round(float64(total) / float64(len(scored)))),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].AverageScore != candidates[j].AverageScore {
			return candidates[i].AverageScore > candidates[j].AverageScore
		}
		return candidates[i].Name < candidates[j].Name
	})
	if len(candidates) > MaxTopPerformers {
		candidates = candidates[:MaxTopPerformers]
	}
	d.TopPerformers = append(d.TopPerformers, candidates...)
	return d
}

// scoredQuizzes joins a student's scores against the quiz index. Quizzes the
// catalog does not know are left out.
func scoredQuizzes(perf model.StudentPerformance, index map[string]model.QuizRef, lang model.Language) []model.ScoredQuiz {
	ids := make([]string, 0, len(perf.QuizScores))
	for id := range perf.QuizScores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]model.ScoredQuiz, 0, len(ids))
	for _, id := range ids {
		ref, ok := index[id]
		if !ok {
			continue
		}
		out = append(out, model.ScoredQuiz{
			QuizID:  id,
			Subject: ref.Subject.In(lang),
			Chapter: ref.Chapter.In(lang),
			Score:   perf.QuizScores[id],
		})
	}
	return out
}

func sortedStudents(in []model.User) []model.User {
	out := append([]model.User(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
