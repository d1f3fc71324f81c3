package store

import (
	"context"
	"fmt"

	"github.com/vidyavistaar/portal/internal/model"
)

// ExportPerformance gathers students, their performance records and the
// quiz→(subject, chapter) index used by the monthly analysis.
func (s *Store) ExportPerformance(ctx context.Context) (model.PerformanceSnapshot, error) {
	var snap model.PerformanceSnapshot

	students, err := s.ListStudents(ctx)
	if err != nil {
		return snap, fmt.Errorf("list students: %w", err)
	}

	perf, err := s.loadPerformance(ctx, "")
	if err != nil {
		return snap, fmt.Errorf("load performance: %w", err)
	}

	index, err := s.QuizIndex(ctx)
	if err != nil {
		return snap, fmt.Errorf("build quiz index: %w", err)
	}

	snap.Students = students
	snap.Performance = make(map[string]model.StudentPerformance, len(perf))
	for id, p := range perf {
		snap.Performance[id] = *p
	}
	snap.QuizIndex = index
	return snap, nil
}
