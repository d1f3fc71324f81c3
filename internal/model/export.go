package model

import "time"

// MonthlyReport is the top-level structure written by the report command.
type MonthlyReport struct {
	GeneratedAt time.Time `json:"generated_at"`
	Language    Language  `json:"language"`
	Model       string    `json:"model,omitempty"`
	Summary     string    `json:"summary"`
	Digest      Digest    `json:"digest"`
	Analysis    string    `json:"analysis,omitempty"`
}

// Digest is the locally computed part of the monthly analysis.
type Digest struct {
	Struggling    []StrugglingStudent `json:"struggling"`
	TopPerformers []TopPerformer      `json:"top_performers"`
}

// StrugglingStudent lists the quizzes where a student scored below the threshold.
type StrugglingStudent struct {
	StudentID string       `json:"student_id"`
	Name      string       `json:"name"`
	LowScores []ScoredQuiz `json:"low_scores"`
	WeakAreas []string     `json:"weak_areas"`
}

// TopPerformer is a student acknowledged for a high average.
type TopPerformer struct {
	StudentID    string `json:"student_id"`
	Name         string `json:"name"`
	AverageScore int    `json:"average_score"`
}

// ScoredQuiz is one (subject, chapter, score%) tuple of the performance summary.
type ScoredQuiz struct {
	QuizID  string `json:"quiz_id"`
	Subject string `json:"subject"`
	Chapter string `json:"chapter"`
	Score   int    `json:"score"`
}

// PerformanceSnapshot is the store state the monthly analysis aggregates over.
type PerformanceSnapshot struct {
	Students    []User
	Performance map[string]StudentPerformance
	QuizIndex   map[string]QuizRef
}
