package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// QuestionType distinguishes auto-scored multiple choice from free-text questions.
type QuestionType string

const (
	QuestionMCQ         QuestionType = "mcq"
	QuestionFillInBlank QuestionType = "fill-in-the-blank"
	QuestionShortAnswer QuestionType = "short-answer"
)

// AnswerKey is a question's correct answer: an option index for MCQs or a
// literal string for free-text questions.
type AnswerKey struct {
	Index   int
	Text    string
	IsIndex bool
}

// IndexKey returns an AnswerKey pointing at option i.
func IndexKey(i int) AnswerKey { return AnswerKey{Index: i, IsIndex: true} }

// TextKey returns a literal AnswerKey.
func TextKey(s string) AnswerKey { return AnswerKey{Text: s} }

// MarshalJSON encodes the key as a JSON number or string.
func (k AnswerKey) MarshalJSON() ([]byte, error) {
	if k.IsIndex {
		return json.Marshal(k.Index)
	}
	return json.Marshal(k.Text)
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (k *AnswerKey) UnmarshalJSON(data []byte) error {
	var idx int
	if err := json.Unmarshal(data, &idx); err == nil {
		*k = IndexKey(idx)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("answer key must be a number or a string: %s", data)
	}
	*k = TextKey(s)
	return nil
}

// Question is immutable once loaded from the content store.
type Question struct {
	ID             string       `json:"id"`
	Text           Text         `json:"text"`
	Type           QuestionType `json:"type"`
	Options        []string     `json:"options,omitempty"`
	PunjabiOptions []string     `json:"punjabi_options,omitempty"`
	CorrectAnswer  AnswerKey    `json:"correct_answer"`
}

// Quiz is an ordered sequence of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     Text       `json:"title"`
	Questions []Question `json:"questions"`
}

// Clone returns a deep copy of q.
func (q Quiz) Clone() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, qq := range q.Questions {
		qq.Options = append([]string(nil), qq.Options...)
		qq.PunjabiOptions = append([]string(nil), qq.PunjabiOptions...)
		out.Questions[i] = qq
	}
	return out
}

// Chapter belongs to a subject and references one quiz.
type Chapter struct {
	ID        string `json:"id"`
	SubjectID string `json:"subject_id"`
	Title     Text   `json:"title"`
	VideoURL  string `json:"video_url"`
	PDFURL    string `json:"pdf_url"`
	QuizID    string `json:"quiz_id"`
	Completed bool   `json:"completed"`
}

// Subject is a stream-specific collection of chapters.
type Subject struct {
	ID       string    `json:"id"`
	Name     Text      `json:"name"`
	Stream   Stream    `json:"stream"`
	Chapters []Chapter `json:"chapters"`
}

// QuizRef locates a quiz inside the catalog.
type QuizRef struct {
	Subject Text
	Chapter Text
}

// Contest is a timed quiz with a leaderboard.
type Contest struct {
	ID              string             `json:"id"`
	Subject         string             `json:"subject"`
	Title           string             `json:"title"`
	QuizID          string             `json:"quiz_id"`
	DurationMinutes int                `json:"duration_minutes"`
	Leaderboard     []LeaderboardEntry `json:"leaderboard"`
}

// LeaderboardEntry is one student's best contest score.
type LeaderboardEntry struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Score       int    `json:"score"`
}

// StudentPerformance holds per-student quiz scores (percent), video views and weak-area tags.
type StudentPerformance struct {
	StudentID  string          `json:"student_id"`
	QuizScores map[string]int  `json:"quiz_scores"`
	VideoViews map[string]bool `json:"video_views"`
	WeakAreas  []string        `json:"weak_areas"`
}

// Attempted reports whether the student has a recorded score for quizID.
func (p StudentPerformance) Attempted(quizID string) bool {
	_, ok := p.QuizScores[quizID]
	return ok
}

// Doubt is a student question awaiting or holding a teacher's answer.
type Doubt struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	Subject    Text      `json:"subject"`
	Chapter    Text      `json:"chapter"`
	Question   Text      `json:"question"`
	IsResolved bool      `json:"is_resolved"`
	Answer     *Text     `json:"answer,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Resource is an external learning link.
type Resource struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// FaqItem is a question/answer pair shown to the listed roles.
type FaqItem struct {
	ID       string     `json:"id"`
	Question string     `json:"question"`
	Answer   string     `json:"answer"`
	For      []UserRole `json:"for"`
}

// AttendanceStatus is a daily attendance mark.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
)

// Attendance is a student's mark for one date (YYYY-MM-DD).
type Attendance struct {
	StudentID string           `json:"student_id"`
	Date      string           `json:"date"`
	Status    AttendanceStatus `json:"status"`
}

// Textbook is a downloadable book for a stream and class.
type Textbook struct {
	ID      string `json:"id"`
	Class   int    `json:"class"`
	Subject Text   `json:"subject"`
	Stream  Stream `json:"stream"`
	URL     string `json:"url"`
}

// CareerPath is one career the assistant may give guidance on, with the
// steps, links and hands-on tasks shown to students exploring it.
type CareerPath struct {
	ID          string        `json:"id"`
	Name        Text          `json:"name"`
	Description Text          `json:"description"`
	ParentInfo  Text          `json:"parent_info"`
	Roadmap     []RoadmapStep `json:"roadmap"`
	Resources   []Resource    `json:"resources"`
	Tasks       []CareerTask  `json:"tasks"`
}

// RoadmapStep is one milestone on a career roadmap.
type RoadmapStep struct {
	Title       Text `json:"title"`
	Description Text `json:"description"`
}

// CareerTask is a small activity that practices a career skill.
type CareerTask struct {
	Title       Text   `json:"title"`
	Description Text   `json:"description"`
	Skill       string `json:"skill"`
}

// MotivationalStory is a short biography shown on the careers page.
type MotivationalStory struct {
	ID       string `json:"id"`
	Name     Text   `json:"name"`
	ImageURL string `json:"image_url"`
	Story    Text   `json:"story"`
}

// SubjectScore is an averaged percentage for one subject.
type SubjectScore struct {
	Subject Text `json:"subject"`
	Score   int  `json:"score"`
}

// StudentReport summarizes a student's quiz results per subject.
type StudentReport struct {
	StudentID     string         `json:"student_id"`
	SubjectScores []SubjectScore `json:"subject_scores"`
	AverageScore  int            `json:"average_score"`
	WeakSubjects  []Text         `json:"weak_subjects"`
}
