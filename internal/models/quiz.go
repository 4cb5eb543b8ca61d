package models

import (
	"time"
)

type QuizAttempt struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	QuestionID    int64     `json:"question_id"`
	UserAnswer    *string   `json:"user_answer"`
	CorrectAnswer string    `json:"correct_answer"`
	IsCorrect     bool      `json:"is_correct"`
	SessionID     string    `json:"session_id"`
	CreatedAt     time.Time `json:"created_at"`

	// Populated on review reads only.
	QuestionText string `json:"question_text,omitempty"`
	Category     string `json:"category,omitempty"`
	Difficulty   string `json:"difficulty,omitempty"`
}

// GradedAnswer is one attempt plus the question facets the stats counters are keyed by.
type GradedAnswer struct {
	Attempt    QuizAttempt
	Category   string
	Difficulty string
}

// Submission is the unit of work written atomically after grading.
type Submission struct {
	UserID    int64
	SessionID string
	Answers   []GradedAnswer
	Score     int
}

type QuizResult struct {
	Score     int           `json:"score"`
	Total     int           `json:"total_attempted"`
	SessionID string        `json:"session_id"`
	Attempts  []QuizAttempt `json:"attempts"`
}

type UserQuizStats struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	Category     string `json:"category"`
	Difficulty   string `json:"difficulty"`
	SolvedCount  int    `json:"solved_count"`
	CorrectCount int    `json:"correct_count"`
}

func (s UserQuizStats) Accuracy() float64 {
	if s.SolvedCount == 0 {
		return 0
	}
	return float64(s.CorrectCount) / float64(s.SolvedCount) * 100
}

type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Score     int       `json:"score"`
	Total     int       `json:"total"`
	TakenAt   time.Time `json:"taken_at"`
}
