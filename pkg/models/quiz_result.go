package models

import "time"

// QuizResult records one finished quiz run
type QuizResult struct {
	ID             int64      `json:"id" db:"id"`
	Owner          string     `json:"owner" db:"owner"`
	Score          int        `json:"score" db:"score"`
	MaxScore       int        `json:"max_score" db:"max_score"`
	CorrectAnswers int        `json:"correct_answers" db:"correct_answers"`
	TotalQuestions int        `json:"total_questions" db:"total_questions"`
	Difficulty     Difficulty `json:"difficulty" db:"difficulty"`
	Duration       int        `json:"duration" db:"duration"` // Duration in seconds
	FinishedAt     time.Time  `json:"finished_at" db:"finished_at"`
}
