package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/quizbot/pkg/models"
)

// ResultStats summarizes the finished runs of one owner
type ResultStats struct {
	TotalQuizzes int     `db:"total_quizzes"`
	BestScore    int     `db:"best_score"`
	AverageScore float64 `db:"average_score"`
	AveragePct   float64 `db:"average_pct"`
}

// ResultRepository handles database operations for quiz results
type ResultRepository struct{}

// NewResultRepository creates a new repository instance
func NewResultRepository() *ResultRepository {
	return &ResultRepository{}
}

// Create inserts a new quiz result
func (r *ResultRepository) Create(ctx context.Context, result *models.QuizResult) error {
	if result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now().UTC()
	}
	query := DB.Rebind(`
		INSERT INTO quiz_results (
			owner, score, max_score, correct_answers,
			total_questions, difficulty, duration, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := DB.QueryRowxContext(ctx, query,
		result.Owner,
		result.Score,
		result.MaxScore,
		result.CorrectAnswers,
		result.TotalQuestions,
		string(result.Difficulty),
		result.Duration,
		result.FinishedAt,
	).Scan(&result.ID)
	if err != nil {
		return fmt.Errorf("failed to create quiz result: %w", err)
	}
	return nil
}

// GetByOwner returns the latest results of an owner, newest first
func (r *ResultRepository) GetByOwner(ctx context.Context, owner string, limit int) ([]models.QuizResult, error) {
	var results []models.QuizResult
	err := DB.SelectContext(ctx, &results, DB.Rebind(`
		SELECT id, owner, score, max_score, correct_answers, total_questions, difficulty, duration, finished_at
		FROM quiz_results
		WHERE owner = ?
		ORDER BY finished_at DESC, id DESC
		LIMIT ?
	`), owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz results: %w", err)
	}
	return results, nil
}

// GetStats returns totals over every finished run of an owner
func (r *ResultRepository) GetStats(ctx context.Context, owner string) (*ResultStats, error) {
	var stats ResultStats
	err := DB.GetContext(ctx, &stats, DB.Rebind(`
		SELECT
			COUNT(*) AS total_quizzes,
			COALESCE(MAX(score), 0) AS best_score,
			COALESCE(AVG(score), 0) AS average_score,
			COALESCE(AVG(CASE WHEN max_score > 0 THEN score * 100.0 / max_score ELSE 0 END), 0) AS average_pct
		FROM quiz_results
		WHERE owner = ?
	`), owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz stats: %w", err)
	}
	return &stats, nil
}
