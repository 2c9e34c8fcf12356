package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/quizbot/pkg/models"
)

// questionRow is a questions table row; options are stored as a JSON array
type questionRow struct {
	ID            int64  `db:"id"`
	Position      int    `db:"position"`
	Text          string `db:"text"`
	Options       string `db:"options"`
	CorrectOption int    `db:"correct_option"`
	Points        int    `db:"points"`
	Difficulty    string `db:"difficulty"`
}

// QuestionRepository handles database operations for the question bank
type QuestionRepository struct{}

// NewQuestionRepository creates a new repository instance
func NewQuestionRepository() *QuestionRepository {
	return &QuestionRepository{}
}

// GetAll returns the whole question bank in import order
func (r *QuestionRepository) GetAll(ctx context.Context) ([]models.Question, error) {
	var rows []questionRow
	err := DB.SelectContext(ctx, &rows, `
		SELECT id, position, text, options, correct_option, points, difficulty
		FROM questions
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	questions := make([]models.Question, 0, len(rows))
	for _, row := range rows {
		var options []string
		if err := json.Unmarshal([]byte(row.Options), &options); err != nil {
			return nil, fmt.Errorf("failed to parse options of question %d: %w", row.ID, err)
		}
		questions = append(questions, models.Question{
			Text:          row.Text,
			Options:       options,
			CorrectOption: row.CorrectOption,
			Points:        row.Points,
			Difficulty:    models.Difficulty(row.Difficulty),
		})
	}
	return questions, nil
}

// ReplaceAll swaps the stored question bank for questions in one transaction
func (r *QuestionRepository) ReplaceAll(ctx context.Context, questions []models.Question) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM questions"); err != nil {
		return fmt.Errorf("failed to clear questions: %w", err)
	}

	insert := tx.Rebind(`
		INSERT INTO questions (position, text, options, correct_option, points, difficulty)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	for i, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("failed to encode options of question %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, insert, i, q.Text, string(options), q.CorrectOption, q.Points, string(q.Difficulty)); err != nil {
			return fmt.Errorf("failed to insert question %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit questions: %w", err)
	}
	return nil
}

// Count returns the number of stored questions
func (r *QuestionRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := DB.GetContext(ctx, &n, "SELECT COUNT(*) FROM questions"); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return n, nil
}
