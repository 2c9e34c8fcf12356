package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ScoreRepository stores the best score of one owner (a chat). It satisfies
// quiz.ScoreStore.
type ScoreRepository struct {
	owner string
}

// NewScoreRepository creates a repository bound to the given owner key
func NewScoreRepository(owner string) *ScoreRepository {
	return &ScoreRepository{owner: owner}
}

// Get returns the stored best score, or 0 when none was saved yet
func (r *ScoreRepository) Get(ctx context.Context) (int, error) {
	var score int
	err := DB.GetContext(ctx, &score, DB.Rebind("SELECT score FROM best_scores WHERE owner = ?"), r.owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get best score: %w", err)
	}
	return score, nil
}

// Set stores score as the new best score
func (r *ScoreRepository) Set(ctx context.Context, score int) error {
	query := `
		INSERT INTO best_scores (owner, score, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (owner) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at
	`
	_, err := DB.ExecContext(ctx, DB.Rebind(query), r.owner, score, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save best score: %w", err)
	}
	return nil
}
