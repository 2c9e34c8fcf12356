package models

import (
	"errors"
	"fmt"
	"strings"
)

// Difficulty is the level a question is tagged with. DifficultyAll is only
// meaningful as a filter value.
type Difficulty string

const (
	DifficultyAll    Difficulty = "all"
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the filter values in display order
var Difficulties = []Difficulty{DifficultyAll, DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty converts user or file input into a Difficulty
func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DifficultyAll, DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, true
	}
	return "", false
}

// Question represents a single multiple-choice question
type Question struct {
	Text          string     `json:"question" db:"text"`
	Options       []string   `json:"options" db:"-"`
	CorrectOption int        `json:"correctOption" db:"correct_option"`
	Points        int        `json:"points" db:"points"`
	Difficulty    Difficulty `json:"difficulty" db:"difficulty"`
}

// Validate checks that the question can be asked and scored
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("question text is empty")
	}
	if len(q.Options) == 0 {
		return errors.New("question has no options")
	}
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		return fmt.Errorf("correct option %d is out of range [0, %d)", q.CorrectOption, len(q.Options))
	}
	if q.Points <= 0 {
		return fmt.Errorf("points must be positive, got %d", q.Points)
	}
	switch q.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return nil
	}
	return fmt.Errorf("unknown difficulty %q", q.Difficulty)
}
