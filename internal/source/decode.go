package source

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/example/quizbot/pkg/models"
)

// Decode parses a question bank: either a list of questions or an object with
// a "questions" list. Any other JSON value yields no questions. Entries that do
// not describe a valid question are dropped and counted.
func Decode(data []byte) ([]models.Question, int, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("invalid question bank: %w", err)
	}

	var entries []json.RawMessage
	switch firstByte(raw) {
	case '[':
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, 0, fmt.Errorf("invalid question list: %w", err)
		}
	case '{':
		var wrapper struct {
			Questions json.RawMessage `json:"questions"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, 0, fmt.Errorf("invalid question bank: %w", err)
		}
		if firstByte(wrapper.Questions) == '[' {
			if err := json.Unmarshal(wrapper.Questions, &entries); err != nil {
				return nil, 0, fmt.Errorf("invalid question list: %w", err)
			}
		}
	}

	questions := make([]models.Question, 0, len(entries))
	dropped := 0
	for _, entry := range entries {
		q, ok := decodeQuestion(entry)
		if !ok {
			dropped++
			continue
		}
		questions = append(questions, q)
	}
	return questions, dropped, nil
}

func decodeQuestion(entry json.RawMessage) (models.Question, bool) {
	var q models.Question
	if firstByte(entry) != '{' || json.Unmarshal(entry, &q) != nil {
		return models.Question{}, false
	}
	d, ok := models.ParseDifficulty(string(q.Difficulty))
	if !ok {
		return models.Question{}, false
	}
	q.Difficulty = d
	if q.Validate() != nil {
		return models.Question{}, false
	}
	return q, true
}

func firstByte(raw []byte) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}
