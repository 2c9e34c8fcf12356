package models

// UserAnswer is the option picked for one question of the active list
type UserAnswer struct {
	QuestionIndex  int  `json:"questionIndex"`
	SelectedOption int  `json:"selectedOption"`
	IsCorrect      bool `json:"isCorrect"`
}
