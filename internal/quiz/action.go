package quiz

import "github.com/example/quizbot/pkg/models"

// Action is one event the state machine reacts to
type Action interface {
	Name() string
}

// DataReceived delivers the loaded question list
type DataReceived struct {
	Questions []models.Question
}

// DataFailed reports that the question source could not be read
type DataFailed struct {
	Err error
}

// Reload moves a failed session back to Loading so the host can fetch again
type Reload struct{}

// SetDifficulty re-filters the active questions
type SetDifficulty struct {
	Difficulty models.Difficulty
}

type Start struct{}

// NewAnswer records the option picked for the current question
type NewAnswer struct {
	Option int
}

type NextQuestion struct{}

type PreviousQuestion struct{}

// ExitQuiz abandons the running quiz
type ExitQuiz struct{}

type Finish struct{}

type Restart struct{}

type ShowReview struct{}

// Tick is one second of the countdown
type Tick struct{}

func (DataReceived) Name() string     { return "dataReceived" }
func (DataFailed) Name() string       { return "dataFailed" }
func (Reload) Name() string           { return "reload" }
func (SetDifficulty) Name() string    { return "setDifficulty" }
func (Start) Name() string            { return "start" }
func (NewAnswer) Name() string        { return "newAnswer" }
func (NextQuestion) Name() string     { return "nextQuestion" }
func (PreviousQuestion) Name() string { return "previousQuestion" }
func (ExitQuiz) Name() string         { return "exitQuiz" }
func (Finish) Name() string           { return "finish" }
func (Restart) Name() string          { return "restart" }
func (ShowReview) Name() string       { return "showReview" }
func (Tick) Name() string             { return "tick" }
