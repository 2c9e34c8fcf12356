package quiz

import "github.com/example/quizbot/pkg/models"

// SecondsPerQuestion is the time budget each active question adds to the countdown
const SecondsPerQuestion = 30

// Phase is the lifecycle stage of a quiz session
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseLoadError
	PhaseReady
	PhaseInProgress
	PhaseFinished
	PhaseReviewing
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseLoadError:
		return "load_error"
	case PhaseReady:
		return "ready"
	case PhaseInProgress:
		return "in_progress"
	case PhaseFinished:
		return "finished"
	case PhaseReviewing:
		return "reviewing"
	default:
		return "unknown"
	}
}

// State is the whole quiz session record. Values are replaced, never edited:
// every transition returns a fresh State and Answers is copied before a write.
type State struct {
	AllQuestions     []models.Question
	ActiveQuestions  []models.Question
	Phase            Phase
	CurrentIndex     int
	CurrentSelection *int // nil while the current question is unanswered
	Score            int
	BestScore        int
	DifficultyFilter models.Difficulty
	Answers          map[int]models.UserAnswer // keyed by index into ActiveQuestions
	SecondsRemaining *int                      // nil when no countdown is running
}

// NewState returns the state a session starts in
func NewState(bestScore int) State {
	return State{
		AllQuestions:     []models.Question{},
		ActiveQuestions:  []models.Question{},
		Phase:            PhaseLoading,
		BestScore:        bestScore,
		DifficultyFilter: models.DifficultyAll,
		Answers:          map[int]models.UserAnswer{},
	}
}

// reset abandons the current run and returns to the start screen
func (s State) reset() State {
	s.Phase = PhaseReady
	s.CurrentIndex = 0
	s.CurrentSelection = nil
	s.Score = 0
	s.Answers = map[int]models.UserAnswer{}
	s.SecondsRemaining = nil
	return s
}

// selectionAt returns the recorded selection for an active question index
func (s State) selectionAt(index int) *int {
	if ans, ok := s.Answers[index]; ok {
		return intPtr(ans.SelectedOption)
	}
	return nil
}

func (s State) withAnswer(ans models.UserAnswer) map[int]models.UserAnswer {
	answers := make(map[int]models.UserAnswer, len(s.Answers)+1)
	for k, v := range s.Answers {
		answers[k] = v
	}
	answers[ans.QuestionIndex] = ans
	return answers
}

func intPtr(v int) *int {
	return &v
}
