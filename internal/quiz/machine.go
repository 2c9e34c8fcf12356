package quiz

import (
	"context"

	"github.com/example/quizbot/internal/logger"
	"github.com/example/quizbot/pkg/models"
)

// ScoreStore persists the best score across sessions
type ScoreStore interface {
	Get(ctx context.Context) (int, error)
	Set(ctx context.Context, score int) error
}

// Machine applies actions to quiz states. It holds no state of its own; the
// only side effect it performs is persisting a new best score.
type Machine struct {
	scores ScoreStore
	log    *logger.Logger
}

// NewMachine creates a state machine backed by the given score store
func NewMachine(scores ScoreStore, log *logger.Logger) *Machine {
	if log == nil {
		log = logger.Nop()
	}
	return &Machine{scores: scores, log: log}
}

// Initial returns the Loading state with the persisted best score
func (m *Machine) Initial(ctx context.Context) State {
	best, err := m.scores.Get(ctx)
	if err != nil {
		m.log.Warn("failed to read best score, starting from zero", "error", err)
		best = 0
	}
	if best < 0 {
		best = 0
	}
	return NewState(best)
}

// Apply computes the state that follows s under action a. Actions that are
// not valid for the current phase leave the state unchanged.
func (m *Machine) Apply(ctx context.Context, s State, a Action) State {
	switch act := a.(type) {
	case DataReceived:
		return dataReceived(s, act)
	case DataFailed:
		return dataFailed(s)
	case Reload:
		if s.Phase != PhaseLoadError {
			return s
		}
		s.Phase = PhaseLoading
		return s
	case SetDifficulty:
		return setDifficulty(s, act)
	case Start:
		return start(s)
	case NewAnswer:
		return newAnswer(s, act)
	case NextQuestion:
		if s.Phase != PhaseInProgress || s.CurrentIndex >= len(s.ActiveQuestions)-1 {
			return s
		}
		s.CurrentIndex++
		s.CurrentSelection = s.selectionAt(s.CurrentIndex)
		return s
	case PreviousQuestion:
		if s.Phase != PhaseInProgress || s.CurrentIndex == 0 {
			return s
		}
		s.CurrentIndex--
		s.CurrentSelection = s.selectionAt(s.CurrentIndex)
		return s
	case ExitQuiz:
		if s.Phase != PhaseInProgress {
			return s
		}
		return s.reset()
	case Finish:
		if s.Phase != PhaseInProgress {
			return s
		}
		return m.finish(ctx, s)
	case Restart:
		switch s.Phase {
		case PhaseInProgress, PhaseFinished, PhaseReviewing:
			return s.reset()
		}
		return s
	case ShowReview:
		if s.Phase != PhaseFinished {
			return s
		}
		s.Phase = PhaseReviewing
		return s
	case Tick:
		return m.tick(ctx, s)
	default:
		m.log.Debug("ignoring unknown action", "action", a)
		return s
	}
}

func dataReceived(s State, act DataReceived) State {
	if s.Phase != PhaseLoading && s.Phase != PhaseLoadError {
		return s
	}
	questions := act.Questions
	if questions == nil {
		questions = []models.Question{}
	}
	s.AllQuestions = questions
	s.ActiveQuestions = questions
	s.DifficultyFilter = models.DifficultyAll
	s.Phase = PhaseReady
	return s
}

func dataFailed(s State) State {
	if s.Phase != PhaseLoading && s.Phase != PhaseLoadError {
		return s
	}
	s.Phase = PhaseLoadError
	return s
}

func setDifficulty(s State, act SetDifficulty) State {
	if s.Phase != PhaseReady {
		return s
	}
	switch act.Difficulty {
	case models.DifficultyAll:
		s.ActiveQuestions = s.AllQuestions
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		filtered := make([]models.Question, 0, len(s.AllQuestions))
		for _, q := range s.AllQuestions {
			if q.Difficulty == act.Difficulty {
				filtered = append(filtered, q)
			}
		}
		s.ActiveQuestions = filtered
	default:
		return s
	}
	s.DifficultyFilter = act.Difficulty
	return s
}

func start(s State) State {
	if s.Phase != PhaseReady || len(s.ActiveQuestions) == 0 {
		return s
	}
	s = s.reset()
	s.Phase = PhaseInProgress
	s.SecondsRemaining = intPtr(len(s.ActiveQuestions) * SecondsPerQuestion)
	return s
}

func newAnswer(s State, act NewAnswer) State {
	if s.Phase != PhaseInProgress || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.ActiveQuestions) {
		return s
	}
	q := s.ActiveQuestions[s.CurrentIndex]
	if act.Option < 0 || act.Option >= len(q.Options) {
		return s
	}

	isCorrect := act.Option == q.CorrectOption
	score := s.Score
	if prev, ok := s.Answers[s.CurrentIndex]; ok && prev.IsCorrect {
		score -= q.Points
	}
	if isCorrect {
		score += q.Points
	}

	s.Answers = s.withAnswer(models.UserAnswer{
		QuestionIndex:  s.CurrentIndex,
		SelectedOption: act.Option,
		IsCorrect:      isCorrect,
	})
	s.Score = score
	s.CurrentSelection = intPtr(act.Option)
	return s
}

// finish ends the run and persists a new best score exactly once
func (m *Machine) finish(ctx context.Context, s State) State {
	s.Phase = PhaseFinished
	if s.Score > s.BestScore {
		s.BestScore = s.Score
		if err := m.scores.Set(ctx, s.Score); err != nil {
			m.log.Error("failed to persist best score", "score", s.Score, "error", err)
		}
	}
	return s
}

func (m *Machine) tick(ctx context.Context, s State) State {
	if s.Phase != PhaseInProgress || s.SecondsRemaining == nil || *s.SecondsRemaining <= 0 {
		return s
	}
	remaining := *s.SecondsRemaining - 1
	s.SecondsRemaining = intPtr(remaining)
	if remaining == 0 {
		return m.finish(ctx, s)
	}
	return s
}
