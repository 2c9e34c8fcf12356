package quiz

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/example/quizbot/pkg/models"
)

// memoryScores records every Set call so tests can count persists.
type memoryScores struct {
	best   int
	getErr error
	setErr error
	sets   []int
}

func (m *memoryScores) Get(ctx context.Context) (int, error) {
	return m.best, m.getErr
}

func (m *memoryScores) Set(ctx context.Context, score int) error {
	m.sets = append(m.sets, score)
	if m.setErr != nil {
		return m.setErr
	}
	m.best = score
	return nil
}

// scenarioQuestions is the three-question bank used by the end-to-end scenario.
func scenarioQuestions() []models.Question {
	return []models.Question{
		{Text: "Q1", Options: []string{"a", "b", "c"}, CorrectOption: 0, Points: 10, Difficulty: models.DifficultyEasy},
		{Text: "Q2", Options: []string{"a", "b", "c"}, CorrectOption: 1, Points: 20, Difficulty: models.DifficultyMedium},
		{Text: "Q3", Options: []string{"a", "b", "c"}, CorrectOption: 2, Points: 10, Difficulty: models.DifficultyMedium},
	}
}

func mixedQuestions() []models.Question {
	return []models.Question{
		{Text: "H1", Options: []string{"x", "y"}, CorrectOption: 0, Points: 30, Difficulty: models.DifficultyHard},
		{Text: "E1", Options: []string{"x", "y"}, CorrectOption: 1, Points: 10, Difficulty: models.DifficultyEasy},
		{Text: "H2", Options: []string{"x", "y"}, CorrectOption: 1, Points: 30, Difficulty: models.DifficultyHard},
		{Text: "M1", Options: []string{"x", "y"}, CorrectOption: 0, Points: 20, Difficulty: models.DifficultyMedium},
		{Text: "H3", Options: []string{"x", "y"}, CorrectOption: 0, Points: 30, Difficulty: models.DifficultyHard},
	}
}

func newTestMachine(best int) (*Machine, *memoryScores) {
	scores := &memoryScores{best: best}
	return NewMachine(scores, nil), scores
}

func apply(m *Machine, s State, actions ...Action) State {
	for _, a := range actions {
		s = m.Apply(context.Background(), s, a)
	}
	return s
}

// readyState loads questions and returns the Ready state.
func readyState(t *testing.T, m *Machine, qs []models.Question) State {
	t.Helper()
	s := apply(m, m.Initial(context.Background()), DataReceived{Questions: qs})
	if s.Phase != PhaseReady {
		t.Fatalf("expected ready phase, got %s", s.Phase)
	}
	return s
}

func expectedScore(s State) int {
	total := 0
	for i, ans := range s.Answers {
		if ans.IsCorrect {
			total += s.ActiveQuestions[i].Points
		}
	}
	return total
}

func TestInitialReadsBestScore(t *testing.T) {
	m, _ := newTestMachine(42)
	s := m.Initial(context.Background())
	if s.Phase != PhaseLoading {
		t.Errorf("expected loading phase, got %s", s.Phase)
	}
	if s.BestScore != 42 {
		t.Errorf("expected best score 42, got %d", s.BestScore)
	}
	if s.DifficultyFilter != models.DifficultyAll {
		t.Errorf("expected filter all, got %q", s.DifficultyFilter)
	}
	if s.SecondsRemaining != nil || s.CurrentSelection != nil {
		t.Errorf("expected no timer and no selection")
	}

	failing := NewMachine(&memoryScores{best: 7, getErr: errors.New("disk gone")}, nil)
	if got := failing.Initial(context.Background()).BestScore; got != 0 {
		t.Errorf("expected best score 0 when the store fails, got %d", got)
	}
}

func TestDataReceived(t *testing.T) {
	m, _ := newTestMachine(0)
	s := readyState(t, m, scenarioQuestions())
	if len(s.AllQuestions) != 3 || len(s.ActiveQuestions) != 3 {
		t.Fatalf("expected 3 questions, got all=%d active=%d", len(s.AllQuestions), len(s.ActiveQuestions))
	}

	empty := apply(m, m.Initial(context.Background()), DataReceived{Questions: nil})
	if empty.Phase != PhaseReady {
		t.Errorf("expected ready phase for a nil payload, got %s", empty.Phase)
	}
	if empty.AllQuestions == nil || len(empty.AllQuestions) != 0 {
		t.Errorf("expected an empty non-nil question list, got %#v", empty.AllQuestions)
	}

	// A second delivery after the quiz is ready is ignored.
	again := apply(m, s, DataReceived{Questions: mixedQuestions()})
	if !reflect.DeepEqual(again, s) {
		t.Errorf("expected dataReceived outside loading to be a no-op")
	}
}

func TestDataFailedAndReload(t *testing.T) {
	m, _ := newTestMachine(0)
	s := apply(m, m.Initial(context.Background()), DataFailed{Err: errors.New("boom")})
	if s.Phase != PhaseLoadError {
		t.Fatalf("expected load error phase, got %s", s.Phase)
	}

	s = apply(m, s, Reload{})
	if s.Phase != PhaseLoading {
		t.Fatalf("expected reload to return to loading, got %s", s.Phase)
	}
	s = apply(m, s, DataReceived{Questions: scenarioQuestions()})
	if s.Phase != PhaseReady || len(s.ActiveQuestions) != 3 {
		t.Errorf("expected ready with 3 questions after retry, got %s with %d", s.Phase, len(s.ActiveQuestions))
	}

	if got := apply(m, s, Reload{}); got.Phase != PhaseReady {
		t.Errorf("expected reload outside load error to be ignored, got %s", got.Phase)
	}
	if got := apply(m, s, DataFailed{}); got.Phase != PhaseReady {
		t.Errorf("expected dataFailed outside loading to be ignored, got %s", got.Phase)
	}
}

func TestSetDifficulty(t *testing.T) {
	m, _ := newTestMachine(0)
	all := mixedQuestions()
	s := readyState(t, m, all)

	hard := apply(m, s, SetDifficulty{Difficulty: models.DifficultyHard})
	want := []models.Question{all[0], all[2], all[4]}
	if !reflect.DeepEqual(hard.ActiveQuestions, want) {
		t.Errorf("expected hard questions in original order, got %+v", hard.ActiveQuestions)
	}
	if hard.DifficultyFilter != models.DifficultyHard {
		t.Errorf("expected filter hard, got %q", hard.DifficultyFilter)
	}
	if !reflect.DeepEqual(hard.AllQuestions, all) {
		t.Errorf("expected all questions to stay untouched")
	}

	restored := apply(m, hard, SetDifficulty{Difficulty: models.DifficultyAll})
	if !reflect.DeepEqual(restored.ActiveQuestions, all) {
		t.Errorf("expected filter all to restore the full list")
	}

	if got := apply(m, s, SetDifficulty{Difficulty: "legendary"}); !reflect.DeepEqual(got, s) {
		t.Errorf("expected an unknown difficulty to be ignored")
	}

	running := apply(m, s, Start{})
	if got := apply(m, running, SetDifficulty{Difficulty: models.DifficultyEasy}); len(got.ActiveQuestions) != len(all) {
		t.Errorf("expected setDifficulty to be ignored while in progress")
	}
}

func TestStart(t *testing.T) {
	m, _ := newTestMachine(0)
	s := readyState(t, m, scenarioQuestions())

	started := apply(m, s, Start{})
	if started.Phase != PhaseInProgress {
		t.Fatalf("expected in progress, got %s", started.Phase)
	}
	if started.SecondsRemaining == nil || *started.SecondsRemaining != 90 {
		t.Errorf("expected 90 seconds on the clock, got %v", started.SecondsRemaining)
	}
	if started.CurrentIndex != 0 || started.CurrentSelection != nil || started.Score != 0 || len(started.Answers) != 0 {
		t.Errorf("expected a fresh run, got %+v", started)
	}

	// No easy questions in the bank: start is guarded.
	empty := readyState(t, m, []models.Question{scenarioQuestions()[1]})
	empty = apply(m, empty, SetDifficulty{Difficulty: models.DifficultyHard})
	if got := apply(m, empty, Start{}); !reflect.DeepEqual(got, empty) {
		t.Errorf("expected start with no active questions to leave the state unchanged")
	}
}

func TestNewAnswerIdempotent(t *testing.T) {
	m, _ := newTestMachine(0)
	s := apply(m, readyState(t, m, scenarioQuestions()), Start{})

	once := apply(m, s, NewAnswer{Option: 0})
	twice := apply(m, once, NewAnswer{Option: 0})
	if once.Score != 10 || twice.Score != 10 {
		t.Errorf("expected score 10 after one and two identical answers, got %d and %d", once.Score, twice.Score)
	}
	if !reflect.DeepEqual(once.Answers, twice.Answers) {
		t.Errorf("expected identical answers, got %+v vs %+v", once.Answers, twice.Answers)
	}
	if twice.CurrentSelection == nil || *twice.CurrentSelection != 0 {
		t.Errorf("expected selection 0, got %v", twice.CurrentSelection)
	}
}

func TestNewAnswerOverwrite(t *testing.T) {
	m, _ := newTestMachine(0)
	s := apply(m, readyState(t, m, scenarioQuestions()), Start{})

	tests := []struct {
		name      string
		first     int
		second    int
		wantScore int
	}{
		{"correct then wrong", 0, 1, 0},
		{"wrong then correct", 2, 0, 10},
		{"wrong then wrong", 1, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := apply(m, s, NewAnswer{Option: tt.first}, NewAnswer{Option: tt.second})
			if got.Score != tt.wantScore {
				t.Errorf("expected score %d, got %d", tt.wantScore, got.Score)
			}
			if len(got.Answers) != 1 {
				t.Fatalf("expected one answer for the question, got %d", len(got.Answers))
			}
			if ans := got.Answers[0]; ans.SelectedOption != tt.second || ans.IsCorrect != (tt.second == 0) {
				t.Errorf("expected the second answer to win, got %+v", ans)
			}
		})
	}
}

func TestNewAnswerDoesNotMutatePreviousState(t *testing.T) {
	m, _ := newTestMachine(0)
	s := apply(m, readyState(t, m, scenarioQuestions()), Start{}, NewAnswer{Option: 1})
	before := s.Answers[0]

	_ = apply(m, s, NewAnswer{Option: 0})
	if s.Answers[0] != before || s.Score != 0 {
		t.Errorf("expected the earlier state to stay untouched, got %+v score %d", s.Answers[0], s.Score)
	}
}

func TestNewAnswerGuards(t *testing.T) {
	m, _ := newTestMachine(0)
	ready := readyState(t, m, scenarioQuestions())
	if got := apply(m, ready, NewAnswer{Option: 0}); !reflect.DeepEqual(got, ready) {
		t.Errorf("expected newAnswer outside a run to be ignored")
	}

	s := apply(m, ready, Start{})
	for _, opt := range []int{-1, 3, 99} {
		if got := apply(m, s, NewAnswer{Option: opt}); !reflect.DeepEqual(got, s) {
			t.Errorf("expected option %d to be ignored", opt)
		}
	}
}

func TestNavigationRoundTrip(t *testing.T) {
	m, _ := newTestMachine(0)
	s := apply(m, readyState(t, m, scenarioQuestions()), Start{}, NewAnswer{Option: 2})

	next := apply(m, s, NextQuestion{})
	if next.CurrentIndex != 1 || next.CurrentSelection != nil {
		t.Fatalf("expected unanswered question 1, got index %d selection %v", next.CurrentIndex, next.CurrentSelection)
	}
	back := apply(m, next, PreviousQuestion{})
	if back.CurrentIndex != s.CurrentIndex {
		t.Errorf("expected index %d, got %d", s.CurrentIndex, back.CurrentIndex)
	}
	if back.CurrentSelection == nil || *back.CurrentSelection != 2 {
		t.Errorf("expected restored selection 2, got %v", back.CurrentSelection)
	}

	// Revisiting a question allows changing the answer without double counting.
	changed := apply(m, back, NewAnswer{Option: 0}, NextQuestion{}, PreviousQuestion{})
	if changed.Score != 10 || *changed.CurrentSelection != 0 {
		t.Errorf("expected score 10 with selection 0, got %d / %v", changed.Score, changed.CurrentSelection)
	}
}

func TestNavigationBounds(t *testing.T) {
	m, _ := newTestMachine(0)
	s := apply(m, readyState(t, m, scenarioQuestions()), Start{})

	if got := apply(m, s, PreviousQuestion{}); !reflect.DeepEqual(got, s) {
		t.Errorf("expected previousQuestion at index 0 to be a no-op")
	}

	last := apply(m, s, NextQuestion{}, NextQuestion{})
	if last.CurrentIndex != 2 {
		t.Fatalf("expected index 2, got %d", last.CurrentIndex)
	}
	if got := apply(m, last, NextQuestion{}); !reflect.DeepEqual(got, last) {
		t.Errorf("expected nextQuestion at the last index to be a no-op, got index %d", got.CurrentIndex)
	}
}

func TestExitQuizDiscardsProgress(t *testing.T) {
	m, scores := newTestMachine(5)
	s := apply(m, readyState(t, m, scenarioQuestions()), Start{}, NextQuestion{}, NewAnswer{Option: 1})
	if s.Score != 20 {
		t.Fatalf("expected score 20 before exit, got %d", s.Score)
	}

	exited := apply(m, s, ExitQuiz{})
	if exited.Phase != PhaseReady || exited.Score != 0 || len(exited.Answers) != 0 {
		t.Errorf("expected a clean ready state, got phase %s score %d answers %d", exited.Phase, exited.Score, len(exited.Answers))
	}
	if exited.CurrentIndex != 0 || exited.CurrentSelection != nil || exited.SecondsRemaining != nil {
		t.Errorf("expected index, selection and timer to be reset")
	}
	if exited.BestScore != 5 || len(scores.sets) != 0 {
		t.Errorf("expected best score to stay 5 without persisting, got %d / %v", exited.BestScore, scores.sets)
	}
}

func TestFinishUpdatesBestScore(t *testing.T) {
	tests := []struct {
		name     string
		best     int
		answer   int // option picked for question 2 (20 points, correct option 1)
		wantBest int
		wantSets []int
	}{
		{"new high score", 5, 1, 20, []int{20}},
		{"below best", 30, 1, 30, nil},
		{"equal to best", 20, 1, 20, nil},
		{"zero score", 0, 0, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, scores := newTestMachine(tt.best)
			s := apply(m, readyState(t, m, scenarioQuestions()), Start{}, NextQuestion{}, NewAnswer{Option: tt.answer}, Finish{})
			if s.Phase != PhaseFinished {
				t.Fatalf("expected finished, got %s", s.Phase)
			}
			if s.BestScore != tt.wantBest {
				t.Errorf("expected best %d, got %d", tt.wantBest, s.BestScore)
			}
			if !reflect.DeepEqual(scores.sets, tt.wantSets) {
				t.Errorf("expected persists %v, got %v", tt.wantSets, scores.sets)
			}

			// Finishing again from Finished must not persist a second time.
			again := apply(m, s, Finish{})
			if !reflect.DeepEqual(again, s) || len(scores.sets) != len(tt.wantSets) {
				t.Errorf("expected finish outside a run to be a no-op")
			}
		})
	}
}

func TestFinishPersistFailureKeepsBestScore(t *testing.T) {
	scores := &memoryScores{setErr: errors.New("read-only")}
	m := NewMachine(scores, nil)
	s := apply(m, readyState(t, m, scenarioQuestions()), Start{}, NewAnswer{Option: 0}, Finish{})
	if s.BestScore != 10 {
		t.Errorf("expected in-memory best score 10, got %d", s.BestScore)
	}
	if len(scores.sets) != 1 {
		t.Errorf("expected exactly one persist attempt, got %d", len(scores.sets))
	}
}

func TestTick(t *testing.T) {
	m, _ := newTestMachine(0)
	s := apply(m, readyState(t, m, scenarioQuestions()), Start{})

	ticked := apply(m, s, Tick{})
	if *ticked.SecondsRemaining != 89 || ticked.Phase != PhaseInProgress {
		t.Errorf("expected 89 seconds in progress, got %d in %s", *ticked.SecondsRemaining, ticked.Phase)
	}
	if *s.SecondsRemaining != 90 {
		t.Errorf("expected the previous state to keep 90 seconds")
	}

	ready := readyState(t, m, scenarioQuestions())
	if got := apply(m, ready, Tick{}); !reflect.DeepEqual(got, ready) {
		t.Errorf("expected tick without a timer to be a no-op")
	}
}

func TestTickExpiryFinishes(t *testing.T) {
	m, scores := newTestMachine(0)
	s := apply(m, readyState(t, m, scenarioQuestions()), Start{}, NewAnswer{Option: 0})
	s.SecondsRemaining = intPtr(1)

	expired := apply(m, s, Tick{})
	if expired.Phase != PhaseFinished {
		t.Fatalf("expected finished, got %s", expired.Phase)
	}
	if expired.SecondsRemaining == nil || *expired.SecondsRemaining != 0 {
		t.Errorf("expected the clock pinned at 0, got %v", expired.SecondsRemaining)
	}
	if expired.BestScore != 10 || !reflect.DeepEqual(scores.sets, []int{10}) {
		t.Errorf("expected best score 10 persisted once, got %d / %v", expired.BestScore, scores.sets)
	}

	if got := apply(m, expired, Tick{}); !reflect.DeepEqual(got, expired) {
		t.Errorf("expected tick after expiry to be a no-op")
	}
	if len(scores.sets) != 1 {
		t.Errorf("expected no further persists, got %v", scores.sets)
	}
}

func TestEndToEndScenario(t *testing.T) {
	m, _ := newTestMachine(0)
	s := apply(m, m.Initial(context.Background()),
		DataReceived{Questions: scenarioQuestions()},
		Start{},
		NewAnswer{Option: 0},
		NextQuestion{},
		NewAnswer{Option: 0},
		NextQuestion{},
		NewAnswer{Option: 2},
		Finish{},
	)
	if s.Score != 20 {
		t.Errorf("expected score 20, got %d", s.Score)
	}
	if s.Phase != PhaseFinished {
		t.Errorf("expected finished, got %s", s.Phase)
	}
	if s.BestScore != 20 {
		t.Errorf("expected best score 20, got %d", s.BestScore)
	}
}

func TestReviewAndRestart(t *testing.T) {
	m, _ := newTestMachine(0)
	s := readyState(t, m, scenarioQuestions())

	if got := apply(m, s, ShowReview{}); got.Phase != PhaseReady {
		t.Errorf("expected showReview outside finished to be ignored, got %s", got.Phase)
	}
	if got := apply(m, s, Restart{}); !reflect.DeepEqual(got, s) {
		t.Errorf("expected restart from ready to be a no-op")
	}

	finished := apply(m, s, Start{}, NewAnswer{Option: 0}, Finish{})
	reviewing := apply(m, finished, ShowReview{})
	if reviewing.Phase != PhaseReviewing {
		t.Fatalf("expected reviewing, got %s", reviewing.Phase)
	}
	if reviewing.Score != 10 || len(reviewing.Answers) != 1 {
		t.Errorf("expected review to keep the answers")
	}

	for _, from := range []State{finished, reviewing, apply(m, s, Start{})} {
		restarted := apply(m, from, Restart{})
		if restarted.Phase != PhaseReady || restarted.Score != 0 || len(restarted.Answers) != 0 || restarted.SecondsRemaining != nil {
			t.Errorf("expected restart from %s to reset the run", from.Phase)
		}
		if restarted.BestScore != from.BestScore {
			t.Errorf("expected restart to keep the best score")
		}
	}
}

type unknownAction struct{}

func (unknownAction) Name() string { return "unknown" }

func TestUnknownActionIgnored(t *testing.T) {
	m, _ := newTestMachine(0)
	s := apply(m, readyState(t, m, scenarioQuestions()), Start{})
	if got := apply(m, s, unknownAction{}); !reflect.DeepEqual(got, s) {
		t.Errorf("expected an unknown action to leave the state unchanged")
	}
}

func TestScoreInvariantUnderRandomDispatch(t *testing.T) {
	m, scores := newTestMachine(0)
	rnd := rand.New(rand.NewSource(7))
	s := readyState(t, m, mixedQuestions())

	for i := 0; i < 2000; i++ {
		prevBest := s.BestScore
		prevScore := s.Score
		prevPhase := s.Phase
		prevSets := len(scores.sets)

		var a Action
		switch rnd.Intn(10) {
		case 0:
			a = SetDifficulty{Difficulty: models.Difficulties[rnd.Intn(len(models.Difficulties))]}
		case 1:
			a = Start{}
		case 2, 3:
			a = NewAnswer{Option: rnd.Intn(3) - 1}
		case 4:
			a = NextQuestion{}
		case 5:
			a = PreviousQuestion{}
		case 6:
			a = Tick{}
		case 7:
			a = Finish{}
		case 8:
			a = ShowReview{}
		default:
			if rnd.Intn(2) == 0 {
				a = Restart{}
			} else {
				a = ExitQuiz{}
			}
		}
		s = apply(m, s, a)

		if s.Score != expectedScore(s) {
			t.Fatalf("step %d (%s): score %d does not match answers total %d", i, a.Name(), s.Score, expectedScore(s))
		}
		if s.Score < 0 {
			t.Fatalf("step %d: negative score %d", i, s.Score)
		}
		if s.BestScore < prevBest {
			t.Fatalf("step %d: best score went down from %d to %d", i, prevBest, s.BestScore)
		}
		if prevPhase == PhaseInProgress && s.Phase == PhaseFinished {
			persisted := len(scores.sets) - prevSets
			if (prevScore > prevBest) != (persisted == 1) || persisted > 1 {
				t.Fatalf("step %d: persisted %d times for score %d over best %d", i, persisted, prevScore, prevBest)
			}
		} else if len(scores.sets) != prevSets {
			t.Fatalf("step %d (%s): unexpected persist outside finish", i, a.Name())
		}
	}
}
