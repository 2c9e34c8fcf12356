package quiz

import (
	"fmt"

	"github.com/example/quizbot/pkg/models"
)

// CurrentQuestion returns the question at CurrentIndex, if any
func (s State) CurrentQuestion() (models.Question, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.ActiveQuestions) {
		return models.Question{}, false
	}
	return s.ActiveQuestions[s.CurrentIndex], true
}

func (s State) NumQuestions() int {
	return len(s.ActiveQuestions)
}

// MaxPossiblePoints sums the points of every active question
func (s State) MaxPossiblePoints() int {
	total := 0
	for _, q := range s.ActiveQuestions {
		total += q.Points
	}
	return total
}

// TotalSeconds is the countdown length a run over the active questions gets
func (s State) TotalSeconds() int {
	return len(s.ActiveQuestions) * SecondsPerQuestion
}

func (s State) IsLastQuestion() bool {
	return s.CurrentIndex >= len(s.ActiveQuestions)-1
}

// Progress is the share of the quiz covered so far, in percent. The current
// question counts once it has a selection.
func (s State) Progress() float64 {
	n := len(s.ActiveQuestions)
	if n == 0 {
		return 0
	}
	done := s.CurrentIndex
	if s.CurrentSelection != nil {
		done++
	}
	return float64(done) / float64(n) * 100
}

// CorrectCount counts the correct answers recorded so far
func (s State) CorrectCount() int {
	n := 0
	for _, ans := range s.Answers {
		if ans.IsCorrect {
			n++
		}
	}
	return n
}

// Percentage returns score as a share of maxPoints rounded up, for display.
// Zero when there is nothing to score against.
func Percentage(score, maxPoints int) int {
	if maxPoints <= 0 || score <= 0 {
		return 0
	}
	return (score*100 + maxPoints - 1) / maxPoints
}

// Verdict picks the emoji and message shown on the finish screen from the
// exact ratio of score to maxPoints.
func Verdict(score, maxPoints int) (emoji, message string) {
	switch {
	case maxPoints <= 0 || score <= 0:
		return "🤦", "Let's try again!"
	case score >= maxPoints:
		return "🥇", "Perfect score!"
	case score*100 >= 80*maxPoints:
		return "🎉", "Excellent work!"
	case score*100 >= 50*maxPoints:
		return "🙃", "Not bad! Keep learning!"
	default:
		return "🤨", "You might want to review the basics."
	}
}

// ReviewItem describes one active question on the review screen
type ReviewItem struct {
	Index    int
	Question models.Question
	Answered bool
	Selected int // -1 when unanswered
	Correct  bool
}

// Review lists every active question with the answer given for it
func (s State) Review() []ReviewItem {
	items := make([]ReviewItem, 0, len(s.ActiveQuestions))
	for i, q := range s.ActiveQuestions {
		item := ReviewItem{Index: i, Question: q, Selected: -1}
		if ans, ok := s.Answers[i]; ok {
			item.Answered = true
			item.Selected = ans.SelectedOption
			item.Correct = ans.IsCorrect
		}
		items = append(items, item)
	}
	return items
}

// FormatClock renders seconds as m:ss
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// IsCritical reports whether the countdown should be shown as running out
func IsCritical(remaining, total int) bool {
	if total <= 0 {
		return false
	}
	return remaining <= max(10, total/10)
}
