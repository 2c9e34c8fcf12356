package bot

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/example/quizbot/internal/logger"
	"github.com/example/quizbot/internal/quiz"
	"github.com/example/quizbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageLength keeps rendered text under Telegram's 4096 character limit
const maxMessageLength = 4000

// clockRedrawEvery is how often, in seconds, a running clock alone causes an
// edit. Telegram rate limits message edits per chat.
const clockRedrawEvery = 5

var difficultyLabels = map[models.Difficulty]string{
	models.DifficultyAll:    "All",
	models.DifficultyEasy:   "Easy",
	models.DifficultyMedium: "Medium",
	models.DifficultyHard:   "Hard",
}

// renderView turns a quiz state into message text and buttons
func renderView(st quiz.State) (string, [][]MenuButton) {
	switch st.Phase {
	case quiz.PhaseLoading:
		return "⏳ Loading questions...", nil
	case quiz.PhaseLoadError:
		return "⚠️ Could not load the questions. Please try again.",
			[][]MenuButton{{{Text: "🔄 Retry", CallbackData: "retry"}}}
	case quiz.PhaseReady:
		return renderReady(st)
	case quiz.PhaseInProgress:
		return renderQuestion(st)
	case quiz.PhaseFinished:
		return renderFinished(st)
	case quiz.PhaseReviewing:
		return renderReview(st)
	}
	return "", nil
}

func renderReady(st quiz.State) (string, [][]MenuButton) {
	var row []MenuButton
	for _, d := range models.Difficulties {
		label := difficultyLabels[d]
		if d == st.DifficultyFilter {
			label = "✅ " + label
		}
		row = append(row, MenuButton{Text: label, CallbackData: "diff:" + string(d)})
	}
	buttons := [][]MenuButton{row}

	var text strings.Builder
	text.WriteString("🧠 Welcome to the quiz!\n\n")
	if n := st.NumQuestions(); n > 0 {
		fmt.Fprintf(&text, "%d questions to test your knowledge.\n", n)
		fmt.Fprintf(&text, "You have %s to answer them.\n", quiz.FormatClock(st.TotalSeconds()))
		buttons = append(buttons, []MenuButton{{Text: "▶️ Let's start", CallbackData: "start"}})
	} else {
		text.WriteString("No questions for this difficulty.\n")
	}
	fmt.Fprintf(&text, "\nDifficulty: %s\n🏆 Best score: %d", difficultyLabels[st.DifficultyFilter], st.BestScore)
	return text.String(), buttons
}

func renderQuestion(st quiz.State) (string, [][]MenuButton) {
	q, ok := st.CurrentQuestion()
	if !ok {
		return "", nil
	}

	clock := "⏱"
	remaining := 0
	if st.SecondsRemaining != nil {
		remaining = *st.SecondsRemaining
	}
	if quiz.IsCritical(remaining, st.TotalSeconds()) {
		clock = "⏰"
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Question %d/%d · %s %s\n", st.CurrentIndex+1, st.NumQuestions(), clock, quiz.FormatClock(remaining))
	fmt.Fprintf(&text, "Score: %d/%d · Progress: %.0f%%\n", st.Score, st.MaxPossiblePoints(), st.Progress())
	fmt.Fprintf(&text, "%d points · %s\n\n", q.Points, difficultyLabels[q.Difficulty])
	text.WriteString(q.Text)

	var buttons [][]MenuButton
	for i, opt := range q.Options {
		if st.CurrentSelection == nil {
			buttons = append(buttons, []MenuButton{{Text: opt, CallbackData: fmt.Sprintf("ans:%d", i)}})
			continue
		}
		label := opt
		switch {
		case i == q.CorrectOption:
			label = "✅ " + opt
		case i == *st.CurrentSelection:
			label = "❌ " + opt
		}
		buttons = append(buttons, []MenuButton{{Text: label, CallbackData: "noop"}})
	}

	var nav []MenuButton
	if st.CurrentIndex > 0 {
		nav = append(nav, MenuButton{Text: "⬅️ Previous", CallbackData: "prev"})
	}
	if st.CurrentSelection != nil {
		if st.IsLastQuestion() {
			nav = append(nav, MenuButton{Text: "🏁 Finish", CallbackData: "finish"})
		} else {
			nav = append(nav, MenuButton{Text: "Next ➡️", CallbackData: "next"})
		}
	}
	if len(nav) > 0 {
		buttons = append(buttons, nav)
	}
	buttons = append(buttons, []MenuButton{{Text: "✖️ Exit", CallbackData: "exit"}})
	return text.String(), buttons
}

func renderFinished(st quiz.State) (string, [][]MenuButton) {
	maxPoints := st.MaxPossiblePoints()
	pct := quiz.Percentage(st.Score, maxPoints)
	emoji, message := quiz.Verdict(st.Score, maxPoints)

	var text strings.Builder
	fmt.Fprintf(&text, "%s You scored %d out of %d (%d%%)\n", emoji, st.Score, maxPoints, pct)
	text.WriteString(message + "\n\n")
	fmt.Fprintf(&text, "Correct answers: %d/%d\n", st.CorrectCount(), st.NumQuestions())
	fmt.Fprintf(&text, "🏆 Best score: %d", st.BestScore)

	return text.String(), [][]MenuButton{{
		{Text: "📝 Review answers", CallbackData: "review"},
		{Text: "🔁 Restart", CallbackData: "restart"},
	}}
}

func renderReview(st quiz.State) (string, [][]MenuButton) {
	var text strings.Builder
	fmt.Fprintf(&text, "📝 Review · %d/%d correct\n", st.CorrectCount(), st.NumQuestions())
	for _, item := range st.Review() {
		q := item.Question
		mark := "➖"
		switch {
		case item.Correct:
			mark = "✅"
		case item.Answered:
			mark = "❌"
		}
		fmt.Fprintf(&text, "\n%d. %s %s\n", item.Index+1, mark, q.Text)
		if item.Answered && !item.Correct {
			fmt.Fprintf(&text, "Your answer: %s\n", q.Options[item.Selected])
		} else if !item.Answered {
			text.WriteString("Not answered\n")
		}
		fmt.Fprintf(&text, "Correct answer: %s\n", q.Options[q.CorrectOption])
	}
	return truncate(text.String()), [][]MenuButton{{{Text: "🔁 Restart", CallbackData: "restart"}}}
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxMessageLength {
		return s
	}
	return string(runes[:maxMessageLength-1]) + "…"
}

// sender is the part of the Telegram API the bot talks to
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// chatRenderer keeps a single message per session up to date and records
// finished runs.
type chatRenderer struct {
	api     sender
	chatID  int64
	owner   string
	results ResultStore
	log     *logger.Logger

	mu         sync.Mutex
	messageID  int
	lastText   string
	lastMarkup [][]MenuButton
}

func (r *chatRenderer) Render(ctx context.Context, prev, next quiz.State) {
	if prev.Phase == quiz.PhaseInProgress && next.Phase == quiz.PhaseFinished {
		r.recordResult(ctx, next)
	}

	if !clockDue(prev, next) {
		return
	}

	text, buttons := renderView(next)
	if text == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.messageID != 0 && text == r.lastText && reflect.DeepEqual(buttons, r.lastMarkup) {
		return
	}

	if r.messageID == 0 {
		msg := tgbotapi.NewMessage(r.chatID, text)
		if len(buttons) > 0 {
			msg.ReplyMarkup = createKeyboard(buttons)
		}
		sent, err := r.api.Send(msg)
		if err != nil {
			r.log.Error("failed to send quiz message", "chat_id", r.chatID, "error", err)
			return
		}
		r.messageID = sent.MessageID
	} else {
		var edit tgbotapi.EditMessageTextConfig
		if len(buttons) > 0 {
			edit = tgbotapi.NewEditMessageTextAndMarkup(r.chatID, r.messageID, text, createKeyboard(buttons))
		} else {
			edit = tgbotapi.NewEditMessageText(r.chatID, r.messageID, text)
		}
		if _, err := r.api.Send(edit); err != nil && !isNotModified(err) {
			r.log.Error("failed to edit quiz message", "chat_id", r.chatID, "message_id", r.messageID, "error", err)
			return
		}
	}
	r.lastText = text
	r.lastMarkup = buttons
}

// clockDue reports whether next must be drawn. A change that only moves the
// clock is drawn every clockRedrawEvery seconds and when it turns critical.
func clockDue(prev, next quiz.State) bool {
	if prev.Phase != quiz.PhaseInProgress || next.Phase != quiz.PhaseInProgress ||
		prev.SecondsRemaining == nil || next.SecondsRemaining == nil {
		return true
	}
	if prev.CurrentIndex != next.CurrentIndex || prev.Score != next.Score ||
		!sameSelection(prev.CurrentSelection, next.CurrentSelection) {
		return true
	}
	before, after := *prev.SecondsRemaining, *next.SecondsRemaining
	if before == after {
		return true
	}
	total := next.TotalSeconds()
	if quiz.IsCritical(after, total) && !quiz.IsCritical(before, total) {
		return true
	}
	return after%clockRedrawEvery == 0
}

func sameSelection(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// MessageID returns the message the session is shown in, zero before the first render
func (r *chatRenderer) MessageID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messageID
}

func (r *chatRenderer) recordResult(ctx context.Context, st quiz.State) {
	if r.results == nil {
		return
	}
	duration := st.TotalSeconds()
	if st.SecondsRemaining != nil {
		duration -= *st.SecondsRemaining
	}
	result := &models.QuizResult{
		Owner:          r.owner,
		Score:          st.Score,
		MaxScore:       st.MaxPossiblePoints(),
		CorrectAnswers: st.CorrectCount(),
		TotalQuestions: st.NumQuestions(),
		Difficulty:     st.DifficultyFilter,
		Duration:       duration,
		FinishedAt:     time.Now().UTC(),
	}
	if err := r.results.Create(ctx, result); err != nil {
		r.log.Error("failed to record quiz result", "owner", r.owner, "error", err)
		return
	}
	r.log.Info("quiz finished", "owner", r.owner, "score", result.Score, "max_score", result.MaxScore, "duration", duration)
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
