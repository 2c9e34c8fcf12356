package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/quizbot/internal/quiz"
	"github.com/example/quizbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message == nil || message.Chat == nil {
		return fmt.Errorf("invalid message: required fields are missing")
	}

	switch message.Command() {
	case "start":
		return b.handleStart(message.Chat.ID)
	case "help":
		return b.handleHelp(message.Chat.ID)
	case "quiz":
		b.startSession(message.Chat.ID)
		return nil
	case "stats":
		return b.handleStats(ctx, message.Chat.ID)
	default:
		return b.sendMessage(b.withMainMenu(tgbotapi.NewMessage(message.Chat.ID,
			"Unknown command. Use /help to see what I can do.")))
	}
}

func (b *Bot) handleStart(chatID int64) error {
	text := "👋 Welcome to the Quiz Bot!\n\n" +
		"Answer multiple-choice questions against the clock and try to beat your best score.\n\n" +
		"Press \"New quiz\" or send /quiz to begin."
	return b.sendMessage(b.withMainMenu(tgbotapi.NewMessage(chatID, text)))
}

func (b *Bot) handleHelp(chatID int64) error {
	text := "📖 How to use the bot\n\n" +
		"/quiz - Start a new quiz\n" +
		"/stats - Show your results\n" +
		"/help - Show this help\n\n" +
		fmt.Sprintf("Every question gives you %d seconds on the clock. ", quiz.SecondsPerQuestion) +
		"Pick a difficulty before starting, answer each question and press Finish on the last one. " +
		"When time runs out the quiz ends with the answers you have given."
	return b.sendMessage(b.withMainMenu(tgbotapi.NewMessage(chatID, text)))
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) error {
	if b.deps.Results == nil {
		return b.sendMessage(b.withMainMenu(tgbotapi.NewMessage(chatID, "Statistics are not available.")))
	}
	owner := strconv.FormatInt(chatID, 10)

	stats, err := b.deps.Results.GetStats(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	if stats.TotalQuizzes == 0 {
		return b.sendMessage(b.withMainMenu(tgbotapi.NewMessage(chatID,
			"📊 You have not finished any quiz yet. Send /quiz to start one.")))
	}
	recent, err := b.deps.Results.GetByOwner(ctx, owner, b.config.RecentResults)
	if err != nil {
		return fmt.Errorf("failed to get recent results: %w", err)
	}
	return b.sendMessage(b.withMainMenu(tgbotapi.NewMessage(chatID, formatStats(stats.TotalQuizzes,
		stats.BestScore, stats.AverageScore, stats.AveragePct, recent))))
}

func formatStats(total, best int, avgScore, avgPct float64, recent []models.QuizResult) string {
	var text strings.Builder
	text.WriteString("📊 Your statistics\n\n")
	fmt.Fprintf(&text, "Quizzes finished: %d\n", total)
	fmt.Fprintf(&text, "🏆 Best score: %d\n", best)
	fmt.Fprintf(&text, "Average score: %.1f (%.0f%%)\n", avgScore, avgPct)
	if len(recent) > 0 {
		text.WriteString("\nRecent runs:\n")
		for _, r := range recent {
			fmt.Fprintf(&text, "• %s: %d/%d, %d/%d correct, %s, %s\n",
				r.FinishedAt.Format("02 Jan 15:04"), r.Score, r.MaxScore, r.CorrectAnswers, r.TotalQuestions,
				difficultyLabels[r.Difficulty], quiz.FormatClock(r.Duration))
		}
	}
	return text.String()
}

// parseCallback maps button data to a quiz action
func parseCallback(data string) (quiz.Action, bool) {
	switch data {
	case "start":
		return quiz.Start{}, true
	case "next":
		return quiz.NextQuestion{}, true
	case "prev":
		return quiz.PreviousQuestion{}, true
	case "exit":
		return quiz.ExitQuiz{}, true
	case "finish":
		return quiz.Finish{}, true
	case "restart":
		return quiz.Restart{}, true
	case "review":
		return quiz.ShowReview{}, true
	case "retry":
		return quiz.Reload{}, true
	}

	switch {
	case strings.HasPrefix(data, "diff:"):
		if d, ok := models.ParseDifficulty(strings.TrimPrefix(data, "diff:")); ok {
			return quiz.SetDifficulty{Difficulty: d}, true
		}
	case strings.HasPrefix(data, "ans:"):
		if option, err := strconv.Atoi(strings.TrimPrefix(data, "ans:")); err == nil {
			return quiz.NewAnswer{Option: option}, true
		}
	}
	return nil, false
}

// HandleCallback handles inline button presses
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback == nil || callback.Message == nil || callback.Message.Chat == nil {
		return fmt.Errorf("invalid callback data: required fields are missing")
	}
	chatID := callback.Message.Chat.ID

	notice := ""
	var err error
	switch callback.Data {
	case "quiz":
		b.startSession(chatID)
	case "stats":
		err = b.handleStats(ctx, chatID)
	case "help":
		err = b.handleHelp(chatID)
	case "noop":
	default:
		notice = b.dispatchCallback(chatID, callback)
	}

	// Always answer the callback query to remove the loading state
	if _, answerErr := b.api.Request(tgbotapi.NewCallback(callback.ID, notice)); answerErr != nil {
		b.log.Warn("failed to answer callback", "error", answerErr)
	}
	return err
}

// dispatchCallback forwards a quiz button to the chat's session. It returns a
// notice for the user when the button can no longer be used.
func (b *Bot) dispatchCallback(chatID int64, callback *tgbotapi.CallbackQuery) string {
	action, ok := parseCallback(callback.Data)
	if !ok {
		b.log.Warn("unknown callback data", "chat_id", chatID, "data", callback.Data)
		return "Unknown action"
	}
	cs, ok := b.activeSession(chatID)
	if !ok || cs.renderer.MessageID() != callback.Message.MessageID {
		return "This quiz has expired. Send /quiz to start a new one."
	}
	if !cs.session.Dispatch(action) {
		return "This quiz has expired. Send /quiz to start a new one."
	}
	return ""
}
