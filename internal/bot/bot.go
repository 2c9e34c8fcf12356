package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/example/quizbot/internal/database"
	"github.com/example/quizbot/internal/logger"
	"github.com/example/quizbot/internal/quiz"
	"github.com/example/quizbot/internal/session"
	"github.com/example/quizbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// ResultStore keeps the history of finished runs
type ResultStore interface {
	Create(ctx context.Context, result *models.QuizResult) error
	GetByOwner(ctx context.Context, owner string, limit int) ([]models.QuizResult, error)
	GetStats(ctx context.Context, owner string) (*database.ResultStats, error)
}

// Deps are the collaborators every chat session is built from
type Deps struct {
	Source  session.Source
	Clock   session.Clock
	Results ResultStore
	// Scores returns the best score store of one chat
	Scores func(owner string) quiz.ScoreStore
	// Maintain registers a periodic housekeeping job
	Maintain func(name string, interval time.Duration, fn func()) error
	Log      *logger.Logger
}

// chatSession is a running quiz bound to one chat
type chatSession struct {
	session    *session.Session
	renderer   *chatRenderer
	cancel     context.CancelFunc
	lastActive time.Time // guarded by Bot.mu
}

// Bot represents the Telegram bot application
type Bot struct {
	config Config
	deps   Deps
	log    *logger.Logger

	botAPI *tgbotapi.BotAPI
	api    sender

	baseCtx  context.Context
	mu       sync.Mutex
	sessions map[int64]*chatSession
}

// New creates a new bot instance. The Telegram connection is made by Start.
func New(config Config, deps Deps) (*Bot, error) {
	if config.Token == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	if deps.Source == nil || deps.Clock == nil || deps.Scores == nil {
		return nil, errors.New("bot dependencies are incomplete")
	}
	defaults := DefaultConfig()
	if config.SessionTTL <= 0 {
		config.SessionTTL = defaults.SessionTTL
	}
	if config.MaintenanceInterval <= 0 {
		config.MaintenanceInterval = defaults.MaintenanceInterval
	}
	if config.RecentResults <= 0 {
		config.RecentResults = defaults.RecentResults
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Bot{
		config:   config,
		deps:     deps,
		log:      log,
		baseCtx:  context.Background(),
		sessions: make(map[int64]*chatSession),
	}, nil
}

// Start connects to Telegram and handles updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	botAPI, err := tgbotapi.NewBotAPI(b.config.Token)
	if err != nil {
		return fmt.Errorf("unable to create bot: %w", err)
	}
	b.botAPI = botAPI
	b.api = botAPI
	b.baseCtx = ctx
	b.log.Info("authorized on account", "username", botAPI.Self.UserName)

	if b.deps.Maintain != nil {
		if err := b.deps.Maintain("evict-idle-sessions", b.config.MaintenanceInterval, b.evictIdle); err != nil {
			return err
		}
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := botAPI.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// Stop closes every session and stops receiving updates
func (b *Bot) Stop(ctx context.Context) error {
	if b.botAPI != nil {
		b.botAPI.StopReceivingUpdates()
	}

	b.mu.Lock()
	sessions := make([]*chatSession, 0, len(b.sessions))
	for chatID, cs := range b.sessions {
		cs.cancel()
		sessions = append(sessions, cs)
		delete(b.sessions, chatID)
	}
	b.mu.Unlock()

	for _, cs := range sessions {
		select {
		case <-cs.session.Done():
		case <-ctx.Done():
			return fmt.Errorf("sessions did not stop in time: %w", ctx.Err())
		}
	}
	b.log.Info("bot stopped", "sessions_closed", len(sessions))
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.IsCommand():
		err = b.HandleCommand(ctx, update.Message)
	case update.Message != nil:
		err = b.sendMessage(b.withMainMenu(tgbotapi.NewMessage(update.Message.Chat.ID,
			"I don't understand. Use /quiz to start a new quiz.")))
	case update.CallbackQuery != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		b.log.Error("failed to handle update", "update_id", update.UpdateID, "error", err)
	}
}

// startSession replaces the quiz of a chat with a fresh one
func (b *Bot) startSession(chatID int64) *chatSession {
	owner := strconv.FormatInt(chatID, 10)
	log := b.log.With("chat_id", chatID)

	renderer := &chatRenderer{
		api:     b.api,
		chatID:  chatID,
		owner:   owner,
		results: b.deps.Results,
		log:     log,
	}
	machine := quiz.NewMachine(b.deps.Scores(owner), log)
	ctx, cancel := context.WithCancel(b.baseCtx)
	cs := &chatSession{
		session:    session.New(machine, b.deps.Source, b.deps.Clock, renderer, log),
		renderer:   renderer,
		cancel:     cancel,
		lastActive: time.Now(),
	}

	b.mu.Lock()
	old := b.sessions[chatID]
	b.sessions[chatID] = cs
	b.mu.Unlock()
	if old != nil {
		old.cancel()
	}

	go func() {
		if err := cs.session.Run(ctx); err != nil {
			log.Error("quiz session failed", "error", err)
		}
	}()
	log.Debug("quiz session started")
	return cs
}

// activeSession returns the session of a chat and marks it as used
func (b *Bot) activeSession(chatID int64) (*chatSession, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cs, ok := b.sessions[chatID]
	if ok {
		cs.lastActive = time.Now()
	}
	return cs, ok
}

// evictIdle closes sessions nobody has touched within the TTL
func (b *Bot) evictIdle() {
	cutoff := time.Now().Add(-b.config.SessionTTL)

	b.mu.Lock()
	var evicted int
	for chatID, cs := range b.sessions {
		if cs.lastActive.Before(cutoff) {
			cs.cancel()
			delete(b.sessions, chatID)
			evicted++
		}
	}
	remaining := len(b.sessions)
	b.mu.Unlock()

	if evicted > 0 {
		b.log.Info("evicted idle quiz sessions", "evicted", evicted, "remaining", remaining)
	}
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) withMainMenu(msg tgbotapi.MessageConfig) tgbotapi.MessageConfig {
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	return msg
}

// MainMenuButtons returns the buttons of the main menu
func (b *Bot) MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{{Text: "🧠 New quiz", CallbackData: "quiz"}},
		{{Text: "📊 Statistics", CallbackData: "stats"}, {Text: "❓ Help", CallbackData: "help"}},
	}
}
