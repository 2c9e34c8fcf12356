package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/quizbot/internal/bot"
	"github.com/example/quizbot/internal/config"
	"github.com/example/quizbot/internal/database"
	"github.com/example/quizbot/internal/excel"
	"github.com/example/quizbot/internal/logger"
	"github.com/example/quizbot/internal/quiz"
	"github.com/example/quizbot/internal/scheduler"
	"github.com/example/quizbot/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Signal channel for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Connect(cfg.Database); err != nil {
		log.Fatal("failed to connect to database", "driver", cfg.Database.Driver, "error", err)
	}
	defer database.Close()

	questions := database.NewQuestionRepository()
	if cfg.QuestionsImport != "" {
		importConfig := excel.DefaultImportConfig()
		importConfig.FilePath = cfg.QuestionsImport
		result, err := excel.ImportQuestions(ctx, importConfig, questions)
		if err != nil {
			log.Fatal("failed to import questions", "file", cfg.QuestionsImport, "error", err)
		}
		stored, err := questions.Count(ctx)
		if err != nil {
			log.Fatal("failed to count stored questions", "error", err)
		}
		log.Info("questions imported", "file", cfg.QuestionsImport,
			"imported", result.Imported, "skipped", result.Skipped, "stored", stored)
	}

	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	b, err := bot.New(bot.Config{
		Token:               cfg.TelegramToken,
		SessionTTL:          cfg.SessionTTL,
		MaintenanceInterval: cfg.MaintenanceInterval,
	}, bot.Deps{
		Source:  source.New(cfg.QuestionsSource, questions, log),
		Clock:   sched,
		Results: database.NewResultRepository(),
		Scores: func(owner string) quiz.ScoreStore {
			return database.NewScoreRepository(owner)
		},
		Maintain: sched.Maintain,
		Log:      log,
	})
	if err != nil {
		log.Fatal("failed to create bot", "error", err)
	}

	// Channel to wait for the bot to finish
	done := make(chan struct{})

	go func() {
		sig := <-sigChan
		log.Info("received signal", "signal", sig.String())
		cancel()

		// Give sessions time to shut down
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := b.Stop(shutdownCtx); err != nil {
			log.Error("error during shutdown", "error", err)
		}
		close(done)
	}()

	log.Info("bot started, press Ctrl+C to stop", "questions_source", cfg.QuestionsSource)
	go func() {
		if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("bot error", "error", err)
			sigChan <- syscall.SIGTERM
		}
	}()

	<-done
	log.Info("bot stopped successfully")
}
