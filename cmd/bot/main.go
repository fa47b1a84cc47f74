package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"persona-chatter/internal/app"
	"persona-chatter/internal/config"
	"persona-chatter/internal/logging"
	"persona-chatter/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal("❌ TELEGRAM_BOT_TOKEN environment variable is required")
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer a.Close()

	if err := a.Connect(ctx, nil); err != nil {
		logger.Fatal("failed to build chat pipeline", zap.Error(err))
	}
	if err := a.Scheduler.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	logger.Info("🚀 Starting Telegram bot", zap.Bool("daily_report", a.Scheduler.IsRunning()))

	bot, err := telegram.New(cfg.TelegramBotToken, a.Orchestrator, a.History, a.Registry, logger.Named("telegram"))
	if err != nil {
		logger.Fatal("failed to create bot", zap.Error(err))
	}
	bot.Start(ctx)
}
