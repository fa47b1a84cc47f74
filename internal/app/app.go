// Package app wires configuration, storage and the chat pipeline together.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"persona-chatter/internal/config"
	"persona-chatter/internal/conversation"
	"persona-chatter/internal/history"
	"persona-chatter/internal/intent"
	"persona-chatter/internal/llm"
	"persona-chatter/internal/orchestrator"
	"persona-chatter/internal/persona"
	"persona-chatter/internal/scheduler"
	"persona-chatter/internal/storage"
	"persona-chatter/internal/threads"
	"persona-chatter/internal/tools"
)

type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     storage.Store
	Registry  *persona.Registry
	Directory *threads.Directory
	History   *history.Projector
	Toolbox   *tools.Toolbox
	Recorder  storage.Recorder

	// Set by Connect.
	LLM          llm.Client
	Orchestrator *orchestrator.Orchestrator
	Scheduler    *scheduler.Scheduler
}

// Open loads the persistent state. It needs no model credentials.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, Store: store}

	a.Registry = persona.NewRegistry(store, cfg.PersonasSeedPath, logger.Named("persona"))
	if err := a.Registry.Load(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load personas: %w", err)
	}
	a.Directory = threads.NewDirectory(store, threads.WithLogger(logger.Named("threads")))
	a.History = history.NewProjector(a.Directory, store, a.Registry)
	a.Toolbox = tools.NewToolbox(store, logger.Named("tools"))

	if cfg.LogFilePath != "" {
		rec, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			logger.Warn("⚠️ Turn log disabled", zap.Error(err))
		} else {
			a.Recorder = rec
		}
	}
	logger.Info("💾 Storage ready", zap.String("db", cfg.DBPath), zap.Strings("personas", a.Registry.Names()))
	return a, nil
}

// Connect builds the chat pipeline. A nil client is created from the
// configured provider.
func (a *App) Connect(ctx context.Context, client llm.Client) error {
	if client == nil {
		c, err := llm.NewFactory(a.Config).CreateClient(ctx, string(a.Config.LLMProvider), "")
		if err != nil {
			return fmt.Errorf("failed to create llm client: %w", err)
		}
		client = c
	}
	a.LLM = client

	classifier, err := intent.New(a.Config.ClassifierMode, client, a.Logger.Named("intent"))
	if err != nil {
		return err
	}
	if a.Config.LLMTimeout > 0 && a.Config.LLMTimeout < intent.DefaultTimeout {
		classifier.WithTimeout(a.Config.LLMTimeout)
	}

	opts := []conversation.Option{
		conversation.WithWindow(a.Config.HistoryWindow),
		conversation.WithTimeout(a.Config.LLMTimeout),
		conversation.WithLogger(a.Logger.Named("conversation")),
	}
	if a.Config.ToolsEnabled {
		opts = append(opts, conversation.WithTools(a.Toolbox))
	}
	if a.Recorder != nil {
		opts = append(opts, conversation.WithRecorder(a.Recorder))
	}
	engine := conversation.NewEngine(client, a.Store, opts...)

	a.Orchestrator = orchestrator.New(a.Registry, classifier, a.Directory, engine,
		persona.NewPromptWriter(client, a.Logger.Named("persona"), persona.WithPromptTimeout(a.Config.LLMTimeout)),
		a.Logger.Named("orchestrator"))

	a.Scheduler = scheduler.New(a.Config.ReportCron, a.Logger.Named("scheduler"))
	if a.Recorder != nil {
		a.Scheduler.SetReportFunction(scheduler.DailyReport(a.Recorder, a.Logger.Named("report"), time.Now))
	}
	a.Logger.Info("🔌 Chat pipeline ready",
		zap.String("provider", string(a.Config.LLMProvider)),
		zap.String("classifier", string(classifier.Mode())),
		zap.Bool("tools", a.Config.ToolsEnabled))
	return nil
}

func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	return a.Store.Close()
}
