// Command persona-chatter serves the persona chat API and manages its state.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"persona-chatter/internal/app"
	"persona-chatter/internal/config"
	"persona-chatter/internal/logging"
)

var (
	envFile  string
	logLevel string
	dbPath   string
)

var rootCmd = &cobra.Command{
	Use:           "persona-chatter",
	Short:         "Persona-routing chat service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "override DB_PATH")

	rootCmd.AddCommand(serveCmd, personasCmd, historyCmd, reportCmd)
}

// setup loads the environment, builds the logger and opens the storage layer.
func setup(ctx context.Context) (*app.App, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("Warning: .env file not found: %v", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		a.Logger.Warn("⚠️ Failed to close storage", zap.Error(err))
	}
	_ = a.Logger.Sync()
}
