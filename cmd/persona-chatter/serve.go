package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"persona-chatter/internal/httpapi"
	"persona-chatter/internal/telegram"
)

var (
	serveAddr    string
	withTelegram bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP chat API",
	Long: `Run the HTTP chat API (POST /chat, GET /chat_history, GET /personas).
With --telegram the Telegram bot shares the same process and database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer closeApp(a)

		if err := a.Connect(ctx, nil); err != nil {
			return err
		}
		if err := a.Scheduler.Start(); err != nil {
			return err
		}
		a.Logger.Info("🚀 Serving", zap.Bool("daily_report", a.Scheduler.IsRunning()), zap.Bool("telegram", withTelegram))

		addr := a.Config.HTTPAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := httpapi.NewServer(addr, a.Orchestrator, a.History, a.Registry, a.Logger.Named("http"))

		g, gctx := errgroup.WithContext(ctx)
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			return srv.Stop()
		})
		if withTelegram {
			bot, err := telegram.New(a.Config.TelegramBotToken, a.Orchestrator, a.History, a.Registry, a.Logger.Named("telegram"))
			if err != nil {
				return err
			}
			g.Go(func() error {
				bot.Start(gctx)
				return nil
			})
		}

		err = g.Wait()
		a.Logger.Info("👋 Shutting down", zap.Error(err))
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "override HTTP_ADDR")
	serveCmd.Flags().BoolVar(&withTelegram, "telegram", false, "also run the Telegram bot (needs TELEGRAM_BOT_TOKEN)")
}
