package telegram

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"persona-chatter/internal/history"
	"persona-chatter/internal/orchestrator"
)

type Chatter interface {
	Chat(ctx context.Context, userID, message string) (orchestrator.Reply, error)
}

type HistoryReader interface {
	History(ctx context.Context, userID string) (map[string][]history.Entry, error)
}

type PersonaLister interface {
	Refresh(ctx context.Context) error
	Names() []string
}

const (
	cmdStart    = "start"
	cmdPersonas = "personas"
	cmdHistory  = "history"
)

// Bot routes every Telegram message through the chat orchestrator as user
// "tg:<telegram id>".
type Bot struct {
	api      *tgbotapi.BotAPI
	s        sender
	chat     Chatter
	history  HistoryReader
	personas PersonaLister
	logger   *zap.Logger
}

func New(botToken string, chat Chatter, hist HistoryReader, personas PersonaLister, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:      api,
		s:        botAPISender{api: api},
		chat:     chat,
		history:  hist,
		personas: personas,
		logger:   logger,
	}, nil
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("🤖 Telegram bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.handleIncomingMessage(ctx, update.Message)
			}
		}
	}
}

func userID(from *tgbotapi.User) string {
	return "tg:" + strconv.FormatInt(from.ID, 10)
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	uid := userID(msg.From)

	if msg.IsCommand() {
		switch msg.Command() {
		case cmdStart:
			b.sendMessage(msg.Chat.ID, "Hi! I can be your mentor, an investor or anyone you ask for. Try \"act like my mentor\".")
			return
		case cmdPersonas:
			if err := b.personas.Refresh(ctx); err != nil {
				b.logger.Warn("⚠️ Persona refresh failed, listing cached names", zap.Error(err))
			}
			b.sendMessage(msg.Chat.ID, "Personas: "+strings.Join(b.personas.Names(), ", "))
			return
		case cmdHistory:
			b.sendHistory(ctx, msg.Chat.ID, uid)
			return
		}
	}

	b.logger.Info("📨 Incoming message", zap.String("user_id", uid), zap.String("username", msg.From.UserName))
	reply, err := b.chat.Chat(ctx, uid, msg.Text)
	if err != nil {
		b.logger.Error("❌ Chat failed", zap.String("user_id", uid), zap.Error(err))
		b.sendMessage(msg.Chat.ID, "Sorry, something went wrong.")
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("[%s]\n\n%s", reply.Persona, reply.Response))
}

func (b *Bot) sendHistory(ctx context.Context, chatID int64, uid string) {
	h, err := b.history.History(ctx, uid)
	if err != nil {
		b.logger.Error("❌ History failed", zap.String("user_id", uid), zap.Error(err))
		b.sendMessage(chatID, "Sorry, something went wrong.")
		return
	}
	if len(h) == 0 {
		b.sendMessage(chatID, "No conversations yet.")
		return
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	sb.WriteString("Your conversations:")
	for _, name := range names {
		fmt.Fprintf(&sb, "\n- %s: %d messages", name, len(h[name]))
	}
	b.sendMessage(chatID, sb.String())
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		b.logger.Warn("⚠️ Failed to send message", zap.Error(err))
	}
}
