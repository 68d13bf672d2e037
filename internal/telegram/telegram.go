// Package telegram adapts the Telegram Bot API to the poller and session
// engine interfaces.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ashureev/vocabot/internal/poller"
)

// ErrEmptyMessage is returned when asked to send blank text.
var ErrEmptyMessage = errors.New("telegram: refusing to send empty message")

const (
	sendTimeout = 30 * time.Second
	pollGrace   = 15 * time.Second
)

// Config configures the bot client.
type Config struct {
	Token      string
	Endpoint   string // format string with token and method verbs; defaults to the public API
	HTTPClient *http.Client
	Debug      bool
}

// Bot is a context-aware wrapper over tgbotapi.
type Bot struct {
	api    *tgbotapi.BotAPI
	client *http.Client
	logger *slog.Logger
}

// contextClient binds outgoing requests to ctx, since tgbotapi builds its
// requests without one.
type contextClient struct {
	ctx    context.Context
	client *http.Client
}

func (c contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

// New authenticates against the platform with getMe and returns a ready bot.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Token == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.Endpoint, contextClient{ctx: ctx, client: cfg.HTTPClient})
	if err != nil {
		return nil, fmt.Errorf("telegram: authenticate: %w", err)
	}
	api.Debug = cfg.Debug

	logger.Info("Authorized on Telegram", "username", api.Self.UserName)
	return &Bot{api: api, client: cfg.HTTPClient, logger: logger}, nil
}

// Username returns the bot account name.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// scoped returns a shallow copy of the API client whose requests carry ctx.
func (b *Bot) scoped(ctx context.Context) *tgbotapi.BotAPI {
	api := *b.api
	api.Client = contextClient{ctx: ctx, client: b.client}
	return &api
}

// FetchUpdates long-polls for updates with id >= offset.
func (b *Bot) FetchUpdates(ctx context.Context, offset int, timeout time.Duration) ([]poller.Update, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+pollGrace)
	defer cancel()

	cfg := tgbotapi.NewUpdate(offset)
	cfg.Timeout = int(timeout / time.Second)
	cfg.AllowedUpdates = []string{"message"}

	raw, err := b.scoped(ctx).GetUpdates(cfg)
	if err != nil {
		return nil, fmt.Errorf("telegram: getUpdates: %w", err)
	}

	updates := make([]poller.Update, 0, len(raw))
	for _, u := range raw {
		out := poller.Update{ID: u.UpdateID}
		if u.Message != nil {
			out.Text = u.Message.Text
			if u.Message.Chat != nil {
				out.ChatID = u.Message.Chat.ID
			}
		}
		updates = append(updates, out)
	}
	return updates, nil
}

// Send delivers text to chatID with Markdown formatting.
func (b *Bot) Send(ctx context.Context, chatID int64, text string) error {
	if strings.TrimSpace(text) == "" {
		b.logger.Warn("Refusing to send empty message", "chat_id", chatID)
		return ErrEmptyMessage
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := b.scoped(ctx).Send(msg); err != nil {
		return fmt.Errorf("telegram: sendMessage to %d: %w", chatID, err)
	}
	b.logger.Debug("Message sent", "chat_id", chatID, "chars", len(text))
	return nil
}
