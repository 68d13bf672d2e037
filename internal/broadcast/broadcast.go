// Package broadcast sends the daily invitation and re-arms idle sessions.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/vocabot/internal/metrics"
	"github.com/ashureev/vocabot/internal/session"
)

// IdleResetter clears readiness on sessions that are not mid-cycle.
type IdleResetter interface {
	ResetIdle() int
}

// Broadcaster invites the configured audience to a new drill.
type Broadcaster struct {
	sessions IdleResetter
	sender   session.Sender
	chatID   int64
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a broadcaster targeting chatID. m may be nil.
func New(sessions IdleResetter, sender session.Sender, chatID int64, m *metrics.Metrics, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		sessions: sessions,
		sender:   sender,
		chatID:   chatID,
		metrics:  m,
		logger:   logger,
	}
}

// Run resets idle sessions and sends one invitation. A send failure is
// logged and returned; sessions stay reset either way.
func (b *Broadcaster) Run(ctx context.Context) error {
	reset := b.sessions.ResetIdle()
	b.logger.Info("Daily broadcast triggered", "chat_id", b.chatID, "sessions_reset", reset)

	err := b.sender.Send(ctx, b.chatID, session.InvitationMessage)
	b.metrics.Broadcast(err)
	if err != nil {
		b.logger.Error("Failed to send daily invitation", "chat_id", b.chatID, "error", err)
		return fmt.Errorf("broadcast to %d: %w", b.chatID, err)
	}
	b.logger.Info("Daily invitation sent", "chat_id", b.chatID)
	return nil
}
