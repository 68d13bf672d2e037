// Package poller long-polls the messaging platform and dispatches each
// inbound text message to a handler, one at a time.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/vocabot/internal/metrics"
)

// Update is one inbound platform item.
type Update struct {
	ID     int
	ChatID int64
	Text   string
}

// Fetcher retrieves updates with an identifier of at least offset.
// An offset of zero means the platform's default starting point.
type Fetcher interface {
	FetchUpdates(ctx context.Context, offset int, timeout time.Duration) ([]Update, error)
}

// Handler consumes one text message.
type Handler interface {
	Handle(ctx context.Context, chatID int64, text string)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, chatID int64, text string)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, chatID int64, text string) {
	f(ctx, chatID, text)
}

// Config tunes the poll loop.
type Config struct {
	Timeout      time.Duration
	IdleInterval time.Duration
	ErrorBackoff time.Duration
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// DefaultConfig returns the platform-friendly defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:      100 * time.Second,
		IdleInterval: 2 * time.Second,
		ErrorBackoff: 5 * time.Second,
	}
}

// Poller owns the update cursor. The cursor lives in memory only.
type Poller struct {
	fetcher Fetcher
	handler Handler
	cfg     Config
	logger  *slog.Logger

	mu          sync.Mutex
	cursor      int
	hasCursor   bool
	lastSuccess time.Time
}

// New creates a poller. Zero durations in cfg fall back to DefaultConfig.
func New(fetcher Fetcher, handler Handler, cfg Config) *Poller {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = def.IdleInterval
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = def.ErrorBackoff
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		fetcher: fetcher,
		handler: handler,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run polls until ctx is canceled. Fetch errors are logged and retried after
// the error backoff; an empty batch waits the idle interval.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Poller started",
		"timeout", p.cfg.Timeout,
		"idle_interval", p.cfg.IdleInterval,
		"error_backoff", p.cfg.ErrorBackoff)

	for {
		n, err := p.PollOnce(ctx)
		if ctx.Err() != nil {
			p.logger.Info("Poller shutting down", "reason", ctx.Err())
			return nil
		}

		var wait time.Duration
		switch {
		case err != nil:
			p.logger.Error("Failed to fetch updates", "error", err, "backoff", p.cfg.ErrorBackoff)
			wait = p.cfg.ErrorBackoff
		case n == 0:
			wait = p.cfg.IdleInterval
		}

		if wait > 0 && !sleep(ctx, wait) {
			p.logger.Info("Poller shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

// PollOnce performs one fetch and dispatches the batch in arrival order.
// The cursor moves past each update before it is dispatched.
// It returns the number of updates fetched.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	offset, _ := p.Cursor()

	updates, err := p.fetcher.FetchUpdates(ctx, offset, p.cfg.Timeout)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return 0, nil
		}
		return 0, err
	}

	p.mu.Lock()
	p.lastSuccess = time.Now()
	p.mu.Unlock()

	for _, u := range updates {
		p.advance(u.ID + 1)
		p.cfg.Metrics.UpdateReceived()

		if u.Text == "" {
			p.logger.Debug("Skipping non-text update", "update_id", u.ID, "chat_id", u.ChatID)
			continue
		}
		p.handler.Handle(ctx, u.ChatID, u.Text)
	}
	return len(updates), nil
}

// Cursor returns the next offset to request and whether one has been set.
func (p *Poller) Cursor() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor, p.hasCursor
}

// LastSuccess returns the time of the last successful fetch.
func (p *Poller) LastSuccess() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSuccess
}

func (p *Poller) advance(next int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasCursor || next > p.cursor {
		p.cursor = next
		p.hasCursor = true
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
