package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/vocabot/internal/domain"
	"github.com/ashureev/vocabot/internal/metrics"
	"github.com/ashureev/vocabot/internal/vocab"
)

const statsRecent = 5

// Sender delivers a text message to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Acquirer produces vocabulary batches.
type Acquirer interface {
	Acquire(ctx context.Context, opts vocab.Options) (string, error)
}

// History is the read and clear surface of the word history.
type History interface {
	Stats(n int) (int, []domain.HistoryEntry)
	Clear(ctx context.Context)
}

// EngineConfig holds optional engine dependencies.
type EngineConfig struct {
	Acquire  vocab.Options // zero value means vocab.DefaultOptions
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Location *time.Location // stats timestamps; defaults to time.Local
}

// Engine applies the per-user command state machine.
type Engine struct {
	store    *Store
	sender   Sender
	acquirer Acquirer
	history  History
	opts     vocab.Options
	metrics  *metrics.Metrics
	logger   *slog.Logger
	loc      *time.Location
}

// NewEngine wires an engine over its collaborators.
func NewEngine(store *Store, sender Sender, acquirer Acquirer, history History, cfg EngineConfig) *Engine {
	e := &Engine{
		store:    store,
		sender:   sender,
		acquirer: acquirer,
		history:  history,
		opts:     cfg.Acquire,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		loc:      cfg.Location,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	if e.opts == (vocab.Options{}) {
		e.opts = vocab.DefaultOptions()
	}
	return e
}

type action int

const (
	actNone action = iota
	actStartDrill
	actNudge
	actHelp
	actReset
	actNewWords
	actStats
	actClear
	actEcho
)

// Handle processes one inbound text message from chatID.
//
// The transition is applied under the store lock; sends and acquisition run
// afterwards so the lock is never held across a network call.
func (e *Engine) Handle(ctx context.Context, chatID int64, text string) {
	userID := strconv.FormatInt(chatID, 10)
	input := Normalize(text)
	cmd := Classify(input)

	var act action
	sess := e.store.Update(userID, func(s *domain.Session) {
		s.Touch(e.store.now())
		act = transition(s, cmd)
	})

	e.logger.Info("Processing message",
		"chat_id", chatID,
		"input", input,
		"state", sess.State().String(),
		"action", act.String())

	switch act {
	case actStartDrill:
		e.send(ctx, chatID, msgGreeting)
		e.deliverVocabulary(ctx, chatID, formatDaily, msgDailyFallback)
	case actNudge:
		e.send(ctx, chatID, msgNudge)
	case actHelp:
		e.send(ctx, chatID, msgHelp)
	case actReset:
		e.send(ctx, chatID, msgReset)
	case actNewWords:
		e.send(ctx, chatID, msgSearching)
		e.deliverVocabulary(ctx, chatID, formatNew, msgNewFallback)
	case actStats:
		total, recent := e.history.Stats(statsRecent)
		e.send(ctx, chatID, formatStats(total, recent, e.loc))
	case actClear:
		e.history.Clear(ctx)
		e.send(ctx, chatID, msgCleared)
	case actEcho:
		e.send(ctx, chatID, formatEcho(strings.TrimSpace(text)))
	}
}

// transition mutates s for cmd and returns the side effect to perform.
func transition(s *domain.Session, cmd Command) action {
	if s.State() == domain.StateAwaitingReady {
		switch {
		case cmd == CmdReady:
			s.Activate()
			return actStartDrill
		case !s.ReminderSent:
			s.ReminderSent = true
			return actNudge
		default:
			return actNone
		}
	}

	switch cmd {
	case CmdHelp:
		return actHelp
	case CmdReset:
		s.Reset()
		return actReset
	case CmdNew:
		return actNewWords
	case CmdStats:
		return actStats
	case CmdClear:
		return actClear
	default:
		return actEcho
	}
}

func (e *Engine) deliverVocabulary(ctx context.Context, chatID int64, frame func(string) string, fallback string) {
	words, err := e.acquirer.Acquire(ctx, e.opts)
	if err != nil || strings.TrimSpace(words) == "" {
		e.logger.Warn("Vocabulary unavailable, sending fallback",
			"chat_id", chatID,
			"network", errors.Is(err, vocab.ErrNetwork),
			"error", err)
		e.send(ctx, chatID, fallback)
		return
	}
	e.send(ctx, chatID, frame(words))
}

func (e *Engine) send(ctx context.Context, chatID int64, text string) {
	err := e.sender.Send(ctx, chatID, text)
	e.metrics.MessageSent(err)
	if err != nil {
		e.logger.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (a action) String() string {
	switch a {
	case actNone:
		return "none"
	case actStartDrill:
		return "start_drill"
	case actNudge:
		return "nudge"
	case actHelp:
		return "help"
	case actReset:
		return "reset"
	case actNewWords:
		return "new_words"
	case actStats:
		return "stats"
	case actClear:
		return "clear"
	case actEcho:
		return "echo"
	default:
		return "unknown"
	}
}
