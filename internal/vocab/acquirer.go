// Package vocab obtains fresh vocabulary batches from the generative API
// while steering away from words issued before.
package vocab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/vocabot/internal/agent"
	"github.com/ashureev/vocabot/internal/metrics"
)

var (
	// ErrNetwork is returned when the final attempt failed to reach the API.
	ErrNetwork = errors.New("vocabulary acquisition failed: network error")

	// ErrRetriesExhausted is returned when every attempt produced an unusable response.
	ErrRetriesExhausted = errors.New("vocabulary acquisition failed: retries exhausted")
)

// Ledger is the subset of the word history the acquirer needs.
type Ledger interface {
	Overlap(words []string) []string
	RecentWords(n int) []string
	Record(ctx context.Context, words []string, attempt int, at time.Time)
}

// Options tunes a single acquisition.
type Options struct {
	AvoidRepetition bool
	MaxAttempts     int
}

// DefaultOptions avoids repetition with three attempts.
func DefaultOptions() Options {
	return Options{AvoidRepetition: true, MaxAttempts: 3}
}

// Config holds optional acquirer dependencies.
type Config struct {
	Language   string
	RetryDelay time.Duration // pause after a network failure before the next attempt
	Extractor  *Extractor
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	Now        func() time.Time
}

// Acquirer fetches vocabulary batches and records accepted words.
type Acquirer struct {
	generator  agent.Generator
	ledger     Ledger
	extractor  *Extractor
	language   string
	retryDelay time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewAcquirer creates an acquirer over generator and ledger.
func NewAcquirer(generator agent.Generator, ledger Ledger, cfg Config) *Acquirer {
	a := &Acquirer{
		generator:  generator,
		ledger:     ledger,
		extractor:  cfg.Extractor,
		language:   cfg.Language,
		retryDelay: cfg.RetryDelay,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
	if a.extractor == nil {
		a.extractor = NewExtractor()
	}
	if a.language == "" {
		a.language = DefaultLanguage
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Acquire requests a batch of vocabulary and returns the raw model text.
//
// With AvoidRepetition, a response that repeats a used word is retried until
// the final attempt, which is accepted regardless. Accepted words are recorded
// in the ledger. Without AvoidRepetition the ledger is neither read nor written.
// Failures wrap ErrNetwork or ErrRetriesExhausted depending on how the last
// attempt failed.
func (a *Acquirer) Acquire(ctx context.Context, opts Options) (string, error) {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultOptions().MaxAttempts
	}

	var exclude []string
	if opts.AvoidRepetition {
		exclude = a.ledger.RecentWords(maxExcludeWords)
	}
	messages := buildMessages(a.language, exclude)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			a.metrics.Acquisition("network")
			return "", fmt.Errorf("%w: %w", ErrNetwork, err)
		}

		content, err := a.generator.Complete(ctx, agent.CompletionRequest{
			Messages:    messages,
			MaxTokens:   maxTokens,
			Temperature: temperatureFor(attempt),
		})
		if err != nil {
			lastErr = err
			if errors.Is(err, agent.ErrMalformedResponse) {
				a.metrics.AcquisitionAttempt("malformed")
				a.logger.Warn("Unusable vocabulary response", "attempt", attempt, "error", err)
				continue
			}
			a.metrics.AcquisitionAttempt("network")
			a.logger.Warn("Vocabulary request failed", "attempt", attempt, "error", err)
			if attempt < maxAttempts {
				a.sleep(ctx)
			}
			continue
		}

		content = strings.TrimSpace(content)
		if !opts.AvoidRepetition {
			a.metrics.AcquisitionAttempt("accepted")
			a.metrics.Acquisition("ok")
			return content, nil
		}

		words := a.extractor.Extract(content)
		repeated := a.ledger.Overlap(words)
		if len(repeated) > 0 && attempt < maxAttempts {
			a.metrics.AcquisitionAttempt("collision")
			a.logger.Warn("Repeated words in vocabulary response, retrying",
				"attempt", attempt,
				"repeated", repeated)
			lastErr = nil
			continue
		}

		a.ledger.Record(ctx, words, attempt, a.now())
		a.metrics.AcquisitionAttempt("accepted")
		a.metrics.Acquisition("ok")
		a.logger.Info("Generated vocabulary words",
			"attempt", attempt,
			"new_words", len(words))
		if len(repeated) > 0 {
			a.logger.Info("Accepted response with repeated words", "repeated", repeated)
		}
		return content, nil
	}

	if lastErr != nil && !errors.Is(lastErr, agent.ErrMalformedResponse) {
		a.metrics.Acquisition("network")
		return "", fmt.Errorf("%w after %d attempts: %w", ErrNetwork, maxAttempts, lastErr)
	}
	a.metrics.Acquisition("exhausted")
	if lastErr != nil {
		return "", fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, maxAttempts, lastErr)
	}
	return "", fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, maxAttempts)
}

func (a *Acquirer) sleep(ctx context.Context) {
	if a.retryDelay <= 0 {
		return
	}
	t := time.NewTimer(a.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
