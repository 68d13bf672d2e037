// Package history guards the in-memory vocabulary ledger and persists it
// after every mutation.
package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/vocabot/internal/domain"
	"github.com/ashureev/vocabot/internal/store"
)

// Ledger is the process-wide, mutex-guarded view of issued words.
// The in-memory state is authoritative; persistence failures are logged only.
type Ledger struct {
	mu     sync.Mutex
	ledger *domain.Ledger
	store  store.LedgerStore
	logger *slog.Logger
}

// Open loads the ledger from s. Load failures yield an empty ledger.
func Open(ctx context.Context, s store.LedgerStore, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		logger.Warn("Failed to load word history, starting empty", "error", err)
		loaded = domain.NewLedger()
	} else {
		logger.Info("Loaded word history", "used_words", loaded.Len(), "entries", len(loaded.Entries))
	}

	return &Ledger{
		ledger: loaded,
		store:  s,
		logger: logger,
	}
}

// Overlap returns the candidate words that were already issued.
func (l *Ledger) Overlap(words []string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var repeated []string
	for _, w := range words {
		if l.ledger.Contains(w) {
			repeated = append(repeated, w)
		}
	}
	return repeated
}

// RecentWords returns up to n previously used words, most recent first.
// Words never logged as entries fill any remaining room in arbitrary order.
func (l *Ledger) RecentWords(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 {
		return nil
	}
	seen := make(map[string]struct{}, n)
	words := make([]string, 0, n)
	for i := len(l.ledger.Entries) - 1; i >= 0 && len(words) < n; i-- {
		w := l.ledger.Entries[i].Word
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	for w := range l.ledger.UsedWords {
		if len(words) >= n {
			break
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words
}

// Record adds words as issued on the given attempt and persists the ledger.
func (l *Ledger) Record(ctx context.Context, words []string, attempt int, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, w := range words {
		l.ledger.Add(w, at, attempt)
	}
	l.persistLocked(ctx)
}

// Clear empties the ledger and persists the result.
func (l *Ledger) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ledger.Clear()
	l.persistLocked(ctx)
}

// Stats returns the number of used words and up to n most recent entries,
// most recent first.
func (l *Ledger) Stats(n int) (int, []domain.HistoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ledger.Len(), l.ledger.Recent(n)
}

// Len returns the number of used words.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ledger.Len()
}

// Snapshot returns a deep copy of the current ledger.
func (l *Ledger) Snapshot() *domain.Ledger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ledger.Clone()
}

// Ping checks the backing store.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

func (l *Ledger) persistLocked(ctx context.Context) {
	if err := l.store.Save(ctx, l.ledger); err != nil {
		l.logger.Error("Failed to save word history", "error", err, "used_words", l.ledger.Len())
	}
}
