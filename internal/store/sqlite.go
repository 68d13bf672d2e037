package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/vocabot/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements LedgerStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // Serializes full-ledger rewrites to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed ledger store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Pragmas in the DSN are applied to every pooled connection.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS used_words (
		word TEXT PRIMARY KEY
	);
	CREATE TABLE IF NOT EXISTS word_history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		word TEXT NOT NULL,
		issued_at TEXT NOT NULL,
		attempt INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load reads the ledger from the database.
func (s *SQLiteStore) Load(ctx context.Context) (*domain.Ledger, error) {
	ledger := domain.NewLedger()

	rows, err := s.db.QueryContext(ctx, `SELECT word FROM used_words`)
	if err != nil {
		return nil, fmt.Errorf("query used words: %w", err)
	}
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan used word: %w", err)
		}
		ledger.UsedWords[word] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate used words: %w", err)
	}
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close used words rows", "error", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT word, issued_at, attempt FROM word_history ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query word history: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close word history rows", "error", closeErr)
		}
	}()

	for rows.Next() {
		var entry domain.HistoryEntry
		var issuedAt string
		if err := rows.Scan(&entry.Word, &issuedAt, &entry.Attempt); err != nil {
			return nil, fmt.Errorf("scan word history row: %w", err)
		}
		if entry.Date, err = time.Parse(time.RFC3339Nano, issuedAt); err != nil {
			slog.Warn("Ledger entry has unreadable issued_at", "word", entry.Word, "error", err)
		}
		ledger.Entries = append(ledger.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate word history: %w", err)
	}

	ledger.Repair()
	return ledger, nil
}

// Save replaces the stored ledger inside one transaction.
// Retries with exponential backoff on SQLITE_BUSY.
func (s *SQLiteStore) Save(ctx context.Context, ledger *domain.Ledger) error {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := s.saveOnce(ctx, ledger)
		if err == nil {
			return nil
		}

		if isConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // 50ms, 100ms, 200ms
			slog.Debug("Ledger save hit a locked database, retrying",
				"attempt", i+1,
				"delay", delay)
			if err := sleepContext(ctx, delay); err != nil {
				return fmt.Errorf("save ledger: %w", err)
			}
			continue
		}

		return fmt.Errorf("save ledger after %d attempts: %w", i+1, err)
	}

	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *SQLiteStore) saveOnce(ctx context.Context, ledger *domain.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM used_words`); err != nil {
		return fmt.Errorf("clear used words: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM word_history`); err != nil {
		return fmt.Errorf("clear word history: %w", err)
	}

	for _, word := range ledger.Words() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO used_words (word) VALUES (?)`, word); err != nil {
			return fmt.Errorf("insert used word %q: %w", word, err)
		}
	}
	for _, e := range ledger.Entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO word_history (word, issued_at, attempt) VALUES (?, ?, ?)`,
			e.Word, e.Date.Format(time.RFC3339Nano), e.Attempt,
		)
		if err != nil {
			return fmt.Errorf("insert history entry %q: %w", e.Word, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
