package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/vocabot/internal/domain"
)

// ledgerFile is the on-disk layout of the JSON ledger.
type ledgerFile struct {
	UsedWords   []string    `json:"used_words"`
	WordHistory []entryFile `json:"word_history"`
}

type entryFile struct {
	Word    string `json:"word"`
	Date    string `json:"date"`
	Attempt int    `json:"attempt"`
}

// Files written by older versions carry naive local timestamps without an offset.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// JSONFileStore implements LedgerStore using a single indented JSON file.
type JSONFileStore struct {
	path string
}

// NewJSONFile creates a JSON-backed ledger store at path.
func NewJSONFile(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

// Path returns the file location.
func (s *JSONFileStore) Path() string {
	return s.path
}

// Load reads the ledger file. A missing file yields an empty ledger.
// An undecodable file is moved aside to <path>.corrupt so the next save
// cannot destroy it. Entries with unreadable dates keep a zero date.
func (s *JSONFileStore) Load(_ context.Context) (*domain.Ledger, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewLedger(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger file: %w", err)
	}

	var file ledgerFile
	if err := json.Unmarshal(data, &file); err != nil {
		if renameErr := os.Rename(s.path, s.CorruptPath()); renameErr != nil {
			slog.Warn("Failed to move undecodable ledger file aside", "path", s.path, "error", renameErr)
		}
		return nil, fmt.Errorf("decode ledger file: %w", err)
	}

	ledger := domain.NewLedger()
	for _, w := range file.UsedWords {
		ledger.UsedWords[w] = struct{}{}
	}
	for _, e := range file.WordHistory {
		date, err := parseDate(e.Date)
		if err != nil {
			slog.Warn("Ledger entry has unreadable date", "word", e.Word, "error", err)
		}
		ledger.Entries = append(ledger.Entries, domain.HistoryEntry{
			Word:    e.Word,
			Date:    date,
			Attempt: e.Attempt,
		})
	}
	ledger.Repair()
	return ledger, nil
}

// CorruptPath is where an undecodable ledger file is preserved.
func (s *JSONFileStore) CorruptPath() string {
	return s.path + ".corrupt"
}

// Save writes the ledger to a temporary file and renames it over the target.
func (s *JSONFileStore) Save(_ context.Context, ledger *domain.Ledger) error {
	file := ledgerFile{
		UsedWords:   ledger.Words(),
		WordHistory: make([]entryFile, 0, len(ledger.Entries)),
	}
	for _, e := range ledger.Entries {
		file.WordHistory = append(file.WordHistory, entryFile{
			Word:    e.Word,
			Date:    e.Date.Format(time.RFC3339Nano),
			Attempt: e.Attempt,
		})
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp ledger file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}

// Ping checks that the ledger directory is accessible.
func (s *JSONFileStore) Ping(_ context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat ledger directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("ledger directory %s is not a directory", dir)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *JSONFileStore) Close() error {
	return nil
}
