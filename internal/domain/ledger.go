package domain

import (
	"sort"
	"time"
)

// HistoryEntry records one issued vocabulary word.
type HistoryEntry struct {
	Word    string    `json:"word"`
	Date    time.Time `json:"date"`
	Attempt int       `json:"attempt"`
}

// Ledger is the record of previously issued words.
// Every word in Entries is present in UsedWords.
type Ledger struct {
	UsedWords map[string]struct{}
	Entries   []HistoryEntry
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{UsedWords: make(map[string]struct{})}
}

// Contains reports whether word has been issued before.
func (l *Ledger) Contains(word string) bool {
	_, ok := l.UsedWords[word]
	return ok
}

// Add records word as issued at the given time and attempt number.
func (l *Ledger) Add(word string, at time.Time, attempt int) {
	if l.UsedWords == nil {
		l.UsedWords = make(map[string]struct{})
	}
	l.UsedWords[word] = struct{}{}
	l.Entries = append(l.Entries, HistoryEntry{Word: word, Date: at, Attempt: attempt})
}

// Clear empties both collections. The caller persists afterwards.
func (l *Ledger) Clear() {
	l.UsedWords = make(map[string]struct{})
	l.Entries = nil
}

// Len returns the number of distinct used words.
func (l *Ledger) Len() int {
	return len(l.UsedWords)
}

// Words returns the used-word set as a sorted slice.
func (l *Ledger) Words() []string {
	words := make([]string, 0, len(l.UsedWords))
	for w := range l.UsedWords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Recent returns up to n entries, most recent first.
func (l *Ledger) Recent(n int) []HistoryEntry {
	if n <= 0 || len(l.Entries) == 0 {
		return nil
	}
	if n > len(l.Entries) {
		n = len(l.Entries)
	}
	out := make([]HistoryEntry, 0, n)
	for i := len(l.Entries) - 1; i >= len(l.Entries)-n; i-- {
		out = append(out, l.Entries[i])
	}
	return out
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		UsedWords: make(map[string]struct{}, len(l.UsedWords)),
		Entries:   make([]HistoryEntry, len(l.Entries)),
	}
	for w := range l.UsedWords {
		c.UsedWords[w] = struct{}{}
	}
	copy(c.Entries, l.Entries)
	return c
}

// Repair restores the invariant that every entry word is a used word.
// It is applied to ledgers read from storage.
func (l *Ledger) Repair() {
	if l.UsedWords == nil {
		l.UsedWords = make(map[string]struct{})
	}
	for _, e := range l.Entries {
		l.UsedWords[e.Word] = struct{}{}
	}
}
