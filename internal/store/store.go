// Package store provides persistence for the vocabulary ledger.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/vocabot/internal/domain"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown history backend")

// LedgerStore defines the interface for persisting the vocabulary ledger.
type LedgerStore interface {
	// Load reads the persisted ledger. A missing ledger yields an empty one.
	Load(ctx context.Context) (*domain.Ledger, error)

	// Save persists the full ledger, replacing what was stored before.
	Save(ctx context.Context, ledger *domain.Ledger) error

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// Options selects and configures a LedgerStore backend.
type Options struct {
	Backend  string // "json" or "sqlite"
	JSONPath string
	DBPath   string
}

// Open constructs the configured backend.
func Open(opts Options) (LedgerStore, error) {
	switch opts.Backend {
	case "", "json":
		return NewJSONFile(opts.JSONPath), nil
	case "sqlite":
		s, err := NewSQLite(opts.DBPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
