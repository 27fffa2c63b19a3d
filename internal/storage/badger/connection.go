// Package badger provides an embedded key-value store for ephemeral,
// non-relational state that does not belong in the SQL system of record:
// inbound-message dedup markers and the scheduler's per-poller cursors.
package badger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/jobops/triage/internal/common"
)

// DB wraps a badgerhold store opened against the configured dedup-cache path.
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Open opens (or creates) the badgerhold store at config.Path, optionally
// wiping it first when config.ResetOnStartup is set.
func Open(logger arbor.ILogger, config common.BadgerConfig) (*DB, error) {
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Deleting existing dedup-cache database (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete dedup-cache database directory")
			}
		}
	}

	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dedup-cache database directory: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Opening dedup-cache database connection")

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // disable badger's internal logger, use arbor instead

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open dedup-cache database: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Dedup-cache database initialized")
	return &DB{store: store, logger: logger}, nil
}

// Store returns the underlying badgerhold store.
func (b *DB) Store() *badgerhold.Store {
	return b.store
}

// Close closes the database connection.
func (b *DB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
