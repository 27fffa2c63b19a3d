package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	_ "modernc.org/sqlite"

	"github.com/jobops/triage/internal/common"
)

// DB wraps the relational system of record.
type DB struct {
	db     *sql.DB
	logger arbor.ILogger
	config common.SQLiteConfig
}

// Open creates and configures the SQLite connection, then applies the schema.
func Open(logger arbor.ILogger, config common.SQLiteConfig) (*DB, error) {
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	if config.ResetOnStartup {
		if config.Environment != "development" {
			logger.Warn().Str("environment", config.Environment).Msg("reset_on_startup is enabled but environment is not 'development' - ignoring reset request for safety")
		} else if err := resetDatabase(logger, config.Path); err != nil {
			return nil, fmt.Errorf("failed to reset database: %w", err)
		}
	}

	logger.Debug().Str("path", config.Path).Msg("opening sqlite connection")

	// modernc.org/sqlite registers the driver name "sqlite" (not "sqlite3").
	sqlDB, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite tolerates exactly one writer; cap the pool so concurrent callers
	// serialize through the driver instead of hitting SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	d := &DB{db: sqlDB, logger: logger, config: config}

	if err := d.configure(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := d.InitSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info().Str("path", config.Path).Msg("sqlite database initialized")
	return d, nil
}

func (d *DB) configure() error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA cache_size = -%d", d.config.CacheSizeMB*1024),
		fmt.Sprintf("PRAGMA busy_timeout = %d", d.config.BusyTimeoutMS),
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	if d.config.WALMode {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}

	for _, p := range pragmas {
		if _, err := d.db.Exec(p); err != nil {
			return fmt.Errorf("failed to execute %s: %w", p, err)
		}
	}
	return nil
}

// DB returns the underlying *sql.DB for callers (e.g. Capabilities) that need
// direct access.
func (d *DB) DB() *sql.DB { return d.db }

func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (d *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return d.db.BeginTx(ctx, nil)
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func resetDatabase(logger arbor.ILogger, dbPath string) error {
	logger.Warn().Str("path", dbPath).Msg("resetting database (deleting all data)")

	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("failed to delete %s: %w", p, err)
			}
			continue
		}
		logger.Debug().Str("path", p).Msg("deleted database file")
	}
	return nil
}
