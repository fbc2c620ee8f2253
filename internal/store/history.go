// Package store journals install, uninstall and update operations in a
// local SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"toolbox/internal/logging"
	"toolbox/internal/paths"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Operation names journaled by the installer.
const (
	OpInstall   = "install"
	OpUninstall = "uninstall"
	OpUpdate    = "update"
)

// Status of a journaled transaction.
type Status string

const (
	StatusStarted    Status = "started"
	StatusCommitted  Status = "committed"
	StatusRolledBack Status = "rolled_back"
	StatusFailed     Status = "failed"
)

// ErrTxFinished is returned when a transaction is finished twice.
var ErrTxFinished = errors.New("transaction already finished")

// Entry is one row of the journal.
type Entry struct {
	ID         string
	Operation  string
	Package    string
	Version    string
	Platform   string
	Status     Status
	Detail     string
	StartedAt  time.Time
	FinishedAt time.Time // zero while in progress
}

// History is the journal database.
type History struct {
	db       *sql.DB
	mu       sync.Mutex
	dbPath   string
	platform string
	now      func() time.Time
}

// OpenHistory opens (creating if needed) the journal at path. Use ":memory:"
// for a throwaway journal.
func OpenHistory(path string) (*History, error) {
	timer := logging.StartTimer(logging.CategoryStore, "OpenHistory")
	defer timer.Stop()

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
		}
	}

	h := &History{db: db, dbPath: path, platform: paths.PlatformName(), now: time.Now}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("History opened at %s", path)
	return h, nil
}

func (h *History) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		package TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		finished_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_package ON transactions(package);
	CREATE INDEX IF NOT EXISTS idx_transactions_started ON transactions(started_at);
	`
	if _, err := h.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	return RunMigrations(h.db)
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// Path returns the database path.
func (h *History) Path() string {
	return h.dbPath
}

// Tx is an open journal entry.
type Tx struct {
	h        *History
	id       string
	finished bool
	mu       sync.Mutex
}

// ID returns the transaction id.
func (t *Tx) ID() string {
	return t.id
}

// Begin journals the start of op on pkg at version.
func (h *History) Begin(ctx context.Context, op, pkg, version string) (*Tx, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.NewString()
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO transactions (id, operation, package, version, platform, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, op, pkg, version, h.platform, string(StatusStarted), h.now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to begin %s of %s: %w", op, pkg, err)
	}
	logging.StoreDebug("Began %s %s (%s)", op, pkg, id)
	return &Tx{h: h, id: id}, nil
}

// Commit marks the transaction committed.
func (t *Tx) Commit() error {
	return t.finish(StatusCommitted, "")
}

// Rollback marks the transaction rolled back with a reason, for operations
// that were undone or cancelled.
func (t *Tx) Rollback(reason string) error {
	return t.finish(StatusRolledBack, reason)
}

// Fail marks the transaction failed with err.
func (t *Tx) Fail(err error) error {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return t.finish(StatusFailed, detail)
}

func (t *Tx) finish(status Status, detail string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return ErrTxFinished
	}

	t.h.mu.Lock()
	defer t.h.mu.Unlock()
	_, err := t.h.db.Exec(`
		UPDATE transactions SET status = ?, detail = ?, finished_at = ? WHERE id = ?
	`, string(status), detail, t.h.now().UnixNano(), t.id)
	if err != nil {
		return fmt.Errorf("failed to finish transaction %s: %w", t.id, err)
	}
	t.finished = true
	logging.StoreDebug("Transaction %s %s", t.id, status)
	return nil
}

// List returns journal entries newest first. An empty pkg lists every
// package; limit <= 0 means no limit.
func (h *History) List(ctx context.Context, pkg string, limit int) ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, operation, package, version, platform, status, detail, started_at, finished_at
		FROM transactions
		WHERE ? = '' OR package = ? COLLATE NOCASE
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, pkg, pkg, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			status   string
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Operation, &e.Package, &e.Version, &e.Platform, &status,
			&e.Detail, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Status = Status(status)
		e.StartedAt = time.Unix(0, started)
		if finished.Valid {
			e.FinishedAt = time.Unix(0, finished.Int64)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
