package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	kindString = "string"
	kindBool   = "bool"
)

const upsertEntry = `
	INSERT INTO session_entries (key, kind, text_value, bool_value, updated_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET
		kind = excluded.kind,
		text_value = excluded.text_value,
		bool_value = excluded.bool_value,
		updated_at = CURRENT_TIMESTAMP`

// SQLiteBackend keeps session entries in a single SQLite table.
type SQLiteBackend struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Backend = (*SQLiteBackend)(nil)

// NewSQLiteBackend opens (creating if needed) the database at dbPath and runs
// migrations. ":memory:" gives a private in-memory database.
func NewSQLiteBackend(dbPath string, logger *slog.Logger) (*SQLiteBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	inMemory := dbPath == ":memory:" || strings.HasPrefix(dbPath, "file::memory:")
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection: an in-memory database lives per connection, and the
	// session table is tiny anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Debug("Session database ready", "path", dbPath)
	return &SQLiteBackend{db: db, logger: logger}, nil
}

func (b *SQLiteBackend) String(ctx context.Context, key string) (string, bool, error) {
	var value sql.NullString
	err := b.db.QueryRowContext(ctx,
		`SELECT text_value FROM session_entries WHERE key = ? AND kind = ?`,
		key, kindString).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	if !value.Valid {
		return "", false, nil
	}
	return value.String, true, nil
}

func (b *SQLiteBackend) SetString(ctx context.Context, key, value string) error {
	return b.Set(ctx, StringEntry(key, value))
}

func (b *SQLiteBackend) Bool(ctx context.Context, key string) (bool, bool, error) {
	var value sql.NullInt64
	err := b.db.QueryRowContext(ctx,
		`SELECT bool_value FROM session_entries WHERE key = ? AND kind = ?`,
		key, kindBool).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("read %s: %w", key, err)
	}
	if !value.Valid {
		return false, false, nil
	}
	return value.Int64 == 1, true, nil
}

func (b *SQLiteBackend) SetBool(ctx context.Context, key string, value bool) error {
	return b.Set(ctx, BoolEntry(key, value))
}

// Set upserts every entry inside one transaction.
func (b *SQLiteBackend) Set(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		kind := kindString
		var text sql.NullString
		var flag sql.NullInt64
		if e.IsBool {
			kind = kindBool
			flag.Valid = true
			if e.Flag {
				flag.Int64 = 1
			}
		} else {
			text = sql.NullString{String: e.Text, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, upsertEntry, e.Key, kind, text, flag); err != nil {
			return fmt.Errorf("write %s: %w", e.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_entries WHERE key = ?`, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
