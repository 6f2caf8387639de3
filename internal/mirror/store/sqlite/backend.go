package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	_ "github.com/mattn/go-sqlite3"
)

// Backend keeps one SQL table per store table in a single SQLite file.
// Table names are validated by the store before they reach this package.
type Backend struct {
	db *sql.DB

	mu     sync.Mutex
	tables map[string]bool
}

// Open opens or creates the SQLite file at path.
func Open(path string) (*Backend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Backend{db: db, tables: make(map[string]bool)}, nil
}

func quote(table string) string {
	return `"` + table + `"`
}

func (b *Backend) exists(ctx context.Context, table string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tables[table] {
		return true, nil
	}
	var name string
	err := b.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup table %q: %w", table, err)
	}
	b.tables[table] = true
	return true, nil
}

func (b *Backend) ensure(ctx context.Context, table string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tables[table] {
		return nil
	}
	_, err := b.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS `+quote(table)+` (key TEXT PRIMARY KEY, value BLOB NOT NULL)`)
	if err != nil {
		return fmt.Errorf("create table %q: %w", table, err)
	}
	b.tables[table] = true
	return nil
}

func (b *Backend) Get(ctx context.Context, table, key string) ([]byte, error) {
	ok, err := b.exists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errno.ErrKeyNotFound
	}
	var value []byte
	err = b.db.QueryRowContext(ctx, `SELECT value FROM `+quote(table)+` WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errno.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", table, key, err)
	}
	return value, nil
}

func (b *Backend) Put(ctx context.Context, table, key string, value []byte) error {
	if err := b.ensure(ctx, table); err != nil {
		return err
	}
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO `+quote(table)+` (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", table, key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, table, key string) error {
	ok, err := b.exists(ctx, table)
	if err != nil || !ok {
		return err
	}
	if _, err := b.db.ExecContext(ctx, `DELETE FROM `+quote(table)+` WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", table, key, err)
	}
	return nil
}

func (b *Backend) Clear(ctx context.Context, table string) error {
	ok, err := b.exists(ctx, table)
	if err != nil || !ok {
		return err
	}
	if _, err := b.db.ExecContext(ctx, `DELETE FROM `+quote(table)); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	return nil
}

func (b *Backend) Keys(ctx context.Context, table string) ([]string, error) {
	ok, err := b.exists(ctx, table)
	if err != nil || !ok {
		return nil, err
	}
	rows, err := b.db.QueryContext(ctx, `SELECT key FROM `+quote(table))
	if err != nil {
		return nil, fmt.Errorf("keys %s: %w", table, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("keys %s: %w", table, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (b *Backend) Tables(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Close closes the database handle.
func (b *Backend) Close() error {
	return b.db.Close()
}
