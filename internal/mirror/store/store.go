package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/internal/mirror/store/boltdb"
	"github.com/kiosk404/mirror/internal/mirror/store/sqlite"
	"github.com/kiosk404/mirror/pkg/logger"
)

const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config describes where and how the store lives on disk.
type Config struct {
	// Dir holds both the data file and the key file.
	Dir string
	// Backend is BackendBolt, BackendSQLite or BackendMemory.
	Backend string
	// DBFile is the data file name inside Dir.
	DBFile string
	// KeyFile is the key file name inside Dir.
	KeyFile string
}

// CompletedConfig is a Config with defaults filled in.
type CompletedConfig struct {
	*Config
}

// Complete fills in defaults.
func (c *Config) Complete() CompletedConfig {
	if c.Dir == "" {
		c.Dir = "instance"
	}
	if c.Backend == "" {
		c.Backend = BackendBolt
	}
	if c.DBFile == "" {
		c.DBFile = "mirror.db"
	}
	if c.KeyFile == "" {
		c.KeyFile = "mirror.key"
	}
	return CompletedConfig{c}
}

// DBPath returns the data file path.
func (c CompletedConfig) DBPath() string { return filepath.Join(c.Dir, c.DBFile) }

// KeyPath returns the key file path.
func (c CompletedConfig) KeyPath() string { return filepath.Join(c.Dir, c.KeyFile) }

// New opens the backend, loads or creates the key and returns the Store.
func (c CompletedConfig) New() (*Store, error) {
	var (
		backend Backend
		err     error
	)
	switch c.Backend {
	case BackendBolt:
		backend, err = boltdb.Open(c.DBPath())
	case BackendSQLite:
		backend, err = sqlite.Open(c.DBPath())
	case BackendMemory:
		backend = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Backend)
	}
	if err != nil {
		return nil, err
	}

	key, err := LoadOrCreateKey(c.KeyPath())
	if err != nil {
		backend.Close()
		return nil, err
	}
	ciph, err := NewCipher(key)
	if err != nil {
		backend.Close()
		return nil, err
	}

	logger.Info("[Store] opened %s store at %s", c.Backend, c.DBPath())
	return New(backend, NewEncryptedCodec(JSONCodec{}, ciph)), nil
}

// Store is a set of named tables over one Backend. Values go through the
// injected Codec on every read and write.
type Store struct {
	backend Backend
	codec   Codec
}

// New composes a Store from a backend and a codec.
func New(backend Backend, codec Codec) *Store {
	return &Store{backend: backend, codec: codec}
}

// Table returns the table called name. Nothing is created until the first write.
func (s *Store) Table(name string) *Table {
	return &Table{name: name, store: s}
}

// Tables lists the tables that hold data.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	names, err := s.backend.Tables(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Table is one namespace of the store, typically owned by a single plugin.
// Writes replace the whole value; mutating a value returned by Get is not
// persisted until it is passed to Set again.
type Table struct {
	name  string
	store *Store
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Get returns the value for key or errno.ErrKeyNotFound.
func (t *Table) Get(ctx context.Context, key string) (any, error) {
	if err := ValidateTableName(t.name); err != nil {
		return nil, err
	}
	data, err := t.store.backend.Get(ctx, t.name, key)
	if err != nil {
		return nil, err
	}
	v, err := t.store.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", t.name, key, err)
	}
	return v, nil
}

// Lookup is Get with a found flag instead of errno.ErrKeyNotFound.
func (t *Table) Lookup(ctx context.Context, key string) (any, bool, error) {
	v, err := t.Get(ctx, key)
	if errors.Is(err, errno.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// GetOr returns the value for key, or def when it is missing.
func (t *Table) GetOr(ctx context.Context, key string, def any) (any, error) {
	v, ok, err := t.Lookup(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

// GetString returns the value for key when it is a string.
func (t *Table) GetString(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := t.Lookup(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	s, ok := v.(string)
	return s, ok, nil
}

// Has reports whether key is set.
func (t *Table) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := t.Lookup(ctx, key)
	return ok, err
}

// Set stores v under key.
func (t *Table) Set(ctx context.Context, key string, v any) error {
	if err := ValidateTableName(t.name); err != nil {
		return err
	}
	data, err := t.store.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", t.name, key, err)
	}
	return t.store.backend.Put(ctx, t.name, key, data)
}

// Delete removes key. Deleting a missing key is not an error.
func (t *Table) Delete(ctx context.Context, key string) error {
	if err := ValidateTableName(t.name); err != nil {
		return err
	}
	return t.store.backend.Delete(ctx, t.name, key)
}

// Clear removes every key in the table.
func (t *Table) Clear(ctx context.Context) error {
	if err := ValidateTableName(t.name); err != nil {
		return err
	}
	return t.store.backend.Clear(ctx, t.name)
}

// Keys returns the table's keys in sorted order.
func (t *Table) Keys(ctx context.Context) ([]string, error) {
	if err := ValidateTableName(t.name); err != nil {
		return nil, err
	}
	keys, err := t.store.backend.Keys(ctx, t.name)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
