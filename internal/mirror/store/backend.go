package store

import (
	"context"
	"fmt"
	"regexp"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
)

// Backend is a plain persistent table -> key -> bytes mapping. Tables are
// created on first write. Get returns errno.ErrKeyNotFound for a missing key
// or table.
type Backend interface {
	Get(ctx context.Context, table, key string) ([]byte, error)
	Put(ctx context.Context, table, key string, value []byte) error
	Delete(ctx context.Context, table, key string) error
	Clear(ctx context.Context, table string) error
	Keys(ctx context.Context, table string) ([]string, error)
	Tables(ctx context.Context) ([]string, error)
	Close() error
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateTableName rejects names that cannot be used as a bucket or SQL
// table identifier.
func ValidateTableName(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("%w: table %q", errno.ErrInvalidName, name)
	}
	return nil
}
