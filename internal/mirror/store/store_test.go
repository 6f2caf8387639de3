package store_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/internal/mirror/store"
)

var backends = []string{store.BackendBolt, store.BackendSQLite}

func openStore(t *testing.T, backend, dir string) *store.Store {
	t.Helper()
	cfg := &store.Config{Dir: dir, Backend: backend}
	s, err := cfg.Complete().New()
	if err != nil {
		t.Fatalf("open %s store: %v", backend, err)
	}
	return s
}

func TestRoundTrip(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			s := openStore(t, backend, t.TempDir())
			defer s.Close()
			ctx := context.Background()

			when := time.Date(2024, 3, 9, 17, 45, 12, 123456000, time.FixedZone("EST", -5*3600))
			value := map[string]any{
				"location": "Brooklyn",
				"enabled":  true,
				"limits":   []any{1.0, 2.5, "three", nil},
				"token": map[string]any{
					"access":     "abc",
					"expires_at": when,
				},
			}
			tbl := s.Table("weather")
			if err := tbl.Set(ctx, "config", value); err != nil {
				t.Fatalf("Set: %v", err)
			}

			got, err := tbl.Get(ctx, "config")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			m := got.(map[string]any)
			token := m["token"].(map[string]any)
			gotWhen, ok := token["expires_at"].(time.Time)
			if !ok {
				t.Fatalf("expires_at decoded as %T", token["expires_at"])
			}
			if !gotWhen.Equal(when) {
				t.Fatalf("expires_at = %v, want %v", gotWhen, when)
			}

			delete(token, "expires_at")
			want := map[string]any{
				"location": "Brooklyn",
				"enabled":  true,
				"limits":   []any{1.0, 2.5, "three", nil},
				"token":    map[string]any{"access": "abc"},
			}
			if !reflect.DeepEqual(m, want) {
				t.Fatalf("got %#v, want %#v", m, want)
			}

			if err := tbl.Set(ctx, "greeting", "hello"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if s, ok, err := tbl.GetString(ctx, "greeting"); err != nil || !ok || s != "hello" {
				t.Fatalf("GetString = %q, %v, %v", s, ok, err)
			}
		})
	}
}

func TestNamespaceIsolation(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			s := openStore(t, backend, t.TempDir())
			defer s.Close()
			ctx := context.Background()

			if err := s.Table("A").Set(ctx, "x", "secret"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if _, err := s.Table("B").Get(ctx, "x"); !errors.Is(err, errno.ErrKeyNotFound) {
				t.Fatalf("B.Get(x) err = %v, want ErrKeyNotFound", err)
			}
			v, err := s.Table("B").GetOr(ctx, "x", "default")
			if err != nil || v != "default" {
				t.Fatalf("B.GetOr(x) = %v, %v", v, err)
			}
		})
	}
}

func TestDeleteClearKeys(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			s := openStore(t, backend, t.TempDir())
			defer s.Close()
			ctx := context.Background()
			tbl := s.Table("joke")

			for _, k := range []string{"b", "a", "c"} {
				if err := tbl.Set(ctx, k, k); err != nil {
					t.Fatalf("Set: %v", err)
				}
			}
			keys, err := tbl.Keys(ctx)
			if err != nil || !reflect.DeepEqual(keys, []string{"a", "b", "c"}) {
				t.Fatalf("Keys = %v, %v", keys, err)
			}

			if err := tbl.Delete(ctx, "b"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := tbl.Delete(ctx, "missing"); err != nil {
				t.Fatalf("Delete missing: %v", err)
			}
			if ok, _ := tbl.Has(ctx, "b"); ok {
				t.Fatal("b still present after Delete")
			}

			if err := tbl.Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			keys, err = tbl.Keys(ctx)
			if err != nil || len(keys) != 0 {
				t.Fatalf("Keys after Clear = %v, %v", keys, err)
			}
			if err := s.Table("never_written").Clear(ctx); err != nil {
				t.Fatalf("Clear on empty table: %v", err)
			}
		})
	}
}

func TestKeyIsReusedAcrossReopen(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			ctx := context.Background()

			s := openStore(t, backend, dir)
			if err := s.Table("p").Set(ctx, "k", 42.0); err != nil {
				t.Fatalf("Set: %v", err)
			}
			s.Close()

			cfg := (&store.Config{Dir: dir, Backend: backend}).Complete()
			info, err := os.Stat(cfg.KeyPath())
			if err != nil {
				t.Fatalf("key file: %v", err)
			}
			if perm := info.Mode().Perm(); perm != 0o600 {
				t.Fatalf("key file mode = %o, want 600", perm)
			}

			s = openStore(t, backend, dir)
			defer s.Close()
			v, err := s.Table("p").Get(ctx, "k")
			if err != nil || v != 42.0 {
				t.Fatalf("Get after reopen = %v, %v", v, err)
			}
		})
	}
}

func TestLostKeyMakesDataUnreadable(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := openStore(t, store.BackendBolt, dir)
	if err := s.Table("p").Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	cfg := (&store.Config{Dir: dir}).Complete()
	if err := os.Remove(cfg.KeyPath()); err != nil {
		t.Fatalf("remove key: %v", err)
	}

	s = openStore(t, store.BackendBolt, dir)
	defer s.Close()
	if _, err := s.Table("p").Get(ctx, "k"); !errors.Is(err, errno.ErrCorruptValue) {
		t.Fatalf("Get with new key err = %v, want ErrCorruptValue", err)
	}
}

func TestValuesAreEncryptedAtRest(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, store.BackendBolt, dir)
	if err := s.Table("p").Set(context.Background(), "k", "very-secret-api-key"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	raw, err := os.ReadFile((&store.Config{Dir: dir}).Complete().DBPath())
	if err != nil {
		t.Fatalf("read db: %v", err)
	}
	if bytes.Contains(raw, []byte("very-secret-api-key")) {
		t.Fatal("plaintext found in data file")
	}
}

func TestRoundTripTypedContainers(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			s := openStore(t, backend, t.TempDir())
			defer s.Close()
			ctx := context.Background()
			tbl := s.Table("calendar")

			now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
			tests := []struct {
				name  string
				value any
				want  any
			}{
				{"map of times", map[string]time.Time{"a": now}, map[string]any{"a": now}},
				{"slice of times", []time.Time{now}, []any{now}},
				{"nested slice of times", map[string]any{"x": []time.Time{now}}, map[string]any{"x": []any{now}}},
				{"array of times", [1]time.Time{now}, []any{now}},
				{"time pointer", &now, now},
				{"string slice", []string{"a", "b"}, []any{"a", "b"}},
				{"int map", map[string]int{"n": 3}, map[string]any{"n": 3.0}},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					if err := tbl.Set(ctx, "v", tt.value); err != nil {
						t.Fatalf("Set: %v", err)
					}
					got, err := tbl.Get(ctx, "v")
					if err != nil {
						t.Fatalf("Get: %v", err)
					}
					if !reflect.DeepEqual(got, tt.want) {
						t.Fatalf("got %#v, want %#v", got, tt.want)
					}
				})
			}
		})
	}
}

func TestUnsupportedValue(t *testing.T) {
	s := openStore(t, store.BackendBolt, t.TempDir())
	defer s.Close()

	tests := []struct {
		name  string
		value any
	}{
		{"chan", make(chan int)},
		{"func", func() {}},
		{"struct", struct{ A int }{1}},
		{"struct in map", map[string]any{"x": struct{ A int }{1}}},
		{"non-string map key", map[int]string{1: "a"}},
		{"complex", complex(1, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Table("p").Set(context.Background(), "k", tt.value)
			if !errors.Is(err, errno.ErrUnsupportedValue) {
				t.Fatalf("Set(%T) err = %v, want ErrUnsupportedValue", tt.value, err)
			}
		})
	}
	if ok, err := s.Table("p").Has(context.Background(), "k"); err != nil || ok {
		t.Fatalf("rejected value was stored: ok=%v err=%v", ok, err)
	}
}

func TestInvalidTableName(t *testing.T) {
	s := openStore(t, store.BackendSQLite, t.TempDir())
	defer s.Close()

	err := s.Table(`x"; DROP TABLE y; --`).Set(context.Background(), "k", 1)
	if !errors.Is(err, errno.ErrInvalidName) {
		t.Fatalf("err = %v, want ErrInvalidName", err)
	}
}
