package store

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/pkg/logger"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length of the raw symmetric key.
const KeySize = chacha20poly1305.KeySize

// Cipher seals values with XChaCha20-Poly1305 and a random nonce per value.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher returns a Cipher for a KeySize byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: size %d, expected %d", errno.ErrInvalidKey, len(key), KeySize)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrInvalidKey, err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal returns nonce || ciphertext.
func (c *Cipher) Seal(plain []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	out := make([]byte, ns, ns+len(plain)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(out, out[:ns], plain, nil), nil
}

// Open reverses Seal.
func (c *Cipher) Open(sealed []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(sealed) < ns+c.aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", errno.ErrCorruptValue)
	}
	plain, err := c.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrCorruptValue, err)
	}
	return plain, nil
}

// LoadKey reads the base64 key at path. It returns nil, nil when the file
// does not exist yet.
func LoadKey(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read key file: %w", err)
	}
	defer f.Close()

	if runtime.GOOS != "windows" {
		if info, statErr := f.Stat(); statErr == nil {
			if perm := info.Mode().Perm(); perm&0o077 != 0 {
				logger.Warn("[Store] key file %s has mode 0%o, expected 0600", path, perm)
			}
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	key, err := base64.URLEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errno.ErrInvalidKey, path, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: %s has size %d, expected %d", errno.ErrInvalidKey, path, len(key), KeySize)
	}
	return key, nil
}

// CreateKey writes a fresh random key to path. The file is written under a
// temporary name and hard-linked into place, so concurrent creators agree on
// a single key: the loser reads the winner's key.
func CreateKey(path string) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return nil, fmt.Errorf("create key temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(base64.URLEncoding.EncodeToString(key)); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write key temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("chmod key temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close key temp file: %w", err)
	}

	if err := os.Link(tmpPath, path); err != nil {
		if os.IsExist(err) {
			return LoadKey(path)
		}
		return nil, fmt.Errorf("install key file: %w", err)
	}
	logger.Info("[Store] generated new encryption key at %s", path)
	return key, nil
}

// LoadOrCreateKey returns the key at path, creating it on first use.
func LoadOrCreateKey(path string) ([]byte, error) {
	key, err := LoadKey(path)
	if err != nil || key != nil {
		return key, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	return CreateKey(path)
}

// EncryptedCodec seals the output of an inner Codec.
type EncryptedCodec struct {
	inner  Codec
	cipher *Cipher
}

var _ Codec = (*EncryptedCodec)(nil)

// NewEncryptedCodec wraps inner with c.
func NewEncryptedCodec(inner Codec, c *Cipher) *EncryptedCodec {
	return &EncryptedCodec{inner: inner, cipher: c}
}

func (e *EncryptedCodec) Encode(v any) ([]byte, error) {
	plain, err := e.inner.Encode(v)
	if err != nil {
		return nil, err
	}
	return e.cipher.Seal(plain)
}

func (e *EncryptedCodec) Decode(data []byte) (any, error) {
	plain, err := e.cipher.Open(data)
	if err != nil {
		return nil, err
	}
	return e.inner.Decode(plain)
}
