package errno

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
)

var (
	ErrUnknownPlugin    = errors.New("unknown plugin")
	ErrPluginExists     = errors.New("plugin already registered")
	ErrInvalidName      = errors.New("invalid name")
	ErrNoRenderer       = errors.New("plugin has no widget renderer")
	ErrTemplateNotFound = errors.New("widget template not found")
	ErrNotAuthorizer    = errors.New("plugin does not accept authorization codes")
	ErrBusClosed        = errors.New("event bus closed")
	ErrKeyNotFound      = errors.New("key not found")
	ErrUnsupportedValue = errors.New("unsupported value")
	ErrCorruptValue     = errors.New("corrupt value")
	ErrInvalidKey       = errors.New("invalid encryption key")
	ErrCredentials      = errors.New("missing or expired credentials")
)

// CredentialsError marks a plugin whose upstream auth is missing or expired.
// Refresh loops report it with a hint to re-run configuration.
type CredentialsError struct {
	Plugin string
	Reason string
}

func (e *CredentialsError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("plugin %q: %s", e.Plugin, ErrCredentials)
	}
	return fmt.Sprintf("plugin %q: %s: %s", e.Plugin, ErrCredentials, e.Reason)
}

func (e *CredentialsError) Unwrap() error { return ErrCredentials }

// NewCredentialsError returns a CredentialsError for plugin.
func NewCredentialsError(plugin, reason string) error {
	return &CredentialsError{Plugin: plugin, Reason: reason}
}

// IsCredentials reports whether err is a credentials error.
func IsCredentials(err error) bool {
	return errors.Is(err, ErrCredentials)
}

// IsNetwork reports whether err looks like a transient network failure:
// dial and DNS errors, connection resets, and timeouts.
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
