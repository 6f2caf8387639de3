package plugin

import (
	"fmt"
	"strings"
	"time"
)

// Code is the outcome of a plugin lifecycle action.
type Code int

const (
	// Success means the action completed.
	Success Code = iota
	// Error means the plugin returned an error or panicked.
	Error
	// Skip means the plugin has no hook for the action.
	Skip
	// Pending means the action has not run yet.
	Pending
)

var codeNames = map[Code]string{
	Success: "Success",
	Error:   "Error",
	Skip:    "Skip",
	Pending: "Pending",
}

// String returns the human-readable name of the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Status is the result of the last lifecycle action run for a plugin.
type Status struct {
	code    Code
	reasons []string
	err     error
	plugin  string
	action  string
	at      time.Time
}

// NewStatus creates a new Status with the given code and reasons.
func NewStatus(code Code, reasons ...string) *Status {
	return &Status{
		code:    code,
		reasons: reasons,
		at:      time.Now(),
	}
}

// NewStatusWithError creates an error Status from an error.
func NewStatusWithError(err error) *Status {
	return &Status{
		code:    Error,
		reasons: []string{err.Error()},
		err:     err,
		at:      time.Now(),
	}
}

// Code returns the status code. A nil Status is Pending.
func (s *Status) Code() Code {
	if s == nil {
		return Pending
	}
	return s.code
}

// IsSuccess returns true if the status code is Success.
func (s *Status) IsSuccess() bool {
	return s.Code() == Success
}

// Message returns a concatenated message from all reasons.
func (s *Status) Message() string {
	if s == nil {
		return ""
	}
	if len(s.reasons) == 0 {
		return s.code.String()
	}
	return strings.Join(s.reasons, ", ")
}

// Err returns the underlying error, if any.
func (s *Status) Err() error {
	if s == nil || s.code != Error {
		return nil
	}
	if s.err != nil {
		return s.err
	}
	return fmt.Errorf("plugin %q %s: %s", s.plugin, s.action, s.Message())
}

// Action returns the lifecycle action, e.g. "start_plugin".
func (s *Status) Action() string {
	if s == nil {
		return ""
	}
	return s.action
}

// At returns when the status was recorded.
func (s *Status) At() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.at
}

// WithPlugin sets the plugin name on the status (for diagnostics).
func (s *Status) WithPlugin(name string) *Status {
	if s == nil {
		return nil
	}
	s.plugin = name
	return s
}

// WithAction sets the lifecycle action on the status.
func (s *Status) WithAction(action string) *Status {
	if s == nil {
		return nil
	}
	s.action = action
	return s
}
