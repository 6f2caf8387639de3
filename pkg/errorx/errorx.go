package errorx

import (
	"errors"
	"fmt"
)

type withCode struct {
	err   error
	code  int
	cause error
}

// WithCode returns a new coded error with a formatted message.
func WithCode(code int, format string, args ...interface{}) error {
	return &withCode{
		err:  fmt.Errorf(format, args...),
		code: code,
	}
}

// WrapC wraps err with a code and a formatted message.
func WrapC(err error, code int, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	return &withCode{
		err:   fmt.Errorf(format, args...),
		code:  code,
		cause: err,
	}
}

func (w *withCode) Error() string {
	if w.cause == nil {
		return w.err.Error()
	}
	return fmt.Sprintf("%s: %s", w.err.Error(), w.cause.Error())
}

func (w *withCode) Cause() error { return w.cause }

func (w *withCode) Unwrap() error { return w.cause }

// Code returns the code attached to err, or ErrUnknown.
func Code(err error) int {
	var wc *withCode
	if errors.As(err, &wc) {
		return wc.code
	}
	return ErrUnknown
}
