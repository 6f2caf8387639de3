package safego

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/kiosk404/mirror/pkg/logger"
)

// Go runs fn in a goroutine and logs any panic instead of crashing the process.
func Go(ctx context.Context, fn func()) {
	go func() {
		defer Recover(ctx, "goroutine")
		fn()
	}()
}

// Recover logs a recovered panic. It must be called directly by defer.
func Recover(_ context.Context, where string) {
	if r := recover(); r != nil {
		logger.Error("[SafeGo] panic in %s: %v\n%s", where, r, debug.Stack())
	}
}

// Call runs fn and converts a panic into an error.
func Call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			logger.Debug("[SafeGo] recovered panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}
