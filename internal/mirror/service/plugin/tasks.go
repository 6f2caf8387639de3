package plugin

import (
	"context"

	"github.com/kiosk404/mirror/internal/mirror/service/refresh"
)

// TaskDefinition describes a refresh loop declared by a plugin. The
// framework starts it after the plugin's Start hook and stops it on shutdown.
type TaskDefinition struct {
	// Name is unique within the plugin; the task is reported as "<plugin>/<name>".
	Name string
	// Schedule drives the loop, e.g. refresh.Every(5*time.Minute).
	Schedule refresh.Schedule
	// Run is one iteration.
	Run func(ctx context.Context, pc *Context) error
	// NoVotes keeps the loop out of connectivity voting.
	NoVotes bool
}

// TaskProvider is an optional plugin interface for plugins whose refresh
// loops are fully described up front. The framework probes for it when
// loading plugins.
type TaskProvider interface {
	Plugin
	// Tasks returns the refresh loops of the plugin.
	Tasks() []TaskDefinition
}
