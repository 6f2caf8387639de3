package plugin

import (
	"context"
	"sync"
	"time"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/internal/mirror/service/eventbus"
	"github.com/kiosk404/mirror/internal/mirror/service/refresh"
	"github.com/kiosk404/mirror/internal/mirror/store"
	"github.com/kiosk404/mirror/pkg/logger"
)

const (
	// SourceKey names the posting plugin in mapping payloads.
	SourceKey = "_source"
)

// Context is what a plugin sees of the server: its own table, the event bus
// scoped to its name, the shared connectivity vote and its refresh tasks.
//
// Store and bus errors are returned as-is; plugin errors are not caught here.
type Context struct {
	desc  *Descriptor
	bus   eventbus.Poster
	table *store.Table
	conn  *Connectivity

	// runCtx bounds the plugin's refresh tasks.
	runCtx context.Context

	mu    sync.Mutex
	tasks map[string]*refresh.Task
	group refresh.Group
}

func newContext(runCtx context.Context, d *Descriptor, bus eventbus.Poster, s *store.Store, conn *Connectivity) *Context {
	return &Context{
		desc:   d,
		bus:    bus,
		table:  s.Table(d.Name()),
		conn:   conn,
		runCtx: runCtx,
		tasks:  make(map[string]*refresh.Task),
	}
}

// Name returns the plugin name.
func (c *Context) Name() string { return c.desc.Name() }

// Descriptor returns the plugin's descriptor.
func (c *Context) Descriptor() *Descriptor { return c.desc }

// DB returns the plugin's private table.
func (c *Context) DB() *store.Table { return c.table }

// WidgetUpdated renders widget with data and posts the markup as
// "<plugin>[.<widget>].refresh". A nil data re-renders the last context.
func (c *Context) WidgetUpdated(ctx context.Context, data map[string]any, widget string) error {
	html, err := c.desc.Render(widget, data, 0)
	if err != nil {
		return err
	}
	return c.bus.Post(ctx, eventbus.NewEvent(c.desc.EventName(widget), html))
}

// PostEvent posts a raw event named "<plugin>.<name>". Mapping payloads are
// copied and tagged with the source plugin and the posting time.
func (c *Context) PostEvent(ctx context.Context, name string, data any) error {
	if m, ok := data.(map[string]any); ok {
		tagged := make(map[string]any, len(m)+2)
		for k, v := range m {
			tagged[k] = v
		}
		tagged[SourceKey] = c.Name()
		tagged[eventbus.VolatileKey] = time.Now().UTC().Format(time.RFC3339)
		data = tagged
	}
	return c.bus.Post(ctx, eventbus.NewEvent(c.Name()+"."+name, data))
}

// VoteConnected records a successful upstream call.
func (c *Context) VoteConnected() int {
	score := c.conn.Vote(1)
	logger.Debug("[Plugin] %s votes connected; score: %d", c.Name(), score)
	return score
}

// VoteDisconnected records a network failure.
func (c *Context) VoteDisconnected(err error) int {
	score := c.conn.Vote(-1)
	logger.Warn("[Plugin] %s votes disconnected; score: %d: %v", c.Name(), score, err)
	return score
}

// IsConnected reports the aggregate connectivity vote.
func (c *Context) IsConnected() bool { return c.conn.Connected() }

// Score returns the aggregate connectivity score.
func (c *Context) Score() int { return c.conn.Score() }

// TaskOption configures a task started through Every.
type TaskOption func(*taskOptions)

type taskOptions struct {
	noVotes bool
}

// WithoutVotes keeps a task's results out of the connectivity vote, for
// loops that do not talk to the network.
func WithoutVotes() TaskOption {
	return func(o *taskOptions) { o.noVotes = true }
}

// Every starts a refresh loop owned by the plugin. Its results are
// classified: success votes connected, network failures vote disconnected,
// credentials errors ask the operator to re-run configuration and anything
// else is logged as an error. Starting a task under an existing name
// replaces the old one.
func (c *Context) Every(name string, schedule refresh.Schedule, fn refresh.Func, opts ...TaskOption) *refresh.Task {
	var o taskOptions
	for _, opt := range opts {
		opt(&o)
	}

	c.mu.Lock()
	old := c.tasks[name]
	c.mu.Unlock()
	if old != nil {
		old.Stop()
	}

	task := c.group.Start(c.runCtx, c.Name()+"/"+name, schedule, fn,
		refresh.WithResultHandler(c.resultHandler(!o.noVotes)))

	c.mu.Lock()
	c.tasks[name] = task
	c.mu.Unlock()
	return task
}

// Task returns a task started through Every, e.g. to Wake it.
func (c *Context) Task(name string) (*refresh.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tasks[name]
	return t, ok
}

// WakeAll wakes every task of the plugin.
func (c *Context) WakeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tasks {
		t.Wake()
	}
}

// TaskStats lists the plugin's running and stopped tasks.
func (c *Context) TaskStats() []refresh.Stats {
	return c.group.Stats()
}

func (c *Context) stopTasks() {
	c.group.Stop()
	c.mu.Lock()
	c.tasks = make(map[string]*refresh.Task)
	c.mu.Unlock()
}

func (c *Context) resultHandler(votes bool) refresh.ResultHandler {
	return func(task string, err error) {
		switch {
		case err == nil:
			if votes {
				c.VoteConnected()
			}
		case errno.IsCredentials(err):
			logger.Error("[Plugin] %s: %v; run `mirrorctl configure %s`", task, err, c.Name())
		case errno.IsNetwork(err):
			if votes {
				c.VoteDisconnected(err)
				return
			}
			logger.Warn("[Plugin] %s: network error: %v", task, err)
		default:
			logger.Error("[Plugin] %s failed: %v", task, err)
		}
	}
}
