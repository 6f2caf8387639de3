package plugin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/internal/mirror/service/eventbus"
	"github.com/kiosk404/mirror/internal/mirror/service/refresh"
	"github.com/kiosk404/mirror/internal/mirror/store"
	"github.com/kiosk404/mirror/pkg/logger"
	"github.com/kiosk404/mirror/pkg/utils/safego"
)

// Lifecycle actions, as logged and recorded in Status.
const (
	ActionLoad      = "load_plugin"
	ActionStart     = "start_plugin"
	ActionStop      = "stop_plugin"
	ActionConfigure = "configure_plugin"
	ActionAuthorize = "authorize_plugin"
)

// Framework loads plugins, drives their lifecycle and isolates their
// failures: an error or panic from one plugin hook is logged and recorded,
// and never stops the other plugins or the server.
type Framework struct {
	registry  *Registry
	factories []registeredFactory
	bus       eventbus.Poster
	store     *store.Store
	conn      *Connectivity
	allow     []string
	deny      []string

	runCtx    context.Context
	cancelRun context.CancelFunc

	initOnce sync.Once
	ready    atomic.Bool

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex
	stopped   bool
}

// registeredFactory pairs a PluginFactory with its Definition and args.
type registeredFactory struct {
	definition Definition
	factory    PluginFactory
	args       PluginArgs
}

// Config holds the configuration for creating a Framework.
type Config struct {
	// Bus receives widget updates. Defaults to a private bus nobody listens to.
	Bus eventbus.Poster
	// Store holds one table per plugin. Defaults to an in-memory store.
	Store *store.Store
	// Connectivity is the shared vote. Defaults to a new counter.
	Connectivity *Connectivity
	// Allow, when non-empty, lists the only plugin IDs that are loaded.
	Allow []string
	// Deny lists plugin IDs that are never loaded.
	Deny []string
}

// CompletedConfig is the completed framework configuration.
type CompletedConfig struct {
	*Config
}

// Complete fills in defaults for the framework configuration.
func (c *Config) Complete() CompletedConfig {
	if c.Bus == nil {
		c.Bus = eventbus.New()
	}
	if c.Store == nil {
		c.Store = store.New(store.NewMemoryBackend(), store.JSONCodec{})
	}
	if c.Connectivity == nil {
		c.Connectivity = NewConnectivity()
	}
	return CompletedConfig{c}
}

// New creates a new Framework from the completed configuration.
func (c CompletedConfig) New() *Framework {
	runCtx, cancel := context.WithCancel(context.Background())
	return &Framework{
		registry:  NewRegistry(),
		bus:       c.Bus,
		store:     c.Store,
		conn:      c.Connectivity,
		allow:     c.Allow,
		deny:      c.Deny,
		runCtx:    runCtx,
		cancelRun: cancel,
	}
}

// RegisterFactory registers a PluginFactory with its Definition and optional
// args. Factories are instantiated by Init in registration order.
func (f *Framework) RegisterFactory(def Definition, factory PluginFactory, args PluginArgs) error {
	for _, rf := range f.factories {
		if rf.definition.ID == def.ID {
			return fmt.Errorf("%w: factory %q", errno.ErrPluginExists, def.ID)
		}
	}
	f.factories = append(f.factories, registeredFactory{
		definition: def,
		factory:    factory,
		args:       args,
	})
	return nil
}

// Init instantiates every registered factory once. A factory that fails or
// yields an invalid plugin is logged and skipped.
func (f *Framework) Init() error {
	f.initOnce.Do(f.init)
	return nil
}

func (f *Framework) init() {
	logger.Info("[Plugin] initializing framework with %d plugin factories", len(f.factories))

	for _, entry := range f.factories {
		def := entry.definition
		if !f.allowed(def.ID) {
			logger.Info("[Plugin] skipping plugin %q: not allowed by configuration", def.ID)
			continue
		}

		var p Plugin
		err := safego.Call(func() error {
			var err error
			p, err = entry.factory(entry.args)
			if err == nil && p == nil {
				err = fmt.Errorf("factory returned no plugin")
			}
			return err
		})
		if err != nil {
			logger.Error("[Plugin] error from plugin %q (%s): %v", def.ID, ActionLoad, err)
			continue
		}

		d, err := newDescriptor(def, p)
		if err != nil {
			logger.Error("[Plugin] error from plugin %q (%s): %v", def.ID, ActionLoad, err)
			continue
		}
		pc := newContext(f.runCtx, d, f.bus, f.store, f.conn)
		if err := f.registry.register(d, pc); err != nil {
			logger.Error("[Plugin] error from plugin %q (%s): %v", def.ID, ActionLoad, err)
			continue
		}
		logger.Info("[Plugin] loaded plugin %q (%s)", d.Name(), d.Capabilities())
	}

	logger.Info("[Plugin] framework initialized: %d plugins", f.registry.Len())
}

func (f *Framework) allowed(id string) bool {
	if slices.Contains(f.deny, id) {
		return false
	}
	return len(f.allow) == 0 || slices.Contains(f.allow, id)
}

// guard runs one plugin hook, converting panics to errors, and records the
// outcome.
func (f *Framework) guard(name, action string, fn func() error) *Status {
	var st *Status
	if err := safego.Call(fn); err != nil {
		logger.Error("[Plugin] error from plugin %q (%s): %v", name, action, err)
		st = NewStatusWithError(err)
	} else {
		st = NewStatus(Success)
	}
	st.WithPlugin(name).WithAction(action)
	f.registry.setStatus(name, st)
	return st
}

// Start calls every plugin's startup hook and starts the refresh loops of
// TaskProvider plugins. It never fails because of a plugin. Start after
// Stop does nothing.
func (f *Framework) Start(ctx context.Context) error {
	_ = f.Init()

	f.lifecycle.Lock()
	defer f.lifecycle.Unlock()
	if f.stopped {
		logger.Warn("[Plugin] framework already stopped, not starting plugins")
		return nil
	}

	for _, d := range f.registry.Descriptors() {
		pc, _ := f.registry.Context(d.Name())
		if !d.Capabilities().Startup {
			f.registry.setStatus(d.Name(), NewStatus(Skip).WithPlugin(d.Name()).WithAction(ActionStart))
			continue
		}

		logger.Info("[Plugin] starting plugin %q", d.Name())
		f.guard(d.Name(), ActionStart, func() error {
			if s, ok := d.Plugin().(Starter); ok {
				if err := s.Start(ctx, pc); err != nil {
					return err
				}
			}
			if tp, ok := d.Plugin().(TaskProvider); ok {
				for _, td := range tp.Tasks() {
					startTask(pc, td)
				}
			}
			return nil
		})
	}

	f.ready.Store(true)
	logger.Info("[Plugin] all plugins started")
	return nil
}

func startTask(pc *Context, td TaskDefinition) {
	var opts []TaskOption
	if td.NoVotes {
		opts = append(opts, WithoutVotes())
	}
	run := td.Run
	pc.Every(td.Name, td.Schedule, func(ctx context.Context) error {
		return run(ctx, pc)
	}, opts...)
}

// Stop calls every plugin's shutdown hook in reverse order, then stops the
// plugin's refresh tasks. Errors are logged, never returned. A Stop that
// races Start cancels the plugins' run context right away and waits for
// Start to return. Later calls are no-ops.
func (f *Framework) Stop(ctx context.Context) error {
	f.cancelRun()

	f.lifecycle.Lock()
	defer f.lifecycle.Unlock()
	if f.stopped {
		return nil
	}
	f.stopped = true
	f.ready.Store(false)

	descs := f.registry.Descriptors()
	for i := len(descs) - 1; i >= 0; i-- {
		d := descs[i]
		pc, _ := f.registry.Context(d.Name())
		if st, ok := d.Plugin().(Stopper); ok {
			logger.Info("[Plugin] stopping plugin %q", d.Name())
			f.guard(d.Name(), ActionStop, func() error {
				return st.Stop(ctx, pc)
			})
		}
		pc.stopTasks()
	}

	logger.Info("[Plugin] all plugins stopped")
	return nil
}

// Ready reports whether Start has finished and Stop has not begun.
func (f *Framework) Ready() bool { return f.ready.Load() }

// Registry returns the underlying plugin registry.
func (f *Framework) Registry() *Registry { return f.registry }

// Connectivity returns the shared vote.
func (f *Framework) Connectivity() *Connectivity { return f.conn }

// Descriptor returns a loaded plugin or ErrUnknownPlugin.
func (f *Framework) Descriptor(name string) (*Descriptor, error) {
	d, ok := f.registry.Descriptor(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errno.ErrUnknownPlugin, name)
	}
	return d, nil
}

// Context returns a loaded plugin's runtime context or ErrUnknownPlugin.
func (f *Framework) Context(name string) (*Context, error) {
	pc, ok := f.registry.Context(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errno.ErrUnknownPlugin, name)
	}
	return pc, nil
}

// TaskStats lists every plugin refresh task.
func (f *Framework) TaskStats() []refresh.Stats {
	var out []refresh.Stats
	for _, name := range f.registry.PluginNames() {
		pc, _ := f.registry.Context(name)
		out = append(out, pc.TaskStats()...)
	}
	return out
}

// RenderWidget renders the widget identified by "<plugin>-<widget>",
// "<plugin>.<widget>" or "<plugin>".
func (f *Framework) RenderWidget(id string, n int) (string, error) {
	name, widget := SplitWidgetID(id)
	d, err := f.Descriptor(name)
	if err != nil {
		return "", err
	}
	return d.Render(widget, nil, n)
}

// Configure runs the configuration hook of the named plugins, or of every
// plugin that has one when names is empty. A failing plugin does not stop
// the others; all failures are returned joined.
func (f *Framework) Configure(ctx context.Context, names []string, prompter Prompter, oauth OAuthHelper) error {
	_ = f.Init()

	var targets []*Descriptor
	if len(names) == 0 {
		for _, d := range f.registry.Descriptors() {
			if d.Capabilities().Configure {
				targets = append(targets, d)
			}
		}
	} else {
		for _, name := range names {
			d, err := f.Descriptor(name)
			if err != nil {
				return err
			}
			targets = append(targets, d)
		}
	}

	var errs []error
	for _, d := range targets {
		cfg, ok := d.Plugin().(Configurer)
		if !ok {
			logger.Info("[Plugin] plugin %q has nothing to configure", d.Name())
			continue
		}
		cc := NewConfigureContext(d, f.store.Table(d.Name()), prompter, oauth)
		st := f.guard(d.Name(), ActionConfigure, func() error {
			return cfg.Configure(ctx, cc)
		})
		if err := st.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Authorize hands an OAuth authorization code to the named plugin.
func (f *Framework) Authorize(ctx context.Context, name, code, state string) error {
	d, err := f.Descriptor(name)
	if err != nil {
		return err
	}
	a, ok := d.Plugin().(Authorizer)
	if !ok {
		return fmt.Errorf("%w: %s", errno.ErrNotAuthorizer, name)
	}
	pc, _ := f.registry.Context(name)
	return f.guard(name, ActionAuthorize, func() error {
		return a.SetAuthorizationCode(ctx, pc, code, state)
	}).Err()
}
