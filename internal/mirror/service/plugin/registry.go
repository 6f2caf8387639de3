package plugin

import (
	"fmt"
	"sync"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
)

// Registry holds the loaded plugins, their contexts and the status of the
// last lifecycle action run for each of them.
//
// Thread-safe: all mutations are guarded by a mutex.
type Registry struct {
	mu sync.RWMutex

	// descriptors holds all loaded plugins, keyed by plugin name.
	descriptors map[string]*Descriptor

	// pluginOrder preserves the registration order of plugins.
	pluginOrder []string

	// contexts holds the runtime context handed to each plugin.
	contexts map[string]*Context

	// statuses holds the outcome of the last lifecycle action per plugin.
	statuses map[string]*Status
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string]*Descriptor),
		contexts:    make(map[string]*Context),
		statuses:    make(map[string]*Status),
	}
}

// register adds a plugin to the registry. Called by Framework.
func (r *Registry) register(d *Descriptor, pc *Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := d.Name()
	if _, exists := r.descriptors[name]; exists {
		return fmt.Errorf("%w: %q", errno.ErrPluginExists, name)
	}
	r.descriptors[name] = d
	r.contexts[name] = pc
	r.statuses[name] = NewStatus(Pending).WithPlugin(name).WithAction(ActionLoad)
	r.pluginOrder = append(r.pluginOrder, name)
	return nil
}

func (r *Registry) setStatus(name string, s *Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[name] = s
}

// Descriptor returns a loaded plugin by name.
func (r *Registry) Descriptor(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	return d, ok
}

// Context returns the runtime context of a loaded plugin.
func (r *Registry) Context(name string) (*Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pc, ok := r.contexts[name]
	return pc, ok
}

// Status returns the last lifecycle status of a plugin, or nil.
func (r *Registry) Status(name string) *Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statuses[name]
}

// Descriptors returns the loaded plugins in registration order.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Descriptor, 0, len(r.pluginOrder))
	for _, name := range r.pluginOrder {
		result = append(result, r.descriptors[name])
	}
	return result
}

// PluginNames returns the names of all loaded plugins in registration order.
func (r *Registry) PluginNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, len(r.pluginOrder))
	copy(result, r.pluginOrder)
	return result
}

// Len returns the number of loaded plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descriptors)
}
