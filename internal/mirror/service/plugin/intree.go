package plugin

// InTreeRegistry is the set of plugin factories compiled into the binary.
// Discovery is explicit: adding a plugin means registering it here and
// restarting the server.
type InTreeRegistry struct {
	entries []inTreeEntry
}

type inTreeEntry struct {
	def     Definition
	factory PluginFactory
	args    PluginArgs
}

// NewInTreeRegistry creates a new in-tree plugin registry.
func NewInTreeRegistry() *InTreeRegistry {
	return &InTreeRegistry{}
}

// Register adds a plugin factory to the in-tree registry.
func (r *InTreeRegistry) Register(def Definition, factory PluginFactory, args PluginArgs) {
	r.entries = append(r.entries, inTreeEntry{
		def:     def,
		factory: factory,
		args:    args,
	})
}

// Len returns the number of registered factories.
func (r *InTreeRegistry) Len() int {
	return len(r.entries)
}

// Definitions lists the registered plugins in order.
func (r *InTreeRegistry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.def)
	}
	return out
}

// ApplyTo registers all in-tree plugin factories into the given Framework.
func (r *InTreeRegistry) ApplyTo(f *Framework) error {
	for _, entry := range r.entries {
		if err := f.RegisterFactory(entry.def, entry.factory, entry.args); err != nil {
			return err
		}
	}
	return nil
}
