package builtin

import (
	"github.com/bytedance/gg/gptr"

	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin/builtin/clock"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin/builtin/connectivity"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin/builtin/joke"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin/builtin/system"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin/builtin/weather"
	genericoptions "github.com/kiosk404/mirror/internal/pkg/options"
)

type builtinPlugin struct {
	def     func() plugin.Definition
	factory plugin.PluginFactory
}

// Connectivity comes first so its votes are in place before the other
// plugins' first refresh.
var defaultPlugins = []builtinPlugin{
	{connectivity.PluginDefinition, connectivity.Factory},
	{clock.PluginDefinition, clock.Factory},
	{system.PluginDefinition, system.Factory},
	{weather.PluginDefinition, weather.Factory},
	{joke.PluginDefinition, joke.Factory},
}

// NewInTreeRegistry creates a new in-tree plugin registry with the default plugins.
// Each plugin receives plugins.entries.<id>.config as PluginArgs["config"].
// An entry with enabled: false leaves the plugin out; a nil opts or a
// disabled plugin system yields an empty registry.
func NewInTreeRegistry(opts *genericoptions.PluginsOptions) *plugin.InTreeRegistry {
	registry := plugin.NewInTreeRegistry()
	if opts != nil && !opts.Enabled {
		return registry
	}

	for _, p := range defaultPlugins {
		def := p.def()
		entry := entryFor(opts, def.ID)
		if !gptr.IndirectOr(entry.Enabled, true) {
			continue
		}
		registry.Register(def, p.factory, plugin.PluginArgs{"config": entry.Config})
	}
	return registry
}

func entryFor(opts *genericoptions.PluginsOptions, id string) genericoptions.PluginEntryConfig {
	if opts == nil {
		return genericoptions.PluginEntryConfig{}
	}
	entry := opts.Entries[id]
	if entry.Config == nil {
		entry.Config = map[string]interface{}{}
	}
	return entry
}
