package options

import (
	"fmt"
	"regexp"

	"github.com/spf13/pflag"
)

var pluginIDRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// PluginsOptions holds the top-level configuration for the plugin system.
type PluginsOptions struct {
	// Enabled controls whether plugins are loaded at all. (default: true)
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Allow, when non-empty, lists the only plugins that are loaded.
	Allow []string `json:"allow" mapstructure:"allow"`
	// Deny lists plugins that are never loaded.
	Deny []string `json:"deny" mapstructure:"deny"`
	// Entries holds per-plugin configuration, keyed by plugin ID.
	// (e.g. "weather", "connectivity", "clock")
	Entries map[string]PluginEntryConfig `json:"entries" mapstructure:"entries"`
}

// PluginEntryConfig holds per-plugin configuration.
type PluginEntryConfig struct {
	Enabled *bool                  `json:"enabled,omitempty" mapstructure:"enabled"`
	Config  map[string]interface{} `json:"config,omitempty" mapstructure:"config"`
}

// NewPluginsOptions returns a new instance of PluginsOptions.
func NewPluginsOptions() *PluginsOptions {
	return &PluginsOptions{
		Enabled: true,
		Allow:   []string{},
		Deny:    []string{},
		Entries: make(map[string]PluginEntryConfig),
	}
}

// Validate checks PluginsOptions fields.
func (o *PluginsOptions) Validate() []error {
	var errs []error

	check := func(where, id string) {
		if !pluginIDRe.MatchString(id) {
			errs = append(errs, fmt.Errorf("plugins.%s: invalid plugin id %q", where, id))
		}
	}
	for _, id := range o.Allow {
		check("allow", id)
	}
	for _, id := range o.Deny {
		check("deny", id)
	}
	for id := range o.Entries {
		check("entries", id)
	}

	return errs
}

// AddFlags adds flags for the plugins options.
// Only global-level switches are exposed as CLI flags.
// Per-plugin configuration lives in the configuration file.
func (o *PluginsOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "plugins.enabled", o.Enabled, "Enable the plugin system.")
	fs.StringSliceVar(&o.Allow, "plugins.allow", o.Allow, "Only load these plugins (comma separated).")
	fs.StringSliceVar(&o.Deny, "plugins.deny", o.Deny, "Never load these plugins (comma separated).")
}
