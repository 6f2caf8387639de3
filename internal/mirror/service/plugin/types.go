package plugin

import (
	"context"
	"fmt"
	"io/fs"
	"time"
)

// Plugin is the fundamental interface that all plugins must implement.
// Every other hook is optional and detected once, when the plugin is loaded.
type Plugin interface {
	// Name returns the unique identifier of this plugin.
	// Lowercase letters, digits and underscores, starting with a letter.
	Name() string
}

// Starter is implemented by plugins with work to do at server start,
// typically scheduling refresh tasks through the Context.
type Starter interface {
	Plugin
	Start(ctx context.Context, pc *Context) error
}

// Stopper is implemented by plugins that release resources on shutdown.
// Tasks started through the Context are stopped by the framework afterwards.
type Stopper interface {
	Plugin
	Stop(ctx context.Context, pc *Context) error
}

// Configurer is implemented by plugins with an interactive one-time setup,
// run by `mirrorctl configure`.
type Configurer interface {
	Plugin
	Configure(ctx context.Context, cc *ConfigureContext) error
}

// WidgetRenderer is implemented by plugins that render widgets in code
// instead of shipping templates.
type WidgetRenderer interface {
	Plugin
	RenderWidget(widget string, data map[string]any) (string, error)
}

// Authorizer is implemented by plugins that finish an OAuth flow through
// the server's callback route.
type Authorizer interface {
	Plugin
	SetAuthorizationCode(ctx context.Context, pc *Context, code, state string) error
}

// AssetProvider is implemented by plugins that ship widget templates
// (<widget>.html) and a static/ directory.
type AssetProvider interface {
	Plugin
	Assets() fs.FS
}

// PluginFactory creates a plugin instance. It is called once during
// framework initialization.
type PluginFactory func(args PluginArgs) (Plugin, error)

// PluginArgs is a map of arguments passed to the PluginFactory.
// The "config" key carries the plugin's entry from the server configuration.
type PluginArgs map[string]interface{}

// Config returns the "config" argument as a map, never nil.
func (a PluginArgs) Config() map[string]interface{} {
	if cfg, ok := a["config"].(map[string]interface{}); ok && cfg != nil {
		return cfg
	}
	return map[string]interface{}{}
}

// String returns a string config value or def.
func (a PluginArgs) String(key, def string) string {
	if v, ok := a.Config()[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Duration returns a positive duration config value, given as "5m" or as
// seconds.
func (a PluginArgs) Duration(key string, def time.Duration) (time.Duration, error) {
	var d time.Duration
	switch v := a.Config()[key].(type) {
	case nil:
		return def, nil
	case string:
		var err error
		if d, err = time.ParseDuration(v); err != nil {
			return 0, fmt.Errorf("config %s: %w", key, err)
		}
	case int:
		d = time.Duration(v) * time.Second
	case int64:
		d = time.Duration(v) * time.Second
	case float64:
		d = time.Duration(v * float64(time.Second))
	default:
		return 0, fmt.Errorf("config %s: unsupported duration %v", key, v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config %s: duration %v must be positive", key, d)
	}
	return d, nil
}

// Definition is the static metadata for a plugin.
type Definition struct {
	ID   string
	Name string
	// Description is Markdown, shown by `mirrorctl plugins describe`.
	Description string
}
