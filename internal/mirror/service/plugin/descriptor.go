package plugin

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
)

// Capabilities records which optional hooks a plugin implements.
type Capabilities struct {
	Startup   bool `json:"startup"`
	Shutdown  bool `json:"shutdown"`
	Configure bool `json:"configure"`
	Render    bool `json:"render"`
	Authorize bool `json:"authorize"`
}

// String lists the enabled capabilities, e.g. "startup,render".
func (c Capabilities) String() string {
	var out []string
	for _, e := range []struct {
		on   bool
		name string
	}{
		{c.Startup, "startup"},
		{c.Shutdown, "shutdown"},
		{c.Configure, "configure"},
		{c.Render, "render"},
		{c.Authorize, "authorize"},
	} {
		if e.on {
			out = append(out, e.name)
		}
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ",")
}

var pluginNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateName rejects plugin names that would be ambiguous in widget ids
// and event names.
func ValidateName(name string) error {
	if !pluginNameRe.MatchString(name) {
		return fmt.Errorf("%w: plugin %q", errno.ErrInvalidName, name)
	}
	return nil
}

// Descriptor is a loaded plugin: its definition, implementation, detected
// capabilities and assets. It does not change after loading.
type Descriptor struct {
	def      Definition
	plugin   Plugin
	caps     Capabilities
	assets   fs.FS
	renderer *renderer
}

func newDescriptor(def Definition, p Plugin) (*Descriptor, error) {
	name := p.Name()
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	d := &Descriptor{def: def, plugin: p}
	if ap, ok := p.(AssetProvider); ok {
		d.assets = ap.Assets()
	}
	_, isRenderer := p.(WidgetRenderer)
	_, isStarter := p.(Starter)
	_, isTaskProvider := p.(TaskProvider)
	_, isStopper := p.(Stopper)
	_, isConfigurer := p.(Configurer)
	_, isAuthorizer := p.(Authorizer)
	d.caps = Capabilities{
		Startup:   isStarter || isTaskProvider,
		Shutdown:  isStopper,
		Configure: isConfigurer,
		Render:    isRenderer || d.hasTemplates(),
		Authorize: isAuthorizer,
	}
	d.renderer = newRenderer(d)
	return d, nil
}

// Name returns the plugin name.
func (d *Descriptor) Name() string { return d.plugin.Name() }

// Definition returns the static metadata.
func (d *Descriptor) Definition() Definition { return d.def }

// Plugin returns the implementation.
func (d *Descriptor) Plugin() Plugin { return d.plugin }

// Capabilities returns the detected hooks.
func (d *Descriptor) Capabilities() Capabilities { return d.caps }

// Assets returns the plugin's asset tree, or nil.
func (d *Descriptor) Assets() fs.FS { return d.assets }

// StaticFS returns the static/ subtree, or nil when there is none.
func (d *Descriptor) StaticFS() fs.FS {
	if d.assets == nil {
		return nil
	}
	if info, err := fs.Stat(d.assets, "static"); err != nil || !info.IsDir() {
		return nil
	}
	sub, err := fs.Sub(d.assets, "static")
	if err != nil {
		return nil
	}
	return sub
}

// URLFor returns the public URL of a static file.
func (d *Descriptor) URLFor(file string) string {
	return "/plugin/" + d.Name() + "/" + strings.TrimPrefix(file, "/")
}

// Scripts returns the URLs of the plugin's *.js files.
func (d *Descriptor) Scripts() []string { return d.staticURLs("*.js") }

// Stylesheets returns the URLs of the plugin's *.css files.
func (d *Descriptor) Stylesheets() []string { return d.staticURLs("*.css") }

// Widgets returns the names of the plugin's widget templates.
func (d *Descriptor) Widgets() []string {
	if d.assets == nil {
		return nil
	}
	matches, _ := fs.Glob(d.assets, "*.html")
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSuffix(m, ".html"))
	}
	sort.Strings(out)
	return out
}

// Render renders a widget. widget "" means the plugin's default widget; a
// nil data reuses the context last rendered for that widget.
func (d *Descriptor) Render(widget string, data map[string]any, n int) (string, error) {
	return d.renderer.render(widget, data, n)
}

// EventName returns the bus event carrying a widget's markup.
func (d *Descriptor) EventName(widget string) string {
	if widget == "" || widget == d.Name() {
		return d.Name() + ".refresh"
	}
	return d.Name() + "." + widget + ".refresh"
}

func (d *Descriptor) hasTemplates() bool {
	return len(d.Widgets()) > 0
}

func (d *Descriptor) staticURLs(pattern string) []string {
	static := d.StaticFS()
	if static == nil {
		return nil
	}
	var out []string
	_ = fs.WalkDir(static, ".", func(p string, e fs.DirEntry, err error) error {
		if err != nil || e.IsDir() {
			return nil
		}
		if ok, _ := path.Match(pattern, e.Name()); ok {
			out = append(out, d.URLFor(p))
		}
		return nil
	})
	sort.Strings(out)
	return out
}

// SplitWidgetID splits "<plugin>-<widget>", "<plugin>.<widget>" or
// "<plugin>" into its parts.
func SplitWidgetID(id string) (plugin, widget string) {
	if i := strings.IndexAny(id, ".-"); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}
