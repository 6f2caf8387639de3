package plugin

import (
	"fmt"
	"io/fs"
	"sync"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/nikolalohinski/gonja"
	"github.com/nikolalohinski/gonja/exec"
)

// renderer turns widget contexts into markup, either through the plugin's
// own WidgetRenderer or through <widget>.html Jinja templates. It remembers
// the last context per widget so time-driven re-renders can omit data.
// Templates are parsed once per widget.
type renderer struct {
	desc *Descriptor

	mu        sync.Mutex
	last      map[string]map[string]any
	templates map[string]*exec.Template
}

func newRenderer(d *Descriptor) *renderer {
	return &renderer{
		desc:      d,
		last:      make(map[string]map[string]any),
		templates: make(map[string]*exec.Template),
	}
}

func (r *renderer) render(widget string, data map[string]any, n int) (string, error) {
	if widget == "" {
		widget = r.desc.Name()
	}

	ctx := r.context(widget, data)
	ctx["n"] = n
	ctx["widget"] = widget
	ctx["plugin"] = r.desc.Name()

	if wr, ok := r.desc.plugin.(WidgetRenderer); ok {
		return wr.RenderWidget(widget, ctx)
	}
	return r.template(widget, ctx)
}

// context stores a copy of data as the widget's last context, or loads the
// previous one when data is nil, and returns a copy safe to decorate.
func (r *renderer) context(widget string, data map[string]any) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data == nil {
		data = r.last[widget]
	} else {
		r.last[widget] = copyMap(data)
	}
	out := copyMap(data)
	if out == nil {
		out = make(map[string]any, 4)
	}
	return out
}

// copyMap copies the mappings and sequences of a widget context. Leaf
// values are shared.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m)+4)
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return copyMap(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = copyValue(e)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(v))
		for i, e := range v {
			out[i] = copyMap(e)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	default:
		return v
	}
}

func (r *renderer) template(widget string, ctx map[string]any) (string, error) {
	tpl, err := r.parsed(widget)
	if err != nil {
		return "", err
	}
	gctx := gonja.Context{"url_for": r.desc.URLFor}
	for k, v := range ctx {
		gctx[k] = v
	}
	out, err := tpl.Execute(gctx)
	if err != nil {
		return "", fmt.Errorf("render %s/%s.html: %w", r.desc.Name(), widget, err)
	}
	return out, nil
}

// parsed returns the cached template of widget, parsing it on first use.
func (r *renderer) parsed(widget string) (*exec.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tpl, ok := r.templates[widget]; ok {
		return tpl, nil
	}
	if r.desc.assets == nil {
		return nil, fmt.Errorf("%w: %s", errno.ErrNoRenderer, r.desc.Name())
	}
	src, err := fs.ReadFile(r.desc.assets, widget+".html")
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s.html", errno.ErrTemplateNotFound, r.desc.Name(), widget)
	}
	tpl, err := gonja.FromBytes(src)
	if err != nil {
		return nil, fmt.Errorf("parse %s/%s.html: %w", r.desc.Name(), widget, err)
	}
	r.templates[widget] = tpl
	return tpl, nil
}
