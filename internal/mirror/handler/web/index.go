// Package web serves the dashboard page itself.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/mirror/internal/mirror/service/layout"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/internal/pkg/core"
	"github.com/kiosk404/mirror/pkg/logger"
	"github.com/nikolalohinski/gonja"
)

//go:embed templates static
var content embed.FS

// Static returns the dashboard's own scripts and stylesheets.
func Static() http.FileSystem {
	sub, _ := fs.Sub(content, "static")
	return http.FS(sub)
}

// IndexHandler renders the dashboard page from the current layout.
type IndexHandler struct {
	framework *plugin.Framework
	layout    *layout.Manager
	render    func(map[string]any) (string, error)
}

// NewIndexHandler parses the page template.
func NewIndexHandler(f *plugin.Framework, m *layout.Manager) (*IndexHandler, error) {
	src, err := content.ReadFile("templates/index.html")
	if err != nil {
		return nil, err
	}
	tpl, err := gonja.FromBytes(src)
	if err != nil {
		return nil, err
	}
	return &IndexHandler{framework: f, layout: m, render: tpl.Execute}, nil
}

// Index handles GET /.
func (h *IndexHandler) Index(c *gin.Context) {
	l := h.layout.Current()

	var scripts, stylesheets []string
	for _, d := range h.framework.Registry().Descriptors() {
		scripts = append(scripts, d.Scripts()...)
		stylesheets = append(stylesheets, d.Stylesheets()...)
	}

	out, err := h.render(gonja.Context{
		"columns": []map[string]any{
			{"name": "left", "widgets": h.column(l.Left)},
			{"name": "right", "widgets": h.column(l.Right)},
			{"name": "bottom", "widgets": h.column(l.Bottom)},
		},
		"rotator":     len(l.Rotator) > 0,
		"scripts":     scripts,
		"stylesheets": stylesheets,
	})
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
}

// column renders each widget's last context so the page is complete
// before the event stream connects.
func (h *IndexHandler) column(ids []string) []map[string]any {
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		name, widget := plugin.SplitWidgetID(id)
		d, err := h.framework.Descriptor(name)
		if err != nil {
			continue
		}
		html, err := d.Render(widget, nil, 0)
		if err != nil {
			logger.Debug("[Web] widget %s not rendered yet: %v", id, err)
			html = ""
		}
		out = append(out, map[string]any{
			"id":    id,
			"event": d.EventName(widget),
			"html":  html,
		})
	}
	return out
}
