package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/mirror/internal/mirror/service/layout"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/internal/pkg/core"
	"github.com/kiosk404/mirror/pkg/errorx"
)

// WidgetHandler renders widgets on demand and drives the rotator.
type WidgetHandler struct {
	framework *plugin.Framework
	layout    *layout.Manager
}

// NewWidgetHandler creates a new WidgetHandler.
func NewWidgetHandler(f *plugin.Framework, m *layout.Manager) *WidgetHandler {
	return &WidgetHandler{framework: f, layout: m}
}

// Render handles GET /v1/widgets/:id?n=<counter> and returns the markup of
// the widget's last context.
func (h *WidgetHandler) Render(c *gin.Context) {
	id := c.Param("id")
	n, err := intQuery(c, "n")
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	html, err := h.framework.RenderWidget(id, n)
	if err != nil {
		core.WriteResponse(c, renderError(err, id), nil)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// Rotator handles GET /rotator/:index?n=<counter>. It renders the next
// rotator widget with content and tells the page where to continue.
func (h *WidgetHandler) Rotator(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrValidation, "rotator index"), nil)
		return
	}
	n, err := intQuery(c, "n")
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}

	core.WriteResponse(c, nil, layout.Rotate(h.layout.Current().Rotator, index, n, h.framework.RenderWidget))
}

// Layout handles GET /v1/layout.
func (h *WidgetHandler) Layout(c *gin.Context) {
	core.WriteResponse(c, nil, h.layout.Current())
}

// ReloadLayout handles POST /v1/layout/reload.
func (h *WidgetHandler) ReloadLayout(c *gin.Context) {
	l, err := h.layout.Reload()
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrLayoutReload, "reload layout"), nil)
		return
	}
	core.WriteResponse(c, nil, l)
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errorx.WithCode(ErrValidation, "query %s=%q must be a non-negative integer", key, raw)
	}
	return v, nil
}
