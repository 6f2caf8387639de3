package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/internal/pkg/core"
	"github.com/kiosk404/mirror/pkg/errorx"
)

// PluginHandler serves plugin metadata and plugin static assets.
type PluginHandler struct {
	framework *plugin.Framework
}

// NewPluginHandler creates a new PluginHandler.
func NewPluginHandler(f *plugin.Framework) *PluginHandler {
	return &PluginHandler{framework: f}
}

// List handles GET /v1/plugins.
func (h *PluginHandler) List(c *gin.Context) {
	reg := h.framework.Registry()
	descs := reg.Descriptors()
	data := make([]PluginResponse, 0, len(descs))
	for _, d := range descs {
		data = append(data, toPluginResponse(d, reg.Status(d.Name())))
	}

	core.WriteResponse(c, nil, PluginListResponse{
		Ready:   h.framework.Ready(),
		Score:   h.framework.Connectivity().Score(),
		Plugins: data,
	})
}

// Get handles GET /v1/plugins/:name.
func (h *PluginHandler) Get(c *gin.Context) {
	name := c.Param("name")
	d, err := h.framework.Descriptor(name)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrPluginNotFound, "get plugin"), nil)
		return
	}
	core.WriteResponse(c, nil, toPluginResponse(d, h.framework.Registry().Status(name)))
}

// Static handles GET /plugin/:name/*file from the plugin's static/ tree.
func (h *PluginHandler) Static(c *gin.Context) {
	d, err := h.framework.Descriptor(c.Param("name"))
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrPluginNotFound, "serve asset"), nil)
		return
	}
	static := d.StaticFS()
	file := c.Param("file")
	if static == nil || strings.HasSuffix(file, "/") {
		core.WriteResponse(c, errorx.WithCode(ErrAssetNotFound, "no asset %s for %s", file, d.Name()), nil)
		return
	}
	c.FileFromFS(file, http.FS(static))
}
