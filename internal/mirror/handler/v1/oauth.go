package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/internal/pkg/core"
	"github.com/kiosk404/mirror/pkg/errorx"
)

const authorizedPage = `<!doctype html><title>Authorized</title><p>Authorization complete. You can close this window.</p>`

// OAuthHandler delivers OAuth redirects to the plugin that asked for them.
type OAuthHandler struct {
	framework *plugin.Framework
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(f *plugin.Framework) *OAuthHandler {
	return &OAuthHandler{framework: f}
}

// Callback handles GET /oauth/:plugin/callback?code=...&state=...
func (h *OAuthHandler) Callback(c *gin.Context) {
	name := c.Param("plugin")
	if msg := c.Query("error"); msg != "" {
		core.WriteResponse(c, errorx.WithCode(ErrAuthorize, "%s: provider returned %s", name, msg), nil)
		return
	}
	code := c.Query("code")
	if code == "" {
		core.WriteResponse(c, errorx.WithCode(ErrMissingCode, "%s: empty code", name), nil)
		return
	}

	err := h.framework.Authorize(c.Request.Context(), name, code, c.Query("state"))
	switch {
	case err == nil:
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(authorizedPage))
	case errors.Is(err, errno.ErrUnknownPlugin):
		core.WriteResponse(c, errorx.WrapC(err, ErrPluginNotFound, "authorize"), nil)
	case errors.Is(err, errno.ErrNotAuthorizer):
		core.WriteResponse(c, errorx.WrapC(err, ErrNotAuthorizer, "authorize"), nil)
	default:
		core.WriteResponse(c, errorx.WrapC(err, ErrAuthorize, "authorize %s", name), nil)
	}
}
