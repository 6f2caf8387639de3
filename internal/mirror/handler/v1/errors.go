package v1

import (
	"errors"
	"net/http"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/pkg/errorx"
)

// Mirror handler error codes.
// Code format: 2XXYYZ
//   - 2:  module prefix (mirror handler)
//   - XX: resource group (00=common, 01=plugin, 02=widget, 03=layout, 04=oauth, 05=events)
//   - YY: sequential error number
//   - Z:  reserved (0)

const (
	// Common request errors (200xxx).
	ErrBind       = 200001
	ErrValidation = 200002
	ErrNotReady   = 200003

	// Plugin errors (2001xx).
	ErrPluginNotFound = 200101
	ErrAssetNotFound  = 200102

	// Widget errors (2002xx).
	ErrWidgetNotFound = 200201
	ErrWidgetRender   = 200202

	// Layout errors (2003xx).
	ErrLayoutReload = 200301

	// OAuth errors (2004xx).
	ErrMissingCode   = 200401
	ErrNotAuthorizer = 200402
	ErrAuthorize     = 200403

	// Event stream errors (2005xx).
	ErrUpgrade = 200501
)

func init() {
	// Common.
	errorx.MustRegister(newCoder(ErrBind, http.StatusBadRequest, "Request binding failed"))
	errorx.MustRegister(newCoder(ErrValidation, http.StatusBadRequest, "Request validation failed"))
	errorx.MustRegister(newCoder(ErrNotReady, http.StatusServiceUnavailable, "Plugins are still starting"))

	// Plugin.
	errorx.MustRegister(newCoder(ErrPluginNotFound, http.StatusNotFound, "Plugin not found"))
	errorx.MustRegister(newCoder(ErrAssetNotFound, http.StatusNotFound, "Plugin has no static assets"))

	// Widget.
	errorx.MustRegister(newCoder(ErrWidgetNotFound, http.StatusNotFound, "Widget not found"))
	errorx.MustRegister(newCoder(ErrWidgetRender, http.StatusInternalServerError, "Widget rendering failed"))

	// Layout.
	errorx.MustRegister(newCoder(ErrLayoutReload, http.StatusInternalServerError, "Failed to reload layout"))

	// OAuth.
	errorx.MustRegister(newCoder(ErrMissingCode, http.StatusBadRequest, "Authorization code is required"))
	errorx.MustRegister(newCoder(ErrNotAuthorizer, http.StatusBadRequest, "Plugin does not accept authorization codes"))
	errorx.MustRegister(newCoder(ErrAuthorize, http.StatusInternalServerError, "Plugin rejected the authorization code"))

	// Events.
	errorx.MustRegister(newCoder(ErrUpgrade, http.StatusBadRequest, "Websocket upgrade failed"))
}

// renderError maps a plugin rendering failure to a coded error.
func renderError(err error, id string) error {
	switch {
	case errors.Is(err, errno.ErrUnknownPlugin):
		return errorx.WrapC(err, ErrPluginNotFound, "render %s", id)
	case errors.Is(err, errno.ErrTemplateNotFound), errors.Is(err, errno.ErrNoRenderer):
		return errorx.WrapC(err, ErrWidgetNotFound, "render %s", id)
	default:
		return errorx.WrapC(err, ErrWidgetRender, "render %s", id)
	}
}

type coder struct {
	code int
	http int
	msg  string
}

func newCoder(code, httpStatus int, msg string) *coder {
	return &coder{code: code, http: httpStatus, msg: msg}
}

func (c *coder) Code() int         { return c.code }
func (c *coder) HTTPStatus() int   { return c.http }
func (c *coder) String() string    { return c.msg }
func (c *coder) Reference() string { return "" }
