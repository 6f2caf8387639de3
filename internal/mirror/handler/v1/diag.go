package v1

import (
	"bytes"
	"net/http"
	"runtime/pprof"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/internal/pkg/core"
	"github.com/kiosk404/mirror/pkg/errorx"
	"github.com/kiosk404/mirror/pkg/logger"
)

// DiagHandler serves readiness and runtime diagnostics.
type DiagHandler struct {
	framework *plugin.Framework
}

// NewDiagHandler creates a new DiagHandler.
func NewDiagHandler(f *plugin.Framework) *DiagHandler {
	return &DiagHandler{framework: f}
}

// Ready handles GET /ready: 200 once every plugin's startup hook has run.
func (h *DiagHandler) Ready(c *gin.Context) {
	if !h.framework.Ready() {
		core.WriteResponse(c, errorx.WithCode(ErrNotReady, "plugins starting"), nil)
		return
	}
	c.Status(http.StatusOK)
}

// Tasks handles GET /diag/tasks and lists every refresh task.
func (h *DiagHandler) Tasks(c *gin.Context) {
	core.WriteResponse(c, nil, h.framework.TaskStats())
}

// Stacks handles POST /diag/stacks: the goroutine dump goes to the server log.
func (h *DiagHandler) Stacks(c *gin.Context) {
	var buf bytes.Buffer
	if err := pprof.Lookup("goroutine").WriteTo(&buf, 1); err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	logger.Info("[Diag] goroutine dump:\n%s", buf.String())
	c.Status(http.StatusNoContent)
}
