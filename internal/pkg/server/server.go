package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/kiosk404/mirror/pkg/logger"
)

// GenericAPIServer wraps a gin engine with the process's HTTP listener.
type GenericAPIServer struct {
	*gin.Engine

	address     string
	healthz     bool
	diagnostics bool

	httpServer *http.Server
}

// Healthz reports whether readiness routes should be installed.
func (s *GenericAPIServer) Healthz() bool { return s.healthz }

// Diagnostics reports whether /diag routes should be installed.
func (s *GenericAPIServer) Diagnostics() bool { return s.diagnostics }

// Address returns the listen address.
func (s *GenericAPIServer) Address() string { return s.address }

// InstallPprof mounts the Go profiler under prefix.
func (s *GenericAPIServer) InstallPprof(prefix string) {
	pprof.Register(s.Engine, prefix)
}

// Run serves HTTP until Close is called.
func (s *GenericAPIServer) Run() error {
	logger.Info("[HTTP] start to listening the incoming requests on http address: %s", s.address)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("[HTTP] listen and serve: %v", err)
		return err
	}
	logger.Info("[HTTP] server on %s stopped", s.address)
	return nil
}

// Close gracefully shuts the HTTP server down. Event streams end once the
// bus is shut down, so this should run after the bus.
func (s *GenericAPIServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Warn("[HTTP] shutdown http server failed: %v", err)
	}
}

// requestLogger logs every request through the process logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("[HTTP] %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
