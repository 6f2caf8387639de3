package mirror

import (
	"github.com/gin-gonic/gin"
	"github.com/kiosk404/mirror/internal/mirror/handler/middleware"
	v1 "github.com/kiosk404/mirror/internal/mirror/handler/v1"
	"github.com/kiosk404/mirror/internal/mirror/handler/web"
	"github.com/kiosk404/mirror/internal/mirror/service/eventbus"
	"github.com/kiosk404/mirror/internal/mirror/service/layout"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	genericapiserver "github.com/kiosk404/mirror/internal/pkg/server"
)

// routerDeps holds the dependencies needed for route registration.
type routerDeps struct {
	framework  *plugin.Framework
	bus        *eventbus.Bus
	layout     *layout.Manager
	authConfig *middleware.AuthConfig
}

func initRouter(s *genericapiserver.GenericAPIServer, deps *routerDeps) error {
	installMiddleware(s.Engine, deps)
	return installController(s, deps)
}

func installMiddleware(g *gin.Engine, deps *routerDeps) {
	g.Use(gin.Recovery())
	g.Use(middleware.CORS())

	if deps.authConfig != nil {
		g.Use(middleware.BearerAuth(deps.authConfig))
	}
}

func installController(s *genericapiserver.GenericAPIServer, deps *routerDeps) error {
	g := s.Engine

	// Handlers.
	indexHandler, err := web.NewIndexHandler(deps.framework, deps.layout)
	if err != nil {
		return err
	}
	eventHandler := v1.NewEventHandler(deps.bus, nil)
	pluginHandler := v1.NewPluginHandler(deps.framework)
	widgetHandler := v1.NewWidgetHandler(deps.framework, deps.layout)
	oauthHandler := v1.NewOAuthHandler(deps.framework)
	diagHandler := v1.NewDiagHandler(deps.framework)

	// --- dashboard page ---
	g.GET("/", indexHandler.Index)
	g.StaticFS("/static", web.Static())
	g.GET("/events", eventHandler.Stream)
	g.GET("/rotator/:index", widgetHandler.Rotator)
	g.GET("/plugin/:name/*file", pluginHandler.Static)
	g.GET("/oauth/:plugin/callback", oauthHandler.Callback)
	if s.Healthz() {
		g.GET("/ready", diagHandler.Ready)
	}

	// --- /v1 route group ---
	apiV1 := g.Group("/v1")
	{
		apiV1.GET("/events", eventHandler.Cached)
		apiV1.GET("/events/ws", eventHandler.WebSocket)

		apiV1.GET("/plugins", pluginHandler.List)
		apiV1.GET("/plugins/:name", pluginHandler.Get)

		apiV1.GET("/widgets/:id", widgetHandler.Render)

		apiV1.GET("/layout", widgetHandler.Layout)
		apiV1.POST("/layout/reload", widgetHandler.ReloadLayout)
	}

	// --- diagnostics ---
	if s.Diagnostics() {
		diag := g.Group("/diag")
		{
			diag.GET("/tasks", diagHandler.Tasks)
			diag.POST("/stacks", diagHandler.Stacks)
		}
		s.InstallPprof("/diag/pprof")
	}
	return nil
}
