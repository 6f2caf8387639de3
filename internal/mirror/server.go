package mirror

import (
	"context"
	"fmt"
	"log"

	"github.com/kiosk404/mirror/internal/mirror/config"
	"github.com/kiosk404/mirror/internal/mirror/handler/middleware"
	"github.com/kiosk404/mirror/internal/mirror/service/eventbus"
	"github.com/kiosk404/mirror/internal/mirror/service/layout"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin/builtin"
	"github.com/kiosk404/mirror/internal/mirror/store"
	genericapiserver "github.com/kiosk404/mirror/internal/pkg/server"
	"github.com/kiosk404/mirror/pkg/logger"
	"github.com/kiosk404/mirror/pkg/shutdown"
	"github.com/kiosk404/mirror/pkg/shutdown/posixsignal"
	"github.com/kiosk404/mirror/pkg/utils/safego"
)

type mirrorServer struct {
	gs               *shutdown.GracefulShutdown
	genericAPIServer *genericapiserver.GenericAPIServer

	store           *store.Store
	bus             *eventbus.Bus
	pluginFramework *plugin.Framework
	layoutManager   *layout.Manager
	authConfig      *middleware.AuthConfig

	watchLayout bool
	// runCtx ends when shutdown begins. Both are set in PrepareRun, before
	// any goroutine that reads them starts.
	runCtx    context.Context
	cancelRun context.CancelFunc
}

type preparedMirrorServer struct {
	*mirrorServer
}

func createMirrorServer(cfg *config.Config) (*mirrorServer, error) {
	gs := shutdown.New()
	gs.AddShutdownManager(posixsignal.NewPosixSignalManager())

	genericConfig, err := buildGenericConfig(cfg)
	if err != nil {
		return nil, err
	}
	genericServer, err := genericConfig.Complete().New()
	if err != nil {
		return nil, err
	}

	storeConfig, err := buildStoreConfig(cfg)
	if err != nil {
		return nil, err
	}
	st, err := storeConfig.Complete().New()
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	bus := eventbus.New()

	pluginCfg := &plugin.Config{
		Bus:   bus,
		Store: st,
		Allow: cfg.PluginOptions.Allow,
		Deny:  cfg.PluginOptions.Deny,
	}
	pluginFramework := pluginCfg.Complete().New()

	if cfg.PluginOptions.Enabled {
		// Built-in plugins get plugins.entries[<id>].config as their args.
		inTreeRegistry := builtin.NewInTreeRegistry(cfg.PluginOptions)
		if err := inTreeRegistry.ApplyTo(pluginFramework); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to register in-tree plugins: %w", err)
		}
		// Instantiate plugins now so the layout can be checked against them.
		// Startup hooks run once the server is serving.
		if err := pluginFramework.Init(); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to initialize plugin framework: %w", err)
		}
		logger.Info("[Mirror] plugin framework initialized (%d plugins loaded)", pluginFramework.Registry().Len())
	} else {
		logger.Info("[Mirror] plugin framework disabled (plugins.enabled=false), skipping plugin loading")
	}

	layoutCfg := &layout.Config{
		File: cfg.LayoutOptions.File,
		Known: func(name string) bool {
			_, ok := pluginFramework.Registry().Descriptor(name)
			return ok
		},
		Split:    plugin.SplitWidgetID,
		Defaults: defaultWidgets(pluginFramework),
		Bus:      bus,
	}
	layoutManager, err := layoutCfg.Complete().New()
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to load layout: %w", err)
	}

	return &mirrorServer{
		gs:               gs,
		genericAPIServer: genericServer,
		store:            st,
		bus:              bus,
		pluginFramework:  pluginFramework,
		layoutManager:    layoutManager,
		authConfig: &middleware.AuthConfig{
			Token:  cfg.GenericServerRunOptions.Token,
			Public: []string{"/ready", "/oauth/"},
		},
		watchLayout: cfg.LayoutOptions.Watch,
	}, nil
}

func (s *mirrorServer) PrepareRun() (preparedMirrorServer, error) {
	if err := initRouter(s.genericAPIServer, &routerDeps{
		framework:  s.pluginFramework,
		bus:        s.bus,
		layout:     s.layoutManager,
		authConfig: s.authConfig,
	}); err != nil {
		return preparedMirrorServer{}, err
	}

	s.runCtx, s.cancelRun = context.WithCancel(context.Background())
	s.gs.AddShutdownCallback(shutdown.Func(func(string) error {
		s.cancelRun()
		// Plugins first so no refresh posts to a closed bus, then the bus so
		// event streams end and the HTTP server can drain.
		_ = s.pluginFramework.Stop(context.Background())
		s.bus.Shutdown()
		s.genericAPIServer.Close()
		if err := s.store.Close(); err != nil {
			logger.Warn("[Mirror] close store: %v", err)
		}
		return nil
	}))
	return preparedMirrorServer{s}, nil
}

func (s preparedMirrorServer) Run() error {
	// start shutdown managers
	if err := s.gs.Start(); err != nil {
		log.Fatalf("start shutdown manager failed: %s", err.Error())
	}

	if s.watchLayout {
		if err := s.layoutManager.Watch(s.runCtx, layout.DefaultDebounce); err != nil {
			logger.Warn("[Mirror] layout hot reload disabled: %v", err)
		}
	}

	// Stop waits for this to return; plugin hooks see runCtx end on shutdown.
	safego.Go(s.runCtx, func() {
		_ = s.pluginFramework.Start(s.runCtx)
		logger.Info("[Mirror] plugins started, dashboard ready")
	})

	return s.genericAPIServer.Run()
}

func buildGenericConfig(cfg *config.Config) (genericConfig *genericapiserver.Config, lastErr error) {
	genericConfig = genericapiserver.NewConfig()
	if lastErr = cfg.GenericServerRunOptions.ApplyTo(genericConfig); lastErr != nil {
		return
	}

	return
}

func buildStoreConfig(cfg *config.Config) (storeConfig *store.Config, lastErr error) {
	storeConfig = &store.Config{}
	lastErr = cfg.StoreOptions.ApplyTo(storeConfig)
	return
}

// defaultWidgets lists every plugin that renders, for a dashboard without a
// layout file.
func defaultWidgets(f *plugin.Framework) []string {
	var out []string
	for _, d := range f.Registry().Descriptors() {
		if d.Capabilities().Render {
			out = append(out, d.Name())
		}
	}
	return out
}
