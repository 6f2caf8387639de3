// Package connectivity checks internet reachability by asking ipify for the
// public address, and posts the result as a raw event for the page script.
package connectivity

import (
	"context"
	"embed"
	"io/fs"
	"sync"
	"time"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/internal/mirror/pkg/upstream"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/internal/mirror/service/refresh"
	"github.com/kiosk404/mirror/pkg/logger"
)

const PluginName = "connectivity"

// OfflineKey holds the time the mirror was marked offline.
const OfflineKey = "mirror-offline"

const (
	defaultURL       = "https://api.ipify.org?format=json"
	defaultInterval  = time.Minute
	offlineThreshold = 30
)

//go:embed assets
var assets embed.FS

// PluginDefinition returns the static metadata for the connectivity plugin.
func PluginDefinition() plugin.Definition {
	return plugin.Definition{
		ID:   PluginName,
		Name: "Connectivity",
		Description: `Checks internet reachability every minute through
[ipify](https://www.ipify.org) and posts ` + "`connectivity.refresh`" + ` with
the public address. After 30 consecutive failures the mirror is marked
offline in the plugin's table until the next success.`,
	}
}

// Connectivity is the connectivity plugin.
type Connectivity struct {
	url      string
	interval time.Duration
	client   *upstream.Client

	mu       sync.Mutex
	failures int
}

// Factory creates the connectivity plugin. Config keys: url, interval.
func Factory(args plugin.PluginArgs) (plugin.Plugin, error) {
	interval, err := args.Duration("interval", defaultInterval)
	if err != nil {
		return nil, err
	}
	return &Connectivity{
		url:      args.String("url", defaultURL),
		interval: interval,
		client:   upstream.New(upstream.DefaultTimeout),
	}, nil
}

func (c *Connectivity) Name() string { return PluginName }

func (c *Connectivity) Assets() fs.FS {
	sub, _ := fs.Sub(assets, "assets")
	return sub
}

func (c *Connectivity) Start(ctx context.Context, pc *plugin.Context) error {
	pc.Every("refresh", refresh.Every(c.interval), func(ctx context.Context) error {
		return c.refresh(ctx, pc)
	})
	return nil
}

func (c *Connectivity) refresh(ctx context.Context, pc *plugin.Context) error {
	doc, fetchErr := c.client.GetJSON(ctx, PluginName, c.url, nil, nil)
	if fetchErr != nil && ctx.Err() != nil {
		return fetchErr
	}

	data := map[string]any{"connected": fetchErr == nil, "error": nil}
	if fetchErr != nil {
		data["error"] = fetchErr.Error()
	} else {
		data["ip"] = doc.Get("ip").String()
	}

	if err := c.track(ctx, pc, fetchErr); err != nil {
		return err
	}
	if err := pc.PostEvent(ctx, "refresh", data); err != nil {
		return err
	}
	return fetchErr
}

// track counts consecutive network failures and maintains the offline
// marker.
func (c *Connectivity) track(ctx context.Context, pc *plugin.Context, fetchErr error) error {
	c.mu.Lock()
	if fetchErr == nil {
		c.failures = 0
	} else if errno.IsNetwork(fetchErr) {
		c.failures++
	}
	failures := c.failures
	c.mu.Unlock()

	marked, err := pc.DB().Has(ctx, OfflineKey)
	if err != nil {
		return err
	}
	switch {
	case failures >= offlineThreshold && !marked:
		logger.Warn("[Plugin] %s: %d consecutive failures, marking mirror offline", PluginName, failures)
		return pc.DB().Set(ctx, OfflineKey, time.Now().UTC())
	case failures == 0 && marked:
		logger.Info("[Plugin] %s: back online", PluginName)
		return pc.DB().Delete(ctx, OfflineKey)
	}
	return nil
}
