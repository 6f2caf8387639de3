// Package joke shows a dad joke from icanhazdadjoke.com, refreshed hourly.
package joke

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/kiosk404/mirror/internal/mirror/pkg/upstream"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/internal/mirror/service/refresh"
)

const PluginName = "joke"

const (
	defaultURL      = "https://icanhazdadjoke.com/"
	defaultSchedule = "@hourly"
)

//go:embed assets
var assets embed.FS

// PluginDefinition returns the static metadata for the joke plugin.
func PluginDefinition() plugin.Definition {
	return plugin.Definition{
		ID:          PluginName,
		Name:        "Joke",
		Description: "A dad joke from [icanhazdadjoke](https://icanhazdadjoke.com), refreshed every hour. No configuration needed.",
	}
}

// Joke is the joke plugin.
type Joke struct {
	url      string
	schedule refresh.Schedule
	client   *upstream.Client
}

// Factory creates the joke plugin. Config keys: url, schedule (cron syntax).
func Factory(args plugin.PluginArgs) (plugin.Plugin, error) {
	schedule, err := refresh.Parse(args.String("schedule", defaultSchedule))
	if err != nil {
		return nil, err
	}
	return &Joke{
		url:      args.String("url", defaultURL),
		schedule: schedule,
		client:   upstream.New(upstream.DefaultTimeout),
	}, nil
}

func (j *Joke) Name() string { return PluginName }

func (j *Joke) Assets() fs.FS {
	sub, _ := fs.Sub(assets, "assets")
	return sub
}

// Tasks implements plugin.TaskProvider.
func (j *Joke) Tasks() []plugin.TaskDefinition {
	return []plugin.TaskDefinition{{
		Name:     "refresh",
		Schedule: j.schedule,
		Run:      j.refresh,
	}}
}

func (j *Joke) refresh(ctx context.Context, pc *plugin.Context) error {
	doc, err := j.client.GetJSON(ctx, PluginName, j.url, nil, nil)
	if err != nil {
		return err
	}
	joke := doc.Get("joke").String()
	if joke == "" {
		return fmt.Errorf("response has no joke")
	}
	return pc.WidgetUpdated(ctx, map[string]any{
		"id":      doc.Get("id").String(),
		"joke":    joke,
		"fetched": time.Now(),
	}, "")
}
