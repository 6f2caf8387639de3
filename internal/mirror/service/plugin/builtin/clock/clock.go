// Package clock shows the local date and time. It renders in code and
// re-renders every minute from its remembered context.
package clock

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/internal/mirror/service/refresh"
)

const PluginName = "clock"

const (
	defaultTimeFormat = "3:04"
	defaultDateFormat = "Monday, January 2"
)

// PluginDefinition returns the static metadata for the clock plugin.
func PluginDefinition() plugin.Definition {
	return plugin.Definition{
		ID:          PluginName,
		Name:        "Clock",
		Description: "Local date and time, re-rendered at the top of every minute. Config keys: `location` (IANA zone), `time_format`, `date_format` (Go layouts).",
	}
}

// Clock is the clock plugin.
type Clock struct {
	location   *time.Location
	timeFormat string
	dateFormat string
	now        func() time.Time
}

var (
	_ plugin.Starter        = (*Clock)(nil)
	_ plugin.WidgetRenderer = (*Clock)(nil)
)

// Factory creates the clock plugin.
func Factory(args plugin.PluginArgs) (plugin.Plugin, error) {
	loc := time.Local
	if name := args.String("location", ""); name != "" {
		var err error
		if loc, err = time.LoadLocation(name); err != nil {
			return nil, fmt.Errorf("clock location: %w", err)
		}
	}
	return &Clock{
		location:   loc,
		timeFormat: args.String("time_format", defaultTimeFormat),
		dateFormat: args.String("date_format", defaultDateFormat),
		now:        time.Now,
	}, nil
}

func (c *Clock) Name() string { return PluginName }

func (c *Clock) Start(ctx context.Context, pc *plugin.Context) error {
	if err := pc.WidgetUpdated(ctx, map[string]any{
		"time_format": c.timeFormat,
		"date_format": c.dateFormat,
	}, ""); err != nil {
		return err
	}

	minutely, err := refresh.Parse("* * * * *")
	if err != nil {
		return err
	}
	pc.Every("tick", minutely, func(ctx context.Context) error {
		return pc.WidgetUpdated(ctx, nil, "")
	}, plugin.WithoutVotes())
	return nil
}

// RenderWidget formats the current time with the layouts from the context.
func (c *Clock) RenderWidget(widget string, data map[string]any) (string, error) {
	timeFormat, _ := data["time_format"].(string)
	dateFormat, _ := data["date_format"].(string)
	if timeFormat == "" {
		timeFormat = c.timeFormat
	}
	if dateFormat == "" {
		dateFormat = c.dateFormat
	}

	now := c.now().In(c.location)
	return fmt.Sprintf(`<div class="clock"><div class="clock-time">%s</div><div class="clock-date">%s</div></div>`,
		html.EscapeString(now.Format(timeFormat)), html.EscapeString(now.Format(dateFormat))), nil
}
