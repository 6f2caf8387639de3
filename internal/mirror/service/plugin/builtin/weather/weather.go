// Package weather shows current conditions and a five day forecast from
// the OpenWeatherMap One Call API.
package weather

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/internal/mirror/pkg/upstream"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/internal/mirror/service/refresh"
	"github.com/tidwall/gjson"
)

const PluginName = "weather"

// Table keys.
const (
	KeyAPIKey   = "api-key"
	KeyLocation = "location"
	KeyUnits    = "units"
)

const (
	defaultURL      = "https://api.openweathermap.org/data/3.0/onecall"
	defaultInterval = 5 * time.Minute
)

//go:embed assets
var assets embed.FS

// PluginDefinition returns the static metadata for the weather plugin.
func PluginDefinition() plugin.Definition {
	return plugin.Definition{
		ID:   PluginName,
		Name: "Weather",
		Description: `Current conditions and a five day forecast from
[OpenWeatherMap](https://openweathermap.org/api/one-call-3).

Run ` + "`mirrorctl configure weather`" + ` to set:

- **api-key**: One Call API key
- **location**: ` + "`lat,lon`" + `
- **units**: ` + "`imperial`" + ` or ` + "`metric`" + `

Refreshes every five minutes.`,
	}
}

// Weather is the weather plugin.
type Weather struct {
	url      string
	interval time.Duration
	client   *upstream.Client
}

var (
	_ plugin.Starter       = (*Weather)(nil)
	_ plugin.Configurer    = (*Weather)(nil)
	_ plugin.AssetProvider = (*Weather)(nil)
)

// Factory creates the weather plugin. Config keys: url, interval.
func Factory(args plugin.PluginArgs) (plugin.Plugin, error) {
	interval, err := args.Duration("interval", defaultInterval)
	if err != nil {
		return nil, err
	}
	return &Weather{
		url:      args.String("url", defaultURL),
		interval: interval,
		client:   upstream.New(upstream.DefaultTimeout),
	}, nil
}

func (w *Weather) Name() string { return PluginName }

func (w *Weather) Assets() fs.FS {
	sub, _ := fs.Sub(assets, "assets")
	return sub
}

func (w *Weather) Configure(ctx context.Context, cc *plugin.ConfigureContext) error {
	return cc.PromptAndSave(ctx,
		plugin.Field{Key: KeyAPIKey, Label: "OpenWeatherMap API key", Secret: true, Required: true},
		plugin.Field{Key: KeyLocation, Label: "Location (lat,lon)", Required: true},
		plugin.Field{Key: KeyUnits, Label: "Units (imperial or metric)", Default: "imperial"},
	)
}

func (w *Weather) Start(ctx context.Context, pc *plugin.Context) error {
	pc.Every("refresh", refresh.Every(w.interval), func(ctx context.Context) error {
		return w.refresh(ctx, pc)
	})
	return nil
}

func (w *Weather) refresh(ctx context.Context, pc *plugin.Context) error {
	key, _, err := pc.DB().GetString(ctx, KeyAPIKey)
	if err != nil {
		return err
	}
	loc, _, err := pc.DB().GetString(ctx, KeyLocation)
	if err != nil {
		return err
	}
	if key == "" || loc == "" {
		return errno.NewCredentialsError(PluginName, "api key or location not configured")
	}
	lat, lon, ok := strings.Cut(loc, ",")
	if !ok {
		return fmt.Errorf("location %q is not lat,lon", loc)
	}
	units, _, err := pc.DB().GetString(ctx, KeyUnits)
	if err != nil {
		return err
	}
	if units == "" {
		units = "imperial"
	}

	doc, err := w.client.GetJSON(ctx, PluginName, w.url, url.Values{
		"lat":     {strings.TrimSpace(lat)},
		"lon":     {strings.TrimSpace(lon)},
		"units":   {units},
		"appid":   {key},
		"exclude": {"hourly,minutely"},
	}, nil)
	if err != nil {
		return err
	}

	data, err := reshape(doc)
	if err != nil {
		return err
	}
	return pc.WidgetUpdated(ctx, data, "")
}

// reshape turns a One Call response into the template context.
func reshape(doc gjson.Result) (map[string]any, error) {
	tz, err := time.LoadLocation(doc.Get("timezone").String())
	if err != nil {
		tz = time.UTC
	}
	current := doc.Get("current")
	if !current.Exists() {
		return nil, fmt.Errorf("response has no current conditions")
	}

	var daily []any
	for i, day := range doc.Get("daily").Array() {
		if i == 5 {
			break
		}
		name := "Today"
		if i > 0 {
			name = time.Unix(day.Get("dt").Int(), 0).In(tz).Format("Mon")
		}
		daily = append(daily, map[string]any{
			"day":           name,
			"icon":          iconClass(day.Get("weather.0.icon").String(), day.Get("weather.0.id").Int()),
			"temp_max":      day.Get("temp.max").Float(),
			"temp_min":      day.Get("temp.min").Float(),
			"precipitation": day.Get("pop").Float() * 100,
		})
	}

	var alerts []any
	for _, a := range doc.Get("alerts").Array() {
		alerts = append(alerts, map[string]any{
			"event":  a.Get("event").String(),
			"sender": a.Get("sender_name").String(),
		})
	}

	return map[string]any{
		"temp":    current.Get("temp").Float(),
		"icon":    iconClass(current.Get("weather.0.icon").String(), current.Get("weather.0.id").Int()),
		"summary": current.Get("weather.0.description").String(),
		"feels":   current.Get("feels_like").Float(),
		"wind":    current.Get("wind_speed").Float(),
		"uvi":     current.Get("uvi").Float(),
		"uviMax":  doc.Get("daily.0.uvi").Float(),
		"sunrise": time.Unix(current.Get("sunrise").Int(), 0).In(tz).Format("3:04"),
		"sunset":  time.Unix(current.Get("sunset").Int(), 0).In(tz).Format("3:04"),
		"daily":   daily,
		"alerts":  alerts,
	}, nil
}

// iconClass maps an OpenWeatherMap condition to a weather-icons CSS class.
// Icons ending in "d" or "n" select the day or night variant.
func iconClass(icon string, id int64) string {
	variant := ""
	switch {
	case strings.HasSuffix(icon, "d"):
		variant = "-day"
	case strings.HasSuffix(icon, "n"):
		variant = "-night"
	}
	return fmt.Sprintf("wi-owm%s-%d", variant, id)
}
