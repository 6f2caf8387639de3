package plugin

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
)

func TestSplitWidgetID(t *testing.T) {
	tests := []struct {
		id, plugin, widget string
	}{
		{"weather", "weather", ""},
		{"weather-forecast", "weather", "forecast"},
		{"weather.forecast", "weather", "forecast"},
		{"google_calendar-agenda", "google_calendar", "agenda"},
		{"a.b-c", "a", "b-c"},
	}
	for _, tt := range tests {
		p, w := SplitWidgetID(tt.id)
		if p != tt.plugin || w != tt.widget {
			t.Errorf("SplitWidgetID(%q) = %q, %q; want %q, %q", tt.id, p, w, tt.plugin, tt.widget)
		}
	}
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"weather", "google_calendar", "x1"} {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) = %v", name, err)
		}
	}
	for _, name := range []string{"", "Weather", "my-plugin", "a.b", "1st"} {
		if err := ValidateName(name); !errors.Is(err, errno.ErrInvalidName) {
			t.Errorf("ValidateName(%q) = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestDescriptorAssets(t *testing.T) {
	p := &fakePlugin{name: "clock", assets: fstest.MapFS{
		"clock.html":           {Data: []byte(`<script src="{{ url_for('clock.js') }}"></script>`)},
		"seconds.html":         {Data: []byte(`{{ n }}`)},
		"static/clock.js":      {Data: []byte(`//`)},
		"static/css/clock.css": {Data: []byte(`/**/`)},
		"static/img/face.png":  {Data: []byte{0x89}},
	}}
	d, err := newDescriptor(Definition{ID: "clock"}, p)
	if err != nil {
		t.Fatal(err)
	}

	caps := d.Capabilities()
	if !caps.Startup || !caps.Shutdown || !caps.Render || !caps.Configure || !caps.Authorize {
		t.Errorf("capabilities = %+v", caps)
	}
	if got, want := d.Widgets(), []string{"clock", "seconds"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Widgets = %v, want %v", got, want)
	}
	if got, want := d.Scripts(), []string{"/plugin/clock/clock.js"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Scripts = %v, want %v", got, want)
	}
	if got, want := d.Stylesheets(), []string{"/plugin/clock/css/clock.css"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Stylesheets = %v, want %v", got, want)
	}

	html, err := d.Render("", map[string]any{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, `src="/plugin/clock/clock.js"`) {
		t.Errorf("url_for not applied: %q", html)
	}
}

type codeRenderer struct{}

func (codeRenderer) Name() string { return "code" }

func (codeRenderer) RenderWidget(widget string, data map[string]any) (string, error) {
	return widget + ":" + data["plugin"].(string), nil
}

func TestWidgetRendererWithoutTemplates(t *testing.T) {
	d, err := newDescriptor(Definition{ID: "code"}, codeRenderer{})
	if err != nil {
		t.Fatal(err)
	}
	if !d.Capabilities().Render || d.Capabilities().Startup {
		t.Errorf("capabilities = %s", d.Capabilities())
	}
	got, err := d.Render("big", map[string]any{}, 0)
	if err != nil || got != "big:code" {
		t.Errorf("Render = %q, %v", got, err)
	}
	if d.EventName("big") != "code.big.refresh" || d.EventName("") != "code.refresh" {
		t.Errorf("event names: %q %q", d.EventName("big"), d.EventName(""))
	}
}

func TestRenderWithoutAssets(t *testing.T) {
	d, _ := newDescriptor(Definition{ID: "bare"}, &fakePlugin{name: "bare"})
	if _, err := d.Render("", map[string]any{}, 0); !errors.Is(err, errno.ErrNoRenderer) {
		t.Errorf("err = %v, want ErrNoRenderer", err)
	}
}
