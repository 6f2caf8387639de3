package v1

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/mirror/internal/mirror/service/eventbus"
	"github.com/kiosk404/mirror/internal/mirror/service/layout"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/internal/pkg/core"
)

type textPlugin struct {
	name string
	text string
	code chan string
}

func (p *textPlugin) Name() string { return p.name }

func (p *textPlugin) Start(ctx context.Context, pc *plugin.Context) error {
	if p.text == "" {
		return nil
	}
	return pc.WidgetUpdated(ctx, map[string]any{"text": p.text}, "")
}

func (p *textPlugin) RenderWidget(widget string, data map[string]any) (string, error) {
	text, _ := data["text"].(string)
	if text == "" {
		return "", nil
	}
	return "<p>" + text + "</p>", nil
}

type authPlugin struct {
	textPlugin
}

func (p *authPlugin) SetAuthorizationCode(ctx context.Context, pc *plugin.Context, code, state string) error {
	p.code <- code + "/" + state
	return nil
}

type fixture struct {
	router *gin.Engine
	bus    *eventbus.Bus
	fw     *plugin.Framework
	codes  chan string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bus := eventbus.New()
	fw := (&plugin.Config{Bus: bus}).Complete().New()
	codes := make(chan string, 1)
	plugins := []plugin.Plugin{
		&textPlugin{name: "hello", text: "hello"},
		&textPlugin{name: "blank"},
		&authPlugin{textPlugin{name: "oauthy", code: codes}},
	}
	for _, p := range plugins {
		p := p
		def := plugin.Definition{ID: p.Name(), Name: p.Name()}
		if err := fw.RegisterFactory(def, func(plugin.PluginArgs) (plugin.Plugin, error) { return p, nil }, nil); err != nil {
			t.Fatalf("RegisterFactory: %v", err)
		}
	}
	if err := fw.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	file := filepath.Join(t.TempDir(), "layout.yaml")
	doc := "widgets:\n  left: [hello]\n  rotator: [hello, blank]\n"
	if err := os.WriteFile(file, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	lm, err := (&layout.Config{File: file, Split: plugin.SplitWidgetID}).Complete().New()
	if err != nil {
		t.Fatalf("layout: %v", err)
	}

	t.Cleanup(func() {
		_ = fw.Stop(context.Background())
		bus.Shutdown()
	})

	r := gin.New()
	ph := NewPluginHandler(fw)
	wh := NewWidgetHandler(fw, lm)
	dh := NewDiagHandler(fw)
	oh := NewOAuthHandler(fw)
	eh := NewEventHandler(bus, nil)
	r.GET("/ready", dh.Ready)
	r.GET("/events", eh.Stream)
	r.GET("/rotator/:index", wh.Rotator)
	r.GET("/oauth/:plugin/callback", oh.Callback)
	r.GET("/v1/plugins", ph.List)
	r.GET("/v1/plugins/:name", ph.Get)
	r.GET("/v1/widgets/:id", wh.Render)
	r.GET("/v1/layout", wh.Layout)

	return &fixture{router: r, bus: bus, fw: fw, codes: codes}
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	if err := f.fw.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) core.ErrResponse {
	t.Helper()
	var resp core.ErrResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestReadyAfterStart(t *testing.T) {
	f := newFixture(t)

	if w := f.get("/ready"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("before start: status %d, want 503", w.Code)
	}
	f.start(t)
	if w := f.get("/ready"); w.Code != http.StatusOK {
		t.Errorf("after start: status %d, want 200", w.Code)
	}
}

func TestListPlugins(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	w := f.get("/v1/plugins")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp PluginListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Ready || len(resp.Plugins) != 3 {
		t.Errorf("ready=%v plugins=%d, want true/3", resp.Ready, len(resp.Plugins))
	}

	if w := f.get("/v1/plugins/nope"); w.Code != http.StatusNotFound {
		t.Errorf("unknown plugin: status %d, want 404", w.Code)
	} else if resp := decodeError(t, w); resp.Code != ErrPluginNotFound {
		t.Errorf("unknown plugin: code %d, want %d", resp.Code, ErrPluginNotFound)
	}
}

func TestRenderWidget(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	w := f.get("/v1/widgets/hello")
	if w.Code != http.StatusOK || w.Body.String() != "<p>hello</p>" {
		t.Errorf("render = %d %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type %q", ct)
	}
	if w := f.get("/v1/widgets/hello?n=-1"); w.Code != http.StatusBadRequest {
		t.Errorf("negative n: status %d, want 400", w.Code)
	}
	if w := f.get("/v1/widgets/ghost-main"); w.Code != http.StatusNotFound {
		t.Errorf("unknown plugin: status %d, want 404", w.Code)
	}
}

func TestRotatorSkipsEmptyWidgets(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	tests := []struct {
		path      string
		nextIndex int
		nextN     int
	}{
		{"/rotator/0", 1, 0},
		{"/rotator/1", 1, 1},
		{"/rotator/7?n=3", 1, 3},
	}
	for _, tt := range tests {
		w := f.get(tt.path)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", tt.path, w.Code)
		}
		var rot layout.Rotation
		if err := json.Unmarshal(w.Body.Bytes(), &rot); err != nil {
			t.Fatal(err)
		}
		if rot.HTML != "<p>hello</p>" || rot.NextIndex != tt.nextIndex || rot.NextN != tt.nextN {
			t.Errorf("%s = %+v, want hello/%d/%d", tt.path, rot, tt.nextIndex, tt.nextN)
		}
	}

	if w := f.get("/rotator/x"); w.Code != http.StatusBadRequest {
		t.Errorf("bad index: status %d, want 400", w.Code)
	}
}

func TestLayout(t *testing.T) {
	f := newFixture(t)

	var l layout.Layout
	if err := json.Unmarshal(f.get("/v1/layout").Body.Bytes(), &l); err != nil {
		t.Fatal(err)
	}
	if len(l.Left) != 1 || l.Left[0] != "hello" || len(l.Rotator) != 2 {
		t.Errorf("layout = %+v", l)
	}
}

func TestOAuthCallback(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	tests := []struct {
		path string
		code int
		errc int
	}{
		{"/oauth/oauthy/callback", http.StatusBadRequest, ErrMissingCode},
		{"/oauth/oauthy/callback?error=access_denied", http.StatusInternalServerError, ErrAuthorize},
		{"/oauth/hello/callback?code=abc", http.StatusBadRequest, ErrNotAuthorizer},
		{"/oauth/ghost/callback?code=abc", http.StatusNotFound, ErrPluginNotFound},
	}
	for _, tt := range tests {
		w := f.get(tt.path)
		if w.Code != tt.code {
			t.Errorf("%s: status %d, want %d", tt.path, w.Code, tt.code)
			continue
		}
		if resp := decodeError(t, w); resp.Code != tt.errc {
			t.Errorf("%s: code %d, want %d", tt.path, resp.Code, tt.errc)
		}
	}

	w := f.get("/oauth/oauthy/callback?code=abc&state=xyz")
	if w.Code != http.StatusOK {
		t.Fatalf("callback: status %d: %s", w.Code, w.Body.String())
	}
	select {
	case got := <-f.codes:
		if got != "abc/xyz" {
			t.Errorf("plugin got %q, want abc/xyz", got)
		}
	default:
		t.Error("plugin did not receive the code")
	}
}

func TestStreamReplaysCachedEvents(t *testing.T) {
	f := newFixture(t)
	if err := f.bus.Post(context.Background(), eventbus.NewEvent("weather.refresh", "<p>sunny</p>")); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("content type %q", ct)
	}

	var lines []string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		if sc.Text() == "" && len(lines) > 0 {
			break
		}
		lines = append(lines, sc.Text())
	}
	msg := strings.Join(lines, "\n")
	if !strings.Contains(msg, "weather.refresh") || !strings.Contains(msg, "sunny") {
		t.Errorf("first message = %q", msg)
	}
}
