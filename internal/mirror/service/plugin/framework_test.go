package plugin

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/internal/mirror/service/eventbus"
	"github.com/kiosk404/mirror/internal/mirror/service/refresh"
	"github.com/kiosk404/mirror/pkg/logger"
)

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	logger.SetOutput(buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })
	return buf
}

type fakePlugin struct {
	name     string
	startErr error
	panicMsg string
	stopErr  error
	assets   fstest.MapFS

	starts atomic.Int32
	stops  atomic.Int32
	codes  chan string
}

func (p *fakePlugin) Name() string { return p.name }

func (p *fakePlugin) Start(ctx context.Context, pc *Context) error {
	p.starts.Add(1)
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	return p.startErr
}

func (p *fakePlugin) Stop(ctx context.Context, pc *Context) error {
	p.stops.Add(1)
	return p.stopErr
}

func (p *fakePlugin) Configure(ctx context.Context, cc *ConfigureContext) error {
	return cc.PromptAndSave(ctx, Field{Key: "api_key", Required: true})
}

func (p *fakePlugin) SetAuthorizationCode(ctx context.Context, pc *Context, code, state string) error {
	p.codes <- code + "/" + state
	return nil
}

func (p *fakePlugin) Assets() fs.FS {
	if p.assets == nil {
		return nil
	}
	return p.assets
}

func newFramework(t *testing.T, plugins ...Plugin) *Framework {
	t.Helper()
	cfg := &Config{Bus: eventbus.New()}
	f := cfg.Complete().New()
	for _, p := range plugins {
		p := p
		def := Definition{ID: p.Name(), Name: p.Name()}
		if err := f.RegisterFactory(def, func(PluginArgs) (Plugin, error) { return p, nil }, nil); err != nil {
			t.Fatalf("RegisterFactory(%s): %v", p.Name(), err)
		}
	}
	if err := f.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = f.Stop(context.Background()) })
	return f
}

func TestStartupIsolatesFailingPlugin(t *testing.T) {
	logs := captureLogs(t)
	ok := &fakePlugin{name: "ok"}
	bad := &fakePlugin{name: "bad", startErr: errors.New("boom")}
	f := newFramework(t, bad, ok)

	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start returned %v", err)
	}

	if got := ok.starts.Load(); got != 1 {
		t.Errorf("ok started %d times, want 1", got)
	}
	out := logs.String()
	if !strings.Contains(out, "bad") || !strings.Contains(out, "boom") || !strings.Contains(out, ActionStart) {
		t.Errorf("log does not mention the failing plugin: %q", out)
	}
	if st := f.Registry().Status("bad"); st.Code() != Error || st.Action() != ActionStart {
		t.Errorf("bad status = %v/%s, want Error/%s", st.Code(), st.Action(), ActionStart)
	}
	if st := f.Registry().Status("ok"); !st.IsSuccess() {
		t.Errorf("ok status = %v, want Success", st.Code())
	}
	if !f.Ready() {
		t.Error("framework not ready after Start")
	}
}

func TestStartupRecoversPanics(t *testing.T) {
	logs := captureLogs(t)
	ok := &fakePlugin{name: "ok"}
	bad := &fakePlugin{name: "bad", panicMsg: "boom"}
	f := newFramework(t, bad, ok)

	_ = f.Start(context.Background())

	if got := ok.starts.Load(); got != 1 {
		t.Errorf("ok started %d times, want 1", got)
	}
	if !strings.Contains(logs.String(), "boom") {
		t.Errorf("panic not logged: %q", logs.String())
	}
}

func TestShutdownIsolatesFailingPlugin(t *testing.T) {
	captureLogs(t)
	ok := &fakePlugin{name: "ok"}
	bad := &fakePlugin{name: "bad", stopErr: errors.New("stuck")}
	f := newFramework(t, ok, bad)
	_ = f.Start(context.Background())

	if err := f.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned %v", err)
	}
	if ok.stops.Load() != 1 || bad.stops.Load() != 1 {
		t.Errorf("stops = ok:%d bad:%d, want 1 each", ok.stops.Load(), bad.stops.Load())
	}
	if f.Ready() {
		t.Error("framework still ready after Stop")
	}
}

func TestInitSkipsBrokenFactories(t *testing.T) {
	logs := captureLogs(t)
	f := (&Config{}).Complete().New()
	_ = f.RegisterFactory(Definition{ID: "nil"}, func(PluginArgs) (Plugin, error) { return nil, nil }, nil)
	_ = f.RegisterFactory(Definition{ID: "err"}, func(PluginArgs) (Plugin, error) { return nil, errors.New("no config") }, nil)
	_ = f.RegisterFactory(Definition{ID: "Bad-Name"}, func(PluginArgs) (Plugin, error) { return &fakePlugin{name: "Bad-Name"}, nil }, nil)
	_ = f.RegisterFactory(Definition{ID: "good"}, func(PluginArgs) (Plugin, error) { return &fakePlugin{name: "good"}, nil }, nil)

	if err := f.RegisterFactory(Definition{ID: "good"}, nil, nil); !errors.Is(err, errno.ErrPluginExists) {
		t.Errorf("duplicate factory: err = %v", err)
	}
	_ = f.Init()

	if names := f.Registry().PluginNames(); len(names) != 1 || names[0] != "good" {
		t.Errorf("loaded %v, want [good]", names)
	}
	if !strings.Contains(logs.String(), "no config") {
		t.Errorf("factory error not logged: %q", logs.String())
	}
}

func TestAllowDeny(t *testing.T) {
	cfg := &Config{Allow: []string{"a", "b"}, Deny: []string{"b"}}
	f := cfg.Complete().New()
	for _, name := range []string{"a", "b", "c"} {
		name := name
		_ = f.RegisterFactory(Definition{ID: name}, func(PluginArgs) (Plugin, error) { return &fakePlugin{name: name}, nil }, nil)
	}
	_ = f.Init()

	if names := f.Registry().PluginNames(); len(names) != 1 || names[0] != "a" {
		t.Errorf("loaded %v, want [a]", names)
	}
}

func TestRenderWidgetRoutesByID(t *testing.T) {
	p := &fakePlugin{name: "weather", assets: fstest.MapFS{
		"weather.html":  {Data: []byte(`now {{ n }}`)},
		"forecast.html": {Data: []byte(`{{ widget }} {{ n }}`)},
	}}
	f := newFramework(t, p)

	cases := map[string]string{
		"weather":          "now 3",
		"weather-forecast": "forecast 3",
		"weather.forecast": "forecast 3",
	}
	for id, want := range cases {
		got, err := f.RenderWidget(id, 3)
		if err != nil {
			t.Fatalf("RenderWidget(%q): %v", id, err)
		}
		if got != want {
			t.Errorf("RenderWidget(%q) = %q, want %q", id, got, want)
		}
	}

	_, err := f.RenderWidget("nope-widget", 0)
	if !errors.Is(err, errno.ErrUnknownPlugin) || !strings.Contains(err.Error(), "unknown plugin: nope") {
		t.Errorf("unknown plugin: err = %v", err)
	}
}

type mapPrompter map[string]string

func (m mapPrompter) Ask(_ context.Context, fields []Field) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := m[f.Key]; ok {
			out[f.Key] = v
		} else {
			out[f.Key] = f.Default
		}
	}
	return out, nil
}

func TestConfigureStoresAnswers(t *testing.T) {
	captureLogs(t)
	p := &fakePlugin{name: "weather"}
	f := newFramework(t, p)
	ctx := context.Background()

	if err := f.Configure(ctx, nil, mapPrompter{"api_key": "secret"}, nil); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	pc, _ := f.Context("weather")
	if v, ok, _ := pc.DB().GetString(ctx, "api_key"); !ok || v != "secret" {
		t.Errorf("api_key = %q, %v", v, ok)
	}

	// Re-running keeps the stored value as default.
	if err := f.Configure(ctx, []string{"weather"}, mapPrompter{}, nil); err != nil {
		t.Fatalf("Configure again: %v", err)
	}
	if v, _, _ := pc.DB().GetString(ctx, "api_key"); v != "secret" {
		t.Errorf("api_key after re-run = %q", v)
	}

	if err := f.Configure(ctx, []string{"missing"}, mapPrompter{}, nil); !errors.Is(err, errno.ErrUnknownPlugin) {
		t.Errorf("unknown plugin: err = %v", err)
	}
}

func TestAuthorizeDeliversCode(t *testing.T) {
	p := &fakePlugin{name: "spotify", codes: make(chan string, 1)}
	f := newFramework(t, p)

	if err := f.Authorize(context.Background(), "spotify", "abc", "xyz"); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if got := <-p.codes; got != "abc/xyz" {
		t.Errorf("code = %q", got)
	}
}

type taskPlugin struct {
	runs chan struct{}
}

func (p *taskPlugin) Name() string { return "ticker" }

func (p *taskPlugin) Tasks() []TaskDefinition {
	return []TaskDefinition{{
		Name:     "tick",
		Schedule: refresh.Every(time.Hour),
		NoVotes:  true,
		Run: func(ctx context.Context, pc *Context) error {
			p.runs <- struct{}{}
			return nil
		},
	}}
}

func TestTaskProviderLoopsStartAndStop(t *testing.T) {
	p := &taskPlugin{runs: make(chan struct{}, 4)}
	f := newFramework(t, p)
	_ = f.Start(context.Background())

	select {
	case <-p.runs:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}

	stats := f.TaskStats()
	if len(stats) != 1 || stats[0].Name != "ticker/tick" {
		t.Fatalf("TaskStats = %+v", stats)
	}

	pc, _ := f.Context("ticker")
	task, ok := pc.Task("tick")
	if !ok {
		t.Fatal("task not registered on context")
	}
	_ = f.Stop(context.Background())
	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("task still running after Stop")
	}
}

// slowStarter blocks in Start until released, then starts a task.
type slowStarter struct {
	entered chan struct{}
	release chan struct{}
	runs    atomic.Int32
}

func (p *slowStarter) Name() string { return "slow" }

func (p *slowStarter) Start(ctx context.Context, pc *Context) error {
	close(p.entered)
	<-p.release
	pc.Every("poll", refresh.Every(time.Hour), func(context.Context) error {
		p.runs.Add(1)
		return nil
	})
	return nil
}

func TestStopDuringStartWaitsAndCancelsTasks(t *testing.T) {
	p := &slowStarter{entered: make(chan struct{}), release: make(chan struct{})}
	f := newFramework(t, p)

	started := make(chan struct{})
	go func() {
		_ = f.Start(context.Background())
		close(started)
	}()
	<-p.entered

	stopped := make(chan struct{})
	go func() {
		_ = f.Stop(context.Background())
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while Start was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(p.release)
	for _, ch := range []chan struct{}{started, stopped} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("Start or Stop did not return")
		}
	}

	if n := p.runs.Load(); n != 0 {
		t.Errorf("task ran %d times after Stop began", n)
	}
	if f.Ready() {
		t.Error("framework ready after Stop")
	}
	_ = f.Start(context.Background())
	if f.Ready() {
		t.Error("Start after Stop made the framework ready")
	}
}
