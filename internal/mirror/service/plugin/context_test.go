package plugin

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/internal/mirror/service/eventbus"
	"github.com/kiosk404/mirror/internal/mirror/service/refresh"
)

func newTestContext(t *testing.T, assets fstest.MapFS) (*Context, *eventbus.Subscription) {
	t.Helper()
	bus := eventbus.New()
	p := &fakePlugin{name: "weather", assets: assets}
	f := (&Config{Bus: bus}).Complete().New()
	_ = f.RegisterFactory(Definition{ID: "weather"}, func(PluginArgs) (Plugin, error) { return p, nil }, nil)
	_ = f.Init()
	t.Cleanup(func() { _ = f.Stop(context.Background()) })

	pc, err := f.Context("weather")
	if err != nil {
		t.Fatal(err)
	}
	sub := bus.Listen()
	t.Cleanup(sub.Close)
	return pc, sub
}

func next(t *testing.T, sub *eventbus.Subscription) eventbus.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	return ev
}

func TestWidgetUpdatedPostsRenderedMarkup(t *testing.T) {
	pc, sub := newTestContext(t, fstest.MapFS{
		"weather.html":  {Data: []byte(`<b>{{ temp }}</b>`)},
		"forecast.html": {Data: []byte(`<i>{{ days|length }}</i>`)},
	})
	ctx := context.Background()

	if err := pc.WidgetUpdated(ctx, map[string]any{"temp": 72}, ""); err != nil {
		t.Fatalf("WidgetUpdated: %v", err)
	}
	ev := next(t, sub)
	if ev.Name != "weather.refresh" || ev.Data != "<b>72</b>" {
		t.Errorf("got %s %v", ev.Name, ev.Data)
	}

	if err := pc.WidgetUpdated(ctx, map[string]any{"days": []any{1, 2, 3}}, "forecast"); err != nil {
		t.Fatalf("WidgetUpdated(forecast): %v", err)
	}
	ev = next(t, sub)
	if ev.Name != "weather.forecast.refresh" || ev.Data != "<i>3</i>" {
		t.Errorf("got %s %v", ev.Name, ev.Data)
	}
}

func TestWidgetUpdatedReusesLastContext(t *testing.T) {
	pc, _ := newTestContext(t, fstest.MapFS{
		"weather.html": {Data: []byte(`{{ temp }}`)},
	})
	ctx := context.Background()

	data := map[string]any{"temp": 60}
	if err := pc.WidgetUpdated(ctx, data, ""); err != nil {
		t.Fatal(err)
	}
	data["temp"] = 99 // later mutation must not leak into the remembered context

	got, err := pc.Descriptor().Render("", nil, 0)
	if err != nil {
		t.Fatalf("Render(nil): %v", err)
	}
	if got != "60" {
		t.Errorf("re-render = %q, want 60", got)
	}
}

func TestTemplateParsedOnce(t *testing.T) {
	assets := fstest.MapFS{"weather.html": {Data: []byte(`<b>{{ temp }}</b>`)}}
	pc, _ := newTestContext(t, assets)

	if got, err := pc.Descriptor().Render("", map[string]any{"temp": 60}, 0); err != nil || got != "<b>60</b>" {
		t.Fatalf("Render = %q, %v", got, err)
	}
	assets["weather.html"].Data = []byte(`{% broken`)
	if got, err := pc.Descriptor().Render("", map[string]any{"temp": 61}, 0); err != nil || got != "<b>61</b>" {
		t.Fatalf("second Render = %q, %v; template was parsed again", got, err)
	}
}

func TestWidgetUpdatedWithoutTemplate(t *testing.T) {
	pc, _ := newTestContext(t, fstest.MapFS{"weather.html": {Data: []byte(`x`)}})
	err := pc.WidgetUpdated(context.Background(), map[string]any{}, "radar")
	if !errors.Is(err, errno.ErrTemplateNotFound) {
		t.Errorf("err = %v, want ErrTemplateNotFound", err)
	}
}

func TestPostEventAddsMetadata(t *testing.T) {
	pc, sub := newTestContext(t, nil)
	in := map[string]any{"track": "song"}

	if err := pc.PostEvent(context.Background(), "playing", in); err != nil {
		t.Fatal(err)
	}
	ev := next(t, sub)
	if ev.Name != "weather.playing" {
		t.Errorf("name = %q", ev.Name)
	}
	m, ok := ev.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T", ev.Data)
	}
	if m["_source"] != "weather" || m["_time"] == nil || m["track"] != "song" {
		t.Errorf("data = %v", m)
	}
	if _, ok := in["_source"]; ok {
		t.Error("caller's map was modified")
	}
}

func TestVotesAreClampedAndShared(t *testing.T) {
	pc, _ := newTestContext(t, nil)
	captureLogs(t)

	for i := 0; i < 25; i++ {
		pc.VoteDisconnected(errors.New("down"))
	}
	if got := pc.Score(); got != MinScore {
		t.Errorf("score = %d, want %d", got, MinScore)
	}
	if pc.IsConnected() {
		t.Error("connected at minimum score")
	}
	for i := 0; i < 10; i++ {
		pc.VoteConnected()
	}
	if !pc.IsConnected() || pc.Score() != 0 {
		t.Errorf("score = %d, want 0 and connected", pc.Score())
	}
	for i := 0; i < 25; i++ {
		pc.VoteConnected()
	}
	if got := pc.Score(); got != MaxScore {
		t.Errorf("score = %d, want %d", got, MaxScore)
	}
}

func TestEveryClassifiesResults(t *testing.T) {
	pc, _ := newTestContext(t, nil)
	logs := captureLogs(t)

	results := make(chan struct{}, 8)
	errs := []error{
		&net.OpError{Op: "dial", Err: errors.New("connection refused")},
		errno.NewCredentialsError("weather", "no api key"),
		nil,
	}
	i := 0
	task := pc.Every("poll", refresh.Every(time.Millisecond), func(ctx context.Context) error {
		defer func() { results <- struct{}{} }()
		if i >= len(errs) {
			<-ctx.Done()
			return ctx.Err()
		}
		err := errs[i]
		i++
		return err
	})
	for range errs {
		select {
		case <-results:
		case <-time.After(2 * time.Second):
			t.Fatal("task stalled")
		}
	}
	task.Stop()

	// One disconnected vote and one connected vote.
	if got := pc.Score(); got != 0 {
		t.Errorf("score = %d, want 0", got)
	}
	if out := logs.String(); !strings.Contains(out, "mirrorctl configure weather") {
		t.Errorf("credentials hint missing: %q", out)
	}
}
