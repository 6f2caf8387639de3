package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
)

func next(t *testing.T, sub *Subscription) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	return ev
}

func expectNothing(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev := <-sub.queue:
		t.Fatalf("unexpected event %q", ev.Name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPostDeliversToSubscriber(t *testing.T) {
	bus := New()
	sub := bus.Listen()
	defer sub.Close()

	data := map[string]any{"temp": 72}
	if err := bus.Post(context.Background(), NewEvent("weather.refresh", data)); err != nil {
		t.Fatalf("Post: %v", err)
	}

	ev := next(t, sub)
	if ev.Name != "weather.refresh" {
		t.Fatalf("name = %q, want weather.refresh", ev.Name)
	}
	if got := ev.Data.(map[string]any)["temp"]; got != 72 {
		t.Fatalf("temp = %v, want 72", got)
	}
	expectNothing(t, sub)

	bus.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := sub.Next(ctx); !errors.Is(err, errno.ErrBusClosed) {
		t.Fatalf("Next after shutdown = %v, want ErrBusClosed", err)
	}
}

func TestDuplicatePostIsSuppressed(t *testing.T) {
	bus := New()
	sub := bus.Listen()
	defer sub.Close()
	ctx := context.Background()

	first := map[string]any{"temp": 72, VolatileKey: "2024-01-01T10:00:00Z"}
	second := map[string]any{"temp": 72.0, VolatileKey: "2024-01-01T10:05:00Z"}
	if err := bus.Post(ctx, NewEvent("weather.refresh", first)); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if err := bus.Post(ctx, NewEvent("weather.refresh", second)); err != nil {
		t.Fatalf("Post: %v", err)
	}

	next(t, sub)
	expectNothing(t, sub)

	if err := bus.Post(ctx, NewEvent("weather.refresh", map[string]any{"temp": 73})); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if ev := next(t, sub); ev.Data.(map[string]any)["temp"] != 73 {
		t.Fatalf("changed payload not delivered: %v", ev.Data)
	}
}

func TestListenReplaysCache(t *testing.T) {
	bus := New()
	ctx := context.Background()
	_ = bus.Post(ctx, NewEvent("a", "<p>a</p>"))
	_ = bus.Post(ctx, NewEvent("b", "<p>b</p>"))
	_ = bus.Post(ctx, NewEvent("a", "<p>a2</p>"))

	sub := bus.Listen()
	defer sub.Close()
	_ = bus.Post(ctx, NewEvent("c", "<p>c</p>"))

	seen := map[string]any{}
	for i := 0; i < 2; i++ {
		ev := next(t, sub)
		seen[ev.Name] = ev.Data
	}
	if seen["a"] != "<p>a2</p>" || seen["b"] != "<p>b</p>" {
		t.Fatalf("replayed = %v, want latest a and b", seen)
	}
	if ev := next(t, sub); ev.Name != "c" {
		t.Fatalf("live event = %q, want c", ev.Name)
	}
}

func TestFanOutPreservesOrder(t *testing.T) {
	bus := New()
	subs := []*Subscription{bus.Listen(), bus.Listen()}
	ctx := context.Background()

	names := []string{"one", "two", "three", "four"}
	for _, n := range names {
		if err := bus.Post(ctx, NewEvent(n, n)); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}

	for i, sub := range subs {
		for _, want := range names {
			if ev := next(t, sub); ev.Name != want {
				t.Fatalf("subscriber %d got %q, want %q", i, ev.Name, want)
			}
		}
		sub.Close()
	}
}

func TestShutdownWakesAllSubscribers(t *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		sub := bus.Listen()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, err := sub.Next(context.Background()); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	_ = bus.Post(context.Background(), NewEvent("x", 1))
	bus.Shutdown()
	bus.Shutdown()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscribers still blocked after shutdown")
	}
	close(errs)
	for err := range errs {
		if !errors.Is(err, errno.ErrBusClosed) {
			t.Fatalf("err = %v, want ErrBusClosed", err)
		}
	}
	if n := bus.Subscribers(); n != 0 {
		t.Fatalf("subscribers = %d after shutdown", n)
	}
	if err := bus.Post(context.Background(), NewEvent("y", 1)); !errors.Is(err, errno.ErrBusClosed) {
		t.Fatalf("Post after shutdown = %v, want ErrBusClosed", err)
	}
}

func TestShutdownDrainsQueuedEvents(t *testing.T) {
	bus := New()
	sub := bus.Listen()
	_ = bus.Post(context.Background(), NewEvent("queued", 1))
	bus.Shutdown()

	if ev := next(t, sub); ev.Name != "queued" {
		t.Fatalf("got %q, want queued", ev.Name)
	}
	if _, err := sub.Next(context.Background()); !errors.Is(err, errno.ErrBusClosed) {
		t.Fatalf("err = %v, want ErrBusClosed", err)
	}
}

func TestPostBlocksOnFullQueue(t *testing.T) {
	bus := New(WithQueueSize(1))
	sub := bus.Listen()
	defer sub.Close()

	if err := bus.Post(context.Background(), NewEvent("a", 1)); err != nil {
		t.Fatalf("Post: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := bus.Post(ctx, NewEvent("b", 1)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Post on full queue = %v, want DeadlineExceeded", err)
	}

	posted := make(chan error, 1)
	go func() { posted <- bus.Post(context.Background(), NewEvent("c", 1)) }()
	next(t, sub)
	select {
	case err := <-posted:
		if err != nil {
			t.Fatalf("Post: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Post did not resume after the queue drained")
	}
}

func TestRetryAfterAbortedPostIsDelivered(t *testing.T) {
	bus := New(WithQueueSize(1))
	fast := bus.Listen()
	defer fast.Close()
	slow := bus.Listen()
	defer slow.Close()

	if err := bus.Post(context.Background(), NewEvent("fill", 1)); err != nil {
		t.Fatalf("Post: %v", err)
	}
	next(t, fast)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := bus.Post(ctx, NewEvent("weather.refresh", "<p>w</p>")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Post on full queue = %v, want DeadlineExceeded", err)
	}
	// fast may or may not have been reached before the abort.
	select {
	case <-fast.queue:
	default:
	}

	posted := make(chan error, 1)
	go func() { posted <- bus.Post(context.Background(), NewEvent("weather.refresh", "<p>w</p>")) }()

	if ev := next(t, slow); ev.Name != "fill" {
		t.Fatalf("got %q, want fill", ev.Name)
	}
	if ev := next(t, slow); ev.Name != "weather.refresh" {
		t.Fatalf("got %q, want weather.refresh", ev.Name)
	}
	select {
	case err := <-posted:
		if err != nil {
			t.Fatalf("retry Post: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("retry Post did not return")
	}
}

func TestCancelledListenerDeregisters(t *testing.T) {
	bus := New()
	sub := bus.Listen()
	if n := bus.Subscribers(); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sub.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want Canceled", err)
	}
	if n := bus.Subscribers(); n != 0 {
		t.Fatalf("subscribers = %d after cancel, want 0", n)
	}
	if _, err := sub.Next(context.Background()); !errors.Is(err, ErrSubscriptionClosed) {
		t.Fatalf("err = %v, want ErrSubscriptionClosed", err)
	}
}

func TestEventsIterator(t *testing.T) {
	bus := New()
	_ = bus.Post(context.Background(), NewEvent("a", 1))
	sub := bus.Listen()
	bus.Shutdown()

	var names []string
	for ev := range sub.Events(context.Background()) {
		names = append(names, ev.Name)
	}
	if len(names) != 1 || names[0] != "a" {
		t.Fatalf("names = %v, want [a]", names)
	}
}
