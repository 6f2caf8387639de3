package eventbus

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/pkg/logger"
)

// DefaultQueueSize bounds each subscriber queue.
const DefaultQueueSize = 50

// Poster is the publishing side of the bus.
type Poster interface {
	Post(ctx context.Context, ev Event) error
}

// Option configures a Bus.
type Option func(*Bus)

// WithQueueSize overrides DefaultQueueSize.
func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// Bus is an in-process publish/subscribe hub. It keeps the last event per
// name, drops posts equal to the cached value and fans the rest out to every
// live subscription. Slow subscribers apply backpressure to Post.
type Bus struct {
	// postMu serializes deliveries so every queue sees the same post order.
	postMu sync.Mutex

	mu        sync.Mutex
	cache     map[string]Event
	subs      map[string]*Subscription
	queueSize int
	closed    bool
	done      chan struct{}
}

var _ Poster = (*Bus)(nil)

// New creates an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		cache:     make(map[string]Event),
		subs:      make(map[string]*Subscription),
		queueSize: DefaultQueueSize,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Post publishes ev unless it equals the cached event of the same name.
// It blocks while a subscriber queue is full and gives up with ctx.Err()
// when ctx is done. An aborted post leaves the cache as it was, so posting
// the same event again reaches the subscribers that missed it; the others
// may see it twice.
func (b *Bus) Post(ctx context.Context, ev Event) error {
	b.postMu.Lock()
	defer b.postMu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errno.ErrBusClosed
	}
	if cached, ok := b.cache[ev.Name]; ok && cached.Equal(ev) {
		b.mu.Unlock()
		logger.Debug("[EventBus] suppressed duplicate event %q", ev.Name)
		return nil
	}
	prev, hadPrev := b.cache[ev.Name]
	b.cache[ev.Name] = ev
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		if err := s.push(ctx, ev); err != nil {
			logger.Warn("[EventBus] post %q to subscriber %s aborted: %v", ev.Name, s.ID, err)
			b.restore(ev, prev, hadPrev)
			return err
		}
	}
	return nil
}

// restore puts back the cache entry an aborted post replaced, so that a
// retry of ev is delivered instead of suppressed.
func (b *Bus) restore(ev, prev Event, hadPrev bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case hadPrev:
		b.cache[ev.Name] = prev
	default:
		delete(b.cache, ev.Name)
	}
}

// Listen registers a new subscription. It first yields the cached events,
// one per name, then everything posted afterwards.
func (b *Bus) Listen() *Subscription {
	s := &Subscription{
		ID:    uuid.NewString(),
		bus:   b,
		queue: make(chan Event, b.queueSize),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s.backlog = make([]Event, 0, len(b.cache))
	for _, ev := range b.cache {
		s.backlog = append(s.backlog, ev)
	}
	if !b.closed {
		b.subs[s.ID] = s
	}
	logger.Debug("[EventBus] subscriber %s registered (%d cached events)", s.ID, len(s.backlog))
	return s
}

// Shutdown terminates every subscription once it has drained what was
// already queued. Later calls are no-ops.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
	logger.Info("[EventBus] shut down, notifying %d subscribers", len(b.subs))
}

// Cached returns a copy of the last event for every name.
func (b *Bus) Cached() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, 0, len(b.cache))
	for _, ev := range b.cache {
		out = append(out, ev)
	}
	return out
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}
