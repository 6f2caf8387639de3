package eventbus

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/pkg/logger"
)

// ErrSubscriptionClosed is returned by Next after Close.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Subscription is one consumer of the bus. Next must not be called from
// more than one goroutine at a time.
type Subscription struct {
	ID string

	bus     *Bus
	backlog []Event
	queue   chan Event
	done    chan struct{}
	once    sync.Once
}

// Next returns the next event. It returns errno.ErrBusClosed after the bus
// shut down and the queue is drained, ctx.Err() when ctx is done, and
// ErrSubscriptionClosed after Close. In the first two cases the subscription
// closes itself.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	if len(s.backlog) > 0 {
		ev := s.backlog[0]
		s.backlog = s.backlog[1:]
		return ev, nil
	}

	select {
	case ev := <-s.queue:
		return ev, nil
	default:
	}

	select {
	case ev := <-s.queue:
		return ev, nil
	case <-s.done:
		return Event{}, ErrSubscriptionClosed
	case <-s.bus.done:
		select {
		case ev := <-s.queue:
			return ev, nil
		default:
		}
		s.Close()
		return Event{}, errno.ErrBusClosed
	case <-ctx.Done():
		s.Close()
		return Event{}, ctx.Err()
	}
}

// Events yields events until Next fails. The subscription is closed when
// the loop ends.
func (s *Subscription) Events(ctx context.Context) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		defer s.Close()
		for {
			ev, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// Close de-registers the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s.ID)
		close(s.done)
		logger.Debug("[EventBus] subscriber %s closed", s.ID)
	})
}

func (s *Subscription) push(ctx context.Context, ev Event) error {
	select {
	case s.queue <- ev:
		return nil
	case <-s.done:
		return nil
	case <-s.bus.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
