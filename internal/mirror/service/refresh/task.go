package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kiosk404/mirror/pkg/logger"
	"github.com/kiosk404/mirror/pkg/utils/safego"
)

// MinWait is the shortest sleep between two scheduled iterations.
const MinWait = 10 * time.Millisecond

// Func is one iteration of a repeating task. ctx is cancelled when the task
// stops.
type Func func(ctx context.Context) error

// ResultHandler receives the outcome of every iteration.
type ResultHandler func(name string, err error)

// Option configures a Task.
type Option func(*Task)

// WithResultHandler replaces the default error logging.
func WithResultHandler(h ResultHandler) Option {
	return func(t *Task) {
		t.onResult = h
	}
}

// Stats is a snapshot of a task for diagnostics.
type Stats struct {
	Name      string    `json:"name"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
	NextRun   time.Time `json:"next_run"`
	Stopped   bool      `json:"stopped"`
}

// Task runs a Func right away and then on every schedule tick until it is
// stopped or its parent context is done. Iteration errors and panics never
// end the loop.
type Task struct {
	name     string
	schedule Schedule
	fn       Func
	onResult ResultHandler

	wake   chan struct{}
	delay  chan time.Duration
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	stats Stats
}

// Start launches a task in its own goroutine.
func Start(parent context.Context, name string, schedule Schedule, fn Func, opts ...Option) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{
		name:     name,
		schedule: schedule,
		fn:       fn,
		wake:     make(chan struct{}, 1),
		delay:    make(chan time.Duration, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
		stats:    Stats{Name: name},
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.loop(ctx)
	return t
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// Wake makes a sleeping task run its next iteration now.
func (t *Task) Wake() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Delay overrides the next sleep once, e.g. to poll faster while a track is
// playing.
func (t *Task) Delay(d time.Duration) {
	select {
	case <-t.delay:
	default:
	}
	select {
	case t.delay <- d:
	default:
	}
}

// Stop cancels the task and waits for the running iteration to return.
// It is safe to call more than once.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

// Done is closed once the task has stopped.
func (t *Task) Done() <-chan struct{} { return t.done }

// Stats returns a snapshot of the task's counters.
func (t *Task) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func (t *Task) loop(ctx context.Context) {
	defer func() {
		t.mu.Lock()
		t.stats.Stopped = true
		t.mu.Unlock()
		close(t.done)
		logger.Debug("[Refresh] task %q stopped", t.name)
	}()

	for ctx.Err() == nil {
		t.runOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		wait := t.nextWait(time.Now())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-t.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (t *Task) runOnce(ctx context.Context) {
	started := time.Now()
	err := safego.Call(func() error { return t.fn(ctx) })
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return
	}

	t.mu.Lock()
	t.stats.Runs++
	t.stats.LastRun = started
	t.stats.LastError = ""
	if err != nil {
		t.stats.Failures++
		t.stats.LastError = err.Error()
	}
	t.mu.Unlock()

	if t.onResult != nil {
		t.onResult(t.name, err)
		return
	}
	if err != nil {
		logger.Warn("[Refresh] task %q failed: %v", t.name, err)
	}
}

func (t *Task) nextWait(now time.Time) time.Duration {
	var wait time.Duration
	select {
	case wait = <-t.delay:
	default:
		wait = t.schedule.Next(now).Sub(now)
	}
	if wait < MinWait {
		wait = MinWait
	}

	t.mu.Lock()
	t.stats.NextRun = now.Add(wait)
	t.mu.Unlock()
	return wait
}

// Group owns a set of tasks so they can be listed and stopped together.
type Group struct {
	mu    sync.Mutex
	tasks []*Task
}

// Start starts a task and adds it to the group.
func (g *Group) Start(ctx context.Context, name string, schedule Schedule, fn Func, opts ...Option) *Task {
	t := Start(ctx, name, schedule, fn, opts...)
	g.mu.Lock()
	g.tasks = append(g.tasks, t)
	g.mu.Unlock()
	return t
}

// Stop stops every task in the group. Stopped tasks stay listed in Stats.
func (g *Group) Stop() {
	g.mu.Lock()
	tasks := append([]*Task(nil), g.tasks...)
	g.mu.Unlock()

	for _, t := range tasks {
		t.Stop()
	}
}

// Stats returns a snapshot of every task in the group.
func (g *Group) Stats() []Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Stats, 0, len(g.tasks))
	for _, t := range g.tasks {
		out = append(out, t.Stats())
	}
	return out
}
