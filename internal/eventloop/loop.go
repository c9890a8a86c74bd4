// Package eventloop provides the single-threaded, cooperative executor each
// session runs on. Every model mutation, render and remote callback of a
// session is a task on its loop, so domain state needs no locking.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ErrClosed is returned when work is submitted to a stopped loop.
var ErrClosed = errors.New("event loop closed")

// Poster schedules fn to run on a later turn of a loop.
type Poster interface {
	Post(fn func()) bool
}

// Loop runs queued tasks one at a time, in submission order. The queue is
// unbounded so tasks may post follow-up work without deadlocking.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	stopped bool
	once    sync.Once
	logger  *slog.Logger
	onPanic func(v any)
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used for recovered panics.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) { lp.logger = l }
}

// WithPanicHandler is called with the recovered value after a task panics.
func WithPanicHandler(fn func(v any)) Option {
	return func(lp *Loop) { lp.onPanic = fn }
}

// New creates a loop. Call Start to begin executing tasks.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues fn. It reports false if the loop has been stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for its result. It must not be called
// from a task running on the same loop.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	ok := l.Post(func() {
		defer func() {
			if v := recover(); v != nil {
				result <- fmt.Errorf("task panicked: %v", v)
				panic(v)
			}
		}()
		result <- fn()
	})
	if !ok {
		return ErrClosed
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// The task may have completed right before shutdown.
		select {
		case err := <-result:
			return err
		default:
			return ErrClosed
		}
	}
}

// Start executes tasks until Stop is called or ctx is cancelled. Tasks
// still queued at that point are dropped.
func (l *Loop) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.done:
			return
		case <-l.wake:
			for {
				fn, ok := l.next()
				if !ok {
					break
				}
				l.run(fn)
				select {
				case <-l.done:
					return
				default:
				}
			}
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// run executes one task. A panic is logged and the loop keeps going; the
// panicking task's effects up to that point stay applied.
func (l *Loop) run(fn func()) {
	defer func() {
		if v := recover(); v != nil {
			l.logger.Error("event loop task panicked", "panic", v, "stack", string(debug.Stack()))
			if l.onPanic != nil {
				l.onPanic(v)
			}
		}
	}()
	fn()
}

// Stop ends the loop. Pending tasks are discarded and further Posts fail.
func (l *Loop) Stop() {
	l.once.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	})
}

// Done is closed once the loop has been stopped.
func (l *Loop) Done() <-chan struct{} { return l.done }
