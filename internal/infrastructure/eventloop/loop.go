// Package eventloop serializes every launcher model call onto one goroutine.
//
// HTTP handlers, the catalog watcher and the store's idle-commit timer all
// submit work here instead of locking the model.
package eventloop

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/homescreen/internal/infrastructure/store"
)

var ErrStopped = errors.New("event loop stopped")

// Loop runs submitted funcs one at a time in submission order.
type Loop struct {
	tasks   chan func()
	done    chan struct{}
	running atomic.Bool
	logger  *zap.Logger
}

// New creates a loop with a submission queue of the given depth.
func New(logger *zap.Logger, queue int) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queue < 1 {
		queue = 64
	}
	return &Loop{
		tasks:  make(chan func(), queue),
		done:   make(chan struct{}),
		logger: logger.Named("loop"),
	}
}

// Run processes tasks until ctx is cancelled. It must be called once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("event loop already running")
	}
	defer close(l.done)

	l.logger.Debug("event loop started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("event loop stopped")
			return nil
		case task := <-l.tasks:
			l.run(task)
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Do runs fn on the loop and waits for it to finish. Calling Do from inside
// a task deadlocks.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if l.stopped() {
		return ErrStopped
	}
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}

	select {
	case l.tasks <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Post queues fn without waiting for it. It reports false if the loop has
// stopped.
func (l *Loop) Post(fn func()) bool {
	if l.stopped() {
		return false
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// AfterFunc schedules fn to run on the loop after d. It satisfies
// store.Scheduler so the idle commit never races the model.
func (l *Loop) AfterFunc(d time.Duration, fn func()) store.Timer {
	lt := &loopTimer{}
	lt.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if lt.stopped.Swap(true) {
				return
			}
			fn()
		})
	})
	return lt
}

func (l *Loop) stopped() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

func (l *Loop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	task()
}

type loopTimer struct {
	timer   *time.Timer
	stopped atomic.Bool
}

// Stop prevents the task from running, even when the wall-clock timer has
// already fired and the task is waiting in the queue.
func (t *loopTimer) Stop() bool {
	t.timer.Stop()
	return !t.stopped.Swap(true)
}
