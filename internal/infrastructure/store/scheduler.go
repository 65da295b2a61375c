package store

import "time"

// Timer is a pending scheduled task.
type Timer interface {
	// Stop cancels the task. It reports false when the task already ran or
	// was already stopped.
	Stop() bool
}

// Scheduler creates the idle-commit task. The event loop implements it so
// the commit runs on the same goroutine as the model; tests use a fake they
// fire by hand.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// WallClock runs scheduled tasks on their own goroutine via time.AfterFunc.
var WallClock Scheduler = wallClock{}
