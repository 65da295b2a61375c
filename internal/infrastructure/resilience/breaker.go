package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON and logs.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Defaults applied by New to zero settings.
const (
	DefaultThreshold = 5
	DefaultCooldown  = 30 * time.Second
	DefaultProbes    = 1
)

// Settings configures a Breaker.
type Settings struct {
	// Threshold is the number of consecutive failures that opens the breaker
	Threshold uint32
	// Cooldown is how long the breaker stays open before letting probes through
	Cooldown time.Duration
	// Probes is both the number of concurrent calls allowed while half-open
	// and the number of successes needed to close again
	Probes uint32
	// IsFailure decides whether an error counts against the breaker.
	// Default: every error except context cancellation and deadline.
	IsFailure func(err error) bool
	// OnStateChange is called with the lock held whenever the state changes
	OnStateChange func(name string, from, to State)
	// Now overrides the clock, mainly for tests
	Now func() time.Time
}

// Stats is a point-in-time view of a breaker.
type Stats struct {
	State               State     `json:"state"`
	ConsecutiveFailures uint32    `json:"consecutive_failures"`
	Successes           uint64    `json:"successes"`
	Failures            uint64    `json:"failures"`
	Rejected            uint64    `json:"rejected"`
	OpenedAt            time.Time `json:"opened_at,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
}

// Breaker guards a failing dependency. The store wraps every write in one so
// a broken database file degrades to fast, logged failures while the
// in-memory tree keeps working.
type Breaker struct {
	name     string
	settings Settings

	mu        sync.Mutex
	state     State
	streak    uint32 // consecutive failures while closed
	inflight  uint32 // probes running while half-open
	probesOK  uint32 // successful probes since half-open
	openedAt  time.Time
	successes uint64
	failures  uint64
	rejected  uint64
	lastErr   error
}

// New creates a closed breaker. Zero settings take the package defaults.
func New(name string, settings Settings) *Breaker {
	if settings.Threshold == 0 {
		settings.Threshold = DefaultThreshold
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = DefaultCooldown
	}
	if settings.Probes == 0 {
		settings.Probes = DefaultProbes
	}
	if settings.IsFailure == nil {
		settings.IsFailure = countsAsFailure
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &Breaker{name: name, settings: settings}
}

func countsAsFailure(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, moving an open breaker whose cooldown
// has passed to half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(b.settings.Now())
	return b.state
}

// Stats returns a snapshot of the breaker.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(b.settings.Now())
	st := Stats{
		State:               b.state,
		ConsecutiveFailures: b.streak,
		Successes:           b.successes,
		Failures:            b.failures,
		Rejected:            b.rejected,
	}
	if b.state != StateClosed {
		st.OpenedAt = b.openedAt
	}
	if b.lastErr != nil {
		st.LastError = b.lastErr.Error()
	}
	return st
}

// Do runs fn if the breaker admits it and records the outcome. A rejected
// call returns ErrCircuitOpen or ErrTooManyRequests without running fn.
// A panic in fn counts as a failure and is re-raised.
func (b *Breaker) Do(fn func() error) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}

	done := false
	defer func() {
		if !done {
			b.record(probe, errors.New("panic"))
		}
	}()

	err = fn()
	done = true
	b.record(probe, err)
	return err
}

func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(b.settings.Now())
	switch b.state {
	case StateOpen:
		b.rejected++
		return false, ErrCircuitOpen
	case StateHalfOpen:
		if b.inflight >= b.settings.Probes {
			b.rejected++
			return false, ErrTooManyRequests
		}
		b.inflight++
		return true, nil
	}
	return false, nil
}

func (b *Breaker) record(probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	failed := err != nil && b.settings.IsFailure(err)
	if failed {
		b.failures++
		b.lastErr = err
	} else {
		b.successes++
	}

	if probe {
		if b.inflight > 0 {
			b.inflight--
		}
		if b.state != StateHalfOpen {
			return
		}
		if failed {
			b.trip()
			return
		}
		b.probesOK++
		if b.probesOK >= b.settings.Probes {
			b.transition(StateClosed)
		}
		return
	}

	// Results of calls admitted before the breaker opened only count.
	if b.state != StateClosed {
		return
	}
	if !failed {
		b.streak = 0
		return
	}
	b.streak++
	if b.streak >= b.settings.Threshold {
		b.trip()
	}
}

func (b *Breaker) advance(now time.Time) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.settings.Cooldown {
		b.transition(StateHalfOpen)
	}
}

func (b *Breaker) trip() {
	b.openedAt = b.settings.Now()
	b.transition(StateOpen)
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.streak = 0
	b.inflight = 0
	b.probesOK = 0
	if to == StateClosed {
		b.lastErr = nil
	}
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
