package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errWrite = errors.New("disk I/O error")

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBreaker(clock *fakeClock, threshold, probes uint32, onChange func(string, State, State)) *Breaker {
	return New("store", Settings{
		Threshold:     threshold,
		Cooldown:      time.Second,
		Probes:        probes,
		OnStateChange: onChange,
		Now:           clock.Now,
	})
}

func fail() error    { return errWrite }
func succeed() error { return nil }

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name     string
		requests []bool // true = success, false = failure
		want     State
	}{
		{name: "stays closed on successes", requests: []bool{true, true, true}, want: StateClosed},
		{name: "success resets the streak", requests: []bool{false, false, true, false}, want: StateClosed},
		{name: "opens after consecutive failures", requests: []bool{false, false, false}, want: StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{now: time.Unix(1000, 0)}
			breaker := newTestBreaker(clock, 3, 1, nil)

			for _, ok := range tt.requests {
				if ok {
					_ = breaker.Do(succeed)
				} else {
					_ = breaker.Do(fail)
				}
			}
			assert.Equal(t, tt.want, breaker.State())
		})
	}
}

func TestBreakerStats(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	breaker := newTestBreaker(clock, 2, 1, nil)

	require.NoError(t, breaker.Do(succeed))
	assert.ErrorIs(t, breaker.Do(fail), errWrite)

	st := breaker.Stats()
	assert.Equal(t, StateClosed, st.State)
	assert.Equal(t, uint64(1), st.Successes)
	assert.Equal(t, uint64(1), st.Failures)
	assert.Equal(t, uint32(1), st.ConsecutiveFailures)
	assert.Equal(t, errWrite.Error(), st.LastError)
	assert.True(t, st.OpenedAt.IsZero())

	_ = breaker.Do(fail)
	_ = breaker.Do(succeed)

	st = breaker.Stats()
	assert.Equal(t, StateOpen, st.State)
	assert.Equal(t, uint64(1), st.Rejected)
	assert.Equal(t, clock.now, st.OpenedAt)
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	breaker := newTestBreaker(clock, 1, 1, nil)

	err := breaker.Do(func() error { return fmt.Errorf("begin: %w", context.Canceled) })
	assert.ErrorIs(t, err, context.Canceled)
	_ = breaker.Do(func() error { return context.DeadlineExceeded })

	assert.Equal(t, StateClosed, breaker.State())
	assert.Equal(t, uint64(0), breaker.Stats().Failures)
}

func TestBreakerCustomFailurePredicate(t *testing.T) {
	breaker := New("store", Settings{
		Threshold: 1,
		IsFailure: func(error) bool { return true },
	})

	_ = breaker.Do(func() error { return context.Canceled })
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerOpenRejectsWithoutCalling(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	breaker := newTestBreaker(clock, 2, 1, nil)

	_ = breaker.Do(fail)
	_ = breaker.Do(fail)
	require.Equal(t, StateOpen, breaker.State())

	called := false
	err := breaker.Do(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	breaker := newTestBreaker(clock, 2, 2, nil)

	_ = breaker.Do(fail)
	_ = breaker.Do(fail)
	clock.Advance(2 * time.Second)
	assert.Equal(t, StateHalfOpen, breaker.State())

	require.NoError(t, breaker.Do(succeed))
	assert.Equal(t, StateHalfOpen, breaker.State())
	require.NoError(t, breaker.Do(succeed))
	assert.Equal(t, StateClosed, breaker.State())
	assert.Empty(t, breaker.Stats().LastError)
}

func TestBreakerHalfOpenLimitsProbes(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	breaker := newTestBreaker(clock, 1, 1, nil)

	_ = breaker.Do(fail)
	clock.Advance(2 * time.Second)

	var nested error
	require.NoError(t, breaker.Do(func() error {
		nested = breaker.Do(succeed)
		return nil
	}))
	assert.ErrorIs(t, nested, ErrTooManyRequests)
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	var transitions []string
	breaker := newTestBreaker(clock, 2, 1, func(name string, from, to State) {
		assert.Equal(t, "store", name)
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	_ = breaker.Do(fail)
	_ = breaker.Do(fail)
	clock.Advance(2 * time.Second)
	_ = breaker.Do(fail)

	assert.Equal(t, StateOpen, breaker.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->open"}, transitions)
}

func TestBreakerRecordsPanicAsFailure(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	breaker := newTestBreaker(clock, 1, 1, nil)

	assert.Panics(t, func() {
		_ = breaker.Do(func() error { panic("boom") })
	})
	assert.Equal(t, StateOpen, breaker.State())
}
