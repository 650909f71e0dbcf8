package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modbot/model"
)

func collectDispatched(mu *sync.Mutex, got *[]model.ActionKey) DispatchFunc {
	return func(a model.ScheduledAction) (model.ScheduledAction, bool) {
		mu.Lock()
		*got = append(*got, a.Key)
		mu.Unlock()
		return a, false
	}
}

func TestSweepDispatchesOnlyDueItems(t *testing.T) {
	clock := newFakeClock()
	var mu sync.Mutex
	var got []model.ActionKey
	e := NewSweepEngine(clock, collectDispatched(&mu, &got), time.Hour, 2)

	due1 := muteKey(1, 1)
	due2 := model.ActionKey{GuildID: 1, UserID: 2, Kind: model.ActionUnban}
	future := muteKey(1, 3)
	e.Arm(pendingAt(due1, clock.Now().Add(-time.Minute)))
	e.Arm(pendingAt(due2, clock.Now()))
	e.Arm(pendingAt(future, clock.Now().Add(time.Hour)))

	// Arming past-due entries kicks asynchronous sweeps; wait for them to
	// settle before asserting.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.ElementsMatch(t, []model.ActionKey{due1, due2}, got)
	mu.Unlock()
	assert.Equal(t, 1, e.Pending())
}

func TestSweepSingleFlightDropsOverlappingTicks(t *testing.T) {
	clock := newFakeClock()
	gate := make(chan struct{})
	var calls int64
	e := NewSweepEngine(clock, func(a model.ScheduledAction) (model.ScheduledAction, bool) {
		atomic.AddInt64(&calls, 1)
		<-gate
		return a, false
	}, time.Hour, 1)

	e.mu.Lock()
	e.pending[muteKey(1, 1)] = pendingAt(muteKey(1, 1), clock.Now())
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Sweep()
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt64(&calls) == 1 }, time.Second, time.Millisecond)

	// Overlapping ticks are dropped, not queued.
	e.Sweep()
	e.Sweep()
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))

	close(gate)
	<-done
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestSweepPartialFailureKeepsOnlyFailedPending(t *testing.T) {
	clock := newFakeClock()
	failing := muteKey(1, 1)
	succeeding := muteKey(1, 2)
	retryAt := clock.Now().Add(time.Hour)
	e := NewSweepEngine(clock, func(a model.ScheduledAction) (model.ScheduledAction, bool) {
		if a.Key == failing {
			a.Attempts++
			a.ExecuteAt = retryAt
			return a, true
		}
		return a, false
	}, time.Hour, 2)

	e.mu.Lock()
	e.pending[failing] = pendingAt(failing, clock.Now())
	e.pending[succeeding] = pendingAt(succeeding, clock.Now())
	e.mu.Unlock()

	e.Sweep()

	e.mu.Lock()
	defer e.mu.Unlock()
	require.Len(t, e.pending, 1)
	kept, ok := e.pending[failing]
	require.True(t, ok)
	assert.Equal(t, 1, kept.Attempts)
	assert.Equal(t, retryAt, kept.ExecuteAt)
	assert.Empty(t, e.inFlight)
}

func TestSweepArmReplacesPendingEntry(t *testing.T) {
	clock := newFakeClock()
	e := NewSweepEngine(clock, func(a model.ScheduledAction) (model.ScheduledAction, bool) {
		return a, false
	}, time.Hour, 1)

	key := muteKey(1, 1)
	e.Arm(pendingAt(key, clock.Now().Add(time.Hour)))
	later := clock.Now().Add(2 * time.Hour)
	e.Arm(pendingAt(key, later))

	e.mu.Lock()
	defer e.mu.Unlock()
	require.Len(t, e.pending, 1)
	assert.Equal(t, later, e.pending[key].ExecuteAt)
}

func TestSweepDisarmDuringDispatchStaysDisarmed(t *testing.T) {
	clock := newFakeClock()
	gate := make(chan struct{})
	e := NewSweepEngine(clock, func(a model.ScheduledAction) (model.ScheduledAction, bool) {
		<-gate
		a.ExecuteAt = clock.Now().Add(time.Hour)
		return a, true // asks for a retry, but the key was disarmed meanwhile
	}, time.Hour, 1)

	key := muteKey(1, 1)
	e.mu.Lock()
	e.pending[key] = pendingAt(key, clock.Now())
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Sweep()
	}()
	require.Eventually(t, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.inFlight[key]
	}, time.Second, time.Millisecond)

	e.Disarm(key)
	close(gate)
	<-done

	assert.Equal(t, 0, e.Pending())
}

func TestSweepEngineStartStopsCleanly(t *testing.T) {
	clock := newFakeClock()
	var calls int64
	e := NewSweepEngine(clock, func(a model.ScheduledAction) (model.ScheduledAction, bool) {
		atomic.AddInt64(&calls, 1)
		return a, false
	}, 10*time.Millisecond, 2)

	e.Arm(pendingAt(muteKey(1, 1), clock.Now()))
	e.Start()

	require.Eventually(t, func() bool { return atomic.LoadInt64(&calls) == 1 }, time.Second, time.Millisecond)
	e.Stop()
}
