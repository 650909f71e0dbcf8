package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modbot/model"
)

func newTimerScheduler(t *testing.T, store Store, gw ActionGateway) *Scheduler {
	t.Helper()
	s := New(store, gw, Options{Strategy: StrategyTimer})
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func newSweepScheduler(t *testing.T, store Store, gw ActionGateway, interval time.Duration) *Scheduler {
	t.Helper()
	s := New(store, gw, Options{Strategy: StrategySweep, SweepInterval: interval})
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func TestScheduleThenCancelNeverDispatches(t *testing.T) {
	store := newMemStore()
	gw := newStubGateway()
	s := newTimerScheduler(t, store, gw)

	key := muteKey(1, 2)
	require.NoError(t, s.Schedule(key, 50*time.Millisecond))
	require.NoError(t, s.Cancel(key))

	time.Sleep(120 * time.Millisecond)
	assert.Zero(t, gw.callCount(key))
	assert.Equal(t, 0, store.len())
}

func TestScheduleNonPositiveDurationDispatchesImmediately(t *testing.T) {
	store := newMemStore()
	gw := newStubGateway()
	s := newTimerScheduler(t, store, gw)

	key := muteKey(1, 2)
	require.NoError(t, s.Schedule(key, -5*time.Second))

	require.Eventually(t, func() bool { return gw.callCount(key) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, store.len())
}

func TestRescheduleYieldsSingleDispatchAtLatestTime(t *testing.T) {
	store := newMemStore()
	gw := newStubGateway()
	s := newTimerScheduler(t, store, gw)

	key := muteKey(1, 2)
	require.NoError(t, s.Schedule(key, time.Hour))
	require.NoError(t, s.Schedule(key, 30*time.Millisecond))

	require.Eventually(t, func() bool { return gw.callCount(key) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, gw.callCount(key))
	assert.Equal(t, 0, store.len())
}

func TestBootstrapRecoversStoredActions(t *testing.T) {
	store := newMemStore()
	gw := newStubGateway()

	pastDue := muteKey(1, 1)
	shortly := model.ActionKey{GuildID: 1, UserID: 2, Kind: model.ActionUnban}
	farOut := model.ActionKey{GuildID: 1, UserID: 3, Kind: model.ActionRemoveRole, RoleID: 9}
	now := time.Now()
	require.NoError(t, store.Insert(pendingAt(pastDue, now.Add(-time.Minute))))
	require.NoError(t, store.Insert(pendingAt(shortly, now.Add(50*time.Millisecond))))
	require.NoError(t, store.Insert(pendingAt(farOut, now.Add(time.Hour))))

	s := newTimerScheduler(t, store, gw)
	require.NoError(t, s.Bootstrap())

	require.Eventually(t, func() bool { return gw.callCount(pastDue) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return gw.callCount(shortly) == 1 }, time.Second, 5*time.Millisecond)

	assert.Zero(t, gw.callCount(farOut))
	stored, ok := store.get(farOut)
	require.True(t, ok, "far-out action must still be pending")
	assert.Equal(t, now.Add(time.Hour), stored.ExecuteAt)
	assert.Equal(t, 1, store.len())
}

func TestSweepSchedulerResolvesForbiddenThenSuccess(t *testing.T) {
	store := newMemStore()
	gw := newStubGateway()
	key := muteKey(1, 2)
	gw.script(key, OutcomeForbidden)

	s := New(store, gw, Options{
		Strategy:      StrategySweep,
		SweepInterval: 10 * time.Millisecond,
		Policy:        RetryPolicy{ForbiddenRetryAfter: 40 * time.Millisecond},
	})
	s.Start()
	t.Cleanup(s.Stop)

	require.NoError(t, s.Schedule(key, 0))

	// First fire is denied: the row survives with one attempt and a pushed-out
	// execute time.
	require.Eventually(t, func() bool { return gw.callCount(key) == 1 }, time.Second, 5*time.Millisecond)
	stored, ok := store.get(key)
	require.True(t, ok)
	assert.Equal(t, 1, stored.Attempts)
	assert.True(t, stored.ExecuteAt.After(time.Now().Add(-time.Millisecond)))

	// The scripted outcome is used up, so the retry succeeds and deletes.
	require.Eventually(t, func() bool { return store.len() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, gw.callCount(key))
}

func TestCancelConcurrentWithDispatchLeavesNoEntry(t *testing.T) {
	store := newMemStore()
	gw := newStubGateway()
	s := New(store, gw, Options{Strategy: StrategyTimer})
	s.Start()
	t.Cleanup(s.Stop)

	key := muteKey(1, 2)
	action := pendingAt(key, time.Now())
	require.NoError(t, store.Insert(action))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.disp.Dispatch(action)
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Cancel(key))
	}()
	wg.Wait()

	assert.Equal(t, 0, store.len())
}

func TestScheduleStoreErrorPropagates(t *testing.T) {
	store := newMemStore()
	gw := newStubGateway()
	s := newTimerScheduler(t, store, gw)

	store.failInsert = true
	err := s.Schedule(muteKey(1, 2), time.Minute)
	require.Error(t, err)
	assert.Equal(t, 0, s.PendingCount(), "a failed persist must not arm a trigger")
}

func TestCancelStoreErrorPropagates(t *testing.T) {
	store := newMemStore()
	gw := newStubGateway()
	s := newTimerScheduler(t, store, gw)

	require.NoError(t, s.Schedule(muteKey(1, 2), time.Hour))
	store.failDelete = true
	require.Error(t, s.Cancel(muteKey(1, 2)))
}

func TestBootstrapHelperStartsSweepScheduler(t *testing.T) {
	store := newMemStore()
	gw := newStubGateway()
	key := muteKey(1, 2)
	require.NoError(t, store.Insert(pendingAt(key, time.Now().Add(-time.Minute))))

	s, err := Bootstrap(store, gw, SystemClock())
	require.NoError(t, err)
	t.Cleanup(s.Stop)

	require.Eventually(t, func() bool { return store.len() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, gw.callCount(key))
}
