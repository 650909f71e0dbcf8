// Package scheduler turns a (subject, action, expiry) tuple into a durable,
// idempotent, eventually-executed reversal. Pending reversals live in a
// Store that survives restarts; an Engine holds the in-memory expiry
// triggers and the Dispatcher invokes the platform gateway, interprets the
// outcome and schedules retries.
package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"modbot/model"
)

// StrategySweep and StrategyTimer select the engine implementation. Both
// satisfy the same contract; sweep bounds resources at the cost of expiry
// latency up to one interval, timer fires exactly on expiry with one timer
// per key.
const (
	StrategySweep = "sweep"
	StrategyTimer = "timer"
)

// Options configures a Scheduler. The zero value yields the sweep engine
// with default interval, pool size and retry policy on the system clock.
type Options struct {
	Strategy      string
	SweepInterval time.Duration
	SweepWorkers  int
	Policy        RetryPolicy
	Clock         Clock
}

// Scheduler is the public scheduling API consumed by the moderation layer.
type Scheduler struct {
	store  Store
	clock  Clock
	disp   *Dispatcher
	engine Engine
}

func New(store Store, gateway ActionGateway, opts Options) *Scheduler {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	disp := NewDispatcher(store, gateway, clock, opts.Policy)

	var engine Engine
	switch opts.Strategy {
	case StrategyTimer:
		engine = NewTimerEngine(clock, disp.Dispatch)
	default:
		engine = NewSweepEngine(clock, disp.Dispatch, opts.SweepInterval, opts.SweepWorkers)
	}

	return &Scheduler{store: store, clock: clock, disp: disp, engine: engine}
}

// Bootstrap builds a started scheduler and replays the store into it. This
// is the single call a host application needs at process start.
func Bootstrap(store Store, gateway ActionGateway, clock Clock) (*Scheduler, error) {
	s := New(store, gateway, Options{Clock: clock})
	if err := s.Bootstrap(); err != nil {
		return nil, err
	}
	s.Start()
	return s, nil
}

// Schedule persists a reversal due after d and arms its trigger. A zero or
// negative duration dispatches right away. Scheduling an already-scheduled
// key replaces the previous expiry.
func (s *Scheduler) Schedule(key model.ActionKey, d time.Duration) error {
	action := model.ScheduledAction{
		Key:       key,
		ExecuteAt: s.clock.Now().Add(d),
		Status:    model.StatusPending,
	}
	if err := s.store.Insert(action); err != nil {
		return fmt.Errorf("persist scheduled action %s: %w", key, err)
	}
	s.engine.Arm(action)
	return nil
}

// Cancel removes a pending reversal before its natural expiry, e.g. on a
// manual unmute. Cancelling a key that is mid-dispatch is safe: the
// reversal is idempotent and the dispatcher cleans up after itself.
func (s *Scheduler) Cancel(key model.ActionKey) error {
	s.engine.Disarm(key)
	if err := s.store.Delete(key); err != nil {
		return fmt.Errorf("delete scheduled action %s: %w", key, err)
	}
	return nil
}

// Bootstrap replays every stored reversal into the engine. Rows found after
// a crash come back as pending regardless of what they were doing when the
// process died. Must complete before the host reports ready.
func (s *Scheduler) Bootstrap() error {
	actions, err := s.store.ListAll()
	if err != nil {
		return fmt.Errorf("load scheduled actions: %w", err)
	}
	for _, action := range actions {
		action.Status = model.StatusPending
		s.engine.Arm(action)
	}
	log.Info().Int("count", len(actions)).Msg("recovered scheduled reversals")
	return nil
}

// AddObserver registers an observer notified after each resolved reversal.
func (s *Scheduler) AddObserver(o Observer) { s.disp.AddObserver(o) }

func (s *Scheduler) Start() { s.engine.Start() }

func (s *Scheduler) Stop() { s.engine.Stop() }

// PendingCount reports how many reversals are currently armed in memory.
func (s *Scheduler) PendingCount() int { return s.engine.Pending() }
