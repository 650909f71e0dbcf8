package scheduler

import (
	"sync"
	"time"

	"modbot/model"
)

// TimerEngine arms one one-shot timer per pending key. Callbacks run on
// their own goroutine so a slow dispatch never delays other timers. Exact
// expiry latency at the cost of one timer per key.
//
// Each Arm and Disarm bumps a per-key generation; a fire carries the
// generation it was armed with and gives up if the key moved on, so a retry
// of a superseded dispatch can never replace a newer schedule.
type TimerEngine struct {
	clock    Clock
	dispatch DispatchFunc

	mu      sync.Mutex
	timers  map[model.ActionKey]*time.Timer
	gens    map[model.ActionKey]uint64
	stopped bool
}

func NewTimerEngine(clock Clock, dispatch DispatchFunc) *TimerEngine {
	return &TimerEngine{
		clock:    clock,
		dispatch: dispatch,
		timers:   make(map[model.ActionKey]*time.Timer),
		gens:     make(map[model.ActionKey]uint64),
	}
}

// Arm replaces any existing timer for the key, so the previous schedule can
// never double-fire.
func (e *TimerEngine) Arm(action model.ScheduledAction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.armLocked(action)
}

func (e *TimerEngine) armLocked(action model.ScheduledAction) {
	if e.stopped {
		return
	}
	e.gens[action.Key]++
	gen := e.gens[action.Key]
	if old, ok := e.timers[action.Key]; ok {
		old.Stop()
		delete(e.timers, action.Key)
	}
	delay := action.ExecuteAt.Sub(e.clock.Now())
	if delay <= 0 {
		go e.fire(action, gen)
		return
	}
	e.timers[action.Key] = time.AfterFunc(delay, func() { e.fire(action, gen) })
}

func (e *TimerEngine) Disarm(key model.ActionKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gens[key]++
	if t, ok := e.timers[key]; ok {
		t.Stop()
		delete(e.timers, key)
	}
}

// Start is a no-op; per-key timers arm themselves.
func (e *TimerEngine) Start() {}

// Stop cancels every armed timer. Dispatches already running are left to
// finish; their retry re-arms are dropped.
func (e *TimerEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	for key, t := range e.timers {
		t.Stop()
		delete(e.timers, key)
	}
}

func (e *TimerEngine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}

func (e *TimerEngine) fire(action model.ScheduledAction, gen uint64) {
	e.mu.Lock()
	if e.gens[action.Key] != gen {
		// Superseded between the timer firing and the callback running.
		e.mu.Unlock()
		return
	}
	delete(e.timers, action.Key)
	e.mu.Unlock()

	next, retry := e.dispatch(action)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gens[action.Key] != gen {
		// A newer Arm or a Disarm happened during the dispatch; its
		// schedule wins over this retry.
		return
	}
	if !retry {
		delete(e.gens, action.Key)
		return
	}
	e.armLocked(next)
}
