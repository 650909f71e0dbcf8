package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"modbot/model"
)

const (
	defaultSweepInterval = 30 * time.Second
	defaultSweepWorkers  = 5
)

// SweepEngine keeps a pending set and scans it on a fixed interval, trading
// exact expiry for a bounded goroutine count and batched work. Due items are
// grouped by kind and dispatched through a bounded worker pool. A sweep
// already in progress makes the next tick a no-op: ticks are dropped, never
// queued.
type SweepEngine struct {
	clock    Clock
	dispatch DispatchFunc
	interval time.Duration
	workers  int

	mu         sync.Mutex
	pending    map[model.ActionKey]model.ScheduledAction
	inFlight   map[model.ActionKey]bool
	processing bool

	done chan struct{}
	wg   sync.WaitGroup
}

func NewSweepEngine(clock Clock, dispatch DispatchFunc, interval time.Duration, workers int) *SweepEngine {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if workers <= 0 {
		workers = defaultSweepWorkers
	}
	return &SweepEngine{
		clock:    clock,
		dispatch: dispatch,
		interval: interval,
		workers:  workers,
		pending:  make(map[model.ActionKey]model.ScheduledAction),
		inFlight: make(map[model.ActionKey]bool),
		done:     make(chan struct{}),
	}
}

// Arm replaces any pending entry for the key (last write wins). A past-due
// entry kicks a sweep immediately instead of waiting out the interval.
func (e *SweepEngine) Arm(action model.ScheduledAction) {
	e.mu.Lock()
	e.pending[action.Key] = action
	due := !action.ExecuteAt.After(e.clock.Now())
	e.mu.Unlock()
	if due {
		go e.Sweep()
	}
}

// Disarm drops the pending entry. An item already picked up by a running
// sweep still fires; the dispatcher's NotFound handling makes that harmless.
func (e *SweepEngine) Disarm(key model.ActionKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, key)
}

func (e *SweepEngine) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.Sweep()
			case <-e.done:
				return
			}
		}
	}()
}

func (e *SweepEngine) Stop() {
	close(e.done)
	e.wg.Wait()
}

func (e *SweepEngine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Sweep selects everything due, marks it in-flight, and dispatches it by
// kind through the worker pool. Only items whose dispatch asked for a retry
// return to the pending set.
func (e *SweepEngine) Sweep() {
	e.mu.Lock()
	if e.processing {
		e.mu.Unlock()
		return
	}
	now := e.clock.Now()
	var due []model.ScheduledAction
	for key, action := range e.pending {
		if e.inFlight[key] || action.ExecuteAt.After(now) {
			continue
		}
		e.inFlight[key] = true
		due = append(due, action)
	}
	if len(due) == 0 {
		e.mu.Unlock()
		return
	}
	e.processing = true
	e.mu.Unlock()

	byKind := make(map[model.ActionKind][]model.ScheduledAction)
	for _, action := range due {
		byKind[action.Key.Kind] = append(byKind[action.Key.Kind], action)
	}

	guard := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
	for kind, batch := range byKind {
		log.Debug().Stringer("kind", kind).Int("count", len(batch)).Msg("sweeping due reversals")
		for _, action := range batch {
			wg.Add(1)
			guard <- struct{}{}
			go func(action model.ScheduledAction) {
				defer func() {
					<-guard
					wg.Done()
				}()
				e.settle(action)
			}(action)
		}
	}
	wg.Wait()

	e.mu.Lock()
	e.processing = false
	e.mu.Unlock()
}

func (e *SweepEngine) settle(action model.ScheduledAction) {
	next, retry := e.dispatch(action)

	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, action.Key)
	cur, ok := e.pending[action.Key]
	if !ok {
		// Disarmed while dispatching; stay disarmed.
		return
	}
	if !cur.ExecuteAt.Equal(action.ExecuteAt) {
		// Re-armed with a newer schedule while dispatching; keep that one.
		return
	}
	if retry {
		e.pending[action.Key] = next
		return
	}
	delete(e.pending, action.Key)
}
