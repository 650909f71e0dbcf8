package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"modbot/model"
)

// RetryPolicy controls how failed reversals are re-armed.
type RetryPolicy struct {
	// ForbiddenRetryAfter is the fixed delay after a permission denial and
	// after unexpected errors.
	ForbiddenRetryAfter time.Duration
	// TransientRetryBase seeds the exponential backoff for rate limits and
	// transient I/O failures; TransientRetryMax caps it.
	TransientRetryBase time.Duration
	TransientRetryMax  time.Duration
	// MaxAttempts drops an action after that many failed dispatches.
	// Zero means retry until resolved.
	MaxAttempts int
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.ForbiddenRetryAfter <= 0 {
		p.ForbiddenRetryAfter = time.Hour
	}
	if p.TransientRetryBase <= 0 {
		p.TransientRetryBase = 30 * time.Second
	}
	if p.TransientRetryMax <= 0 {
		p.TransientRetryMax = 15 * time.Minute
	}
	return p
}

// Observer is notified after a reversal reaches a terminal state, either
// resolved (success / already satisfied) or abandoned at the attempts
// ceiling. Notification formatting lives entirely behind this interface.
type Observer interface {
	ActionResolved(action model.ScheduledAction, outcome Outcome)
}

// Dispatcher invokes reversals and settles the store. Dispatches for the
// same key are serialized by an in-flight mark; a duplicate fire during an
// active dispatch is dropped and the active one settles the key.
type Dispatcher struct {
	store   Store
	gateway ActionGateway
	clock   Clock
	policy  RetryPolicy

	mu       sync.Mutex
	inFlight map[model.ActionKey]bool

	omu       sync.Mutex
	observers []Observer
}

func NewDispatcher(store Store, gateway ActionGateway, clock Clock, policy RetryPolicy) *Dispatcher {
	return &Dispatcher{
		store:    store,
		gateway:  gateway,
		clock:    clock,
		policy:   policy.withDefaults(),
		inFlight: make(map[model.ActionKey]bool),
	}
}

// AddObserver registers an observer for resolved actions.
func (d *Dispatcher) AddObserver(o Observer) {
	d.omu.Lock()
	defer d.omu.Unlock()
	d.observers = append(d.observers, o)
}

// Dispatch performs the reversal for one due action. It returns the updated
// action and retry=true when the caller must re-arm it; on a terminal outcome
// the store entry is already deleted. Every path either deletes or re-arms,
// so a failure can never leave the key permanently unarmed.
func (d *Dispatcher) Dispatch(action model.ScheduledAction) (model.ScheduledAction, bool) {
	if !d.begin(action.Key) {
		return action, false
	}
	defer d.end(action.Key)

	action.Status = model.StatusInFlight
	res := d.invoke(action.Key)

	switch res.Outcome {
	case OutcomeSuccess, OutcomeNotFound:
		return d.resolve(action, res)
	case OutcomeForbidden:
		log.Warn().Str("action", action.Key.String()).Err(res.Err).
			Msg("reversal denied, will retry")
		return d.retryAfter(action, d.policy.ForbiddenRetryAfter, res)
	case OutcomeRateLimited:
		log.Warn().Str("action", action.Key.String()).Err(res.Err).
			Msg("reversal rate limited, backing off")
		return d.retryAfter(action, d.transientDelay(action.Attempts), res)
	default:
		log.Error().Str("action", action.Key.String()).Err(res.Err).
			Msg("unexpected reversal failure, will retry")
		return d.retryAfter(action, d.policy.ForbiddenRetryAfter, res)
	}
}

func (d *Dispatcher) begin(key model.ActionKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight[key] {
		return false
	}
	d.inFlight[key] = true
	return true
}

func (d *Dispatcher) end(key model.ActionKey) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, key)
}

func (d *Dispatcher) invoke(key model.ActionKey) Result {
	switch key.Kind {
	case model.ActionUnmute:
		return d.gateway.RemoveMute(key.GuildID, key.UserID)
	case model.ActionUnban:
		return d.gateway.RemoveBan(key.GuildID, key.UserID)
	case model.ActionRemoveRole:
		return d.gateway.RemoveRole(key.GuildID, key.UserID, key.RoleID)
	default:
		return Result{Outcome: OutcomeNotFound}
	}
}

func (d *Dispatcher) resolve(action model.ScheduledAction, res Result) (model.ScheduledAction, bool) {
	if err := d.store.Delete(action.Key); err != nil {
		// The reversal happened but the row survived. Keep the obligation
		// armed; the duplicate fire will observe NotFound and clean up.
		log.Error().Str("action", action.Key.String()).Err(err).
			Msg("failed to delete resolved action, re-arming")
		action.ExecuteAt = d.clock.Now().Add(d.transientDelay(action.Attempts))
		action.Attempts++
		action.Status = model.StatusPending
		return action, true
	}
	action.Status = model.StatusDone
	log.Info().Str("action", action.Key.String()).Str("outcome", res.Outcome.String()).
		Int("attempts", action.Attempts).Msg("reversal resolved")
	d.notify(action, res.Outcome)
	return action, false
}

func (d *Dispatcher) retryAfter(action model.ScheduledAction, delay time.Duration, res Result) (model.ScheduledAction, bool) {
	action.Attempts++
	if d.policy.MaxAttempts > 0 && action.Attempts >= d.policy.MaxAttempts {
		log.Error().Str("action", action.Key.String()).Int("attempts", action.Attempts).
			Err(res.Err).Msg("attempts ceiling reached, abandoning reversal")
		if err := d.store.Delete(action.Key); err != nil {
			log.Error().Str("action", action.Key.String()).Err(err).
				Msg("failed to delete abandoned action")
		}
		action.Status = model.StatusDone
		d.notify(action, res.Outcome)
		return action, false
	}

	action.ExecuteAt = d.clock.Now().Add(delay)
	action.Status = model.StatusPending
	if err := d.store.Insert(action); err != nil {
		// Keep the in-memory timer armed regardless; the store still holds
		// the previous row, so a restart re-dispatches at the old time.
		log.Error().Str("action", action.Key.String()).Err(err).
			Msg("failed to persist retry")
	}
	return action, true
}

// transientDelay doubles per attempt, capped at TransientRetryMax.
func (d *Dispatcher) transientDelay(attempts int) time.Duration {
	delay := d.policy.TransientRetryBase
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= d.policy.TransientRetryMax {
			return d.policy.TransientRetryMax
		}
	}
	return delay
}

func (d *Dispatcher) notify(action model.ScheduledAction, outcome Outcome) {
	d.omu.Lock()
	observers := make([]Observer, len(d.observers))
	copy(observers, d.observers)
	d.omu.Unlock()

	for _, o := range observers {
		o.ActionResolved(action, outcome)
	}
}
