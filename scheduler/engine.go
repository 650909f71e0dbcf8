package scheduler

import "modbot/model"

// DispatchFunc performs one due reversal and reports whether the action must
// be re-armed with the returned state.
type DispatchFunc func(action model.ScheduledAction) (model.ScheduledAction, bool)

// Engine holds the in-memory expiry triggers for pending reversals. Its
// state is a projection of the Store, rebuilt on startup by Bootstrap, and
// is never durable on its own.
type Engine interface {
	// Arm installs (or replaces) the trigger for action.Key. A past-due
	// ExecuteAt fires asynchronously right away, never as a negative delay.
	Arm(action model.ScheduledAction)
	// Disarm removes the trigger if present; a no-op otherwise. Disarming a
	// key whose dispatch already started is harmless: the dispatcher's
	// idempotency handling settles the race.
	Disarm(key model.ActionKey)
	Start()
	Stop()
	// Pending reports how many triggers are currently armed.
	Pending() int
}
