package scheduler

import "modbot/model"

// Store is the durable record of pending reversals and the single source of
// truth. Engines hold only a disposable projection of it that Bootstrap can
// rebuild at any time.
type Store interface {
	// Insert upserts: an existing entry with the same key is replaced, so the
	// storage layer enforces last-write-wins per key.
	Insert(action model.ScheduledAction) error
	// Delete is idempotent; deleting a missing key is not an error.
	Delete(key model.ActionKey) error
	// ListAll returns every pending reversal across all kinds.
	ListAll() ([]model.ScheduledAction, error)
	// ListByKind returns pending reversals of one kind.
	ListByKind(kind model.ActionKind) ([]model.ScheduledAction, error)
}
