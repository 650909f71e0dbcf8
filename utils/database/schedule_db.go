package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"modbot/model"
)

// ScheduleStore is the durable record of pending reversals, one row per
// action key. The composite primary key enforces last-write-wins: inserting
// an existing key replaces the previous row.
type ScheduleStore struct {
	db *sqlx.DB
}

type scheduledActionRow struct {
	GuildID   uint64 `db:"guild_id"`
	UserID    uint64 `db:"user_id"`
	Kind      int    `db:"kind"`
	RoleID    uint64 `db:"role_id"`
	ExecuteAt int64  `db:"execute_at"` // unix milliseconds
	Attempts  int    `db:"attempts"`
}

// NewScheduleStore ensures the scheduled_actions table exists.
func NewScheduleStore(db *sqlx.DB) (*ScheduleStore, error) {
	schema := `
    CREATE TABLE IF NOT EXISTS scheduled_actions (
        guild_id   INTEGER NOT NULL,
        user_id    INTEGER NOT NULL,
        kind       INTEGER NOT NULL,
        role_id    INTEGER NOT NULL DEFAULT 0,
        execute_at INTEGER NOT NULL,
        attempts   INTEGER NOT NULL DEFAULT 0,
        PRIMARY KEY (guild_id, user_id, kind, role_id)
    );`

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create scheduled_actions table: %w", err)
	}
	return &ScheduleStore{db: db}, nil
}

// Insert upserts the action for its key.
func (s *ScheduleStore) Insert(action model.ScheduledAction) error {
	query := `INSERT OR REPLACE INTO scheduled_actions (guild_id, user_id, kind, role_id, execute_at, attempts)
              VALUES (:guild_id, :user_id, :kind, :role_id, :execute_at, :attempts)`

	if _, err := s.db.NamedExec(query, toRow(action)); err != nil {
		return fmt.Errorf("failed to insert scheduled action: %w", err)
	}
	return nil
}

// Delete removes the row for the key. Deleting a missing key is a no-op.
func (s *ScheduleStore) Delete(key model.ActionKey) error {
	query := "DELETE FROM scheduled_actions WHERE guild_id = ? AND user_id = ? AND kind = ? AND role_id = ?"
	if _, err := s.db.Exec(query, key.GuildID, key.UserID, int(key.Kind), key.RoleID); err != nil {
		return fmt.Errorf("failed to delete scheduled action: %w", err)
	}
	return nil
}

// ListAll returns every pending reversal, soonest first. Used at startup.
func (s *ScheduleStore) ListAll() ([]model.ScheduledAction, error) {
	var rows []scheduledActionRow
	query := "SELECT * FROM scheduled_actions ORDER BY execute_at"
	if err := s.db.Select(&rows, query); err != nil {
		return nil, fmt.Errorf("failed to list scheduled actions: %w", err)
	}
	return fromRows(rows), nil
}

// ListByKind returns pending reversals of one kind, soonest first.
func (s *ScheduleStore) ListByKind(kind model.ActionKind) ([]model.ScheduledAction, error) {
	var rows []scheduledActionRow
	query := "SELECT * FROM scheduled_actions WHERE kind = ? ORDER BY execute_at"
	if err := s.db.Select(&rows, query, int(kind)); err != nil {
		return nil, fmt.Errorf("failed to list scheduled actions by kind: %w", err)
	}
	return fromRows(rows), nil
}

func toRow(action model.ScheduledAction) scheduledActionRow {
	return scheduledActionRow{
		GuildID:   action.Key.GuildID,
		UserID:    action.Key.UserID,
		Kind:      int(action.Key.Kind),
		RoleID:    action.Key.RoleID,
		ExecuteAt: action.ExecuteAt.UnixMilli(),
		Attempts:  action.Attempts,
	}
}

func fromRows(rows []scheduledActionRow) []model.ScheduledAction {
	actions := make([]model.ScheduledAction, 0, len(rows))
	for _, row := range rows {
		actions = append(actions, model.ScheduledAction{
			Key: model.ActionKey{
				GuildID: row.GuildID,
				UserID:  row.UserID,
				Kind:    model.ActionKind(row.Kind),
				RoleID:  row.RoleID,
			},
			ExecuteAt: time.UnixMilli(row.ExecuteAt),
			Attempts:  row.Attempts,
			Status:    model.StatusPending,
		})
	}
	return actions
}
