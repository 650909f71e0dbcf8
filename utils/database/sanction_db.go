package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"modbot/model"
)

// InitSanctionTable ensures the sanction history table exists.
func InitSanctionTable(db *sqlx.DB) error {
	schema := `CREATE TABLE IF NOT EXISTS sanctions (
	          sanction_id INTEGER PRIMARY KEY AUTOINCREMENT,
	          guild_id INTEGER NOT NULL,
	          user_id INTEGER NOT NULL,
	          username TEXT NOT NULL,
	          admin_id INTEGER NOT NULL,
	          reason TEXT NOT NULL,
	          action_type TEXT NOT NULL,
	          role_id INTEGER NOT NULL DEFAULT 0,
	          issued_at INTEGER NOT NULL,
	          expires_at INTEGER NOT NULL DEFAULT 0
	      );`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create sanctions table: %w", err)
	}
	return nil
}

// AddSanctionRecord writes one history row and returns its ID.
func AddSanctionRecord(db *sqlx.DB, record model.SanctionRecord) (int64, error) {
	query := `INSERT INTO sanctions (guild_id, user_id, username, admin_id, reason, action_type, role_id, issued_at, expires_at)
              VALUES (:guild_id, :user_id, :username, :admin_id, :reason, :action_type, :role_id, :issued_at, :expires_at)`

	result, err := db.NamedExec(query, record)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sanction record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// GetSanctionsByUser retrieves a user's sanction history in one guild,
// optionally limited to records issued after since.
func GetSanctionsByUser(db *sqlx.DB, guildID, userID uint64, since *time.Time) ([]model.SanctionRecord, error) {
	var records []model.SanctionRecord
	query := "SELECT * FROM sanctions WHERE guild_id = ? AND user_id = ?"
	args := []interface{}{guildID, userID}
	if since != nil {
		query += " AND issued_at >= ?"
		args = append(args, since.Unix())
	}
	query += " ORDER BY issued_at DESC"

	if err := db.Select(&records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get sanctions for user %d in guild %d: %w", userID, guildID, err)
	}
	return records, nil
}

// CountActiveSanctions counts history rows whose expiry is still ahead.
func CountActiveSanctions(db *sqlx.DB, guildID uint64, now time.Time) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM sanctions WHERE guild_id = ? AND expires_at > ?"
	if err := db.Get(&count, query, guildID, now.Unix()); err != nil {
		return 0, fmt.Errorf("failed to count active sanctions for guild %d: %w", guildID, err)
	}
	return count, nil
}
