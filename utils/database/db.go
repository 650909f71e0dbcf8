package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Init opens the moderation database. Both the scheduled-action table and
// the sanction history live in the same file so the whole moderation state
// travels together.
func Init(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to moderation database: %w", err)
	}
	// Serialized writes from multiple goroutines; let sqlite wait instead of
	// returning SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	return db, nil
}
