package model

import (
	"fmt"
	"time"
)

// ActionKind identifies which reversal a scheduled action performs.
type ActionKind int

const (
	ActionUnmute ActionKind = iota
	ActionUnban
	ActionRemoveRole
)

func (k ActionKind) String() string {
	switch k {
	case ActionUnmute:
		return "unmute"
	case ActionUnban:
		return "unban"
	case ActionRemoveRole:
		return "remove_role"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ActionKey is the unique identity of one pending reversal. RoleID is set
// only for ActionRemoveRole and is part of the identity: a user may carry
// several independent timed role grants at once.
type ActionKey struct {
	GuildID uint64
	UserID  uint64
	Kind    ActionKind
	RoleID  uint64
}

func (k ActionKey) String() string {
	if k.Kind == ActionRemoveRole {
		return fmt.Sprintf("%s guild=%d user=%d role=%d", k.Kind, k.GuildID, k.UserID, k.RoleID)
	}
	return fmt.Sprintf("%s guild=%d user=%d", k.Kind, k.GuildID, k.UserID)
}

// ActionStatus tracks a scheduled action through dispatch. InFlight is only
// ever observed in memory; rows loaded from the store are always Pending.
type ActionStatus int

const (
	StatusPending ActionStatus = iota
	StatusInFlight
	StatusDone
)

// ScheduledAction is one pending reversal: do Key at ExecuteAt. ExecuteAt may
// already be in the past when the record is loaded after downtime.
type ScheduledAction struct {
	Key       ActionKey
	ExecuteAt time.Time
	Attempts  int
	Status    ActionStatus
}

// SanctionRecord is the audit row written when a sanction is applied.
// The table is named 'sanctions'.
type SanctionRecord struct {
	SanctionID int64  `db:"sanction_id"` // Primary Key, Auto-increment
	GuildID    uint64 `db:"guild_id"`
	UserID     uint64 `db:"user_id"`
	Username   string `db:"username"`
	AdminID    uint64 `db:"admin_id"`
	Reason     string `db:"reason"`
	ActionType string `db:"action_type"` // "mute", "ban" or "role"
	RoleID     uint64 `db:"role_id"`     // 0 unless ActionType is "role"
	IssuedAt   int64  `db:"issued_at"`
	ExpiresAt  int64  `db:"expires_at"` // 0 means permanent
}
