package model

import "time"

// Config is the root configuration, loaded from the environment plus
// data/config.yaml.
type Config struct {
	BotToken     string
	AppID        string
	LogChannelID string
	DatabasePath string

	Scheduler     SchedulerConfig
	ServerConfigs map[string]ServerConfig `mapstructure:"servers"`
}

// ServerConfig holds the per-guild moderation settings.
type ServerConfig struct {
	GuildID      string   `mapstructure:"guild_id"`
	Name         string   `mapstructure:"name"`
	Enable       bool     `mapstructure:"enable"`
	MutedRoleID  string   `mapstructure:"muted_role_id"`
	AdminRoleIDs []string `mapstructure:"admin_role_ids"`
}

// SchedulerConfig tunes the reversal scheduler.
type SchedulerConfig struct {
	Engine              string        `mapstructure:"engine"` // "sweep" or "timer"
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
	SweepWorkers        int           `mapstructure:"sweep_workers"`
	ForbiddenRetryAfter time.Duration `mapstructure:"forbidden_retry_after"`
	TransientRetryBase  time.Duration `mapstructure:"transient_retry_base"`
	TransientRetryMax   time.Duration `mapstructure:"transient_retry_max"`
	MaxAttempts         int           `mapstructure:"max_attempts"` // 0 retries until resolved
	RatePerSec          int           `mapstructure:"rate_per_sec"`
	DailyReportCron     string        `mapstructure:"daily_report_cron"`
}
