package bot

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"modbot/tasks"
)

// startCron wires the periodic reporting jobs: an hourly stats refresh and a
// daily summary at the configured schedule.
func (b *Bot) startCron() {
	cfg := b.GetConfig()
	if cfg.LogChannelID == "" {
		log.Info().Msg("no log channel configured, reporting jobs disabled")
		return
	}

	c := cron.New()
	if _, err := c.AddFunc("@hourly", func() {
		tasks.UpdateSanctionStats(b.Session, b.DB, b.Store, b.GetConfig(), time.Hour)
	}); err != nil {
		log.Error().Err(err).Msg("failed to schedule hourly stats job")
	}

	spec := cfg.Scheduler.DailyReportCron
	if spec == "" {
		spec = "0 9 * * *"
	}
	if _, err := c.AddFunc(spec, func() {
		log.Info().Msg("running daily sanction report")
		tasks.UpdateSanctionStats(b.Session, b.DB, b.Store, b.GetConfig(), 24*time.Hour)
	}); err != nil {
		log.Error().Str("spec", spec).Err(err).Msg("failed to schedule daily report")
	}

	c.Start()
	b.cron = c
}
