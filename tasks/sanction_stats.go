package tasks

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/mem"

	"modbot/model"
	"modbot/utils/database"
)

// UpdateSanctionStats posts a summary of the moderation workload to the log
// channel: pending reversals per kind, active sanctions per guild, and the
// number of sanctions issued in the reporting window.
func UpdateSanctionStats(s *discordgo.Session, db *sqlx.DB, store *database.ScheduleStore, cfg *model.Config, window time.Duration) {
	now := time.Now()

	fields := make([]*discordgo.MessageEmbedField, 0, 8)
	for _, kind := range []model.ActionKind{model.ActionUnmute, model.ActionUnban, model.ActionRemoveRole} {
		actions, err := store.ListByKind(kind)
		if err != nil {
			log.Error().Stringer("kind", kind).Err(err).Msg("failed to count pending reversals")
			continue
		}
		overdue := 0
		for _, a := range actions {
			if a.ExecuteAt.Before(now) {
				overdue++
			}
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("Pending %s", kind),
			Value:  fmt.Sprintf("%d (%d overdue)", len(actions), overdue),
			Inline: true,
		})
	}

	since := now.Add(-window)
	for _, serverCfg := range cfg.ServerConfigs {
		if !serverCfg.Enable {
			continue
		}
		guildID, err := strconv.ParseUint(serverCfg.GuildID, 10, 64)
		if err != nil {
			continue
		}
		active, err := database.CountActiveSanctions(db, guildID, now)
		if err != nil {
			log.Error().Str("guild", serverCfg.GuildID).Err(err).Msg("failed to count active sanctions")
			continue
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   serverCfg.Name,
			Value:  fmt.Sprintf("%d active sanctions", active),
			Inline: true,
		})
	}

	footer := fmt.Sprintf("window: %s", window)
	if vm, err := mem.VirtualMemory(); err == nil {
		footer = fmt.Sprintf("window: %s · mem %.1f%% · %s", window, vm.UsedPercent, since.Format("2006-01-02 15:04"))
	}

	embed := &discordgo.MessageEmbed{
		Title:  "Moderation stats",
		Color:  0x5865F2,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{Text: footer},
	}

	if _, err := s.ChannelMessageSendEmbed(cfg.LogChannelID, embed); err != nil {
		log.Error().Err(err).Msg("failed to send stats embed")
	}
}
