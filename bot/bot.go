package bot

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"modbot/commands"
	"modbot/gateway"
	"modbot/model"
	"modbot/scheduler"
	"modbot/utils/database"
)

type Bot struct {
	Session            *discordgo.Session
	RegisteredCommands []*discordgo.ApplicationCommand
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)
	DB                 *sqlx.DB
	Store              *database.ScheduleStore
	Scheduler          *scheduler.Scheduler

	config atomic.Value // *model.Config
	cron   *cron.Cron
}

func New(cfg *model.Config, db *sqlx.DB) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	dg.StateEnabled = true

	store, err := database.NewScheduleStore(db)
	if err != nil {
		return nil, err
	}
	if err := database.InitSanctionTable(db); err != nil {
		return nil, err
	}

	b := &Bot{
		Session:         dg,
		CommandHandlers: make(map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)),
		DB:              db,
		Store:           store,
	}
	b.config.Store(cfg)

	gw := gateway.NewDiscordGateway(dg, cfg.Scheduler.RatePerSec, b.mutedRole)
	b.Scheduler = scheduler.New(store, gw, scheduler.Options{
		Strategy:      cfg.Scheduler.Engine,
		SweepInterval: cfg.Scheduler.SweepInterval,
		SweepWorkers:  cfg.Scheduler.SweepWorkers,
		Policy: scheduler.RetryPolicy{
			ForbiddenRetryAfter: cfg.Scheduler.ForbiddenRetryAfter,
			TransientRetryBase:  cfg.Scheduler.TransientRetryBase,
			TransientRetryMax:   cfg.Scheduler.TransientRetryMax,
			MaxAttempts:         cfg.Scheduler.MaxAttempts,
		},
	})
	return b, nil
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

func (b *Bot) GetDB() *sqlx.DB {
	return b.DB
}

func (b *Bot) GetScheduler() *scheduler.Scheduler {
	return b.Scheduler
}

// mutedRole resolves the configured muted role for a guild.
func (b *Bot) mutedRole(guildID uint64) (uint64, bool) {
	serverCfg, ok := b.GetConfig().ServerConfigs[strconv.FormatUint(guildID, 10)]
	if !ok || serverCfg.MutedRoleID == "" {
		return 0, false
	}
	roleID, err := strconv.ParseUint(serverCfg.MutedRoleID, 10, 64)
	if err != nil {
		log.Error().Str("guild", serverCfg.GuildID).Str("role", serverCfg.MutedRoleID).
			Msg("invalid muted_role_id in server config")
		return 0, false
	}
	return roleID, true
}

// RefreshCommands overwrites the slash commands for one guild.
func (b *Bot) RefreshCommands(guildID string) {
	cmds := commands.GenerateCommands()
	log.Info().Str("guild", guildID).Int("count", len(cmds)).Msg("registering commands")
	registered, err := b.Session.ApplicationCommandBulkOverwrite(b.GetConfig().AppID, guildID, cmds)
	if err != nil {
		log.Error().Str("guild", guildID).Err(err).Msg("cannot update commands")
		return
	}
	b.RegisteredCommands = append(b.RegisteredCommands, registered...)
}

func (b *Bot) Close() {
	log.Info().Msg("gracefully shutting down")
	if b.cron != nil {
		<-b.cron.Stop().Done()
	}
	if b.Scheduler != nil {
		b.Scheduler.Stop()
	}
	if err := b.Session.Close(); err != nil {
		log.Error().Err(err).Msg("error closing session")
	}
}

// ParseSnowflake turns a discordgo guild/user/role ID into the numeric form
// used by scheduler keys.
func ParseSnowflake(id string) (uint64, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", id, err)
	}
	return n, nil
}
