package bot

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func (b *Bot) Run() {
	if err := b.Session.Open(); err != nil {
		log.Fatal().Err(err).Msg("error opening connection")
	}

	log.Info().Msg("registering commands for enabled guilds")
	for _, serverCfg := range b.GetConfig().ServerConfigs {
		if serverCfg.Enable {
			b.RefreshCommands(serverCfg.GuildID)
		}
	}

	// Recovery must finish before the bot is considered ready: every stored
	// reversal gets re-armed, past-due ones fire right away.
	if err := b.Scheduler.Bootstrap(); err != nil {
		log.Fatal().Err(err).Msg("failed to recover scheduled reversals")
	}
	b.Scheduler.Start()
	b.startCron()

	log.Info().Msg("bot is now running, press CTRL-C to exit")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
}
