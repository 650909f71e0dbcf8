package handlers

import (
	"github.com/bwmarrin/discordgo"

	"modbot/bot"
	"modbot/handlers/punish"
)

// Register wires the slash command handlers and the resolution notifier.
func Register(b *bot.Bot) {
	withBot := func(h func(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot)) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		return func(s *discordgo.Session, i *discordgo.InteractionCreate) { h(s, i, b) }
	}

	b.CommandHandlers = map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"mute":       withBot(punish.HandleMute),
		"unmute":     withBot(punish.HandleUnmute),
		"ban":        withBot(punish.HandleBan),
		"unban":      withBot(punish.HandleUnban),
		"timedrole":  withBot(punish.HandleTimedRole),
		"removerole": withBot(punish.HandleRemoveRole),
		"history":    withBot(punish.HandleHistory),
		"modstatus":  withBot(SystemInfoHandler),
	}

	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if handler, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			handler(s, i)
		}
	})

	b.Scheduler.AddObserver(punish.NewNotifier(b.Session, b.GetConfig().LogChannelID))
}
