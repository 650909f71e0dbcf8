package commands

import "github.com/bwmarrin/discordgo"

// GenerateCommands builds the moderation slash commands registered per guild.
func GenerateCommands() []*discordgo.ApplicationCommand {
	adminPerms := int64(discordgo.PermissionModerateMembers)

	userOption := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: desc,
			Required:    true,
		}
	}
	durationOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "duration",
		Description: "How long the sanction lasts, e.g. 30m, 12h, 7d",
		Required:    true,
	}
	reasonOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Why the sanction is applied",
		Required:    true,
	}
	roleOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionRole,
		Name:        "role",
		Description: "The role to grant temporarily",
		Required:    true,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:                     "mute",
			Description:              "Mute a user for a duration",
			DefaultMemberPermissions: &adminPerms,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("The user to mute"), durationOption, reasonOption,
			},
		},
		{
			Name:                     "unmute",
			Description:              "Lift a mute early",
			DefaultMemberPermissions: &adminPerms,
			Options:                  []*discordgo.ApplicationCommandOption{userOption("The user to unmute")},
		},
		{
			Name:                     "ban",
			Description:              "Ban a user for a duration",
			DefaultMemberPermissions: &adminPerms,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("The user to ban"), durationOption, reasonOption,
			},
		},
		{
			Name:                     "unban",
			Description:              "Lift a ban early",
			DefaultMemberPermissions: &adminPerms,
			Options:                  []*discordgo.ApplicationCommandOption{userOption("The user to unban")},
		},
		{
			Name:                     "timedrole",
			Description:              "Grant a role for a duration",
			DefaultMemberPermissions: &adminPerms,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("The user to grant the role to"), roleOption, durationOption, reasonOption,
			},
		},
		{
			Name:                     "removerole",
			Description:              "Remove a timed role early",
			DefaultMemberPermissions: &adminPerms,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("The user to remove the role from"), roleOption,
			},
		},
		{
			Name:                     "history",
			Description:              "Show a user's sanction history",
			DefaultMemberPermissions: &adminPerms,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("The user to look up"),
			},
		},
		{
			Name:                     "modstatus",
			Description:              "Show scheduler and system status",
			DefaultMemberPermissions: &adminPerms,
		},
	}
}
