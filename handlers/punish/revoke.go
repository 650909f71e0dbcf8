package punish

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"modbot/bot"
	"modbot/model"
	"modbot/utils"
)

// HandleUnmute lifts a mute early. The scheduled reversal is cancelled so the
// sweep never re-processes the user.
func HandleUnmute(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Error().Err(err).Msg("failed to defer interaction")
		return
	}

	opts := optionMap(i)
	targetUser := opts["user"].UserValue(s)

	serverCfg, ok := b.GetConfig().ServerConfigs[i.GuildID]
	if !ok || serverCfg.MutedRoleID == "" {
		utils.SendFollowUpError(s, i.Interaction, "No muted role is configured for this server.")
		return
	}

	if err := s.GuildMemberRoleRemove(i.GuildID, targetUser.ID, serverCfg.MutedRoleID); err != nil {
		log.Error().Str("user", targetUser.ID).Err(err).Msg("failed to remove muted role")
		utils.SendFollowUpError(s, i.Interaction, "Could not remove the muted role.")
		return
	}

	cancelScheduled(b, i.GuildID, targetUser.ID, model.ActionUnmute, 0)
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("🔊 Unmuted %s.", targetUser.Mention()))
}

// HandleUnban lifts a ban early and cancels the scheduled unban.
func HandleUnban(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Error().Err(err).Msg("failed to defer interaction")
		return
	}

	opts := optionMap(i)
	targetUser := opts["user"].UserValue(s)

	if err := s.GuildBanDelete(i.GuildID, targetUser.ID); err != nil {
		log.Error().Str("user", targetUser.ID).Err(err).Msg("failed to remove ban")
		utils.SendFollowUpError(s, i.Interaction, "Could not unban the user.")
		return
	}

	cancelScheduled(b, i.GuildID, targetUser.ID, model.ActionUnban, 0)
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("✅ Unbanned %s.", targetUser.Mention()))
}

// HandleRemoveRole takes a granted role back early and cancels its scheduled
// removal. Other timed roles on the same user are untouched.
func HandleRemoveRole(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Error().Err(err).Msg("failed to defer interaction")
		return
	}

	opts := optionMap(i)
	targetUser := opts["user"].UserValue(s)
	role := opts["role"].RoleValue(s, i.GuildID)

	if err := s.GuildMemberRoleRemove(i.GuildID, targetUser.ID, role.ID); err != nil {
		log.Error().Str("user", targetUser.ID).Str("role", role.ID).Err(err).Msg("failed to remove role")
		utils.SendFollowUpError(s, i.Interaction, "Could not remove the role.")
		return
	}

	roleID, err := bot.ParseSnowflake(role.ID)
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, "Invalid role ID.")
		return
	}
	cancelScheduled(b, i.GuildID, targetUser.ID, model.ActionRemoveRole, roleID)
	utils.SendFollowUp(s, i.Interaction,
		fmt.Sprintf("🎭 Removed %s from %s.", role.Mention(), targetUser.Mention()))
}

// cancelScheduled drops the pending reversal if one exists. Cancelling an
// action that was never scheduled is a no-op, so the early-revoke commands
// also work on sanctions applied by other tools.
func cancelScheduled(b *bot.Bot, guildID, userID string, kind model.ActionKind, roleID uint64) {
	key, err := actionKey(guildID, userID, kind, roleID)
	if err != nil {
		log.Warn().Str("guild", guildID).Str("user", userID).Err(err).Msg("skipping cancel for unparseable ID")
		return
	}
	if err := b.Scheduler.Cancel(key); err != nil {
		log.Error().Str("action", key.String()).Err(err).Msg("failed to cancel scheduled reversal")
	}
}
