package punish

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"modbot/bot"
	"modbot/model"
	"modbot/utils"
	"modbot/utils/database"
)

// HandleMute puts the guild's muted role on a user and schedules its removal.
func HandleMute(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Error().Err(err).Msg("failed to defer interaction")
		return
	}

	opts := optionMap(i)
	targetUser := opts["user"].UserValue(s)
	duration, err := parseDuration(opts["duration"].StringValue())
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, err.Error())
		return
	}
	reason := opts["reason"].StringValue()

	serverCfg, ok := b.GetConfig().ServerConfigs[i.GuildID]
	if !ok || serverCfg.MutedRoleID == "" {
		utils.SendFollowUpError(s, i.Interaction, "No muted role is configured for this server.")
		return
	}

	if err := s.GuildMemberRoleAdd(i.GuildID, targetUser.ID, serverCfg.MutedRoleID); err != nil {
		log.Error().Str("user", targetUser.ID).Err(err).Msg("failed to add muted role")
		utils.SendFollowUpError(s, i.Interaction, "Could not apply the muted role.")
		return
	}

	key, err := actionKey(i.GuildID, targetUser.ID, model.ActionUnmute, 0)
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, "Invalid user or guild ID.")
		return
	}
	if err := applySanction(b, i, targetUser, "mute", reason, 0, duration); err != nil {
		utils.SendFollowUpError(s, i.Interaction, "The mute was applied but could not be recorded.")
		return
	}
	if err := b.Scheduler.Schedule(key, duration); err != nil {
		log.Error().Str("action", key.String()).Err(err).Msg("failed to schedule unmute")
		utils.SendFollowUpError(s, i.Interaction, "The mute was applied but could not be scheduled for reversal.")
		return
	}

	utils.SendFollowUp(s, i.Interaction,
		fmt.Sprintf("🔇 Muted %s for %s (lifts %s): %s", targetUser.Mention(), duration, formatExpiry(duration), reason))
}

// HandleBan bans a user and schedules the unban.
func HandleBan(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Error().Err(err).Msg("failed to defer interaction")
		return
	}

	opts := optionMap(i)
	targetUser := opts["user"].UserValue(s)
	duration, err := parseDuration(opts["duration"].StringValue())
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, err.Error())
		return
	}
	reason := opts["reason"].StringValue()

	if err := s.GuildBanCreateWithReason(i.GuildID, targetUser.ID, reason, 0); err != nil {
		log.Error().Str("user", targetUser.ID).Err(err).Msg("failed to ban user")
		utils.SendFollowUpError(s, i.Interaction, "Could not ban the user.")
		return
	}

	key, err := actionKey(i.GuildID, targetUser.ID, model.ActionUnban, 0)
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, "Invalid user or guild ID.")
		return
	}
	if err := applySanction(b, i, targetUser, "ban", reason, 0, duration); err != nil {
		utils.SendFollowUpError(s, i.Interaction, "The ban was applied but could not be recorded.")
		return
	}
	if err := b.Scheduler.Schedule(key, duration); err != nil {
		log.Error().Str("action", key.String()).Err(err).Msg("failed to schedule unban")
		utils.SendFollowUpError(s, i.Interaction, "The ban was applied but could not be scheduled for reversal.")
		return
	}

	utils.SendFollowUp(s, i.Interaction,
		fmt.Sprintf("🔨 Banned %s for %s (lifts %s): %s", targetUser.Mention(), duration, formatExpiry(duration), reason))
}

// HandleTimedRole grants a role and schedules its removal. Each role grant is
// an independent reversal: granting two roles yields two scheduled actions.
func HandleTimedRole(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Error().Err(err).Msg("failed to defer interaction")
		return
	}

	opts := optionMap(i)
	targetUser := opts["user"].UserValue(s)
	role := opts["role"].RoleValue(s, i.GuildID)
	duration, err := parseDuration(opts["duration"].StringValue())
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, err.Error())
		return
	}
	reason := opts["reason"].StringValue()

	if err := s.GuildMemberRoleAdd(i.GuildID, targetUser.ID, role.ID); err != nil {
		log.Error().Str("user", targetUser.ID).Str("role", role.ID).Err(err).Msg("failed to add role")
		utils.SendFollowUpError(s, i.Interaction, "Could not grant the role.")
		return
	}

	roleID, err := bot.ParseSnowflake(role.ID)
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, "Invalid role ID.")
		return
	}
	key, err := actionKey(i.GuildID, targetUser.ID, model.ActionRemoveRole, roleID)
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, "Invalid user or guild ID.")
		return
	}
	if err := applySanction(b, i, targetUser, "role", reason, roleID, duration); err != nil {
		utils.SendFollowUpError(s, i.Interaction, "The role was granted but could not be recorded.")
		return
	}
	if err := b.Scheduler.Schedule(key, duration); err != nil {
		log.Error().Str("action", key.String()).Err(err).Msg("failed to schedule role removal")
		utils.SendFollowUpError(s, i.Interaction, "The role was granted but could not be scheduled for removal.")
		return
	}

	utils.SendFollowUp(s, i.Interaction,
		fmt.Sprintf("🎭 Granted %s to %s for %s (removed %s): %s",
			role.Mention(), targetUser.Mention(), duration, formatExpiry(duration), reason))
}

func actionKey(guildID, userID string, kind model.ActionKind, roleID uint64) (model.ActionKey, error) {
	g, err := bot.ParseSnowflake(guildID)
	if err != nil {
		return model.ActionKey{}, err
	}
	u, err := bot.ParseSnowflake(userID)
	if err != nil {
		return model.ActionKey{}, err
	}
	return model.ActionKey{GuildID: g, UserID: u, Kind: kind, RoleID: roleID}, nil
}

// applySanction writes the history row. The row and the scheduler entry are
// separate writes to the same database; a crash between them leaves the
// history without a reversal, which the recovery log makes visible.
func applySanction(b *bot.Bot, i *discordgo.InteractionCreate, user *discordgo.User, actionType, reason string, roleID uint64, duration time.Duration) error {
	guildID, err := bot.ParseSnowflake(i.GuildID)
	if err != nil {
		return err
	}
	userID, err := bot.ParseSnowflake(user.ID)
	if err != nil {
		return err
	}
	adminID, err := bot.ParseSnowflake(i.Member.User.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = database.AddSanctionRecord(b.DB, model.SanctionRecord{
		GuildID:    guildID,
		UserID:     userID,
		Username:   user.Username,
		AdminID:    adminID,
		Reason:     reason,
		ActionType: actionType,
		RoleID:     roleID,
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(duration).Unix(),
	})
	if err != nil {
		log.Error().Str("user", user.ID).Err(err).Msg("failed to save sanction record")
	}
	return err
}
