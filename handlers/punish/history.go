package punish

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"modbot/bot"
	"modbot/utils"
	"modbot/utils/database"
)

const historyWindow = 90 * 24 * time.Hour

// HandleHistory answers /history with a user's recent sanctions.
func HandleHistory(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Error().Err(err).Msg("failed to defer interaction")
		return
	}

	opts := optionMap(i)
	targetUser := opts["user"].UserValue(s)

	guildID, err := bot.ParseSnowflake(i.GuildID)
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, "Invalid guild ID.")
		return
	}
	userID, err := bot.ParseSnowflake(targetUser.ID)
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, "Invalid user ID.")
		return
	}

	since := time.Now().Add(-historyWindow)
	records, err := database.GetSanctionsByUser(b.DB, guildID, userID, &since)
	if err != nil {
		log.Error().Str("user", targetUser.ID).Err(err).Msg("failed to load sanction history")
		utils.SendFollowUpError(s, i.Interaction, "Could not load the sanction history.")
		return
	}

	if len(records) == 0 {
		utils.SendFollowUp(s, i.Interaction,
			fmt.Sprintf("%s has no sanctions in the last 90 days.", targetUser.Mention()))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sanctions for %s (last 90 days):\n", targetUser.Mention())
	for _, r := range records {
		fmt.Fprintf(&sb, "• **%s** <t:%d:R> by <@%d>: %s\n", r.ActionType, r.IssuedAt, r.AdminID, r.Reason)
	}
	utils.SendFollowUp(s, i.Interaction, sb.String())
}
