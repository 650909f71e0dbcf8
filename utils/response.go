package utils

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// DeferResponse acknowledges an interaction so the handler gets time to work.
func DeferResponse(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

// SendFollowUp sends a plain follow-up message for a deferred interaction.
func SendFollowUp(s *discordgo.Session, interaction *discordgo.Interaction, content string) {
	_, err := s.FollowupMessageCreate(interaction, true, &discordgo.WebhookParams{
		Content: content,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to send follow-up message")
	}
}

// SendFollowUpError sends an ephemeral error follow-up.
func SendFollowUpError(s *discordgo.Session, interaction *discordgo.Interaction, content string) {
	_, err := s.FollowupMessageCreate(interaction, true, &discordgo.WebhookParams{
		Content: "❌ " + content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to send error follow-up")
	}
}
