package punish

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"modbot/model"
	"modbot/scheduler"
)

// Notifier posts a short log line to the moderation channel whenever a
// scheduled reversal reaches a terminal state.
type Notifier struct {
	session   *discordgo.Session
	channelID string
}

func NewNotifier(session *discordgo.Session, channelID string) *Notifier {
	return &Notifier{session: session, channelID: channelID}
}

func (n *Notifier) ActionResolved(action model.ScheduledAction, outcome scheduler.Outcome) {
	if n.channelID == "" {
		return
	}

	var content string
	switch outcome {
	case scheduler.OutcomeSuccess:
		content = fmt.Sprintf("✅ %s for <@%d> completed.", describe(action.Key.Kind), action.Key.UserID)
	case scheduler.OutcomeNotFound:
		content = fmt.Sprintf("ℹ️ %s for <@%d> was already done.", describe(action.Key.Kind), action.Key.UserID)
	default:
		content = fmt.Sprintf("⚠️ %s for <@%d> abandoned after %d attempts (%s).",
			describe(action.Key.Kind), action.Key.UserID, action.Attempts, outcome)
	}

	if _, err := n.session.ChannelMessageSend(n.channelID, content); err != nil {
		log.Error().Str("action", action.Key.String()).Err(err).Msg("failed to post resolution notice")
	}
}

func describe(kind model.ActionKind) string {
	switch kind {
	case model.ActionUnmute:
		return "Unmute"
	case model.ActionUnban:
		return "Unban"
	case model.ActionRemoveRole:
		return "Role removal"
	default:
		return kind.String()
	}
}
