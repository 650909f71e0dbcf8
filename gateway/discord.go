// Package gateway adapts the Discord REST API to the scheduler's
// ActionGateway contract: three reversal calls plus failure classification.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"modbot/scheduler"
)

const defaultRatePerSec = 5

// MutedRoleResolver maps a guild to its configured muted role.
type MutedRoleResolver func(guildID uint64) (uint64, bool)

// DiscordGateway performs reversals through a discordgo session. Calls are
// paced by a shared limiter so a large recovery batch cannot hammer the API.
type DiscordGateway struct {
	session   *discordgo.Session
	limiter   *rate.Limiter
	mutedRole MutedRoleResolver
}

func NewDiscordGateway(session *discordgo.Session, ratePerSec int, mutedRole MutedRoleResolver) *DiscordGateway {
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}
	return &DiscordGateway{
		session:   session,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		mutedRole: mutedRole,
	}
}

// RemoveMute takes the guild's muted role off the user. A guild without a
// configured muted role is a configuration problem, not a transient one, but
// it is reported as an error so the obligation is retried rather than lost.
func (g *DiscordGateway) RemoveMute(guildID, userID uint64) scheduler.Result {
	roleID, ok := g.mutedRole(guildID)
	if !ok {
		return scheduler.Result{
			Outcome: scheduler.OutcomeError,
			Err:     fmt.Errorf("no muted role configured for guild %d", guildID),
		}
	}
	return g.RemoveRole(guildID, userID, roleID)
}

func (g *DiscordGateway) RemoveBan(guildID, userID uint64) scheduler.Result {
	g.limiter.Wait(context.Background())
	err := g.session.GuildBanDelete(snowflake(guildID), snowflake(userID))
	return classify(err)
}

func (g *DiscordGateway) RemoveRole(guildID, userID, roleID uint64) scheduler.Result {
	g.limiter.Wait(context.Background())
	err := g.session.GuildMemberRoleRemove(snowflake(guildID), snowflake(userID), snowflake(roleID))
	return classify(err)
}

func snowflake(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// classify maps a discordgo error onto the dispatcher's outcome taxonomy.
// 404 means the target condition already holds (ban gone, member left);
// 403 is a permission or role-hierarchy denial; 429, 5xx and network
// failures are transient.
func classify(err error) scheduler.Result {
	if err == nil {
		return scheduler.Result{Outcome: scheduler.OutcomeSuccess}
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch {
		case restErr.Response.StatusCode == http.StatusNotFound:
			return scheduler.Result{Outcome: scheduler.OutcomeNotFound, Err: err}
		case restErr.Response.StatusCode == http.StatusForbidden:
			return scheduler.Result{Outcome: scheduler.OutcomeForbidden, Err: err}
		case restErr.Response.StatusCode == http.StatusTooManyRequests:
			return scheduler.Result{Outcome: scheduler.OutcomeRateLimited, Err: err}
		case restErr.Response.StatusCode >= 500:
			return scheduler.Result{Outcome: scheduler.OutcomeRateLimited, Err: err}
		}
		return scheduler.Result{Outcome: scheduler.OutcomeError, Err: err}
	}

	var rateErr *discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		return scheduler.Result{Outcome: scheduler.OutcomeRateLimited, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return scheduler.Result{Outcome: scheduler.OutcomeRateLimited, Err: err}
	}

	return scheduler.Result{Outcome: scheduler.OutcomeError, Err: err}
}
