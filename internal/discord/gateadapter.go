package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"server-warden/internal/gate"
)

// stateCache exposes the session's state cache to the gate.
type stateCache struct {
	s *discordgo.Session
}

func (c stateCache) Guild(id string) (*discordgo.Guild, bool) {
	guild, err := c.s.State.Guild(id)
	if err != nil || guild == nil {
		return nil, false
	}
	return guild, true
}

func (c stateCache) CurrentUserID() string {
	if c.s.State.User == nil {
		return ""
	}
	return c.s.State.User.ID
}

// restFetcher retrieves members over REST when state has no entry for
// them, behind a limiter so permission checks cannot saturate the API.
type restFetcher struct {
	s   *discordgo.Session
	lim *rate.Limiter
}

func (f restFetcher) GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if err := f.lim.Wait(ctx); err != nil {
		return nil, err
	}
	return f.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
}

// NewResolver builds the production permission resolver over a session.
func NewResolver(s *discordgo.Session) *gate.Resolver {
	return &gate.Resolver{
		Cache:   stateCache{s},
		Fetcher: restFetcher{s: s, lim: rate.NewLimiter(rate.Limit(5), 5)},
		Compute: computePermissions,
	}
}

// computePermissions resolves a member's effective permissions in a channel
// from role grants and channel overwrites: base roles, administrator
// short-circuit, then @everyone, role, and member overwrites in order.
func computePermissions(guild *discordgo.Guild, channel *discordgo.Channel, member *discordgo.Member) (gate.PermissionSet, error) {
	if member.User == nil {
		return 0, fmt.Errorf("member has no user data")
	}
	if member.User.ID == guild.OwnerID {
		return gate.AllPermissions, nil
	}

	var perms int64
	for _, role := range guild.Roles {
		if role.ID == guild.ID { // @everyone
			perms |= role.Permissions
			break
		}
	}
	for _, roleID := range member.Roles {
		for _, role := range guild.Roles {
			if role.ID == roleID {
				perms |= role.Permissions
				break
			}
		}
	}

	if perms&discordgo.PermissionAdministrator != 0 {
		return gate.AllPermissions, nil
	}

	for _, ow := range channel.PermissionOverwrites {
		if ow.Type == discordgo.PermissionOverwriteTypeRole && ow.ID == guild.ID {
			perms &^= ow.Deny
			perms |= ow.Allow
		}
	}

	var allow, deny int64
	for _, ow := range channel.PermissionOverwrites {
		if ow.Type != discordgo.PermissionOverwriteTypeRole || ow.ID == guild.ID {
			continue
		}
		for _, roleID := range member.Roles {
			if ow.ID == roleID {
				allow |= ow.Allow
				deny |= ow.Deny
				break
			}
		}
	}
	perms &^= deny
	perms |= allow

	for _, ow := range channel.PermissionOverwrites {
		if ow.Type == discordgo.PermissionOverwriteTypeMember && ow.ID == member.User.ID {
			perms &^= ow.Deny
			perms |= ow.Allow
		}
	}

	return gate.PermissionSet(perms), nil
}
