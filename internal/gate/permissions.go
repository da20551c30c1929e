// Package gate decides, once per inbound command invocation, whether the
// command may run: ownership, user permissions, bot permissions, custom
// checks, and cooldowns, in that order. It never talks to Discord itself;
// cache, member fetch, and permission math are injected collaborators so
// the whole pipeline is testable without a session.
package gate

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
)

// PermissionSet is an immutable bitset over discordgo permission constants.
type PermissionSet int64

// AllPermissions grants everything; used for DM contexts where Discord
// applies no channel permissions.
const AllPermissions PermissionSet = discordgo.PermissionAll

// Union returns the permissions present in either set.
func (p PermissionSet) Union(other PermissionSet) PermissionSet { return p | other }

// Difference returns the permissions in p that are absent from other.
func (p PermissionSet) Difference(other PermissionSet) PermissionSet { return p &^ other }

// IsEmpty reports whether no permission bit is set.
func (p PermissionSet) IsEmpty() bool { return p == 0 }

// Has reports whether every bit of bits is present in p.
func (p PermissionSet) Has(bits PermissionSet) bool { return p&bits == bits }

// Cache is the read side of the guild cache the resolver consults first.
type Cache interface {
	Guild(id string) (*discordgo.Guild, bool)
	CurrentUserID() string
}

// MemberFetcher retrieves a guild member over the API when the cache has no
// entry for them.
type MemberFetcher interface {
	GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
}

// ComputeFunc resolves a member's effective permissions in a channel from
// role and overwrite data. The role-hierarchy math lives behind this hook,
// not in the resolver.
type ComputeFunc func(guild *discordgo.Guild, channel *discordgo.Channel, member *discordgo.Member) (PermissionSet, error)

// Resolver resolves effective permission sets for the gate. Every step that
// cannot produce a definite answer degrades to "unknown" (ok == false);
// the gate decides per direction whether unknown allows or denies.
type Resolver struct {
	Cache   Cache
	Fetcher MemberFetcher
	Compute ComputeFunc

	// Logf receives non-fatal diagnostics. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

func (r *Resolver) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Resolve returns the permissions of userID in channelID. A direct-message
// context (empty guildID) grants everything. ok is false whenever the
// answer is unknown: guild or channel not cached, unsupported channel kind,
// failed member fetch, or failed permission computation.
func (r *Resolver) Resolve(ctx context.Context, guildID, channelID, userID string) (perms PermissionSet, ok bool) {
	if guildID == "" {
		return AllPermissions, true
	}

	guild, ok := r.Cache.Guild(guildID)
	if !ok {
		return 0, false
	}

	channel := findChannel(guild, channelID)
	if channel == nil {
		return 0, false
	}

	switch channel.Type {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildVoice,
		discordgo.ChannelTypeGuildStageVoice,
		discordgo.ChannelTypeGuildForum:
	case discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		// Threads carry no overwrites of their own; permissions come from
		// the parent channel.
		parent := findChannel(guild, channel.ParentID)
		if parent == nil {
			return 0, false
		}
		channel = parent
	default:
		r.logf("[WARN] Guild message in unsupported channel kind %d (channel %s), denying invocation", channel.Type, channelID)
		return 0, false
	}

	member := findMember(guild, userID)
	if member == nil {
		fetched, err := r.Fetcher.GuildMember(ctx, guildID, userID)
		if err != nil {
			return 0, false
		}
		member = fetched
	}

	computed, err := r.Compute(guild, channel, member)
	if err != nil {
		return 0, false
	}
	return computed, true
}

// Missing returns the subset of required that userID does not hold in the
// channel. An empty required set short-circuits without resolving anything.
// ok is false when the user's permissions could not be resolved.
func (r *Resolver) Missing(ctx context.Context, required PermissionSet, guildID, channelID, userID string) (missing PermissionSet, ok bool) {
	if required.IsEmpty() {
		return 0, true
	}
	actual, ok := r.Resolve(ctx, guildID, channelID, userID)
	if !ok {
		return 0, false
	}
	return required.Difference(actual), true
}

func findChannel(guild *discordgo.Guild, channelID string) *discordgo.Channel {
	for _, ch := range guild.Channels {
		if ch.ID == channelID {
			return ch
		}
	}
	for _, th := range guild.Threads {
		if th.ID == channelID {
			return th
		}
	}
	return nil
}

func findMember(guild *discordgo.Guild, userID string) *discordgo.Member {
	for _, m := range guild.Members {
		if m.User != nil && m.User.ID == userID {
			return m
		}
	}
	return nil
}
