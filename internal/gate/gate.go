package gate

import "context"

// Invocation identifies a single inbound command invocation. GuildID is
// empty in direct messages. Data carries the transport context through to
// custom checks untouched.
type Invocation struct {
	GuildID   string
	ChannelID string
	UserID    string
	Data      any
}

// CheckFunc is a runtime-selected predicate over an invocation. It may
// block on external I/O. Returning false denies the invocation; returning
// an error denies it with the error attached.
type CheckFunc func(ctx context.Context, inv *Invocation) (bool, error)

// CommandSpec is the static authorization descriptor of a command.
type CommandSpec struct {
	OwnersOnly             bool
	RequiredPermissions    PermissionSet
	RequiredBotPermissions PermissionSet

	// Check, when set, replaces the gate's default check for this command.
	Check CheckFunc

	// Cooldowns, when set, rate-limits the command. The tracker is owned
	// by the command and shared by all of its invocations.
	Cooldowns *CooldownTracker
}

// Gate evaluates authorization and rate limiting once per invocation.
type Gate struct {
	Resolver *Resolver

	// Owners is the global owner id set consulted by owners-only commands.
	Owners map[string]struct{}

	// DefaultCheck applies to every command that carries no check of its own.
	DefaultCheck CheckFunc
}

// New builds a gate over resolver with the given owner ids.
func New(resolver *Resolver, ownerIDs []string) *Gate {
	owners := make(map[string]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = struct{}{}
	}
	return &Gate{Resolver: resolver, Owners: owners}
}

// Authorize runs the authorization pipeline for one invocation: ownership,
// user permissions, bot permissions, custom check, cooldown. Stages run in
// that order and the first failing stage returns its typed denial. A nil
// return means the command may execute; the cooldown commit is the only
// state mutation and happens last, so a denied or cancelled invocation
// never starts a cooldown.
func (g *Gate) Authorize(ctx context.Context, spec *CommandSpec, inv *Invocation) error {
	if spec.OwnersOnly {
		if _, ok := g.Owners[inv.UserID]; !ok {
			return &NotAnOwnerError{}
		}
	}

	// Unknown user permissions deny: a false allow is a security gap,
	// a false denial is an inconvenience.
	missing, known := g.Resolver.Missing(ctx, spec.RequiredPermissions, inv.GuildID, inv.ChannelID, inv.UserID)
	switch {
	case known && missing.IsEmpty():
	case known:
		return &MissingUserPermissionsError{Missing: missing, Known: true}
	default:
		return &MissingUserPermissionsError{}
	}

	// Unknown bot permissions pass: a cache gap must not block every
	// command, the downstream call fails on its own if the bot truly
	// lacks access.
	botID := g.Resolver.Cache.CurrentUserID()
	missing, known = g.Resolver.Missing(ctx, spec.RequiredBotPermissions, inv.GuildID, inv.ChannelID, botID)
	if known && !missing.IsEmpty() {
		return &MissingBotPermissionsError{Missing: missing}
	}

	check := spec.Check
	if check == nil {
		check = g.DefaultCheck
	}
	if check != nil {
		ok, err := check(ctx, inv)
		if err != nil {
			return &CommandError{Err: err, Location: LocationCheck}
		}
		if !ok {
			return &CheckFailedError{}
		}
	}

	if cd := spec.Cooldowns; cd != nil {
		if remaining, hit := cd.Remaining(inv); hit {
			return &CooldownError{Remaining: remaining}
		}
		cd.Start(inv)
	}

	return nil
}
