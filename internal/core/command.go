// Package core provides the transport-agnostic command contract: a command
// is something with a name, an authorization spec, and Run. How commands
// are registered with Discord and dispatched lives in the discord adapter.
package core

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"server-warden/internal/gate"
	"server-warden/internal/storage"
)

// Command is the universal contract every bot command implements. The gate
// reads Spec() before Run is ever called; a command with a zero spec is
// open to everyone.
type Command interface {
	Name() string
	Description() string
	Group() string
	Spec() *gate.CommandSpec
	Run(ctx context.Context, inv *Invocation) error
}

// SlashProvider is implemented by commands that register a slash definition
// with Discord.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// Invocation carries the runtime context of a single command execution.
type Invocation struct {
	Session *discordgo.Session
	Storage *storage.Storage

	// Gate is the identity view the authorization gate evaluated.
	Gate *gate.Invocation

	// Interaction is the slash interaction that triggered the command.
	Interaction *discordgo.InteractionCreate
}
