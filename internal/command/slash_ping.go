// Package command holds the bot's commands. Each command registers itself
// into the default registry from init() and declares its authorization
// requirements via Spec().
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"server-warden/internal/core"
	"server-warden/internal/discord"
	"server-warden/internal/gate"
)

type PingCommand struct {
	spec *gate.CommandSpec
}

func (c *PingCommand) Name() string        { return "ping" }
func (c *PingCommand) Description() string { return "Check bot latency" }
func (c *PingCommand) Group() string       { return "maintenance" }

func (c *PingCommand) Spec() *gate.CommandSpec { return c.spec }

func (c *PingCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *PingCommand) Run(ctx context.Context, inv *core.Invocation) error {
	latency := inv.Session.HeartbeatLatency().Milliseconds()
	return discord.Respond(inv.Session, inv.Interaction, fmt.Sprintf("🏓 Pong! %dms", latency))
}

func init() {
	core.Register(core.Apply(
		&PingCommand{
			spec: &gate.CommandSpec{
				Cooldowns: gate.NewCooldownTracker(gate.CooldownConfig{
					User: 3 * time.Second,
				}),
			},
		},
		core.WithCommandLog(),
	))
}
