package command

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/bwmarrin/discordgo"

	"server-warden/internal/core"
	"server-warden/internal/discord"
	"server-warden/internal/gate"
)

type RollCommand struct {
	spec *gate.CommandSpec
}

func (c *RollCommand) Name() string        { return "roll" }
func (c *RollCommand) Description() string { return "Roll a die" }
func (c *RollCommand) Group() string       { return "fun" }

func (c *RollCommand) Spec() *gate.CommandSpec { return c.spec }

func (c *RollCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "sides",
				Description: "Number of sides (default 6)",
				Required:    false,
			},
		},
	}
}

func (c *RollCommand) Run(ctx context.Context, inv *core.Invocation) error {
	sides := int64(6)
	for _, opt := range inv.Interaction.ApplicationCommandData().Options {
		if opt.Name == "sides" {
			sides = opt.IntValue()
		}
	}
	if sides < 2 {
		sides = 2
	}

	result := rand.Int63n(sides) + 1
	return discord.Respond(inv.Session, inv.Interaction, fmt.Sprintf("🎲 You rolled %d (d%d)", result, sides))
}

func init() {
	core.Register(core.Apply(
		&RollCommand{
			spec: &gate.CommandSpec{
				Cooldowns: gate.NewCooldownTracker(gate.CooldownConfig{
					Channel: 2 * time.Second,
				}),
			},
		},
		core.WithCommandLog(),
	))
}
