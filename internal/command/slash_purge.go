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

const (
	purgeDefaultCount = 10
	purgeMaxCount     = 100
	// Discord refuses bulk deletion of messages older than two weeks.
	purgeMaxAge = 14 * 24 * time.Hour
)

type PurgeCommand struct {
	spec *gate.CommandSpec
}

func (c *PurgeCommand) Name() string        { return "purge" }
func (c *PurgeCommand) Description() string { return "Bulk delete recent messages in this channel" }
func (c *PurgeCommand) Group() string       { return "moderation" }

func (c *PurgeCommand) Spec() *gate.CommandSpec { return c.spec }

func (c *PurgeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "count",
				Description: fmt.Sprintf("How many messages to delete (1-%d, default %d)", purgeMaxCount, purgeDefaultCount),
				Required:    false,
			},
		},
	}
}

func (c *PurgeCommand) Run(ctx context.Context, inv *core.Invocation) error {
	count := purgeDefaultCount
	for _, opt := range inv.Interaction.ApplicationCommandData().Options {
		if opt.Name == "count" {
			count = int(opt.IntValue())
		}
	}
	if count < 1 {
		count = 1
	}
	if count > purgeMaxCount {
		count = purgeMaxCount
	}

	channelID := inv.Gate.ChannelID
	messages, err := inv.Session.ChannelMessages(channelID, count, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("fetch messages: %w", err)
	}

	cutoff := time.Now().Add(-purgeMaxAge)
	var ids []string
	for _, m := range messages {
		if m.Timestamp.After(cutoff) {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) > 0 {
		if err := inv.Session.ChannelMessagesBulkDelete(channelID, ids, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("bulk delete: %w", err)
		}
	}

	return discord.RespondEphemeral(inv.Session, inv.Interaction, fmt.Sprintf("🧹 Deleted %d message(s).", len(ids)))
}

func init() {
	core.Register(core.Apply(
		&PurgeCommand{
			spec: &gate.CommandSpec{
				RequiredPermissions:    gate.PermissionSet(discordgo.PermissionManageMessages),
				RequiredBotPermissions: gate.PermissionSet(discordgo.PermissionManageMessages | discordgo.PermissionReadMessageHistory),
				Check: func(ctx context.Context, inv *gate.Invocation) (bool, error) {
					return inv.GuildID != "", nil
				},
				Cooldowns: gate.NewCooldownTracker(gate.CooldownConfig{
					Channel: 10 * time.Second,
				}),
			},
		},
		core.WithCommandLog(),
	))
}
