package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"server-warden/internal/core"
	"server-warden/internal/discord"
	"server-warden/internal/gate"
)

const historyDisplayLimit = 15

type HistoryCommand struct {
	spec *gate.CommandSpec
}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Description() string { return "Show recent command usage on this server" }
func (c *HistoryCommand) Group() string       { return "maintenance" }

func (c *HistoryCommand) Spec() *gate.CommandSpec { return c.spec }

func (c *HistoryCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *HistoryCommand) Run(ctx context.Context, inv *core.Invocation) error {
	records, err := inv.Storage.CommandHistory(inv.Gate.GuildID)
	if err != nil {
		return fmt.Errorf("load command history: %w", err)
	}

	if len(records) > historyDisplayLimit {
		records = records[len(records)-historyDisplayLimit:]
	}

	var sb strings.Builder
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		fmt.Fprintf(&sb, "`%s` /%s by <@%s> in <#%s>\n",
			r.Datetime.Format("2006-01-02 15:04"), r.Command, r.UserID, r.ChannelID)
	}
	if sb.Len() == 0 {
		sb.WriteString("No commands logged yet.")
	}

	return discord.RespondEmbedEphemeral(inv.Session, inv.Interaction, &discordgo.MessageEmbed{
		Title:       "Recent commands",
		Description: sb.String(),
	})
}

func init() {
	core.Register(&HistoryCommand{
		spec: &gate.CommandSpec{
			OwnersOnly: true,
			Check: func(ctx context.Context, inv *gate.Invocation) (bool, error) {
				return inv.GuildID != "", nil
			},
		},
	})
}
