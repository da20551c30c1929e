// Package discord runs the bot: session lifecycle, slash command sync, and
// dispatch of inbound interactions through the authorization gate.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"server-warden/internal/config"
	"server-warden/internal/core"
	"server-warden/internal/gate"
	"server-warden/internal/storage"
)

const dispatchTimeout = 15 * time.Second

// Bot is the running Discord bot.
type Bot struct {
	dg      *discordgo.Session
	cfg     *config.Config
	storage *storage.Storage
	gate    *gate.Gate
}

// StartBot runs the bot until ctx is cancelled.
func StartBot(ctx context.Context, cfg *config.Config, store *storage.Storage) error {
	b := &Bot{cfg: cfg, storage: store}
	if err := b.run(ctx, cfg.DiscordToken); err != nil {
		return fmt.Errorf("bot run error: %w", err)
	}
	return nil
}

func (b *Bot) run(ctx context.Context, token string) error {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	b.dg = dg
	b.gate = gate.New(NewResolver(dg), b.cfg.OwnerIDs)

	b.configureIntents()
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onInteractionCreate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	log.Println("[INFO] Shutdown signal received. Cleaning up...")
	return nil
}

func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages
}

// onReady registers the slash definitions of every command in the registry.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("[INFO] Logged in as %s (%d guilds)", r.User.Username, len(r.Guilds))

	var defs []*discordgo.ApplicationCommand
	for _, c := range core.DefaultRegistry.All() {
		if sp, ok := core.Root(c).(core.SlashProvider); ok {
			defs = append(defs, sp.SlashDefinition())
		}
	}
	if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, "", defs); err != nil {
		log.Println("[ERR] Failed to register slash commands:", err)
	}
}

// onInteractionCreate routes a slash interaction through the gate and, if
// allowed, runs the command.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	c := core.DefaultRegistry.Get(data.Name)
	if c == nil {
		return
	}

	user := interactionUser(i)
	if user == nil {
		return
	}

	ginv := &gate.Invocation{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		UserID:    user.ID,
	}
	inv := &core.Invocation{
		Session:     s,
		Storage:     b.storage,
		Gate:        ginv,
		Interaction: i,
	}
	ginv.Data = inv

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	spec := c.Spec()
	if spec == nil {
		spec = &gate.CommandSpec{}
	}
	if err := b.gate.Authorize(ctx, spec, ginv); err != nil {
		b.respondDenied(s, i, c.Name(), err)
		return
	}

	if err := c.Run(ctx, inv); err != nil {
		wrapped := &gate.CommandError{Err: err, Location: gate.LocationBody}
		log.Printf("[ERR] Command /%s failed: %v", c.Name(), wrapped)
		_ = RespondEmbedEphemeral(s, i, &discordgo.MessageEmbed{
			Description: "Something went wrong running that command.",
		})
	}
}

// respondDenied turns a gate denial into a user-facing ephemeral message.
func (b *Bot) respondDenied(s *discordgo.Session, i *discordgo.InteractionCreate, name string, err error) {
	var (
		notOwner  *gate.NotAnOwnerError
		userPerms *gate.MissingUserPermissionsError
		botPerms  *gate.MissingBotPermissionsError
		checkFail *gate.CheckFailedError
		cmdErr    *gate.CommandError
		cooldown  *gate.CooldownError
		msg       string
	)

	switch {
	case errors.As(err, &notOwner):
		msg = "This command may only be used by the bot owners."
	case errors.As(err, &userPerms):
		if !userPerms.Known {
			msg = "I could not verify your permissions here, so I cannot run this command."
		} else {
			msg = fmt.Sprintf("You need the following permissions to run this command:\n`%s`",
				strings.Join(permissionNameList(userPerms.Missing), "`, `"))
		}
	case errors.As(err, &botPerms):
		msg = fmt.Sprintf("I am missing the following permissions in this channel:\n`%s`",
			strings.Join(permissionNameList(botPerms.Missing), "`, `"))
	case errors.As(err, &checkFail):
		msg = "This command cannot be used here."
	case errors.As(err, &cmdErr):
		log.Printf("[ERR] Check for /%s errored: %v", name, cmdErr)
		msg = "Something went wrong while checking this command."
	case errors.As(err, &cooldown):
		msg = fmt.Sprintf("Slow down. Try again in %s.", cooldown.Remaining.Round(time.Second))
	default:
		log.Printf("[WARN] Unrecognized denial for /%s: %v", name, err)
		msg = "You cannot use this command right now."
	}

	_ = RespondEmbedEphemeral(s, i, &discordgo.MessageEmbed{Description: msg})
}

// interactionUser returns the invoking user for guild and DM interactions.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
