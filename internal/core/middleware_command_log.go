package core

import (
	"context"
	"log"
)

// WithCommandLog wraps a command to record successful executions in the
// per-guild command history. Logging failures never fail the command.
func WithCommandLog() Middleware {
	return func(c Command) Command {
		return Wrap(c, func(ctx context.Context, inv *Invocation) error {
			err := c.Run(ctx, inv)
			if err != nil {
				return err
			}
			if inv.Storage == nil || inv.Gate == nil || inv.Gate.GuildID == "" {
				return nil
			}
			name := Root(c).Name()
			if lerr := inv.Storage.LogCommand(inv.Gate.GuildID, inv.Gate.ChannelID, inv.Gate.UserID, name); lerr != nil {
				log.Printf("[WARN] Failed to log command /%s: %v", name, lerr)
			}
			return nil
		})
	}
}
