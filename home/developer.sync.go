package home

import (
	"context"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/biochemie/sys"
)

const (
	SyncCurrent = "~"
	SyncCopy    = "*"
	SyncClear   = "^"

	MsgSyncGuilds  = "Synced slash commands in %d/%d guilds."
	MsgSyncCurrent = "Synced %d slash commands (groups) to the current guild."
	MsgSyncCopied  = "Copied and synced %d slash commands (groups) to the current guild."
	MsgSyncCleared = "Cleared guild slash commands and synced them with the global slash commands."
	MsgSyncGlobal  = "Synced %d slash command (groups) globally."
	MsgSyncNoGuild = "Failed to sync, this command was not used in a guild."
)

type commandSyncer interface {
	Global(ctx context.Context) (int, error)
	Guild(ctx context.Context, guildID snowflake.ID) (int, error)
}

type guildCommandSets interface {
	CopyGlobalToGuild(guildID snowflake.ID)
	ClearGuild(guildID snowflake.ID)
}

// syncResult is the message to post and whether it replies to the invoker.
type syncResult struct {
	Message string
	Reply   bool
}

func handleSync(c *sys.PrefixContext) error {
	res, err := runSync(c.Ctx, c.Bot.Sync(), c.Bot.Commands, c.GuildID, c.Args.IDs("guilds"), c.Args.String("spec"))
	if err != nil {
		return err
	}
	if res.Reply {
		return c.Reply(res.Message)
	}
	return c.Send(res.Message)
}

// runSync performs one sync request. A list of guild IDs takes precedence
// over spec; failures for individual guilds only lower the count.
func runSync(ctx context.Context, s commandSyncer, sets guildCommandSets, current *snowflake.ID, guilds []snowflake.ID, spec string) (syncResult, error) {
	if len(guilds) > 0 {
		count := 0
		for _, id := range guilds {
			if _, err := s.Guild(ctx, id); err == nil {
				count++
			}
		}
		return syncResult{Message: fmt.Sprintf(MsgSyncGuilds, count, len(guilds))}, nil
	}

	if spec != "" && current == nil {
		return syncResult{Message: MsgSyncNoGuild, Reply: true}, nil
	}

	switch spec {
	case SyncCurrent:
		n, err := s.Guild(ctx, *current)
		if err != nil {
			return syncResult{}, err
		}
		return syncResult{Message: fmt.Sprintf(MsgSyncCurrent, n), Reply: true}, nil

	case SyncCopy:
		sets.CopyGlobalToGuild(*current)
		n, err := s.Guild(ctx, *current)
		if err != nil {
			return syncResult{}, err
		}
		return syncResult{Message: fmt.Sprintf(MsgSyncCopied, n), Reply: true}, nil

	case SyncClear:
		sets.ClearGuild(*current)
		if _, err := s.Guild(ctx, *current); err != nil {
			return syncResult{}, err
		}
		return syncResult{Message: MsgSyncCleared, Reply: true}, nil

	default:
		n, err := s.Global(ctx)
		if err != nil {
			return syncResult{}, err
		}
		return syncResult{Message: fmt.Sprintf(MsgSyncGlobal, n), Reply: true}, nil
	}
}
