package sys

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

const (
	MsgSyncGlobalStarting = "[PROD] Registering commands globally..."
	MsgSyncGlobalDone     = "[PROD] Registered: %s"
	MsgSyncGuildStarting  = "[DEV] Registering commands to guild: %s"
	MsgSyncGuildDone      = "[DEV] Registered: %s"
	MsgSyncSkipped        = "Skipping command registration as requested."
)

// CommandSyncer uploads command sets. rest.Rest satisfies it.
type CommandSyncer interface {
	SetGlobalCommands(applicationID snowflake.ID, commandCreates []discord.ApplicationCommandCreate, opts ...rest.RequestOpt) ([]discord.ApplicationCommand, error)
	SetGuildCommands(applicationID snowflake.ID, guildID snowflake.ID, commandCreates []discord.ApplicationCommandCreate, opts ...rest.RequestOpt) ([]discord.ApplicationCommand, error)
}

// CommandSync pushes the registry's command sets to Discord.
type CommandSync struct {
	Registry      *Registry
	Syncer        CommandSyncer
	ApplicationID snowflake.ID
	Logger        *slog.Logger
}

// Sync returns the syncer for the connected client.
func (b *Bot) Sync() *CommandSync {
	return &CommandSync{
		Registry:      b.Commands,
		Syncer:        b.Client.Rest,
		ApplicationID: b.Client.ApplicationID,
		Logger:        Component(b.Logger, "sync"),
	}
}

// Global uploads every registered slash command as a global command.
func (s *CommandSync) Global(ctx context.Context) (int, error) {
	s.Logger.Info(MsgSyncGlobalStarting)
	created, err := s.Syncer.SetGlobalCommands(s.ApplicationID, s.Registry.GlobalCommands(), rest.WithCtx(ctx))
	if err != nil {
		return 0, fmt.Errorf("global sync failed: %w", err)
	}
	for _, cmd := range created {
		s.Logger.Info(fmt.Sprintf(MsgSyncGlobalDone, cmd.Name()))
	}
	return len(created), nil
}

// Guild uploads the guild-specific set of guildID.
func (s *CommandSync) Guild(ctx context.Context, guildID snowflake.ID) (int, error) {
	s.Logger.Info(fmt.Sprintf(MsgSyncGuildStarting, guildID))
	cmds := s.Registry.GuildCommands(guildID)
	if cmds == nil {
		cmds = []discord.ApplicationCommandCreate{}
	}
	created, err := s.Syncer.SetGuildCommands(s.ApplicationID, guildID, cmds, rest.WithCtx(ctx))
	if err != nil {
		return 0, fmt.Errorf("guild %s sync failed: %w", guildID, err)
	}
	for _, cmd := range created {
		s.Logger.Info(fmt.Sprintf(MsgSyncGuildDone, cmd.Name()))
	}
	return len(created), nil
}

// Startup registers commands when the process starts: a configured
// development guild gets a copy of the globals, otherwise they go out
// globally.
func (s *CommandSync) Startup(ctx context.Context, guildID string) error {
	if guildID == "" {
		_, err := s.Global(ctx)
		return err
	}
	id, err := snowflake.Parse(guildID)
	if err != nil {
		return fmt.Errorf("invalid GUILD_ID: %w", err)
	}
	s.Registry.CopyGlobalToGuild(id)
	_, err = s.Guild(ctx, id)
	return err
}
