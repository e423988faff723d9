package sys

import (
	"context"
	"errors"
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type guildCall struct {
	GuildID snowflake.ID
	Names   []string
}

type fakeSyncer struct {
	global [][]string
	guild  []guildCall
	err    error
}

func commandNames(creates []discord.ApplicationCommandCreate) []string {
	names := make([]string, len(creates))
	for i, c := range creates {
		names[i] = c.CommandName()
	}
	return names
}

func echoCommands(creates []discord.ApplicationCommandCreate) []discord.ApplicationCommand {
	out := make([]discord.ApplicationCommand, len(creates))
	for i := range creates {
		out[i] = discord.SlashCommand{}
	}
	return out
}

func (f *fakeSyncer) SetGlobalCommands(_ snowflake.ID, creates []discord.ApplicationCommandCreate, _ ...rest.RequestOpt) ([]discord.ApplicationCommand, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.global = append(f.global, commandNames(creates))
	return echoCommands(creates), nil
}

func (f *fakeSyncer) SetGuildCommands(_ snowflake.ID, guildID snowflake.ID, creates []discord.ApplicationCommandCreate, _ ...rest.RequestOpt) ([]discord.ApplicationCommand, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.guild = append(f.guild, guildCall{GuildID: guildID, Names: commandNames(creates)})
	return echoCommands(creates), nil
}

func newTestSync() (*CommandSync, *fakeSyncer) {
	reg := NewRegistry()
	_ = reg.AddSlashCommand(botGroup())
	syncer := &fakeSyncer{}
	return &CommandSync{Registry: reg, Syncer: syncer, ApplicationID: 1, Logger: quietLogger()}, syncer
}

func TestCommandSync_Global(t *testing.T) {
	s, syncer := newTestSync()

	n, err := s.Global(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, [][]string{{"bot"}}, syncer.global)
}

func TestCommandSync_GuildDefaultsToEmpty(t *testing.T) {
	s, syncer := newTestSync()

	n, err := s.Guild(context.Background(), testGuild)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.Len(t, syncer.guild, 1)
	assert.Equal(t, testGuild, syncer.guild[0].GuildID)
	assert.Empty(t, syncer.guild[0].Names)
}

func TestCommandSync_Startup(t *testing.T) {
	t.Run("development guild", func(t *testing.T) {
		s, syncer := newTestSync()
		require.NoError(t, s.Startup(context.Background(), testGuild.String()))
		assert.Empty(t, syncer.global)
		require.Len(t, syncer.guild, 1)
		assert.Equal(t, []string{"bot"}, syncer.guild[0].Names)
	})

	t.Run("global", func(t *testing.T) {
		s, syncer := newTestSync()
		require.NoError(t, s.Startup(context.Background(), ""))
		assert.Len(t, syncer.global, 1)
		assert.Empty(t, syncer.guild)
	})

	t.Run("invalid guild", func(t *testing.T) {
		s, _ := newTestSync()
		assert.ErrorContains(t, s.Startup(context.Background(), "abc"), "invalid GUILD_ID")
	})

	t.Run("upload failure", func(t *testing.T) {
		s, syncer := newTestSync()
		syncer.err = errors.New("401 unauthorized")
		err := s.Startup(context.Background(), "")
		assert.ErrorIs(t, err, syncer.err)
	})
}
