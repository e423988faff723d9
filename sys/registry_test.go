package sys

import (
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/omit"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopPrefix(*PrefixContext) error { return nil }

func noopSlash(*SlashContext) error { return nil }

func botGroup() *SlashCommand {
	return &SlashCommand{
		Create: discord.SlashCommandCreate{
			Name:        "bot",
			Description: "Informatic bot-related commands.",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionSubCommand{Name: "ping", Description: "ping"},
				discord.ApplicationCommandOptionSubCommand{Name: "uptime", Description: "uptime"},
				discord.ApplicationCommandOptionSubCommand{Name: "info", Description: "info"},
			},
		},
		Handler: noopSlash,
	}
}

func TestRegistry_AddAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddCommand(&Command{Name: "Load", Handler: noopPrefix}))
	require.NoError(t, r.AddCommand(&Command{Name: "unload", Handler: noopPrefix}))

	cmd, ok := r.Command("LOAD")
	require.True(t, ok)
	assert.Equal(t, "Load", cmd.Name)

	assert.Error(t, r.AddCommand(&Command{Name: "load", Handler: noopPrefix}))
	assert.Error(t, r.AddCommand(&Command{Name: "nohandler"}))

	names := []string{}
	for _, c := range r.Commands() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Load", "unload"}, names)
}

func TestRegistry_SlashPrivilege(t *testing.T) {
	r := NewRegistry()
	cmd := &SlashCommand{
		Create:    discord.SlashCommandCreate{Name: "admin", Description: "admin"},
		Privilege: Privilege{GuildOnly: true, Permissions: discord.PermissionAdministrator},
		Handler:   noopSlash,
	}
	require.NoError(t, r.AddSlashCommand(cmd))

	want := discord.PermissionAdministrator
	assert.Equal(t, omit.New(&want), cmd.Create.DefaultMemberPermissions)
	assert.Equal(t, []discord.InteractionContextType{discord.InteractionContextTypeGuild}, cmd.Create.Contexts)

	assert.Error(t, r.AddSlashCommand(&SlashCommand{Create: discord.SlashCommandCreate{Name: "admin"}, Handler: noopSlash}))
}

func TestRegistry_Counts(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"load", "unload", "reload"} {
		require.NoError(t, r.AddCommand(&Command{Name: name, Handler: noopPrefix}))
	}
	require.NoError(t, r.AddSlashCommand(botGroup()))
	require.NoError(t, r.AddSlashCommand(&SlashCommand{
		Create:  discord.SlashCommandCreate{Name: "solo", Description: "solo"},
		Handler: noopSlash,
	}))

	counts := r.Counts()
	assert.Equal(t, CommandCounts{Prefix: 3, SlashGroups: 1, SlashCommands: 4}, counts)
	assert.Equal(t, 7, counts.Total())

	group, ok := r.SlashCommand("bot")
	require.True(t, ok)
	assert.True(t, group.IsGroup())
	assert.Equal(t, []string{"ping", "uptime", "info"}, group.Subcommands())
}

func TestRegistry_RemoveExtension(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddCommand(&Command{Name: "load", Extension: "developer", Handler: noopPrefix}))
	group := botGroup()
	group.Extension = "informatic"
	require.NoError(t, r.AddSlashCommand(group))

	r.RemoveExtension("developer")
	_, ok := r.Command("load")
	assert.False(t, ok)
	_, ok = r.SlashCommand("bot")
	assert.True(t, ok)
}

func TestRegistry_GuildSets(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddSlashCommand(botGroup()))
	guild := snowflake.ID(123456789012345678)

	assert.Empty(t, r.GuildCommands(guild))

	r.CopyGlobalToGuild(guild)
	cmds := r.GuildCommands(guild)
	require.Len(t, cmds, 1)
	assert.Equal(t, "bot", cmds[0].CommandName())
	assert.Len(t, r.GlobalCommands(), 1)

	r.ClearGuild(guild)
	assert.Empty(t, r.GuildCommands(guild))
	assert.Len(t, r.GlobalCommands(), 1)
}

func TestCommand_Toggle(t *testing.T) {
	cmd := &Command{Name: "load", Params: []Param{{Name: "extension", Kind: ParamRest}}, Handler: noopPrefix}
	assert.True(t, cmd.Enabled())
	cmd.SetEnabled(false)
	assert.False(t, cmd.Enabled())
	cmd.SetEnabled(true)
	assert.True(t, cmd.Enabled())
	assert.Equal(t, "load <extension>", cmd.Usage())
}
