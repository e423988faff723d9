package home

import (
	"github.com/leeineian/biochemie/sys"
)

const DeveloperExtension = "developer"

func init() {
	sys.RegisterExtension(DeveloperExtension, setupDeveloper)
}

// setupDeveloper builds the owner-only maintenance commands.
func setupDeveloper(b *sys.Bot) (*sys.Cog, error) {
	owner := sys.Privilege{OwnerOnly: true}
	extensionParam := sys.Param{Name: "extension", Description: "The extension name", Kind: sys.ParamRest}

	return &sys.Cog{
		Commands: []*sys.Command{
			{
				Name:        "shutdown",
				Description: "Shut the bot down cleanly",
				Privilege:   owner,
				Handler:     handleShutdown,
			},
			{
				Name:        "load",
				Description: "Load an extension",
				Params:      []sys.Param{extensionParam},
				Privilege:   owner,
				Handler:     handleLoad,
			},
			{
				Name:        "unload",
				Description: "Unload an extension",
				Params:      []sys.Param{extensionParam},
				Privilege:   owner,
				Handler:     handleUnload,
			},
			{
				Name:        "reload",
				Description: "Reload an extension, or all of them if none is given",
				Params: []sys.Param{{
					Name:        "extension",
					Description: "The extension to reload",
					Kind:        sys.ParamRest,
					Optional:    true,
				}},
				Privilege: owner,
				Handler:   handleReload,
			},
			{
				Name:        "extensions",
				Description: "List the loaded extensions",
				Privilege:   owner,
				Handler:     handleExtensions,
			},
			{
				Name:        "sync",
				Description: "Sync slash commands globally or to guilds",
				Params: []sys.Param{
					{Name: "guilds", Description: "Guild IDs to sync, separated by space", Kind: sys.ParamGreedyID},
					{Name: "spec", Description: "Sync guild (~), copy and sync (*), clear and sync (^)", Kind: sys.ParamChoice, Optional: true, Choices: []string{SyncCurrent, SyncCopy, SyncClear}},
				},
				Privilege: sys.Privilege{OwnerOnly: true, GuildOnly: true},
				Handler:   handleSync,
			},
			{
				Name:        "enable",
				Description: "Enable a prefix command",
				Params:      []sys.Param{{Name: "command", Kind: sys.ParamString}},
				Privilege:   owner,
				Handler:     handleEnable,
			},
			{
				Name:        "disable",
				Description: "Disable a prefix command",
				Params:      []sys.Param{{Name: "command", Kind: sys.ParamString}},
				Privilege:   owner,
				Handler:     handleDisable,
			},
		},
	}, nil
}
