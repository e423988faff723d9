package home

import (
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/leeineian/biochemie/sys"
)

const InformaticExtension = "informatic"

func init() {
	sys.RegisterExtension(InformaticExtension, setupInformatic)
}

func setupInformatic(b *sys.Bot) (*sys.Cog, error) {
	return &sys.Cog{
		SlashCommands: []*sys.SlashCommand{{
			Create: discord.SlashCommandCreate{
				Name:        "bot",
				Description: "Informatic bot-related commands.",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionSubCommand{
						Name:        "ping",
						Description: "Show the latency between discord and the bot.",
					},
					discord.ApplicationCommandOptionSubCommand{
						Name:        "uptime",
						Description: "Show the time passed since the bot started.",
					},
					discord.ApplicationCommandOptionSubCommand{
						Name:        "info",
						Description: "Display some info about the bot.",
					},
				},
			},
			Handler: handleBot,
		}},
	}, nil
}

func handleBot(c *sys.SlashContext) error {
	switch c.Subcommand {
	case "ping":
		return handleBotPing(c)
	case "uptime":
		return handleBotUptime(c)
	case "info":
		return handleBotInfo(c)
	default:
		c.Bot.Logger.Warn("Unknown bot subcommand", slog.String("subcommand", c.Subcommand))
		return sys.ErrCommandNotFound
	}
}
