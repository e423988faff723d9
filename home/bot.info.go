package home

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/biochemie/proc"
	"github.com/leeineian/biochemie/sys"
)

const (
	MsgInfoPlaceholder = "Select other information"
	InviteURLFormat    = "https://discord.com/oauth2/authorize?client_id=%s&scope=bot&permissions=8"
	InfoViewTimeout    = 180 * time.Second

	infoClientValue = "0"
	infoSystemValue = "1"
)

func handleBotInfo(c *sys.SlashContext) error {
	b := c.Bot
	view := newBotInfoView(b, c.InteractionID.String(), c.UserID, b.Client.ApplicationID.String())

	err := c.CreateMessage(discord.NewMessageCreate().
		WithEmbeds(ClientEmbed(clientSnapshot(c.Ctx, b), embedMeta(b))).
		AddComponents(view.Components()...))
	if err != nil {
		return err
	}
	b.AttachView(c, view)
	return nil
}

func infoOptions() []discord.StringSelectMenuOption {
	return []discord.StringSelectMenuOption{
		discord.NewStringSelectMenuOption("Client Information", infoClientValue).
			WithDescription("Information about the bot.").
			WithEmoji(discord.ComponentEmoji{Name: "🤖"}),
		discord.NewStringSelectMenuOption("System Information", infoSystemValue).
			WithDescription("Information about the system the bot is running on.").
			WithEmoji(discord.ComponentEmoji{Name: "🖥️"}),
	}
}

// newBotInfoView builds the select that switches between the client and
// system embeds plus the invite and repository links.
func newBotInfoView(b *sys.Bot, interactionID string, author snowflake.ID, clientID string) *sys.View {
	opts := sys.ViewOptions{
		Author:  author,
		IsOwner: b.Owners.IsOwner,
		Timeout: InfoViewTimeout,
		Logger:  b.Logger,
	}
	return sys.NewView(interactionID, opts,
		sys.NewSelect(MsgInfoPlaceholder, infoOptions(), func(c *sys.ComponentContext) error {
			return switchInfoEmbed(c, b)
		}),
		sys.NewLinkButton("Invite", fmt.Sprintf(InviteURLFormat, clientID)),
		sys.NewLinkButton("Repository", b.Config.RepositoryURL),
	)
}

func switchInfoEmbed(c *sys.ComponentContext, b *sys.Bot) error {
	if len(c.Values) == 0 {
		return c.DeferUpdateMessage()
	}

	var embed discord.Embed
	switch c.Values[0] {
	case infoClientValue:
		embed = ClientEmbed(clientSnapshot(c.Ctx, b), embedMeta(b))
	case infoSystemValue:
		host, err := proc.Host.Snapshot(c.Ctx)
		if err != nil {
			b.Logger.Debug("Partial host snapshot", slog.Any("err", err))
		}
		embed = SystemEmbed(host, embedMeta(b))
	default:
		return c.DeferUpdateMessage()
	}
	return c.UpdateMessage(discord.NewMessageUpdate().WithEmbeds(embed))
}

func clientSnapshot(ctx context.Context, b *sys.Bot) ClientSnapshot {
	s := ClientSnapshot{
		Latency:    b.Latency(),
		Extensions: len(b.Extensions.Loaded()),
		Commands:   b.Commands.Counts(),
		Versions:   sys.CurrentVersions(),
	}
	if uptime, err := b.Uptime(time.Now()); err == nil {
		s.Ready, s.Uptime = true, uptime
	}
	s.Guilds, s.Members, s.Channels = b.CacheCounts()
	if rss, err := proc.ProcessRSS(ctx); err == nil {
		s.RSSBytes = rss
	}
	return s
}

func embedMeta(b *sys.Bot) EmbedMeta {
	meta := EmbedMeta{
		Timestamp:  time.Now(),
		Repository: b.Config.RepositoryURL,
	}
	if owner := b.AppOwner(); owner != nil {
		meta.OwnerName = owner.Username
		meta.OwnerIcon = owner.EffectiveAvatarURL()
	}
	return meta
}
