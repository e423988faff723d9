package sys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

const (
	MsgBotReady             = "Ready: %s (%s)"
	MsgPanicRecovered       = "Panic recovered in handler: %v"
	MsgPrefixIgnored        = "Ignoring exception in command %s"
	MsgInteractionIgnored   = "Ignoring exception in interaction."
	MsgAppInfoFail          = "Failed to fetch application info: %v"
	MsgExtensionLoadFail    = "Failed to load extension: %s"
	MsgExtensionLoaded      = "Loaded extension: %s"
	defaultRestTimeout      = 30 * time.Second
	defaultIdleConnsPerHost = 100
)

// Bot wires the Discord client to the command registry, live views and
// extensions. Nothing here is global; handlers receive the Bot through their
// context.
type Bot struct {
	Client     *bot.Client
	Config     *Config
	Logger     *slog.Logger
	Commands   *Registry
	Views      *ViewStore
	Extensions *ExtensionManager
	Owners     *OwnerSet
	Daemons    *Daemons

	ctx       context.Context
	cancel    context.CancelFunc
	startTime atomic.Pointer[time.Time]
	appOwner  atomic.Pointer[discord.User]
}

// New builds a Bot whose lifetime is bound to ctx. Call Shutdown to end it
// from inside a handler.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) *Bot {
	ctx, cancel := context.WithCancel(ctx)
	b := &Bot{
		Config:   cfg,
		Logger:   logger,
		Commands: NewRegistry(),
		Views:    NewViewStore(logger),
		Owners:   NewOwnerSet(cfg.OwnerIDs...),
		Daemons:  NewDaemons(logger),
		ctx:      ctx,
		cancel:   cancel,
	}
	b.Extensions = NewExtensionManager(b, b.Commands, Catalog())
	return b
}

func (b *Bot) Context() context.Context { return b.ctx }

// Shutdown cancels the bot context; the entrypoint then closes the client.
func (b *Bot) Shutdown() { b.cancel() }

// Connect creates the disgo client with the bot's listeners.
func (b *Bot) Connect() error {
	client, err := disgo.New(b.Config.Token,
		bot.WithLogger(Component(b.Logger, "gateway")),
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMembers,
				gateway.IntentDirectMessages,
				gateway.IntentMessageContent,
			),
			gateway.WithPresenceOpts(
				gateway.WithPlayingActivity("Loading..."),
				gateway.WithOnlineStatus(discord.OnlineStatusOnline),
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagMembers, cache.FlagChannels),
		),
		bot.WithRestClientConfigOpts(
			rest.WithHTTPClient(&http.Client{
				Timeout: defaultRestTimeout,
				Transport: &http.Transport{
					MaxIdleConnsPerHost: defaultIdleConnsPerHost,
					IdleConnTimeout:     90 * time.Second,
				},
			}),
		),
		bot.WithEventListenerFunc(b.onReady),
		bot.WithEventListenerFunc(b.onMessageCreate),
		bot.WithEventListenerFunc(b.onApplicationCommandInteraction),
		bot.WithEventListenerFunc(b.onComponentInteraction),
	)
	if err != nil {
		return err
	}
	b.Client = client
	return nil
}

// FetchApplicationInfo records the application owner, who is always
// treated as a bot owner.
func (b *Bot) FetchApplicationInfo(ctx context.Context) error {
	app, err := b.Client.Rest.GetBotApplicationInfo(rest.WithCtx(ctx))
	if err != nil {
		return err
	}
	if app.Owner != nil {
		b.SetAppOwner(app.Owner)
	}
	return nil
}

func (b *Bot) SetAppOwner(u *discord.User) {
	b.appOwner.Store(u)
	b.Owners.Add(u.ID)
}

// AppOwner returns the application owner, nil before FetchApplicationInfo.
func (b *Bot) AppOwner() *discord.User { return b.appOwner.Load() }

// LoadExtensions loads names in order, logging failures without stopping.
func (b *Bot) LoadExtensions(names ...string) {
	logger := Component(b.Logger, "extension")
	for _, name := range names {
		if err := b.Extensions.Load(name); err != nil {
			logger.Error(fmt.Sprintf(MsgExtensionLoadFail, name), slog.Any("err", err))
			continue
		}
		logger.Info(fmt.Sprintf(MsgExtensionLoaded, name))
	}
}

// MarkReady records the start time the first time it is called.
func (b *Bot) MarkReady(t time.Time) bool {
	return b.startTime.CompareAndSwap(nil, &t)
}

// StartTime returns when the bot first became ready.
func (b *Bot) StartTime() (time.Time, bool) {
	t := b.startTime.Load()
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}

// Uptime fails with ErrNotReady before the first Ready event.
func (b *Bot) Uptime(now time.Time) (time.Duration, error) {
	start, ok := b.StartTime()
	if !ok {
		return 0, ErrNotReady
	}
	return now.Sub(start), nil
}

// Latency is the gateway heartbeat round trip.
func (b *Bot) Latency() time.Duration {
	if b.Client == nil || b.Client.Gateway == nil {
		return 0
	}
	return b.Client.Gateway.Latency()
}

// CacheCounts counts cached guilds, members across guilds and channels.
func (b *Bot) CacheCounts() (guilds, members, channels int) {
	if b.Client == nil {
		return 0, 0, 0
	}
	for g := range b.Client.Caches.Guilds() {
		guilds++
		for range b.Client.Caches.Members(g.ID) {
			members++
		}
	}
	for range b.Client.Caches.Channels() {
		channels++
	}
	return guilds, members, channels
}

// AttachView registers v against the interaction's original response.
func (b *Bot) AttachView(c *SlashContext, v *View) {
	b.Views.Attach(v, b.InteractionEditor(c.ApplicationID, c.Token))
}

// InteractionEditor edits the original response of an interaction.
func (b *Bot) InteractionEditor(applicationID snowflake.ID, token string) ResponseEditor {
	return func(ctx context.Context, components []discord.LayoutComponent) error {
		if components == nil {
			components = []discord.LayoutComponent{}
		}
		_, err := b.Client.Rest.UpdateInteractionResponse(applicationID, token,
			discord.NewMessageUpdate().WithComponents(components...),
			rest.WithCtx(ctx))
		return err
	}
}

func (b *Bot) onReady(e *events.Ready) {
	b.MarkReady(time.Now())
	b.Logger.Info(fmt.Sprintf(MsgBotReady, e.User.Username, e.User.ID))
	b.Daemons.Start(b.ctx, b)
}

// PrefixMessage is the part of a gateway message the prefix router needs.
type PrefixMessage struct {
	AuthorID  snowflake.ID
	ChannelID snowflake.ID
	GuildID   *snowflake.ID
	MessageID snowflake.ID
	RoleIDs   []snowflake.ID
	Content   string
}

func (b *Bot) onMessageCreate(e *events.MessageCreate) {
	if e.Message.Author.Bot {
		return
	}
	m := PrefixMessage{
		AuthorID:  e.Message.Author.ID,
		ChannelID: e.ChannelID,
		GuildID:   e.GuildID,
		MessageID: e.MessageID,
		Content:   e.Message.Content,
	}
	if e.Message.Member != nil {
		m.RoleIDs = e.Message.Member.RoleIDs
	}
	client := e.Client()
	SafeGo(b.Logger, func() { b.HandlePrefix(b.ctx, m, client.Rest) })
}

// HandlePrefix routes a message that may start with the command prefix.
func (b *Bot) HandlePrefix(ctx context.Context, m PrefixMessage, sender MessageSender) {
	body, ok := strings.CutPrefix(m.Content, b.Config.Prefix)
	if !ok || body == "" || strings.ContainsAny(body[:1], " \t\n") {
		return
	}
	name, input := nextToken(body)

	c := &PrefixContext{
		Ctx:       ctx,
		Bot:       b,
		AuthorID:  m.AuthorID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		MessageID: m.MessageID,
		RoleIDs:   m.RoleIDs,
		Sender:    sender,
	}

	cmd, found := b.Commands.Command(name)
	if !found {
		b.handlePrefixError(c, name, ErrCommandNotFound)
		return
	}
	c.Command = cmd
	b.handlePrefixError(c, cmd.Name, b.runPrefix(c, cmd, input))
}

func (b *Bot) runPrefix(c *PrefixContext, cmd *Command, input string) error {
	if !cmd.Enabled() {
		return &DisabledCommandError{Name: cmd.Name}
	}
	if err := b.checkPrivilege(cmd.Privilege, c.AuthorID, c.GuildID, c.RoleIDs); err != nil {
		return err
	}
	args, err := ParseArgs(cmd.Params, input)
	if err != nil {
		return err
	}
	c.Args = args
	return safeCall(func() error { return cmd.Handler(c) })
}

func (b *Bot) handlePrefixError(c *PrefixContext, name string, err error) {
	reply, ok, logged := PrefixErrorReply(name, err)
	if logged {
		b.Logger.Error(fmt.Sprintf(MsgPrefixIgnored, name), slog.Any("err", err))
	}
	if !ok {
		return
	}
	var (
		missing *MissingArgumentError
		bad     *BadArgumentError
	)
	if c.Command != nil && (errors.As(err, &missing) || errors.As(err, &bad)) {
		reply += "\n" + fmt.Sprintf(MsgPrefixUsage, b.Config.Prefix+c.Command.Usage())
	}
	if sendErr := c.Reply(reply); sendErr != nil {
		b.Logger.Debug("Failed to send command error reply", slog.String("command", name), slog.Any("err", sendErr))
	}
}

func (b *Bot) checkPrivilege(p Privilege, actor snowflake.ID, guildID *snowflake.ID, roles []snowflake.ID) error {
	if p.OwnerOnly && !b.Owners.IsOwner(actor) {
		return ErrCheckFailure
	}
	if p.GuildOnly && guildID == nil {
		return ErrNoPrivateMessage
	}
	if len(p.AnyRole) > 0 {
		if guildID == nil {
			return ErrNoPrivateMessage
		}
		if !slices.ContainsFunc(p.AnyRole, func(id snowflake.ID) bool { return slices.Contains(roles, id) }) {
			names := make([]string, len(p.AnyRole))
			for i, id := range p.AnyRole {
				names[i] = id.String()
			}
			return &MissingRoleError{Roles: names}
		}
	}
	return nil
}

func (b *Bot) onApplicationCommandInteraction(e *events.ApplicationCommandInteractionCreate) {
	data, ok := e.Data.(discord.SlashCommandInteractionData)
	if !ok {
		return
	}
	c := &SlashContext{
		SlashResponder: e,
		Ctx:            b.ctx,
		Bot:            b,
		UserID:         e.User().ID,
		GuildID:        e.GuildID(),
		InteractionID:  e.ID(),
		ApplicationID:  e.ApplicationID(),
		Token:          e.Token(),
		Name:           data.CommandName(),
		Data:           data,
	}
	if data.SubCommandName != nil {
		c.Subcommand = *data.SubCommandName
	}
	if m := e.Member(); m != nil {
		c.RoleIDs = m.RoleIDs
	}
	SafeGo(b.Logger, func() { b.HandleSlash(c) })
}

// HandleSlash runs the checks and handler for an application command and
// answers failures with an ephemeral message.
func (b *Bot) HandleSlash(c *SlashContext) {
	err := b.runSlash(c)
	if err == nil {
		return
	}
	reply, logged := InteractionErrorReply(err)
	if logged {
		b.Logger.Error(MsgInteractionIgnored, slog.String("command", c.Name), slog.Any("err", err))
	}
	if sendErr := c.ReplyEphemeral(reply); sendErr != nil {
		b.Logger.Debug("Failed to send interaction error reply", slog.String("command", c.Name), slog.Any("err", sendErr))
	}
}

func (b *Bot) runSlash(c *SlashContext) error {
	cmd, ok := b.Commands.SlashCommand(c.Name)
	if !ok {
		return ErrCommandNotFound
	}
	if err := b.checkPrivilege(cmd.Privilege, c.UserID, c.GuildID, c.RoleIDs); err != nil {
		return err
	}
	if wait := cmd.Cooldown.UpdateRateLimit(c.UserID, time.Now()); wait > 0 {
		return &CommandOnCooldownError{RetryAfter: wait}
	}
	return safeCall(func() error { return cmd.Handler(c) })
}

func (b *Bot) onComponentInteraction(e *events.ComponentInteractionCreate) {
	c := &ComponentContext{
		ComponentResponder: e,
		Ctx:                b.ctx,
		UserID:             e.User().ID,
		CustomID:           e.Data.CustomID(),
	}
	if sel, ok := e.Data.(discord.StringSelectMenuInteractionData); ok {
		c.Values = sel.Values
	}
	// Queue on the listener goroutine so a view sees events in gateway order.
	if err := b.Views.Dispatch(c); err != nil {
		SafeGo(b.Logger, func() {
			b.Logger.Debug("Unhandled component interaction", slog.String("custom_id", c.CustomID), slog.Any("err", err))
			_ = e.DeferUpdateMessage()
		})
	}
}

// SafeGo runs f in a goroutine, logging instead of crashing on panic.
func SafeGo(logger *slog.Logger, f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(fmt.Sprintf(MsgPanicRecovered, r))
				logger.Debug(string(debug.Stack()))
			}
		}()
		f()
	}()
}

func safeCall(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return f()
}
