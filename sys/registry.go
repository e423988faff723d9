package sys

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/omit"
	"github.com/disgoorg/snowflake/v2"
)

// Privilege is the check metadata attached to a command at registration.
type Privilege struct {
	OwnerOnly bool
	GuildOnly bool
	// AnyRole lists role IDs of which the actor must hold at least one.
	AnyRole []snowflake.ID
	// Permissions becomes the slash command's default member permissions.
	Permissions discord.Permissions
}

// MessageSender posts messages to a channel.
type MessageSender interface {
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// PrefixContext is handed to prefix command handlers.
type PrefixContext struct {
	Ctx       context.Context
	Bot       *Bot
	Command   *Command
	AuthorID  snowflake.ID
	ChannelID snowflake.ID
	GuildID   *snowflake.ID
	MessageID snowflake.ID
	RoleIDs   []snowflake.ID
	Args      Args
	Sender    MessageSender
}

// Send posts content to the invoking channel.
func (c *PrefixContext) Send(content string) error {
	_, err := c.Sender.CreateMessage(c.ChannelID, discord.NewMessageCreate().
		WithContent(content), rest.WithCtx(c.Ctx))
	return err
}

// Reply posts content as a reply to the invoking message.
func (c *PrefixContext) Reply(content string) error {
	id := c.MessageID
	_, err := c.Sender.CreateMessage(c.ChannelID, discord.NewMessageCreate().
		WithContent(content).
		WithMessageReference(&discord.MessageReference{MessageID: &id}).
		WithAllowedMentions(&discord.AllowedMentions{RepliedUser: false}), rest.WithCtx(c.Ctx))
	return err
}

// Command is a text command invoked with the configured prefix.
type Command struct {
	Name        string
	Description string
	Params      []Param
	Privilege   Privilege
	Extension   string
	Handler     func(c *PrefixContext) error

	disabled atomic.Bool
}

func (c *Command) Enabled() bool { return !c.disabled.Load() }

func (c *Command) SetEnabled(enabled bool) { c.disabled.Store(!enabled) }

func (c *Command) Usage() string { return Usage(c.Name, c.Params) }

// SlashResponder is the subset of an application command interaction used
// by handlers.
type SlashResponder interface {
	CreateMessage(messageCreate discord.MessageCreate, opts ...rest.RequestOpt) error
	DeferCreateMessage(ephemeral bool, opts ...rest.RequestOpt) error
}

// SlashContext is handed to slash command handlers.
type SlashContext struct {
	SlashResponder
	Ctx           context.Context
	Bot           *Bot
	UserID        snowflake.ID
	GuildID       *snowflake.ID
	RoleIDs       []snowflake.ID
	InteractionID snowflake.ID
	ApplicationID snowflake.ID
	Token         string
	Name          string
	Subcommand    string
	Data          discord.SlashCommandInteractionData
}

// ReplyEphemeral answers the interaction with a message only the actor sees.
func (c *SlashContext) ReplyEphemeral(content string) error {
	return c.CreateMessage(discord.NewMessageCreate().
		WithContent(content).
		WithEphemeral(true))
}

// Reply answers the interaction publicly.
func (c *SlashContext) Reply(content string) error {
	return c.CreateMessage(discord.NewMessageCreate().
		WithContent(content))
}

// SlashCommand is a top-level application command, optionally a group of
// subcommands.
type SlashCommand struct {
	Create    discord.SlashCommandCreate
	Extension string
	Privilege Privilege
	Cooldown  *Cooldown
	Handler   func(c *SlashContext) error
}

func (s *SlashCommand) Name() string { return s.Create.Name }

// Subcommands returns the names of the subcommands, empty for a plain
// command.
func (s *SlashCommand) Subcommands() []string {
	var names []string
	for _, opt := range s.Create.Options {
		switch o := opt.(type) {
		case discord.ApplicationCommandOptionSubCommand:
			names = append(names, o.Name)
		case discord.ApplicationCommandOptionSubCommandGroup:
			for _, sub := range o.Options {
				names = append(names, o.Name+" "+sub.Name)
			}
		}
	}
	return names
}

func (s *SlashCommand) IsGroup() bool { return len(s.Subcommands()) > 0 }

// CommandCounts summarizes the registry for status displays.
type CommandCounts struct {
	Prefix        int
	SlashGroups   int
	SlashCommands int
}

func (c CommandCounts) Total() int { return c.Prefix + c.SlashCommands }

// Registry holds the prefix and slash command tables plus per-guild slash
// command sets.
type Registry struct {
	mu     sync.RWMutex
	prefix map[string]*Command
	slash  map[string]*SlashCommand
	guilds map[snowflake.ID][]discord.ApplicationCommandCreate
}

func NewRegistry() *Registry {
	return &Registry{
		prefix: make(map[string]*Command),
		slash:  make(map[string]*SlashCommand),
		guilds: make(map[snowflake.ID][]discord.ApplicationCommandCreate),
	}
}

func (r *Registry) AddCommand(cmd *Command) error {
	if cmd.Name == "" || cmd.Handler == nil {
		return fmt.Errorf("command %q needs a name and a handler", cmd.Name)
	}
	name := strings.ToLower(cmd.Name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prefix[name]; ok {
		return fmt.Errorf("command %q is already registered", name)
	}
	r.prefix[name] = cmd
	return nil
}

func (r *Registry) AddSlashCommand(cmd *SlashCommand) error {
	if cmd.Create.Name == "" || cmd.Handler == nil {
		return fmt.Errorf("slash command %q needs a name and a handler", cmd.Create.Name)
	}
	if cmd.Privilege.Permissions != 0 {
		perms := cmd.Privilege.Permissions
		cmd.Create.DefaultMemberPermissions = omit.New(&perms)
	}
	if cmd.Privilege.GuildOnly && len(cmd.Create.Contexts) == 0 {
		cmd.Create.Contexts = []discord.InteractionContextType{discord.InteractionContextTypeGuild}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slash[cmd.Create.Name]; ok {
		return fmt.Errorf("slash command %q is already registered", cmd.Create.Name)
	}
	r.slash[cmd.Create.Name] = cmd
	return nil
}

// Command looks a prefix command up by name, case-insensitively.
func (r *Registry) Command(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.prefix[strings.ToLower(name)]
	return cmd, ok
}

func (r *Registry) SlashCommand(name string) (*SlashCommand, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.slash[name]
	return cmd, ok
}

// Commands returns the prefix commands sorted by name.
func (r *Registry) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, 0, len(r.prefix))
	for _, cmd := range r.prefix {
		out = append(out, cmd)
	}
	slices.SortFunc(out, func(a, b *Command) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// SlashCommands returns the slash commands sorted by name.
func (r *Registry) SlashCommands() []*SlashCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*SlashCommand, 0, len(r.slash))
	for _, cmd := range r.slash {
		out = append(out, cmd)
	}
	slices.SortFunc(out, func(a, b *SlashCommand) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}

// RemoveExtension drops every command contributed by the named extension.
func (r *Registry) RemoveExtension(ext string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, cmd := range r.prefix {
		if cmd.Extension == ext {
			delete(r.prefix, name)
		}
	}
	for name, cmd := range r.slash {
		if cmd.Extension == ext {
			delete(r.slash, name)
		}
	}
}

func (r *Registry) Counts() CommandCounts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := CommandCounts{Prefix: len(r.prefix)}
	for _, cmd := range r.slash {
		if subs := cmd.Subcommands(); len(subs) > 0 {
			counts.SlashGroups++
			counts.SlashCommands += len(subs)
			continue
		}
		counts.SlashCommands++
	}
	return counts
}

// GlobalCommands returns the creates for every registered slash command.
func (r *Registry) GlobalCommands() []discord.ApplicationCommandCreate {
	cmds := r.SlashCommands()
	out := make([]discord.ApplicationCommandCreate, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, cmd.Create)
	}
	return out
}

// GuildCommands returns the guild-specific command set, empty unless
// globals were copied in.
func (r *Registry) GuildCommands(guildID snowflake.ID) []discord.ApplicationCommandCreate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.guilds[guildID])
}

// CopyGlobalToGuild replaces the guild's set with the global commands.
func (r *Registry) CopyGlobalToGuild(guildID snowflake.ID) {
	globals := r.GlobalCommands()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guilds[guildID] = globals
}

// ClearGuild empties the guild's set.
func (r *Registry) ClearGuild(guildID snowflake.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.guilds, guildID)
}
