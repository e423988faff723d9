package home

import (
	"fmt"

	"github.com/leeineian/biochemie/sys"
)

const (
	MsgCommandNotFound   = "Command `%s` was not found."
	MsgCommandEnabled    = "Command `%s` has been enabled."
	MsgCommandDisabledOk = "Command `%s` is now disabled."
	MsgCommandProtected  = "Command `%s` cannot be disabled."
)

type commandLookup interface {
	Command(name string) (*sys.Command, bool)
}

func handleEnable(c *sys.PrefixContext) error {
	return c.Reply(toggleCommand(c.Bot.Commands, c.Args.String("command"), true))
}

func handleDisable(c *sys.PrefixContext) error {
	return c.Reply(toggleCommand(c.Bot.Commands, c.Args.String("command"), false))
}

// toggleCommand flips a prefix command and returns the reply text. The
// enable command itself can never be disabled.
func toggleCommand(r commandLookup, name string, enabled bool) string {
	cmd, ok := r.Command(name)
	if !ok {
		return fmt.Sprintf(MsgCommandNotFound, name)
	}
	if !enabled && cmd.Name == "enable" {
		return fmt.Sprintf(MsgCommandProtected, cmd.Name)
	}
	cmd.SetEnabled(enabled)
	if enabled {
		return fmt.Sprintf(MsgCommandEnabled, cmd.Name)
	}
	return fmt.Sprintf(MsgCommandDisabledOk, cmd.Name)
}
