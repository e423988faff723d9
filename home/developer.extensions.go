package home

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leeineian/biochemie/sys"
)

const (
	MsgExtensionLoaded    = "Extension `%s` has been loaded."
	MsgExtensionUnloaded  = "Extension `%s` has been unloaded."
	MsgExtensionReloaded  = "Extension `%s` has been reloaded."
	MsgExtensionsReloaded = "Reloaded all extensions."
	MsgExtensionsList     = "The loaded extensions are: %s."
	MsgExtensionError     = "%s: %v"
	MsgExtensionAvailable = "Available extensions: %s."
)

// extensionManager is what the extension commands need from sys.ExtensionManager.
type extensionManager interface {
	Load(name string) error
	Unload(name string) error
	Reload(name string) error
	Loaded() []string
	Available() []string
}

type replier interface {
	Send(content string) error
	Reply(content string) error
}

func handleLoad(c *sys.PrefixContext) error {
	m := c.Bot.Extensions
	return runExtensionOp(c, m, m.Load, c.Args.String("extension"), MsgExtensionLoaded)
}

func handleUnload(c *sys.PrefixContext) error {
	m := c.Bot.Extensions
	return runExtensionOp(c, m, m.Unload, c.Args.String("extension"), MsgExtensionUnloaded)
}

func handleReload(c *sys.PrefixContext) error {
	if name := c.Args.String("extension"); name != "" {
		m := c.Bot.Extensions
		return runExtensionOp(c, m, m.Reload, name, MsgExtensionReloaded)
	}
	return reloadAll(c, c.Bot.Extensions)
}

func handleExtensions(c *sys.PrefixContext) error {
	return c.Send(extensionsMessage(c.Bot.Extensions.Loaded()))
}

// runExtensionOp replies with the error kind on an extension failure and
// announces success otherwise. Other errors bubble up to the router.
func runExtensionOp(r replier, m extensionManager, op func(string) error, name, success string) error {
	if err := op(name); err != nil {
		var extErr *sys.ExtensionError
		if errors.As(err, &extErr) {
			return r.Reply(extensionErrorMessage(extErr, m))
		}
		return err
	}
	return r.Send(fmt.Sprintf(success, name))
}

func reloadAll(r replier, m extensionManager) error {
	for _, name := range m.Loaded() {
		if err := m.Reload(name); err != nil {
			var extErr *sys.ExtensionError
			if !errors.As(err, &extErr) {
				return err
			}
			if err := r.Reply(extensionErrorMessage(extErr, m)); err != nil {
				return err
			}
		}
	}
	return r.Send(MsgExtensionsReloaded)
}

// extensionErrorMessage names the error kind. A missing extension also
// lists what can be loaded.
func extensionErrorMessage(extErr *sys.ExtensionError, m extensionManager) string {
	msg := fmt.Sprintf(MsgExtensionError, extErr.Kind, extErr)
	if extErr.Kind == sys.ExtensionNotFound {
		if available := m.Available(); len(available) > 0 {
			msg += "\n" + fmt.Sprintf(MsgExtensionAvailable, strings.Join(available, ", "))
		}
	}
	return msg
}

func extensionsMessage(loaded []string) string {
	return fmt.Sprintf(MsgExtensionsList, strings.Join(loaded, ", "))
}
