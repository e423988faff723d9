package home

import (
	"github.com/leeineian/biochemie/sys"
)

const MsgShutdownAttempt = "Attempting to shut down cleanly..."

func handleShutdown(c *sys.PrefixContext) error {
	if err := c.Send(MsgShutdownAttempt); err != nil {
		return err
	}
	c.Bot.Logger.Info("Shutdown: Manual")
	c.Bot.Shutdown()
	return nil
}
