package home

import (
	"fmt"
	"time"

	"github.com/leeineian/biochemie/sys"
)

const MsgBotUptime = "Up since %s, which is %s ago."

func handleBotUptime(c *sys.SlashContext) error {
	start, ok := c.Bot.StartTime()
	if !ok {
		return sys.ErrNotReady
	}
	return c.Reply(uptimeMessage(start, time.Now()))
}

func uptimeMessage(start, now time.Time) string {
	return fmt.Sprintf(MsgBotUptime, sys.DiscordTimestamp(start, "f"), sys.FormatTimedelta(now.Sub(start)))
}
