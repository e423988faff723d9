package home

import (
	"fmt"
	"math"
	"time"

	"github.com/leeineian/biochemie/sys"
)

const MsgBotPing = "`%dms` latency to the Discord API."

func handleBotPing(c *sys.SlashContext) error {
	return c.Reply(pingMessage(c.Bot.Latency()))
}

func pingMessage(latency time.Duration) string {
	return fmt.Sprintf(MsgBotPing, roundMillis(latency))
}

func roundMillis(d time.Duration) int64 {
	return int64(math.Round(float64(d) / float64(time.Millisecond)))
}
