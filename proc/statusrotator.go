package proc

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"
	"github.com/dustin/go-humanize"
	"github.com/leeineian/biochemie/sys"
)

const (
	MsgStatusUpdateFail = "Update failed: %v"
	MsgStatusRotated    = "Status rotated to: \"%s\" (Next rotate in %v)"
)

func init() {
	sys.RegisterDaemon("status", func(ctx context.Context, b *sys.Bot) (bool, func(), func()) {
		if !b.Config.StatusRotation || b.Client == nil {
			return false, nil, nil
		}
		r := &StatusRotator{
			bot:    b,
			logger: sys.Component(b.Logger, "status"),
			rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		}
		return true, func() { r.Run(ctx) }, func() { r.logger.Info("Shutting down Status Rotator...") }
	})
}

// StatusInputs are the values the presence texts are built from.
type StatusInputs struct {
	Uptime   time.Duration
	Ready    bool
	Latency  time.Duration
	Guilds   int
	Members  int
	RSSBytes uint64
}

// StatusTexts returns the candidate presence texts for in. Entries without
// data are left out.
func StatusTexts(in StatusInputs) []string {
	var out []string
	if in.Ready {
		out = append(out, fmt.Sprintf("Uptime: %dh %dm", int(in.Uptime.Hours()), int(in.Uptime.Minutes())%60))
	}
	if in.Latency > 0 {
		out = append(out, fmt.Sprintf("Ping: %dms", in.Latency.Milliseconds()))
	}
	if in.Guilds > 0 {
		out = append(out, fmt.Sprintf("Watching %s guilds", humanize.Comma(int64(in.Guilds))))
	}
	if in.Members > 0 {
		out = append(out, fmt.Sprintf("Serving %s members", humanize.Comma(int64(in.Members))))
	}
	if in.RSSBytes > 0 {
		out = append(out, "RAM: "+humanize.IBytes(in.RSSBytes))
	}
	return out
}

// PickStatus chooses a text different from last when there is a choice.
func PickStatus(r *rand.Rand, options []string, last string) string {
	if len(options) == 0 {
		return ""
	}
	var fresh []string
	for _, s := range options {
		if s != last {
			fresh = append(fresh, s)
		}
	}
	if len(fresh) == 0 {
		return options[0]
	}
	return fresh[r.Intn(len(fresh))]
}

// RotationInterval returns a jittered delay between 15 and 60 seconds.
func RotationInterval(r *rand.Rand) time.Duration {
	return time.Duration(15+r.Intn(46)) * time.Second
}

// StatusRotator cycles the bot's playing activity.
type StatusRotator struct {
	bot    *sys.Bot
	logger *slog.Logger
	rand   *rand.Rand
	last   string
}

func (r *StatusRotator) Run(ctx context.Context) {
	for {
		next := RotationInterval(r.rand)
		r.update(ctx, next)
		select {
		case <-time.After(next):
		case <-ctx.Done():
			return
		}
	}
}

func (r *StatusRotator) update(ctx context.Context, next time.Duration) {
	in := StatusInputs{Latency: r.bot.Latency()}
	if uptime, err := r.bot.Uptime(time.Now()); err == nil {
		in.Uptime, in.Ready = uptime, true
	}
	in.Guilds, in.Members, _ = r.bot.CacheCounts()
	if rss, err := ProcessRSS(ctx); err == nil {
		in.RSSBytes = rss
	}

	text := PickStatus(r.rand, StatusTexts(in), r.last)
	if text == "" {
		return
	}
	r.last = text

	err := r.bot.Client.SetPresence(ctx,
		gateway.WithOnlineStatus(discord.OnlineStatusOnline),
		gateway.WithPlayingActivity(text),
	)
	if err != nil {
		r.logger.Warn(fmt.Sprintf(MsgStatusUpdateFail, err))
		return
	}
	r.logger.Debug(fmt.Sprintf(MsgStatusRotated, text, next))
}
