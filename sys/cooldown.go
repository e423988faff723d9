package sys

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/time/rate"
)

// Cooldown maps actors to a single-token bucket refilled once per window.
// A zero or negative window never limits.
type Cooldown struct {
	per      time.Duration
	mu       sync.Mutex
	limiters map[snowflake.ID]*rate.Limiter
}

func NewCooldown(per time.Duration) *Cooldown {
	return &Cooldown{
		per:      per,
		limiters: make(map[snowflake.ID]*rate.Limiter),
	}
}

// UpdateRateLimit consumes the actor's token at now. It returns zero when
// the token was available, otherwise the wait until one is and nothing is
// consumed.
func (c *Cooldown) UpdateRateLimit(actor snowflake.ID, now time.Time) time.Duration {
	if c == nil || c.per <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[actor]
	if !ok {
		l = rate.NewLimiter(rate.Every(c.per), 1)
		c.limiters[actor] = l
	}

	r := l.ReserveN(now, 1)
	if !r.OK() {
		return c.per
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return d
	}
	return 0
}
