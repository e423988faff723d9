package sys

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type Decision int

const (
	Allow Decision = iota
	DenyNotAuthor
	DenyCooldown
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyNotAuthor:
		return "deny_not_author"
	case DenyCooldown:
		return "deny_cooldown"
	default:
		return "unknown"
	}
}

// Gate decides whether an actor may trigger a control on an interactive
// component set. Owners bypass both the author check and the cooldown and
// never consume a token. Non-authors are rejected before the bucket is
// touched.
type Gate struct {
	Author   snowflake.ID
	IsOwner  func(snowflake.ID) bool
	Cooldown *Cooldown
	Now      func() time.Time
}

// Check returns the decision for actor and, for DenyCooldown, the remaining
// wait.
func (g *Gate) Check(actor snowflake.ID) (Decision, time.Duration) {
	if g.IsOwner != nil && g.IsOwner(actor) {
		return Allow, 0
	}
	if actor != g.Author {
		return DenyNotAuthor, 0
	}

	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	if wait := g.Cooldown.UpdateRateLimit(actor, now); wait > 0 {
		return DenyCooldown, wait
	}
	return Allow, 0
}
