package sys

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAuthor   snowflake.ID = 100000000000000001
	testStranger snowflake.ID = 100000000000000002
	testOwner    snowflake.ID = 100000000000000003
)

var testEpoch = time.Unix(1_700_000_000, 0)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestCooldown_SingleTokenWindow(t *testing.T) {
	cd := NewCooldown(5 * time.Second)

	assert.Zero(t, cd.UpdateRateLimit(testAuthor, testEpoch))

	wait := cd.UpdateRateLimit(testAuthor, testEpoch.Add(2*time.Second))
	assert.InDelta(t, 3*time.Second, wait, float64(10*time.Millisecond))

	// A denied attempt must not push the refill further out.
	wait = cd.UpdateRateLimit(testAuthor, testEpoch.Add(3*time.Second))
	assert.InDelta(t, 2*time.Second, wait, float64(10*time.Millisecond))

	assert.Zero(t, cd.UpdateRateLimit(testAuthor, testEpoch.Add(6*time.Second)))
}

func TestCooldown_ActorsAreIndependent(t *testing.T) {
	cd := NewCooldown(5 * time.Second)

	assert.Zero(t, cd.UpdateRateLimit(testAuthor, testEpoch))
	assert.Zero(t, cd.UpdateRateLimit(testStranger, testEpoch))
	assert.Positive(t, cd.UpdateRateLimit(testAuthor, testEpoch.Add(time.Second)))
}

func TestCooldown_Disabled(t *testing.T) {
	var nilCooldown *Cooldown
	assert.Zero(t, nilCooldown.UpdateRateLimit(testAuthor, testEpoch))

	cd := NewCooldown(0)
	for i := range 10 {
		assert.Zero(t, cd.UpdateRateLimit(testAuthor, testEpoch.Add(time.Duration(i)*time.Millisecond)))
	}
}

func TestCooldown_DenialDoesNotConsume(t *testing.T) {
	cd := NewCooldown(5 * time.Second)
	assert.Zero(t, cd.UpdateRateLimit(testAuthor, testEpoch))

	for range 3 {
		wait := cd.UpdateRateLimit(testAuthor, testEpoch.Add(time.Second))
		assert.InDelta(t, 4*time.Second, wait, float64(10*time.Millisecond))
	}
	assert.Zero(t, cd.UpdateRateLimit(testAuthor, testEpoch.Add(5*time.Second)))
}

func TestGate_AuthorWithCooldown(t *testing.T) {
	clock := &fakeClock{now: testEpoch}
	g := &Gate{
		Author:   testAuthor,
		Cooldown: NewCooldown(5 * time.Second),
		Now:      clock.Now,
	}

	d, _ := g.Check(testAuthor)
	assert.Equal(t, Allow, d)

	clock.Advance(2 * time.Second)
	d, wait := g.Check(testAuthor)
	assert.Equal(t, DenyCooldown, d)
	assert.InDelta(t, 3*time.Second, wait, float64(10*time.Millisecond))

	clock.Advance(4 * time.Second)
	d, _ = g.Check(testAuthor)
	assert.Equal(t, Allow, d)
}

func TestGate_NonAuthorDoesNotTouchBucket(t *testing.T) {
	clock := &fakeClock{now: testEpoch}
	cd := NewCooldown(5 * time.Second)
	g := &Gate{Author: testAuthor, Cooldown: cd, Now: clock.Now}

	for range 3 {
		d, wait := g.Check(testStranger)
		assert.Equal(t, DenyNotAuthor, d)
		assert.Zero(t, wait)
	}

	cd.mu.Lock()
	_, tracked := cd.limiters[testStranger]
	cd.mu.Unlock()
	assert.False(t, tracked)

	d, _ := g.Check(testAuthor)
	assert.Equal(t, Allow, d)
}

func TestGate_OwnerBypasses(t *testing.T) {
	owners := NewOwnerSet(testOwner)
	clock := &fakeClock{now: testEpoch}
	cd := NewCooldown(time.Hour)
	g := &Gate{Author: testAuthor, IsOwner: owners.IsOwner, Cooldown: cd, Now: clock.Now}

	for range 5 {
		d, wait := g.Check(testOwner)
		require.Equal(t, Allow, d)
		require.Zero(t, wait)
	}
	assert.Empty(t, cd.limiters)
}

func TestGate_AuthorOwnerNeverLimited(t *testing.T) {
	owners := NewOwnerSet(testAuthor)
	clock := &fakeClock{now: testEpoch}
	g := &Gate{Author: testAuthor, IsOwner: owners.IsOwner, Cooldown: NewCooldown(time.Hour), Now: clock.Now}

	for range 3 {
		d, _ := g.Check(testAuthor)
		assert.Equal(t, Allow, d)
	}
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny_not_author", DenyNotAuthor.String())
	assert.Equal(t, "deny_cooldown", DenyCooldown.String())
}
