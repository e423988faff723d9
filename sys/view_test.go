package sys

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResponder struct {
	mu       sync.Mutex
	created  []discord.MessageCreate
	updated  []discord.MessageUpdate
	deferred int
}

func (f *fakeResponder) CreateMessage(m discord.MessageCreate, _ ...rest.RequestOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, m)
	return nil
}

func (f *fakeResponder) UpdateMessage(m discord.MessageUpdate, _ ...rest.RequestOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, m)
	return nil
}

func (f *fakeResponder) DeferUpdateMessage(_ ...rest.RequestOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deferred++
	return nil
}

func (f *fakeResponder) Created() []discord.MessageCreate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]discord.MessageCreate(nil), f.created...)
}

func (f *fakeResponder) Deferred() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deferred
}

type fakeEditor struct {
	mu    sync.Mutex
	calls [][]discord.LayoutComponent
	err   error
}

func (f *fakeEditor) Edit(_ context.Context, components []discord.LayoutComponent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, components)
	return f.err
}

func (f *fakeEditor) Calls() [][]discord.LayoutComponent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]discord.LayoutComponent(nil), f.calls...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestView(timeout, cooldown time.Duration, controls ...*Control) *View {
	return NewView("42", ViewOptions{
		Author:   testAuthor,
		IsOwner:  NewOwnerSet(testOwner).IsOwner,
		Timeout:  timeout,
		Cooldown: cooldown,
		Logger:   quietLogger(),
	}, controls...)
}

func countingButton(label string, hits *atomic.Int32) *Control {
	return NewButton(discord.ButtonStylePrimary, label, func(c *ComponentContext) error {
		hits.Add(1)
		return c.DeferUpdateMessage()
	})
}

func TestView_CustomIDsAndLayout(t *testing.T) {
	var hits atomic.Int32
	controls := []*Control{NewSelect("pick", nil, nil)}
	for i := range 6 {
		controls = append(controls, countingButton(string(rune('a'+i)), &hits))
	}
	controls = append(controls, NewLinkButton("Repository", "https://example.com"))
	v := newTestView(time.Minute, 0, controls...)

	assert.Equal(t, "view:42:0", controls[0].CustomID())
	assert.Equal(t, "view:42:1", controls[1].CustomID())
	assert.Empty(t, controls[7].CustomID())

	rows := v.Components()
	require.Len(t, rows, 3)

	first, ok := rows[0].(discord.ActionRowComponent)
	require.True(t, ok)
	require.Len(t, first.Components, 1)
	_, isSelect := first.Components[0].(discord.StringSelectMenuComponent)
	assert.True(t, isSelect)

	second := rows[1].(discord.ActionRowComponent)
	assert.Len(t, second.Components, 5)

	third := rows[2].(discord.ActionRowComponent)
	require.Len(t, third.Components, 2)
	link, ok := third.Components[1].(discord.ButtonComponent)
	require.True(t, ok)
	assert.Equal(t, discord.ButtonStyleLink, link.Style)
	assert.Equal(t, "https://example.com", link.URL)
}

func TestView_DispatchBeforeAttach(t *testing.T) {
	var hits atomic.Int32
	btn := countingButton("go", &hits)
	v := newTestView(time.Minute, 0, btn)

	err := v.Dispatch(&ComponentContext{ComponentResponder: &fakeResponder{}, UserID: testAuthor, CustomID: btn.CustomID()})
	assert.ErrorIs(t, err, ErrViewClosed)
}

func TestView_GateDecisions(t *testing.T) {
	var hits atomic.Int32
	btn := countingButton("go", &hits)
	v := newTestView(time.Minute, time.Hour, btn)
	editor := &fakeEditor{}
	v.Attach(editor.Edit, nil)
	defer v.Stop()

	author := &fakeResponder{}
	require.NoError(t, v.Dispatch(&ComponentContext{ComponentResponder: author, UserID: testAuthor, CustomID: btn.CustomID()}))
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)

	stranger := &fakeResponder{}
	require.NoError(t, v.Dispatch(&ComponentContext{ComponentResponder: stranger, UserID: testStranger, CustomID: btn.CustomID()}))
	require.Eventually(t, func() bool { return len(stranger.Created()) == 1 }, time.Second, 5*time.Millisecond)
	notice := stranger.Created()[0]
	assert.Equal(t, MsgNotAuthor, notice.Content)
	assert.True(t, notice.Flags.Has(discord.MessageFlagEphemeral))

	require.NoError(t, v.Dispatch(&ComponentContext{ComponentResponder: author, UserID: testAuthor, CustomID: btn.CustomID()}))
	require.Eventually(t, func() bool { return len(author.Created()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, author.Created()[0].Content, "You are on cooldown. Try again in")

	owner := &fakeResponder{}
	require.NoError(t, v.Dispatch(&ComponentContext{ComponentResponder: owner, UserID: testOwner, CustomID: btn.CustomID()}))
	require.Eventually(t, func() bool { return hits.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, owner.Created())
	assert.Empty(t, editor.Calls())
}

func TestView_UnknownControlIsAcknowledged(t *testing.T) {
	var hits atomic.Int32
	v := newTestView(time.Minute, 0, countingButton("go", &hits))
	v.Attach(nil, nil)
	defer v.Stop()

	r := &fakeResponder{}
	require.NoError(t, v.Dispatch(&ComponentContext{ComponentResponder: r, UserID: testAuthor, CustomID: "view:42:9"}))
	require.Eventually(t, func() bool { return r.Deferred() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, hits.Load())
}

func TestView_CallbackFailureKeepsViewAlive(t *testing.T) {
	var calls atomic.Int32
	btn := NewButton(discord.ButtonStyleDanger, "boom", func(c *ComponentContext) error {
		if calls.Add(1) == 1 {
			panic("kaboom")
		}
		return errors.New("still broken")
	})
	v := newTestView(time.Minute, 0, btn)
	v.Attach(nil, nil)
	defer v.Stop()

	for range 2 {
		require.NoError(t, v.Dispatch(&ComponentContext{ComponentResponder: &fakeResponder{}, UserID: testAuthor, CustomID: btn.CustomID()}))
	}
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, ViewActive, v.State())
}

func TestView_TimeoutKeepsOnlyLinks(t *testing.T) {
	var hits atomic.Int32
	v := newTestView(50*time.Millisecond, 0,
		NewSelect("pick", nil, nil),
		countingButton("go", &hits),
		NewLinkButton("Invite", "https://example.com/invite"),
	)
	editor := &fakeEditor{err: errors.New("unknown message")}
	var closed atomic.Int32
	v.Attach(editor.Edit, func() { closed.Add(1) })

	select {
	case <-v.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("view did not time out")
	}

	assert.Equal(t, ViewTimedOut, v.State())
	assert.Equal(t, int32(1), closed.Load())

	calls := editor.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 1)
	row := calls[0][0].(discord.ActionRowComponent)
	require.Len(t, row.Components, 1)
	assert.Equal(t, "https://example.com/invite", row.Components[0].(discord.ButtonComponent).URL)

	require.Len(t, v.Controls(), 1)
	err := v.Dispatch(&ComponentContext{ComponentResponder: &fakeResponder{}, UserID: testAuthor, CustomID: "view:42:1"})
	assert.ErrorIs(t, err, ErrViewClosed)
}

func TestView_TimeoutWithoutLinksClearsComponents(t *testing.T) {
	var hits atomic.Int32
	v := newTestView(20*time.Millisecond, 0, countingButton("go", &hits))
	editor := &fakeEditor{}
	v.Attach(editor.Edit, nil)
	<-v.Done()

	calls := editor.Calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0])
}

func TestView_TimeoutMeasuredFromAttach(t *testing.T) {
	var hits atomic.Int32
	btn := countingButton("go", &hits)
	v := newTestView(300*time.Millisecond, 0, btn)
	editor := &fakeEditor{}
	v.Attach(editor.Edit, nil)

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, v.Dispatch(&ComponentContext{ComponentResponder: &fakeResponder{}, UserID: testAuthor, CustomID: btn.CustomID()}))
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, ViewTimedOut, v.State())
	assert.Len(t, editor.Calls(), 1)
}

func TestView_InteractionsHandledInArrivalOrder(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	release := make(chan struct{})
	menu := NewSelect("pick", nil, func(c *ComponentContext) error {
		if c.Values[0] == "0" {
			<-release
		}
		mu.Lock()
		got = append(got, c.Values[0])
		mu.Unlock()
		return nil
	})
	v := newTestView(time.Minute, 0, menu)
	v.Attach(nil, nil)
	defer v.Stop()

	var want []string
	for i := range 20 {
		value := strconv.Itoa(i)
		want = append(want, value)
		require.NoError(t, v.Dispatch(&ComponentContext{
			ComponentResponder: &fakeResponder{},
			UserID:             testAuthor,
			CustomID:           menu.CustomID(),
			Values:             []string{value},
		}))
	}
	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == len(want)
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, got)
}

func TestView_PendingInteractionsAcknowledgedOnStop(t *testing.T) {
	release := make(chan struct{})
	btn := NewButton(discord.ButtonStyleSecondary, "close", func(c *ComponentContext) error {
		<-release
		c.View.Stop()
		return nil
	})
	v := newTestView(time.Minute, 0, btn)
	v.Attach(nil, nil)

	first, pending := &fakeResponder{}, &fakeResponder{}
	require.NoError(t, v.Dispatch(&ComponentContext{ComponentResponder: first, UserID: testAuthor, CustomID: btn.CustomID()}))
	require.NoError(t, v.Dispatch(&ComponentContext{ComponentResponder: pending, UserID: testAuthor, CustomID: btn.CustomID()}))
	close(release)

	<-v.Done()
	assert.Equal(t, ViewDetached, v.State())
	assert.Equal(t, 1, pending.Deferred())
}

func TestView_StopDetachesWithoutEdit(t *testing.T) {
	var hits atomic.Int32
	v := newTestView(time.Minute, 0, countingButton("go", &hits))
	editor := &fakeEditor{}
	v.Attach(editor.Edit, nil)

	v.Stop()
	v.Stop()
	<-v.Done()

	assert.Equal(t, ViewDetached, v.State())
	assert.Empty(t, editor.Calls())
}

func TestView_StopFromCallback(t *testing.T) {
	btn := NewButton(discord.ButtonStyleSecondary, "close", func(c *ComponentContext) error {
		c.View.Stop()
		return nil
	})
	v := newTestView(time.Minute, 0, btn)
	v.Attach(nil, nil)

	require.NoError(t, v.Dispatch(&ComponentContext{ComponentResponder: &fakeResponder{}, UserID: testAuthor, CustomID: btn.CustomID()}))
	select {
	case <-v.Done():
	case <-time.After(time.Second):
		t.Fatal("view did not stop")
	}
	assert.Equal(t, ViewDetached, v.State())
}

func TestViewStore_Dispatch(t *testing.T) {
	store := NewViewStore(quietLogger())

	var hits atomic.Int32
	btn := countingButton("go", &hits)
	v := newTestView(time.Minute, 0, btn)
	store.Attach(v, nil)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Dispatch(&ComponentContext{ComponentResponder: &fakeResponder{}, UserID: testAuthor, CustomID: btn.CustomID()}))
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)

	unknown := &fakeResponder{}
	assert.ErrorIs(t, store.Dispatch(&ComponentContext{ComponentResponder: unknown, UserID: testAuthor, CustomID: "view:7:0"}), ErrViewClosed)
	assert.Zero(t, unknown.Deferred())

	assert.Error(t, store.Dispatch(&ComponentContext{ComponentResponder: unknown, CustomID: "other"}))

	store.StopAll()
	<-v.Done()
	assert.Zero(t, store.Len())
}

func TestViewStore_AttachReplacesSameID(t *testing.T) {
	store := NewViewStore(quietLogger())
	var hits atomic.Int32

	first := newTestView(time.Minute, 0, countingButton("go", &hits))
	second := newTestView(time.Minute, 0, countingButton("go", &hits))
	store.Attach(first, nil)
	store.Attach(second, nil)
	<-first.Done()

	got, ok := store.Get("42")
	require.True(t, ok)
	assert.Same(t, second, got)

	store.StopAll()
	<-second.Done()
}

func TestParseViewCustomID(t *testing.T) {
	id, ok := ParseViewCustomID("view:1234:0")
	assert.True(t, ok)
	assert.Equal(t, "1234", id)

	for _, bad := range []string{"", "view:", "view:1234", "view::0", "view:1234:x", "other:1234:0"} {
		_, ok := ParseViewCustomID(bad)
		assert.False(t, ok, bad)
	}
}
