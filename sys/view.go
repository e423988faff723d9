package sys

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

const (
	DefaultViewTimeout = 180 * time.Second
	ViewCustomIDPrefix = "view:"
	maxButtonsPerRow   = 5
	viewEditTimeout    = 10 * time.Second
)

type ViewState int32

const (
	ViewActive ViewState = iota
	ViewTimedOut
	ViewDetached
)

func (s ViewState) String() string {
	switch s {
	case ViewActive:
		return "active"
	case ViewTimedOut:
		return "timed_out"
	default:
		return "detached"
	}
}

// ComponentResponder is the subset of a component interaction used by views.
type ComponentResponder interface {
	CreateMessage(messageCreate discord.MessageCreate, opts ...rest.RequestOpt) error
	UpdateMessage(messageUpdate discord.MessageUpdate, opts ...rest.RequestOpt) error
	DeferUpdateMessage(opts ...rest.RequestOpt) error
}

// ComponentContext is handed to control callbacks.
type ComponentContext struct {
	ComponentResponder
	Ctx      context.Context
	UserID   snowflake.ID
	CustomID string
	Values   []string
	View     *View
}

// ResponseEditor replaces the components of the message hosting a view.
type ResponseEditor func(ctx context.Context, components []discord.LayoutComponent) error

type ControlKind int

const (
	ControlButton ControlKind = iota
	ControlSelect
	ControlLink
)

type Control struct {
	Kind        ControlKind
	Label       string
	Style       discord.ButtonStyle
	URL         string
	Emoji       string
	Placeholder string
	Options     []discord.StringSelectMenuOption
	Callback    func(c *ComponentContext) error

	customID string
}

func NewButton(style discord.ButtonStyle, label string, cb func(c *ComponentContext) error) *Control {
	return &Control{Kind: ControlButton, Style: style, Label: label, Callback: cb}
}

func NewLinkButton(label, url string) *Control {
	return &Control{Kind: ControlLink, Style: discord.ButtonStyleLink, Label: label, URL: url}
}

func NewSelect(placeholder string, options []discord.StringSelectMenuOption, cb func(c *ComponentContext) error) *Control {
	return &Control{Kind: ControlSelect, Placeholder: placeholder, Options: options, Callback: cb}
}

// CustomID is empty for link buttons.
func (c *Control) CustomID() string { return c.customID }

func (c *Control) component() discord.InteractiveComponent {
	switch c.Kind {
	case ControlLink:
		return discord.NewButton(discord.ButtonStyleLink, c.Label, "", c.URL, 0)
	case ControlSelect:
		return discord.NewStringSelectMenu(c.customID, c.Placeholder, c.Options...)
	default:
		btn := discord.NewButton(c.Style, c.Label, c.customID, "", 0)
		if c.Emoji != "" {
			btn = btn.WithEmoji(discord.ComponentEmoji{Name: c.Emoji})
		}
		return btn
	}
}

type ViewOptions struct {
	Author   snowflake.ID
	IsOwner  func(snowflake.ID) bool
	Timeout  time.Duration
	Cooldown time.Duration
	Logger   *slog.Logger
	Now      func() time.Time
}

// View is an interactive component set bound to one originating
// interaction. Interactions and the timeout are handled by a single
// goroutine started on Attach, so callbacks never run concurrently.
type View struct {
	id       string
	gate     Gate
	timeout  time.Duration
	logger   *slog.Logger
	mu       sync.RWMutex
	controls []*Control
	editor   ResponseEditor

	state   atomic.Int32
	started atomic.Bool

	// queue holds interactions in arrival order until run takes them.
	qmu    sync.Mutex
	queue  []*ComponentContext
	closed bool
	wake   chan struct{}

	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	onClose func()
}

// NewView creates a view keyed by the originating interaction ID.
func NewView(id string, opts ViewOptions, controls ...*Control) *View {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultViewTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	v := &View{
		id: id,
		gate: Gate{
			Author:   opts.Author,
			IsOwner:  opts.IsOwner,
			Cooldown: NewCooldown(opts.Cooldown),
			Now:      opts.Now,
		},
		timeout: opts.Timeout,
		logger:  Component(opts.Logger, "view").With(slog.String("view", id)),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, c := range controls {
		v.add(c)
	}
	return v
}

func (v *View) ID() string { return v.id }

func (v *View) State() ViewState { return ViewState(v.state.Load()) }

func (v *View) Author() snowflake.ID { return v.gate.Author }

// Done is closed once the view stops processing interactions.
func (v *View) Done() <-chan struct{} { return v.done }

func (v *View) add(c *Control) {
	if c.Kind != ControlLink {
		c.customID = ViewCustomIDPrefix + v.id + ":" + strconv.Itoa(len(v.controls))
	}
	v.controls = append(v.controls, c)
}

// Controls returns a snapshot of the current controls.
func (v *View) Controls() []*Control {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]*Control, len(v.controls))
	copy(out, v.controls)
	return out
}

// Components lays the controls out in action rows. A select menu takes a
// row to itself; buttons share rows of up to five.
func (v *View) Components() []discord.LayoutComponent {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return layoutControls(v.controls)
}

func layoutControls(controls []*Control) []discord.LayoutComponent {
	var (
		rows    []discord.LayoutComponent
		current []discord.InteractiveComponent
	)
	flush := func() {
		if len(current) > 0 {
			rows = append(rows, discord.NewActionRow(current...))
			current = nil
		}
	}
	for _, c := range controls {
		if c.Kind == ControlSelect {
			flush()
			rows = append(rows, discord.NewActionRow(c.component()))
			continue
		}
		if len(current) == maxButtonsPerRow {
			flush()
		}
		current = append(current, c.component())
	}
	flush()
	return rows
}

// Attach binds the view to its hosting response and starts the timeout.
// onClose runs once when the view stops for any reason.
func (v *View) Attach(editor ResponseEditor, onClose func()) {
	if !v.started.CompareAndSwap(false, true) {
		return
	}
	v.editor = editor
	v.onClose = onClose
	go v.run()
}

// Stop detaches the view without editing the hosting response. It does not
// wait; use Done for that. Safe to call from a control callback.
func (v *View) Stop() {
	v.once.Do(func() { close(v.stop) })
	if !v.started.Load() {
		v.state.Store(int32(ViewDetached))
	}
}

// Dispatch queues an interaction for the view's goroutine without
// blocking, so interactions are handled in the order Dispatch sees them.
// It returns ErrViewClosed once the view is no longer active.
func (v *View) Dispatch(c *ComponentContext) error {
	if !v.started.Load() || v.State() != ViewActive {
		return ErrViewClosed
	}
	c.View = v

	v.qmu.Lock()
	if v.closed {
		v.qmu.Unlock()
		return ErrViewClosed
	}
	v.queue = append(v.queue, c)
	v.qmu.Unlock()

	select {
	case v.wake <- struct{}{}:
	default:
	}
	return nil
}

func (v *View) next() *ComponentContext {
	v.qmu.Lock()
	defer v.qmu.Unlock()
	if len(v.queue) == 0 {
		return nil
	}
	c := v.queue[0]
	v.queue[0] = nil
	v.queue = v.queue[1:]
	return c
}

// drain closes the queue and returns what was still waiting in it.
func (v *View) drain() []*ComponentContext {
	v.qmu.Lock()
	defer v.qmu.Unlock()
	v.closed = true
	pending := v.queue
	v.queue = nil
	return pending
}

// run owns the view. The timer starts at attach and is never extended.
func (v *View) run() {
	timer := time.NewTimer(v.timeout)
	defer func() {
		timer.Stop()
		for _, c := range v.drain() {
			_ = c.DeferUpdateMessage()
		}
		if v.onClose != nil {
			v.onClose()
		}
		close(v.done)
	}()

	for {
		select {
		case <-v.wake:
			for c := v.next(); c != nil; c = v.next() {
				v.handle(c)
				select {
				case <-timer.C:
					v.expire()
					return
				case <-v.stop:
					v.state.Store(int32(ViewDetached))
					return
				default:
				}
			}
		case <-timer.C:
			v.expire()
			return
		case <-v.stop:
			v.state.Store(int32(ViewDetached))
			return
		}
	}
}

// handle runs the gate and the control callback.
func (v *View) handle(c *ComponentContext) {
	ctrl := v.control(c.CustomID)
	if ctrl == nil {
		_ = c.DeferUpdateMessage()
		return
	}

	decision, wait := v.gate.Check(c.UserID)
	v.logger.Debug("Gate decision", slog.String("decision", decision.String()), slog.String("user", c.UserID.String()))

	switch decision {
	case DenyNotAuthor:
		v.replyEphemeral(c, MsgNotAuthor)
		return
	case DenyCooldown:
		v.replyEphemeral(c, CooldownMessage(wait))
		return
	}

	if ctrl.Callback == nil {
		_ = c.DeferUpdateMessage()
		return
	}
	if err := v.invoke(ctrl, c); err != nil {
		v.logger.Error("Control callback failed", slog.String("custom_id", c.CustomID), slog.Any("err", err))
	}
}

func (v *View) invoke(ctrl *Control, c *ComponentContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return ctrl.Callback(c)
}

func (v *View) replyEphemeral(c *ComponentContext, msg string) {
	err := c.CreateMessage(discord.NewMessageCreate().
		WithContent(msg).
		WithEphemeral(true))
	if err != nil {
		v.logger.Debug("Failed to send gate notice", slog.Any("err", err))
	}
}

func (v *View) control(customID string) *Control {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, c := range v.controls {
		if c.customID != "" && c.customID == customID {
			return c
		}
	}
	return nil
}

// expire strips every control except link buttons and edits the hosting
// response once. Edit failures are logged and absorbed.
func (v *View) expire() {
	v.state.Store(int32(ViewTimedOut))

	v.mu.Lock()
	kept := v.controls[:0:0]
	for _, c := range v.controls {
		if c.Kind == ControlLink {
			kept = append(kept, c)
		}
	}
	v.controls = kept
	rows := layoutControls(kept)
	v.mu.Unlock()

	if v.editor == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), viewEditTimeout)
	defer cancel()
	if err := v.editor(ctx, rows); err != nil {
		v.logger.Debug("Failed to edit timed out view", slog.Any("err", err))
	}
}

// ViewStore routes component interactions to live views.
type ViewStore struct {
	mu     sync.RWMutex
	views  map[string]*View
	logger *slog.Logger
}

func NewViewStore(logger *slog.Logger) *ViewStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewStore{views: make(map[string]*View), logger: Component(logger, "view")}
}

// Attach registers v and starts it.
func (s *ViewStore) Attach(v *View, editor ResponseEditor) {
	s.mu.Lock()
	if old, ok := s.views[v.id]; ok && old != v {
		s.mu.Unlock()
		old.Stop()
		s.mu.Lock()
	}
	s.views[v.id] = v
	s.mu.Unlock()

	v.Attach(editor, func() { s.remove(v) })
}

func (s *ViewStore) remove(v *View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.views[v.id]; ok && cur == v {
		delete(s.views, v.id)
	}
}

func (s *ViewStore) Get(id string) (*View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[id]
	return v, ok
}

func (s *ViewStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}

// Dispatch routes c by its custom ID without blocking. Interactions for
// unknown or closed views return ErrViewClosed and are left for the caller
// to acknowledge.
func (s *ViewStore) Dispatch(c *ComponentContext) error {
	id, ok := ParseViewCustomID(c.CustomID)
	if !ok {
		return fmt.Errorf("not a view custom id: %q", c.CustomID)
	}
	v, ok := s.Get(id)
	if !ok {
		s.logger.Debug("Interaction for unknown view", slog.String("view", id), slog.String("user", c.UserID.String()))
		return ErrViewClosed
	}
	return v.Dispatch(c)
}

// StopAll detaches every live view.
func (s *ViewStore) StopAll() {
	s.mu.RLock()
	views := make([]*View, 0, len(s.views))
	for _, v := range s.views {
		views = append(views, v)
	}
	s.mu.RUnlock()

	for _, v := range views {
		v.Stop()
	}
}

// ParseViewCustomID extracts the view ID from "view:<id>:<index>".
func ParseViewCustomID(customID string) (string, bool) {
	trimmed, ok := strings.CutPrefix(customID, ViewCustomIDPrefix)
	if !ok {
		return "", false
	}
	id, idx, ok := strings.Cut(trimmed, ":")
	if !ok || id == "" {
		return "", false
	}
	if _, err := strconv.Atoi(idx); err != nil {
		return "", false
	}
	return id, true
}
