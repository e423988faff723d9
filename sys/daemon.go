package sys

import (
	"context"
	"log/slog"
	"sync"
)

// DaemonStarter decides whether a daemon runs. It returns the loop to run
// and an optional shutdown hook.
type DaemonStarter func(ctx context.Context, b *Bot) (ok bool, run func(), shutdown func())

type daemonEntry struct {
	name    string
	starter DaemonStarter
}

var (
	daemonsMu         sync.Mutex
	registeredDaemons []daemonEntry
)

// RegisterDaemon adds a background worker started once the gateway is ready.
func RegisterDaemon(name string, starter DaemonStarter) {
	daemonsMu.Lock()
	defer daemonsMu.Unlock()
	registeredDaemons = append(registeredDaemons, daemonEntry{name: name, starter: starter})
}

// Daemons tracks the workers started for one bot.
type Daemons struct {
	logger *slog.Logger
	once   sync.Once
	mu     sync.Mutex
	hooks  []func()
	wg     sync.WaitGroup
}

func NewDaemons(logger *slog.Logger) *Daemons {
	return &Daemons{logger: logger}
}

// Start evaluates every registered daemon and launches the active ones. It
// only runs once per Daemons.
func (d *Daemons) Start(ctx context.Context, b *Bot) {
	d.once.Do(func() {
		daemonsMu.Lock()
		entries := append([]daemonEntry(nil), registeredDaemons...)
		daemonsMu.Unlock()

		type active struct {
			name string
			run  func()
		}
		var started []active

		for _, e := range entries {
			ok, run, shutdown := e.starter(ctx, b)
			if !ok || run == nil {
				continue
			}
			if shutdown != nil {
				d.mu.Lock()
				d.hooks = append(d.hooks, shutdown)
				d.mu.Unlock()
			}
			started = append(started, active{e.name, run})
		}

		for _, a := range started {
			Component(d.logger, a.name).Info("Starting...")
		}
		for _, a := range started {
			d.wg.Add(1)
			run := a.run
			SafeGo(d.logger, func() {
				defer d.wg.Done()
				run()
			})
		}
	})
}

// Shutdown runs every shutdown hook and waits for the daemon loops, which
// must return once their context is cancelled.
func (d *Daemons) Shutdown() {
	d.mu.Lock()
	hooks := d.hooks
	d.hooks = nil
	d.mu.Unlock()

	var wg sync.WaitGroup
	for _, hook := range hooks {
		wg.Add(1)
		SafeGo(d.logger, func() {
			defer wg.Done()
			hook()
		})
	}
	wg.Wait()
	d.wg.Wait()
}
