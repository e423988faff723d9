package sys

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Cog is the set of commands an extension contributes while loaded.
type Cog struct {
	Commands      []*Command
	SlashCommands []*SlashCommand
	// Teardown runs when the extension is unloaded.
	Teardown func()
}

// ExtensionSetup builds a fresh Cog for the bot.
type ExtensionSetup func(b *Bot) (*Cog, error)

var (
	catalogMu        sync.RWMutex
	extensionCatalog = map[string]ExtensionSetup{}
)

// RegisterExtension makes an extension available to load by name. Packages
// call it from init.
func RegisterExtension(name string, setup ExtensionSetup) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	extensionCatalog[name] = setup
}

// Catalog returns a copy of the registered extensions.
func Catalog() map[string]ExtensionSetup {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	out := make(map[string]ExtensionSetup, len(extensionCatalog))
	for k, v := range extensionCatalog {
		out[k] = v
	}
	return out
}

// ExtensionManager loads and unloads extensions into a Registry at runtime.
type ExtensionManager struct {
	bot      *Bot
	registry *Registry
	catalog  map[string]ExtensionSetup

	mu     sync.Mutex
	loaded map[string]*Cog
	order  []string
}

func NewExtensionManager(b *Bot, registry *Registry, catalog map[string]ExtensionSetup) *ExtensionManager {
	return &ExtensionManager{
		bot:      b,
		registry: registry,
		catalog:  catalog,
		loaded:   make(map[string]*Cog),
	}
}

func (m *ExtensionManager) Load(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(name)
}

func (m *ExtensionManager) load(name string) error {
	setup, ok := m.catalog[name]
	if !ok {
		return &ExtensionError{Kind: ExtensionNotFound, Name: name}
	}
	if _, ok := m.loaded[name]; ok {
		return &ExtensionError{Kind: ExtensionAlreadyLoaded, Name: name}
	}

	cog, err := m.setup(setup)
	if err != nil {
		return &ExtensionError{Kind: ExtensionFailed, Name: name, Err: err}
	}
	if err := m.install(name, cog); err != nil {
		return &ExtensionError{Kind: ExtensionFailed, Name: name, Err: err}
	}

	m.loaded[name] = cog
	m.order = append(m.order, name)
	return nil
}

func (m *ExtensionManager) setup(setup ExtensionSetup) (cog *Cog, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("setup panicked: %v", r)
		}
	}()
	cog, err = setup(m.bot)
	if err == nil && cog == nil {
		err = errors.New("setup returned no cog")
	}
	return cog, err
}

// install adds the cog's commands, rolling back on the first conflict.
func (m *ExtensionManager) install(name string, cog *Cog) error {
	for _, cmd := range cog.Commands {
		cmd.Extension = name
		if err := m.registry.AddCommand(cmd); err != nil {
			m.registry.RemoveExtension(name)
			return err
		}
	}
	for _, cmd := range cog.SlashCommands {
		cmd.Extension = name
		if err := m.registry.AddSlashCommand(cmd); err != nil {
			m.registry.RemoveExtension(name)
			return err
		}
	}
	return nil
}

func (m *ExtensionManager) Unload(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unload(name)
}

func (m *ExtensionManager) unload(name string) error {
	cog, ok := m.loaded[name]
	if !ok {
		return &ExtensionError{Kind: ExtensionNotLoaded, Name: name}
	}
	m.registry.RemoveExtension(name)
	if cog.Teardown != nil {
		cog.Teardown()
	}
	delete(m.loaded, name)
	m.order = slices.DeleteFunc(m.order, func(n string) bool { return n == name })
	return nil
}

// Reload unloads and loads name again. If the new load fails the previous
// cog is put back.
func (m *ExtensionManager) Reload(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.loaded[name]
	if !ok {
		return &ExtensionError{Kind: ExtensionNotLoaded, Name: name}
	}
	idx := slices.Index(m.order, name)

	m.registry.RemoveExtension(name)
	delete(m.loaded, name)
	m.order = slices.Delete(m.order, idx, idx+1)

	if err := m.load(name); err != nil {
		if installErr := m.install(name, old); installErr == nil {
			m.loaded[name] = old
			m.order = slices.Insert(m.order, min(idx, len(m.order)), name)
		}
		return err
	}
	if old.Teardown != nil {
		old.Teardown()
	}

	// Keep the original position.
	m.order = slices.DeleteFunc(m.order, func(n string) bool { return n == name })
	m.order = slices.Insert(m.order, min(idx, len(m.order)), name)
	return nil
}

// Loaded returns the loaded extension names in load order.
func (m *ExtensionManager) Loaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.order)
}

// Available returns every extension name in the catalog, sorted.
func (m *ExtensionManager) Available() []string {
	names := make([]string, 0, len(m.catalog))
	for name := range m.catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
