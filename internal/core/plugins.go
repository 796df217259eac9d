package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"classbot/internal/agenda"
	"classbot/internal/kit"
	"classbot/internal/notifier"
	"classbot/internal/store"
)

type Plugin interface {
	Name() string
	Init(ctx context.Context, deps PluginDeps) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Commands() []Command
}

// MatcherProvider is optional; plugins that react to plain text implement it.
type MatcherProvider interface {
	Matchers() []Matcher
}

type PluginDeps struct {
	Logger      *slog.Logger
	Adapter     kit.Adapter
	Config      *ConfigManager
	Agenda      *agenda.Store
	Subscribers *store.Subscribers
	Notifier    *notifier.Service
}

type PluginManager struct {
	mu sync.Mutex

	log  *slog.Logger
	deps PluginDeps
	cmdm *CommandManager

	order   []Plugin
	started []Plugin
}

func NewPluginManager(log *slog.Logger, deps PluginDeps, cmdm *CommandManager) *PluginManager {
	return &PluginManager{log: log, deps: deps, cmdm: cmdm}
}

func (pm *PluginManager) Register(ps ...Plugin) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.order = append(pm.order, ps...)
}

// StartAll inits and starts every registered plugin, then publishes the
// combined command registry. Any failure aborts and stops what has started.
func (pm *PluginManager) StartAll(ctx context.Context) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var cmds []Command
	var matchers []Matcher
	for _, p := range pm.order {
		deps := pm.deps
		deps.Logger = pm.deps.Logger.With(slog.String("plugin", p.Name()))
		if err := p.Init(ctx, deps); err != nil {
			pm.stopStartedLocked(ctx)
			return fmt.Errorf("init plugin %s: %w", p.Name(), err)
		}
		if err := p.Start(ctx); err != nil {
			pm.stopStartedLocked(ctx)
			return fmt.Errorf("start plugin %s: %w", p.Name(), err)
		}
		pm.started = append(pm.started, p)
		cmds = append(cmds, p.Commands()...)
		if mp, ok := p.(MatcherProvider); ok {
			matchers = append(matchers, mp.Matchers()...)
		}
		pm.log.Info("plugin started", slog.String("plugin", p.Name()))
	}

	pm.cmdm.SetRegistry(cmds, matchers)
	return nil
}

// StopAll stops plugins in reverse start order. Errors are logged, not returned.
func (pm *PluginManager) StopAll(ctx context.Context) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.stopStartedLocked(ctx)
}

func (pm *PluginManager) stopStartedLocked(ctx context.Context) {
	for i := len(pm.started) - 1; i >= 0; i-- {
		p := pm.started[i]
		if err := p.Stop(ctx); err != nil {
			pm.log.Warn("plugin stop failed", slog.String("plugin", p.Name()), slog.String("err", err.Error()))
		}
	}
	pm.started = nil
}
