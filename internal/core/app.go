package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"classbot/internal/adapters/telegram"
	"classbot/internal/agenda"
	"classbot/internal/kit"
	"classbot/internal/logging"
	"classbot/internal/notifier"
	"classbot/internal/scheduler"
	"classbot/internal/store"
)

type App struct {
	cfgPath string

	cfgm *ConfigManager
	sup  *Supervisor

	log  *slog.Logger
	logs *logging.Service

	adapter kit.Adapter

	agenda *agenda.Store
	subs   *store.Subscribers
	allow  *store.AllowList

	sched *scheduler.Service
	notif *notifier.Service

	cmdm *CommandManager
	pm   *PluginManager

	updates chan kit.Update
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logging.New(logging.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logging.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(slog.String("comp", "app"))

	token := strings.TrimSpace(cfg.Telegram.Token)
	if token == "" {
		token = strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN"))
	}
	pollTimeout, err := parseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       token,
		PollTimeout: pollTimeout,
	}, log.With(slog.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	ag, err := agenda.Load(agenda.Config{
		LessonsPath:   cfg.Data.Lessons,
		TimetablePath: cfg.Data.Timetable,
		SchedulePath:  cfg.Data.Schedule,
		Timezone:      cfg.Timezone,
	})
	if err != nil {
		return nil, err
	}

	subs, err := store.OpenSubscribers(cfg.Data.Subscribers, log.With(slog.String("comp", "subscribers")))
	if err != nil {
		return nil, err
	}
	allow, err := store.LoadAllowList(cfg.Data.AllowList)
	if err != nil {
		return nil, err
	}
	log.Info("stores opened",
		slog.Int("subscribers", len(subs.Snapshot())),
		slog.Int("allowed_chats", allow.Len()))

	defaultTimeout, err := parseDurationOrDefault("scheduler.default_timeout", cfg.Scheduler.DefaultTimeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	schedSvc := scheduler.New(scheduler.Config{
		Workers:        cfg.Scheduler.Workers,
		DefaultTimeout: defaultTimeout,
		Location:       ag.Location(),
	}, log.With(slog.String("comp", "scheduler")))

	notifSvc := notifier.New(notifier.Config{
		RearmAt:    cfg.Notify.RearmAt,
		RatePerSec: cfg.Notify.RatePerSec,
	}, schedSvc, ag, subs, ad, log.With(slog.String("comp", "notifier")))

	cmdm := NewCommandManager(log.With(slog.String("comp", "commands")), ad, allow, defaultTimeout)

	pm := NewPluginManager(log.With(slog.String("comp", "plugins")), PluginDeps{
		Logger:      log,
		Adapter:     ad,
		Config:      cfgm,
		Agenda:      ag,
		Subscribers: subs,
		Notifier:    notifSvc,
	}, cmdm)

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		adapter: ad,
		agenda:  ag,
		subs:    subs,
		allow:   allow,
		sched:   schedSvc,
		notif:   notifSvc,
		cmdm:    cmdm,
		pm:      pm,
		updates: make(chan kit.Update, 256),
	}, nil
}

func (a *App) Plugins() *PluginManager { return a.pm }

// Done is closed when the app run context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, a.log)

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	a.sched.Start(a.sup.Context())

	if err := a.notif.Start(a.sup.Context()); err != nil {
		return err
	}

	if err := a.pm.StartAll(a.sup.Context()); err != nil {
		return err
	}

	if err := a.adapter.UpdateMenuCommands(a.sup.Context(), a.cmdm.MenuCommands()); err != nil {
		a.log.Warn("menu command sync failed", slog.String("err", err.Error()))
	}

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Logging and the allow-list are hot-applied; everything
				// else needs a restart.
				a.logs.Apply(logging.Config{
					Level:   newCfg.Logging.Level,
					Console: newCfg.Logging.Console,
					File: logging.FileConfig{
						Enabled: newCfg.Logging.File.Enabled,
						Path:    newCfg.Logging.File.Path,
					},
				})
				if allow, err := store.LoadAllowList(newCfg.Data.AllowList); err != nil {
					a.log.Warn("allow-list reload failed; keeping previous list", slog.String("err", err.Error()))
				} else {
					a.allow = allow
					a.cmdm.SetAllowList(allow)
				}
				a.log.Info("config reloaded")
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")
	a.sup.Cancel()

	// Bound each shutdown step so a stuck component cannot stall the rest.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()
		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step failed", slog.String("name", name), slog.String("err", err.Error()))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step timed out", slog.String("name", name))
		}
	}

	step("plugins", 5*time.Second, func(c context.Context) error {
		a.pm.StopAll(c)
		return nil
	})
	step("scheduler", 5*time.Second, func(c context.Context) error {
		a.sched.Stop(c)
		return nil
	})
	step("adapter", 5*time.Second, a.adapter.Stop)

	if err := a.sup.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn("background tasks ended with error", slog.String("err", err.Error()))
	}

	a.logs.Close()
	return nil
}
