// Package notifier arms one fire-once timer per event of the current day and
// broadcasts each event to every subscriber when its start time comes.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"classbot/internal/agenda"
	"classbot/internal/kit"
	"classbot/internal/render"
	"classbot/internal/scheduler"
	"classbot/internal/store"
)

const rearmJobName = "notify.rearm"

type Config struct {
	// RearmAt is the local instant of the daily re-arm, just past midnight
	// so the fresh day's agenda is picked up ("HH:MM:SS").
	RearmAt string
	// RatePerSec caps outbound broadcast sends (Telegram flood control).
	RatePerSec int
}

type Service struct {
	log     *slog.Logger
	cfg     Config
	sched   *scheduler.Service
	agenda  *agenda.Store
	subs    *store.Subscribers
	adapter kit.Adapter
	limiter *rate.Limiter

	mu    sync.Mutex
	armed []string
}

func New(cfg Config, sched *scheduler.Service, ag *agenda.Store, subs *store.Subscribers, adapter kit.Adapter, log *slog.Logger) *Service {
	if cfg.RearmAt == "" {
		cfg.RearmAt = "00:00:30"
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	return &Service{
		log:     log,
		cfg:     cfg,
		sched:   sched,
		agenda:  ag,
		subs:    subs,
		adapter: adapter,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// Start arms today's timers immediately and registers the daily re-arm job.
// Must not be called between 00:00 and the re-arm instant: the immediate
// arming and the daily job would disagree about which day is "today".
func (s *Service) Start(ctx context.Context) error {
	if err := s.ArmDay(ctx, time.Now().In(s.agenda.Location())); err != nil {
		return fmt.Errorf("arm today: %w", err)
	}
	if err := s.sched.AddDaily(rearmJobName, s.cfg.RearmAt, s.rearm); err != nil {
		return fmt.Errorf("register daily rearm: %w", err)
	}
	return nil
}

func (s *Service) rearm(ctx context.Context) error {
	return s.ArmDay(ctx, time.Now().In(s.agenda.Location()))
}

// ArmDay replaces the armed timer set with one fire-once timer per event of
// date. Re-arming the same day is idempotent: timer names are stable per
// slot, the scheduler upserts by name, and leftovers from the previous set
// are removed wholesale. Events whose start already passed are skipped so a
// mid-day (re)start does not replay the morning.
func (s *Service) ArmDay(ctx context.Context, date time.Time) error {
	events, err := s.agenda.ResolveDay(date)
	if err != nil {
		return err
	}

	s.mu.Lock()
	stale := s.armed
	s.armed = nil
	s.mu.Unlock()
	for _, name := range stale {
		s.sched.Remove(name)
	}

	loc := s.agenda.Location()
	now := time.Now().In(loc)
	armed := make([]string, 0, len(events))
	skipped := 0
	for i, ev := range events {
		at := ev.Start.At(date, loc)
		if !at.After(now) {
			skipped++
			continue
		}
		ev := ev
		name := fmt.Sprintf("notify:%02d", i)
		if err := s.sched.AddOnce(name, at, func(ctx context.Context) error {
			return s.Broadcast(ctx, ev)
		}); err != nil {
			return fmt.Errorf("arm %s: %w", name, err)
		}
		armed = append(armed, name)
	}

	s.mu.Lock()
	s.armed = armed
	s.mu.Unlock()

	s.log.Info("day armed",
		slog.String("date", date.In(loc).Format("2006-01-02")),
		slog.Int("timers", len(armed)),
		slog.Int("already_started", skipped))
	return nil
}

// Broadcast sends the rendered event to every current subscriber. Delivery
// is best-effort: a failed recipient is logged and the loop moves on.
func (s *Service) Broadcast(ctx context.Context, ev agenda.Event) error {
	text := render.Event(ev).String()
	targets := s.subs.Snapshot()
	failed := 0
	for _, chatID := range targets {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := s.adapter.SendText(ctx, kit.ChatTarget{ChatID: chatID}, text, &kit.SendOptions{
			ParseMode:      "HTML",
			DisablePreview: true,
		})
		if err != nil {
			failed++
			s.log.Warn("notification send failed", slog.Int64("chat_id", chatID), slog.String("event", ev.Name), slog.Any("err", err))
		}
	}
	s.log.Info("notification broadcast",
		slog.String("event", ev.Name),
		slog.String("start", ev.Start.String()),
		slog.Int("recipients", len(targets)),
		slog.Int("failed", failed))
	return nil
}
