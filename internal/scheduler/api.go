package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// AddDaily registers job to run once per day at the given local clock time,
// "HH:MM" or "HH:MM:SS". Re-registering a name replaces the old definition.
func (s *Service) AddDaily(name, at string, job func(ctx context.Context) error) error {
	h, m, sec, err := parseClock(at)
	if err != nil {
		return err
	}
	spec := fmt.Sprintf("%d %d %d * * *", sec, m, h)

	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(name) == "" {
		return errors.New("name required")
	}
	s.removeCronLocked(name)
	s.defs = append(s.defs, cronDef{name: name, spec: spec, job: job})
	if s.c != nil {
		s.registerCronLocked(&s.defs[len(s.defs)-1])
	}
	return nil
}

// AddOnce arms a named fire-once timer. A second AddOnce with the same name
// is an upsert: the earlier timer is stopped and can never fire, so re-arming
// a day's notifications replaces them instead of stacking duplicates. Timers
// whose instant already passed fire immediately.
func (s *Service) AddOnce(name string, at time.Time, job func(ctx context.Context) error) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name required")
	}
	if at.IsZero() {
		return errors.New("at required")
	}
	runAt := at.In(s.loc)

	s.tmu.Lock()
	defer s.tmu.Unlock()
	if prev, ok := s.once[name]; ok && prev.timer != nil {
		prev.timer.Stop()
	}
	s.seq++
	e := &onceEntry{at: runAt, ver: s.seq, job: job}
	s.once[name] = e

	delay := time.Until(runAt)
	if delay < 0 {
		delay = 0
	}
	ver := e.ver
	e.timer = time.AfterFunc(delay, func() { s.fireOnce(name, ver) })
	s.log.Debug("once timer armed", slog.String("name", name), slog.Time("at", runAt))
	return nil
}

func (s *Service) fireOnce(name string, ver uint64) {
	s.tmu.Lock()
	e, ok := s.once[name]
	if !ok || e.ver != ver || e.job == nil {
		// replaced or removed since arming; stale callback
		s.tmu.Unlock()
		return
	}
	delete(s.once, name)
	job := e.job
	s.tmu.Unlock()

	s.enqueue(task{name: name, run: job})
}

// Remove drops the named definition, cron or fire-once. It reports whether
// anything was removed.
func (s *Service) Remove(name string) bool {
	removed := false

	s.mu.Lock()
	removed = s.removeCronLocked(name)
	s.mu.Unlock()

	s.tmu.Lock()
	if e, ok := s.once[name]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.once, name)
		removed = true
	}
	s.tmu.Unlock()

	if removed {
		s.log.Debug("schedule removed", slog.String("name", name))
	}
	return removed
}

// Armed lists the names of pending fire-once timers.
func (s *Service) Armed() []string {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	out := make([]string, 0, len(s.once))
	for name := range s.once {
		out = append(out, name)
	}
	return out
}

func (s *Service) removeCronLocked(name string) bool {
	removed := false
	n := 0
	for _, d := range s.defs {
		if d.name == name {
			if s.c != nil && d.entryID != 0 {
				s.c.Remove(d.entryID)
			}
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	s.defs = s.defs[:n]
	return removed
}

func parseClock(at string) (h, m, sec int, err error) {
	parts := strings.Split(strings.TrimSpace(at), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("clock %q: want HH:MM or HH:MM:SS", at)
	}
	read := func(p string, max int) (int, error) {
		v := 0
		if _, err := fmt.Sscanf(p, "%d", &v); err != nil {
			return 0, fmt.Errorf("clock %q: %w", at, err)
		}
		if v < 0 || v > max {
			return 0, fmt.Errorf("clock %q: out of range", at)
		}
		return v, nil
	}
	if h, err = read(parts[0], 23); err != nil {
		return 0, 0, 0, err
	}
	if m, err = read(parts[1], 59); err != nil {
		return 0, 0, 0, err
	}
	if len(parts) == 3 {
		if sec, err = read(parts[2], 59); err != nil {
			return 0, 0, 0, err
		}
	}
	return h, m, sec, nil
}
