package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Supervisor runs named goroutines tied to a shared context, with panic
// recovery and cancel-on-first-error.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger

	errOnce  sync.Once
	firstErr atomic.Value
	doneOnce sync.Once
	doneCh   chan struct{}
	wg       sync.WaitGroup
}

func NewSupervisor(parent context.Context, log *slog.Logger) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	return &Supervisor{ctx: ctx, cancel: cancel, log: log, doneCh: make(chan struct{})}
}

func (s *Supervisor) Context() context.Context { return s.ctx }

func (s *Supervisor) Cancel() { s.cancel() }

func (s *Supervisor) Err() error {
	if v := s.firstErr.Load(); v != nil {
		if err, ok := v.(error); ok {
			return err
		}
	}
	return nil
}

func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("goroutine panicked", slog.String("name", name), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
				s.setErr(fmt.Errorf("panic in %s: %v", name, r))
				s.cancel()
			}
		}()
		s.log.Debug("goroutine started", slog.String("name", name))
		if err := fn(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.setErr(fmt.Errorf("%s: %w", name, err))
			s.cancel()
		}
		s.log.Debug("goroutine stopped", slog.String("name", name))
	}()
}

func (s *Supervisor) Go0(name string, fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	s.Go(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

func (s *Supervisor) Wait(ctx context.Context) error {
	s.doneOnce.Do(func() {
		go func() {
			s.wg.Wait()
			close(s.doneCh)
		}()
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.doneCh:
		return s.Err()
	}
}

func (s *Supervisor) setErr(err error) {
	if err == nil {
		return
	}
	s.errOnce.Do(func() { s.firstErr.Store(err) })
}
