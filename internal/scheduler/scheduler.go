// Package scheduler is the single scheduling authority of the process: one
// cron instance plus named fire-once timers feed a small worker pool that
// executes every job, including each day's notification timers.
package scheduler

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	Workers        int
	QueueSize      int
	DefaultTimeout time.Duration
	Location       *time.Location
}

type task struct {
	name    string
	timeout time.Duration
	run     func(ctx context.Context) error
}

// onceEntry is a named fire-once definition. The version counter invalidates
// callbacks from timers that were replaced by a later registration with the
// same name.
type onceEntry struct {
	at    time.Time
	ver   uint64
	timer *time.Timer
	job   func(ctx context.Context) error
}

type cronDef struct {
	name    string
	spec    string
	entryID cron.EntryID
	job     func(ctx context.Context) error
}

type Service struct {
	log *slog.Logger
	cfg Config
	loc *time.Location

	parser cron.Parser

	mu     sync.Mutex
	c      *cron.Cron
	defs   []cronDef
	queue  chan task
	stopCh chan struct{}

	tmu  sync.Mutex
	once map[string]*onceEntry
	seq  uint64

	runCtx    context.Context
	runCancel context.CancelFunc
	workerWG  sync.WaitGroup
}

func New(cfg Config, log *slog.Logger) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		cfg: cfg,
		log: log,
		loc: loc,
		// SecondOptional lets daily jobs run at sub-minute instants
		// such as 00:00:30.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		once:   map[string]*onceEntry{},
	}
}

func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return // already running
	}
	s.stopCh = make(chan struct{})
	s.runCtx, s.runCancel = context.WithCancel(ctx)

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	size := s.cfg.QueueSize
	if size <= 0 {
		size = 64
	}
	s.queue = make(chan task, size)

	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))
	for i := range s.defs {
		s.registerCronLocked(&s.defs[i])
	}

	runCtx := s.runCtx
	stopCh := s.stopCh
	queue := s.queue
	s.workerWG.Add(workers)
	for i := 0; i < workers; i++ {
		idx := i
		go func() {
			defer s.workerWG.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("panic in scheduler worker", slog.Int("worker", idx), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
				}
			}()
			s.worker(runCtx, stopCh, queue)
		}()
	}
	s.c.Start()
	s.log.Info("scheduler started", slog.Int("workers", workers), slog.String("tz", s.loc.String()), slog.Int("cron_jobs", len(s.defs)))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	stopCh := s.stopCh
	cancel := s.runCancel
	c := s.c
	s.c = nil
	s.stopCh = nil
	s.runCancel = nil
	s.mu.Unlock()

	close(stopCh)
	if cancel != nil {
		cancel()
	}
	if c != nil {
		<-c.Stop().Done()
	}

	// Stop runtime timers; definitions stay so a later Start can resume.
	s.tmu.Lock()
	for _, e := range s.once {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
	s.tmu.Unlock()

	done := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out; workers finishing in background")
	}
}

func (s *Service) enqueue(t task) {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()
	if q == nil {
		s.log.Debug("scheduler not running; dropping task", slog.String("task", t.name))
		return
	}
	select {
	case q <- t:
	default:
		s.log.Warn("scheduler queue full; dropping task", slog.String("task", t.name), slog.Int("queue_cap", cap(q)))
	}
}

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan task) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case t := <-queue:
			s.execOne(ctx, t)
		}
	}
}

func (s *Service) execOne(ctx context.Context, t task) {
	start := time.Now()
	runCtx := ctx
	timeout := t.timeout
	if timeout <= 0 {
		timeout = s.cfg.DefaultTimeout
	}
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in task", slog.String("task", t.name), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		}
	}()
	err := t.run(runCtx)
	if err != nil {
		s.log.Warn("task failed", slog.String("task", t.name), slog.Duration("took", time.Since(start)), slog.Any("err", err))
		return
	}
	s.log.Debug("task done", slog.String("task", t.name), slog.Duration("took", time.Since(start)))
}

// registerCronLocked adds def to the running cron. Call with s.mu held and
// s.c non-nil.
func (s *Service) registerCronLocked(d *cronDef) {
	name, job, timeout := d.name, d.job, time.Duration(0)
	eid, err := s.c.AddFunc(d.spec, func() {
		s.enqueue(task{name: name, timeout: timeout, run: job})
	})
	if err != nil {
		s.log.Error("cron register failed", slog.String("name", d.name), slog.String("spec", d.spec), slog.Any("err", err))
		return
	}
	d.entryID = eid
	s.log.Debug("cron registered", slog.String("name", d.name), slog.String("spec", d.spec))
}
