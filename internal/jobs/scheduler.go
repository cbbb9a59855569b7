// =============================================================================
// RPS Batch Decoder - Scheduled Inbox Runs
// =============================================================================
//
// The scheduler runs the inbox pipeline on a cron expression. A tick that
// arrives while the previous run is still going is skipped, never queued.
//
// =============================================================================

package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"github.com/ginjaninja78/rps-batch-decoder/internal/logging"
)

// RunFunc is one scheduled unit of work.
type RunFunc func(ctx context.Context) error

// Scheduler runs a RunFunc on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	run    RunFunc
	logger logging.Logger

	mu      sync.Mutex
	ctx     context.Context
	wg      sync.WaitGroup
	running bool
	skipped int
}

// New creates a Scheduler.
//
// PARAMETERS:
//   - expr: A standard five-field cron expression, e.g. "*/5 * * * *".
//   - timezone: An IANA zone such as "America/Sao_Paulo". Empty means UTC.
//   - run: The work to run on every tick.
func New(expr, timezone string, run RunFunc, logger logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	loc := time.UTC
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
		}
		loc = l
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		run:    run,
		logger: logger,
		ctx:    context.Background(),
	}
	if _, err := s.cron.AddFunc(expr, s.tick); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return s, nil
}

// tick starts one run unless one is already in progress.
func (s *Scheduler) tick() {
	s.mu.Lock()
	if s.running {
		s.skipped++
		s.mu.Unlock()
		s.logger.Warn("Previous run still in progress, skipping tick")
		return
	}
	s.running = true
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.wg.Done()
	}()

	if err := s.run(ctx); err != nil {
		s.logger.Error("Scheduled run failed: %v", err)
	}
}

// RunNow performs one run immediately, honouring the no-overlap rule.
func (s *Scheduler) RunNow() {
	s.tick()
}

// Skipped returns how many ticks were skipped because a run was in progress.
func (s *Scheduler) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

// Next returns the time of the next scheduled tick.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Run starts the schedule and blocks until ctx ends, then waits for an
// in-flight run to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("Scheduler started, next run at %s", s.Next().Format(time.RFC3339))

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}
