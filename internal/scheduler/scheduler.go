// Package scheduler fires pipeline invocations on a cron schedule and on demand.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/logger"
	"github.com/timmy/recordhub/internal/service"
)

// ErrAlreadyRunning is returned when an invocation is requested while one is in flight.
var ErrAlreadyRunning = errors.New("pipeline invocation already running")

// Runner is the pipeline entry point the trigger drives.
type Runner interface {
	RunWithRetry(ctx context.Context, sources []domain.SourceConfig) (*service.Summary, error)
}

// SourceFunc returns the sources to process at fire time.
type SourceFunc func() []domain.SourceConfig

// Trigger is the single place that guarantees at most one pipeline invocation
// at a time. Cron fires and manual requests both go through it.
type Trigger struct {
	runner  Runner
	sources SourceFunc
	mu      sync.Mutex

	stateMu sync.RWMutex
	last    Status
}

// Status describes the most recent invocation.
type Status struct {
	FinishedAt time.Time
	Err        error
	// Summary is the last successful summary; a failed invocation keeps the previous one.
	Summary *service.Summary
}

// NewTrigger creates a Trigger.
func NewTrigger(runner Runner, sources SourceFunc) *Trigger {
	return &Trigger{runner: runner, sources: sources}
}

// Fire runs one invocation unless another is in flight.
// Parameters:
//   - ctx: context for the invocation.
// Returns:
//   - *service.Summary: outcome of the invocation.
//   - error: ErrAlreadyRunning, or the invocation's error.
func (t *Trigger) Fire(ctx context.Context) (*service.Summary, error) {
	if !t.mu.TryLock() {
		return nil, ErrAlreadyRunning
	}
	defer t.mu.Unlock()

	summary, err := t.runner.RunWithRetry(ctx, t.sources())

	t.stateMu.Lock()
	t.last.FinishedAt = time.Now().UTC()
	t.last.Err = err
	if err == nil {
		t.last.Summary = summary
	}
	t.stateMu.Unlock()

	return summary, err
}

// Last returns the status of the most recent invocation.
func (t *Trigger) Last() Status {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.last
}

// Scheduler fires a Trigger on a cron expression with a seconds field.
type Scheduler struct {
	cron    *cron.Cron
	trigger *Trigger
	spec    string
	ctx     context.Context
	cancel  context.CancelFunc
	startup sync.WaitGroup // run-on-start invocation, which cron does not track
}

// cronLogger adapts the package logger to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.GetDefault().WithField("component", "cron").Debugf("%s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.GetDefault().WithField("component", "cron").WithError(err).Errorf("%s %v", msg, keysAndValues)
}

// New creates a Scheduler; the expression is validated immediately.
// Parameters:
//   - spec: cron expression with seconds, e.g. "0 0 0,6,12,18 * * *".
//   - trigger: trigger to fire.
// Returns:
//   - *Scheduler: stopped scheduler.
//   - error: non-nil if spec does not parse.
func New(spec string, trigger *Trigger) (*Scheduler, error) {
	l := cronLogger{}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(l),
		cron.WithChain(
			cron.SkipIfStillRunning(l),
			cron.Recover(l),
		),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, trigger: trigger, spec: spec, ctx: ctx, cancel: cancel}
	if _, err := c.AddFunc(spec, s.fire); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) fire() {
	ctx := logger.SetComponent(s.ctx, "scheduler")
	summary, err := s.trigger.Fire(ctx)
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		logger.CtxWarn(ctx, "Skipping scheduled run: %v", err)
	case err != nil:
		logger.FromContext(ctx).WithError(err).Error("Scheduled pipeline run failed")
	default:
		logger.CtxInfo(ctx, "Scheduled pipeline run finished: %d sources, %d inserted, %d failed",
			len(summary.Sources), summary.Totals.Inserted, summary.Totals.Failed)
	}
}

// Start begins firing; with runNow an invocation starts immediately in the background.
func (s *Scheduler) Start(runNow bool) {
	logger.Info("Starting scheduler (%s)", s.spec)
	s.cron.Start()
	if runNow {
		s.startup.Add(1)
		go func() {
			defer s.startup.Done()
			s.fire()
		}()
	}
}

// Next returns the next scheduled fire time.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop cancels a running invocation and waits up to timeout for it to return,
// whether cron or Start(true) launched it.
func (s *Scheduler) Stop(timeout time.Duration) {
	s.cancel()
	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.startup.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("Scheduler stopped")
	case <-time.After(timeout):
		logger.Warn("Scheduler shutdown timed out")
	}
}
