package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/recordhub/internal/batch"
	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/logger"
	"github.com/timmy/recordhub/internal/metrics"
	"github.com/timmy/recordhub/internal/repository"
	"github.com/timmy/recordhub/internal/source"
)

// Source statuses reported in a Summary beyond the run statuses.
const StatusSkipped = "skipped"

// PipelineConfig tunes one pipeline.
type PipelineConfig struct {
	BatchSize        int           // raw records per checkpoint commit
	Workers          int           // concurrent raw inserts within a batch
	FetchConcurrency int           // sources fetched at once
	MaxRetries       int           // total invocation attempts
	BackoffBase      time.Duration // wait before the second attempt; doubles after
}

// SourceStatus is one source's outcome in an invocation.
type SourceStatus struct {
	Source string           `json:"source"`
	RunID  string           `json:"run_id,omitempty"`
	Status string           `json:"status"`
	Counts domain.RunCounts `json:"counts"`
	Error  string           `json:"error,omitempty"`
}

// Totals sums the counts of every source in an invocation.
type Totals struct {
	domain.RunCounts
	FailedSources int `json:"failed_sources"`
}

// Summary reports one pipeline invocation.
type Summary struct {
	Sources    []SourceStatus `json:"per_source_status"`
	Totals     Totals         `json:"totals"`
	Attempts   int            `json:"attempts"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

func (s *Summary) add(st SourceStatus) {
	s.Sources = append(s.Sources, st)
	s.Totals.Add(st.Counts)
	if st.Status == string(domain.RunStatusFailed) {
		s.Totals.FailedSources++
	}
}

// Pipeline runs the ingest, normalize and resolve sweep over configured sources.
//
// At most one invocation may run at a time against a given store; callers
// serialize invocations (see scheduler.Trigger).
type Pipeline struct {
	store    *repository.Store
	registry *source.Registry
	cfg      PipelineConfig
	resolver EntityResolver
	tracker  *CheckpointTracker
	recorder *RunRecorder
	metrics  *metrics.Collector
	now      Clock
	sleep    func(ctx context.Context, d time.Duration) error

	invoke func(ctx context.Context, sources []domain.SourceConfig, attempt int) (*Summary, error)
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the wall clock.
func WithClock(now Clock) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithSleep replaces the backoff wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) { p.sleep = sleep }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Collector) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithResolver replaces the fingerprint resolver.
func WithResolver(r EntityResolver) Option {
	return func(p *Pipeline) { p.resolver = r }
}

// NewPipeline creates a Pipeline.
// Parameters:
//   - store: store handle owned by the pipeline for its invocations.
//   - registry: connector factories by source type.
//   - cfg: batch, concurrency and retry settings; zero values get defaults.
//   - opts: optional overrides.
// Returns:
//   - *Pipeline: ready pipeline.
func NewPipeline(store *repository.Store, registry *source.Registry, cfg PipelineConfig, opts ...Option) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}

	p := &Pipeline{
		store:    store,
		registry: registry,
		cfg:      cfg,
		now:      utcNow,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.resolver == nil {
		p.resolver = NewResolver(p.now)
	}
	p.tracker = NewCheckpointTracker(store, p.now)
	p.recorder = NewRunRecorder(store, p.now)
	p.invoke = p.run
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run performs one invocation over sources without retrying.
func (p *Pipeline) Run(ctx context.Context, sources []domain.SourceConfig) (*Summary, error) {
	summary, err := p.invoke(ctx, sources, 1)
	if err != nil {
		return nil, err
	}
	summary.Attempts = 1
	return summary, nil
}

// RunWithRetry performs an invocation and repeats the whole of it when an
// error escapes the per-source isolation, up to MaxRetries attempts in total.
// The wait before attempt n+1 is BackoffBase * 2^(n-1).
// Parameters:
//   - ctx: context for cancellation; cancelling stops further attempts.
//   - sources: source configurations in processing order.
// Returns:
//   - *Summary: outcome of the successful attempt.
//   - error: wraps ErrInvocationExhausted and the last failure.
func (p *Pipeline) RunWithRetry(ctx context.Context, sources []domain.SourceConfig) (*Summary, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		actx := logger.SetAttempt(ctx, attempt+1)

		summary, err := p.invoke(actx, sources, attempt+1)
		p.metrics.ObserveAttempt(err)
		if err == nil {
			summary.Attempts = attempt + 1
			return summary, nil
		}
		lastErr = err
		logger.FromContext(actx).WithError(err).Warnf("Pipeline attempt %d/%d failed", attempt+1, p.cfg.MaxRetries)

		if attempt == p.cfg.MaxRetries-1 {
			break
		}
		wait := p.cfg.BackoffBase << attempt
		if err := p.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("%w: aborted after %d attempts: %w", ErrInvocationExhausted, attempt+1, errors.Join(lastErr, err))
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrInvocationExhausted, p.cfg.MaxRetries, lastErr)
}

// run is one invocation: begin a run per source, fetch concurrently, then
// store and resolve each source in configuration order.
func (p *Pipeline) run(ctx context.Context, sources []domain.SourceConfig, attempt int) (*Summary, error) {
	summary := &Summary{StartedAt: p.now()}

	if err := p.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: ping: %v", ErrStore, err)
	}

	var jobs []*sourceJob
	for _, cfg := range sources {
		if !cfg.Enabled {
			continue
		}
		conn, err := p.registry.Build(cfg)
		if err != nil {
			logger.CtxWarn(ctx, "Skipping source %s: %v", cfg.Name, err)
			summary.Sources = append(summary.Sources, SourceStatus{Source: cfg.Name, Status: StatusSkipped, Error: err.Error()})
			continue
		}

		runID, err := p.recorder.Begin(ctx, cfg.Name, map[string]interface{}{
			"source_type": string(conn.Type()),
			"attempt":     attempt,
		})
		if err != nil {
			p.abandon(ctx, jobs, err)
			return nil, err
		}
		jobs = append(jobs, &sourceJob{cfg: cfg, conn: conn, runID: runID})
	}

	ops := make([]batch.Operation, len(jobs))
	for i, job := range jobs {
		ops[i] = func(ctx context.Context) error { return p.fetch(ctx, job) }
	}
	batch.RunBounded(ctx, ops, p.cfg.FetchConcurrency)

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			p.abandon(ctx, jobs[i:], err)
			return nil, err
		}
		st, err := p.processSource(ctx, job)
		if err != nil {
			p.abandon(ctx, jobs[i+1:], err)
			return nil, err
		}
		summary.add(st)
	}

	summary.FinishedAt = p.now()
	logger.With(logger.Fields{"failed_sources": summary.Totals.FailedSources}).
		WithCounts(summary.Totals.Processed, summary.Totals.Inserted, summary.Totals.Updated, summary.Totals.Failed).
		Info(ctx, "Pipeline invocation finished (%d sources)", len(summary.Sources))
	return summary, nil
}

// abandon finalizes runs that were begun but will not be processed because
// the invocation is being aborted. Errors are logged only.
func (p *Pipeline) abandon(ctx context.Context, jobs []*sourceJob, cause error) {
	ctx = context.WithoutCancel(ctx)
	for _, job := range jobs {
		if _, err := p.recorder.Finish(ctx, job.runID, domain.RunCounts{}, domain.RunStatusFailed,
			fmt.Errorf("invocation aborted: %w", cause), nil); err != nil {
			logger.CtxWarn(ctx, "Failed to close run %s: %v", job.runID, err)
		}
	}
}
