package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/timmy/recordhub/internal/batch"
	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/logger"
	"github.com/timmy/recordhub/internal/metrics"
	"github.com/timmy/recordhub/internal/repository"
	"github.com/timmy/recordhub/internal/source"
)

// sourceJob carries one source through an invocation.
type sourceJob struct {
	cfg        domain.SourceConfig
	conn       source.Connector
	runID      string
	resumeFrom string
	page       *source.Page
	fetchErr   error
}

// sourceStats accumulates what happened to one source's records.
type sourceStats struct {
	counts        domain.RunCounts
	rawInserted   int
	rawDuplicates int
	linked        int
	reassigned    int
	resumeFrom    string
	resumeTo      string
}

func (s *sourceStats) metadata() map[string]interface{} {
	return map[string]interface{}{
		"resume_from":       s.resumeFrom,
		"resume_to":         s.resumeTo,
		"raw_inserted":      s.rawInserted,
		"raw_duplicates":    s.rawDuplicates,
		"linked":            s.linked,
		"entity_reassigned": s.reassigned,
	}
}

// fetch reads the checkpoint and pulls the source's next page. It runs
// concurrently with other sources' fetches and stores its outcome on the job.
func (p *Pipeline) fetch(ctx context.Context, job *sourceJob) error {
	ctx = logger.SetSource(logger.SetRunID(ctx, job.runID), job.cfg.Name)

	pos, err := p.tracker.Position(ctx, job.cfg.Name)
	if err != nil {
		job.fetchErr = err
		return err
	}
	job.resumeFrom = pos

	page, err := job.conn.Fetch(ctx, pos)
	if err != nil {
		job.fetchErr = err
		logger.FromContext(ctx).WithError(err).Warn("Fetch failed")
		return err
	}
	job.page = page
	logger.With(nil).WithCount(len(page.Records)).
		Info(ctx, "Fetched %d records (resume position %q)", len(page.Records), pos)
	return nil
}

// persistRaw stores the fetched page chunk by chunk, advancing the checkpoint
// after every chunk that was stored completely.
func (p *Pipeline) persistRaw(ctx context.Context, job *sourceJob, stats *sourceStats) error {
	var inserted, duplicates atomic.Int64
	name := job.cfg.Name

	res, err := batch.ProcessInChunks(ctx, job.page.Records, p.cfg.BatchSize, p.cfg.Workers,
		func(ctx context.Context, rec source.Record) error {
			ok, err := p.store.Raw.InsertIfAbsent(ctx, &domain.RawRecord{
				SourceType: job.conn.Type(),
				Source:     name,
				ExternalID: rec.ExternalID,
				Payload:    domain.JSONMap(rec.Payload),
				IngestedAt: p.now(),
			})
			if err != nil {
				return fmt.Errorf("%w: store raw %s/%s: %v", ErrStore, name, rec.ExternalID, err)
			}
			if ok {
				inserted.Add(1)
			} else {
				duplicates.Add(1)
			}
			return nil
		},
		func(chunk []source.Record, res batch.Result) error {
			if res.Failed > 0 {
				return errors.Join(res.Errors...)
			}
			pos := chunk[len(chunk)-1].Position
			if err := p.tracker.Advance(ctx, name, pos, domain.CheckpointInProgress); err != nil {
				return err
			}
			stats.resumeTo = pos
			return nil
		})

	stats.rawInserted = int(inserted.Load())
	stats.rawDuplicates = int(duplicates.Load())
	stats.counts.Failed += res.Failed
	p.metrics.ObserveRecords(name, metrics.OutcomeDuplicate, stats.rawDuplicates)
	p.metrics.ObserveRecords(name, metrics.OutcomeFailed, res.Failed)
	return err
}

// resolvePending normalizes and resolves every unprocessed raw record of the
// source, including ones left over from earlier sweeps. Each record commits
// on its own; a failing record is counted and stays unprocessed.
func (p *Pipeline) resolvePending(ctx context.Context, job *sourceJob, stats *sourceStats) error {
	name := job.cfg.Name
	var afterID uint

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		pending, err := p.store.Raw.ListUnprocessed(ctx, name, afterID, p.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("%w: list unprocessed %s: %v", ErrStore, name, err)
		}
		if len(pending) == 0 {
			return nil
		}

		for i := range pending {
			raw := &pending[i]
			afterID = raw.ID

			res, err := p.resolveRecord(ctx, raw)
			if err != nil {
				stats.counts.Failed++
				p.metrics.ObserveRecords(name, metrics.OutcomeFailed, 1)
				logger.FromContext(ctx).WithField("external_id", raw.ExternalID).WithError(err).
					Error("Failed to process record")
				continue
			}

			switch res.Action {
			case ActionInsert:
				stats.counts.Inserted++
				p.metrics.ObserveRecords(name, metrics.OutcomeInserted, 1)
			case ActionLink:
				stats.counts.Inserted++
				stats.linked++
				p.metrics.ObserveRecords(name, metrics.OutcomeLinked, 1)
			case ActionUpdate:
				stats.counts.Updated++
				p.metrics.ObserveRecords(name, metrics.OutcomeUpdated, 1)
			}
			if res.Reassigned() {
				stats.reassigned++
				p.metrics.ObserveReassignment()
			}
		}
	}
}

// resolveRecord runs normalize, resolve and mark-processed as one unit of work.
func (p *Pipeline) resolveRecord(ctx context.Context, raw *domain.RawRecord) (res *Resolution, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: %s/%s: panic: %v", ErrRecordProcessing, raw.Source, raw.ExternalID, r)
		}
	}()

	err = p.store.Transaction(ctx, func(tx *repository.Store) error {
		fields := Normalize(raw.SourceType, raw.Payload)
		r, err := p.resolver.Resolve(ctx, tx, fields, raw.Source, raw.ExternalID)
		if err != nil {
			return err
		}
		if err := tx.Raw.MarkProcessed(ctx, raw.ID, p.now()); err != nil {
			return fmt.Errorf("%w: mark processed: %v", ErrStore, err)
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", ErrRecordProcessing, raw.Source, raw.ExternalID, err)
	}
	return res, nil
}

// processSource takes a fetched source through storage and resolution and
// finalizes its run. Only failures to finalize the run are returned; every
// other failure is recorded on the run and the source's outcome.
func (p *Pipeline) processSource(ctx context.Context, job *sourceJob) (SourceStatus, error) {
	ctx = logger.SetSource(logger.SetRunID(ctx, job.runID), job.cfg.Name)
	started := p.now()

	stats := &sourceStats{resumeFrom: job.resumeFrom, resumeTo: job.resumeFrom}
	srcErr := job.fetchErr
	if srcErr == nil && job.page == nil {
		srcErr = fmt.Errorf("%w: %s: fetch did not run", ErrSourceUnavailable, job.cfg.Name)
	}
	if srcErr == nil {
		stats.counts.Processed = len(job.page.Records)
		p.metrics.ObserveRecords(job.cfg.Name, metrics.OutcomeFetched, stats.counts.Processed)

		srcErr = p.persistRaw(ctx, job, stats)
		if srcErr == nil {
			srcErr = p.resolvePending(ctx, job, stats)
		}
		if srcErr == nil {
			if job.page.NextPosition != "" {
				stats.resumeTo = job.page.NextPosition
			}
			srcErr = p.tracker.Advance(ctx, job.cfg.Name, stats.resumeTo, domain.CheckpointSuccess)
		}
	}

	status := domain.RunStatusSuccess
	if srcErr != nil {
		status = domain.RunStatusFailed
		if err := p.tracker.Advance(ctx, job.cfg.Name, "", domain.CheckpointFailed); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to mark checkpoint as failed")
		}
		logger.FromContext(ctx).WithError(srcErr).Error("Source run failed")
	}

	run, err := p.recorder.Finish(ctx, job.runID, stats.counts, status, srcErr, stats.metadata())
	if err != nil {
		return SourceStatus{}, err
	}

	elapsed := p.now().Sub(started)
	p.metrics.ObserveRun(job.cfg.Name, string(status), elapsed, p.now())
	c := stats.counts
	logger.With(nil).WithCounts(c.Processed, c.Inserted, c.Updated, c.Failed).
		WithDuration(elapsed.Milliseconds()).WithStatus(string(status)).
		Info(ctx, "Source %s finished", job.cfg.Name)

	out := SourceStatus{
		Source: job.cfg.Name,
		RunID:  run.RunID,
		Status: string(status),
		Counts: stats.counts,
	}
	if srcErr != nil {
		out.Error = srcErr.Error()
	}
	return out, nil
}
