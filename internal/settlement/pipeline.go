package settlement

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/duelforge/matchengine/internal/config"
	"github.com/duelforge/matchengine/internal/core/event"
	"github.com/duelforge/matchengine/internal/persist"
	"github.com/duelforge/matchengine/internal/telemetry"
)

// Repo is the durable persistence surface Pipeline needs. It is satisfied
// by *persist.SettlementRepo; tests substitute an in-memory fake so the
// retry/backoff/signing logic is exercisable without a live Postgres
// (SPEC_FULL.md §4.11).
type Repo interface {
	Enqueue(ctx context.Context, j persist.SettlementJob) (int64, error)
	ClaimDue(ctx context.Context, limit int) ([]persist.SettlementJob, error)
	MarkCompleted(ctx context.Context, id int64, txID string) error
	MarkDisputed(ctx context.Context, id int64) error
	Retry(ctx context.Context, id int64, nextAttemptAt time.Time) error
	FindStaleProcessing(ctx context.Context, olderThan time.Duration) ([]persist.SettlementJob, error)
}

// Pipeline is SettlementPipeline (spec.md §4.7): a durable queue plus a
// worker pool bounded by max_concurrent_settlements, retrying transient
// backend failures with exponential backoff before falling back to
// Disputed.
type Pipeline struct {
	repo       Repo
	backend    Backend
	cfg        config.SettlementConfig
	sem        *semaphore.Weighted
	bus        *event.Bus
	metric     *telemetry.Metrics
	log        *zap.Logger
	signingKey ed25519.PrivateKey
}

// NewPipeline wires a durable repo, the abstract backend, and the
// operator's ed25519 keypair used to sign every settlement payload
// (SPEC_FULL.md §4.13) so the backend can authenticate it came from this
// process. signingKey may be nil in tests that don't exercise signature
// verification.
func NewPipeline(repo Repo, backend Backend, cfg config.SettlementConfig, bus *event.Bus, metric *telemetry.Metrics, logger *zap.Logger, signingKey ed25519.PrivateKey) *Pipeline {
	return &Pipeline{
		repo:       repo,
		backend:    backend,
		cfg:        cfg,
		sem:        semaphore.NewWeighted(int64(cfg.MaxConcurrentJobs)),
		bus:        bus,
		metric:     metric,
		log:        logger,
		signingKey: signingKey,
	}
}

// Enqueue durably records a settlement job before any backend call is
// attempted — a crash after this point resumes from the durable row
// rather than losing the match outcome (spec.md §4.7).
func (p *Pipeline) Enqueue(ctx context.Context, j Job) error {
	row, err := j.toPersistRow()
	if err != nil {
		return err
	}
	if _, err := p.repo.Enqueue(ctx, row); err != nil {
		return fmt.Errorf("settlement: enqueue: %w", err)
	}
	return nil
}

// Run polls for due jobs and processes them with bounded concurrency until
// ctx is canceled. Settlement workers run on their own pool, separate from
// match worker ticks (spec.md §5). A second, slower ticker sweeps jobs
// orphaned by a worker crash back to 'pending' (spec.md §4.7 crash-recovery
// guarantee; SPEC_FULL.md §4.15).
func (p *Pipeline) Run(ctx context.Context, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	reclaimInterval := p.cfg.ReclaimInterval
	if reclaimInterval <= 0 {
		reclaimInterval = 30 * time.Second
	}
	reclaimTicker := time.NewTicker(reclaimInterval)
	defer reclaimTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx)
		case <-reclaimTicker.C:
			p.reclaimStale(ctx)
		}
	}
}

// reclaimStale reverts jobs stuck in 'processing' past their claim lease
// back to 'pending' so a live worker can claim and retry them. Without
// this sweep a worker that crashes mid-job leaves its claimed rows
// orphaned forever, since ClaimDue only ever looks at 'pending' rows.
func (p *Pipeline) reclaimStale(ctx context.Context) {
	leaseTimeout := p.cfg.ClaimLeaseTimeout
	if leaseTimeout <= 0 {
		leaseTimeout = 2 * time.Minute
	}
	stale, err := p.repo.FindStaleProcessing(ctx, leaseTimeout)
	if err != nil {
		if p.log != nil {
			p.log.Error("settlement: find stale processing jobs", zap.Error(err))
		}
		return
	}
	for _, row := range stale {
		if err := p.repo.Retry(ctx, row.ID, time.Now()); err != nil {
			if p.log != nil {
				p.log.Error("settlement: reclaim stale job", zap.Int64("job_id", row.ID), zap.Error(err))
			}
			continue
		}
		if p.log != nil {
			p.log.Warn("settlement: reclaimed orphaned processing job", zap.Int64("job_id", row.ID), zap.String("match_id", row.MatchID))
		}
	}
}

func (p *Pipeline) drain(ctx context.Context) {
	jobs, err := p.repo.ClaimDue(ctx, p.cfg.MaxConcurrentJobs)
	if err != nil {
		if p.log != nil {
			p.log.Error("settlement: claim due jobs", zap.Error(err))
		}
		return
	}
	if p.metric != nil {
		p.metric.SettlementQueueDepth.Set(float64(len(jobs)))
	}
	for _, row := range jobs {
		job, err := fromPersistRow(row)
		if err != nil {
			if p.log != nil {
				p.log.Error("settlement: decode job", zap.Error(err))
			}
			continue
		}
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func(j Job) {
			defer p.sem.Release(1)
			p.process(ctx, j)
		}(job)
	}
}

// process runs the retry loop for one job (spec.md §4.7 steps 2-5). A
// backoff sleep is a suspension point on the settlement worker, never on
// a match worker (spec.md §5).
func (p *Pipeline) process(ctx context.Context, j Job) {
	start := time.Now()
	defer func() {
		if p.metric != nil {
			p.metric.SettlementJobDuration.Observe(time.Since(start).Seconds())
		}
	}()

	payload := Payload{
		MatchID:        j.MatchID,
		Winner:         j.Winner,
		Payouts:        j.Payouts,
		ActionLogRoot:  j.ActionLogRoot,
		FinalStateRoot: j.FinalStateRoot,
	}
	if p.signingKey != nil {
		payload.Signature = ed25519.Sign(p.signingKey, payload.CanonicalBytes())
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.cfg.InitialBackoff
	eb.MaxInterval = p.cfg.MaxBackoff
	eb.MaxElapsedTime = p.cfg.JobTTL
	// MaxAttempts counts backend calls, the first one included.
	maxRetries := uint64(0)
	if p.cfg.MaxAttempts > 1 {
		maxRetries = uint64(p.cfg.MaxAttempts - 1)
	}
	bounded := backoff.WithContext(backoff.WithMaxRetries(eb, maxRetries), ctx)

	var confirmation Confirmation
	attempts := 0
	op := func() error {
		attempts++
		conf, err := p.backend.Submit(payload)
		if err == nil {
			confirmation = conf
			return nil
		}
		var be *BackendError
		if errors.As(err, &be) && !be.Kind.Retryable() {
			return backoff.Permanent(err)
		}
		if p.metric != nil {
			p.metric.SettlementJobsTotal.WithLabelValues("retried").Inc()
		}
		return err
	}

	err := backoff.Retry(op, bounded)
	if err == nil {
		if dbErr := p.repo.MarkCompleted(ctx, j.RowID, confirmation.TxID); dbErr != nil && p.log != nil {
			p.log.Error("settlement: mark completed", zap.Error(dbErr))
		}
		if p.bus != nil {
			event.Emit(p.bus, event.MatchSettled{MatchID: j.MatchID, TxID: confirmation.TxID})
		}
		if p.metric != nil {
			p.metric.SettlementJobsTotal.WithLabelValues("completed").Inc()
		}
		return
	}

	if dbErr := p.repo.MarkDisputed(ctx, j.RowID); dbErr != nil && p.log != nil {
		p.log.Error("settlement: mark disputed", zap.Error(dbErr))
	}
	if p.bus != nil {
		event.Emit(p.bus, event.MatchDisputed{MatchID: j.MatchID, Reason: err.Error()})
	}
	if p.metric != nil {
		p.metric.SettlementJobsTotal.WithLabelValues("disputed").Inc()
	}
	if p.log != nil {
		p.log.Warn("settlement job disputed",
			zap.String("match_id", j.MatchID),
			zap.Int("attempts", attempts),
			zap.Error(err))
	}
}
