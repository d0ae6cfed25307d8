package persist

import (
	"context"
	"fmt"
	"time"
)

// SettlementJob is one durable settlement work item (spec.md §4.5). It is
// written before the worker pool ever touches the SettlementBackend, so a
// crash mid-payout leaves a row the next boot can resume instead of a
// lost match outcome — the same durability guarantee the teacher's
// economic write-ahead log gave trades/shop/auction transfers, applied
// here to match payouts instead.
type SettlementJob struct {
	ID             int64
	MatchID        string
	WinnerWallet   []byte // nil for a draw/void
	Payouts        []byte // JSON-encoded []settlement.Payout
	ActionLogRoot  []byte
	FinalStateRoot []byte
	Status         string // "pending", "processing", "completed", "disputed"
	Attempts       int
	NextAttemptAt  time.Time
	TxID           string
}

type SettlementRepo struct {
	db *DB
}

func NewSettlementRepo(db *DB) *SettlementRepo {
	return &SettlementRepo{db: db}
}

// Enqueue durably records a settlement job in a single transaction. Returns
// the assigned job id.
func (r *SettlementRepo) Enqueue(ctx context.Context, j SettlementJob) (int64, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("settlement enqueue begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO settlement_jobs
			(match_id, winner_wallet, payouts, action_log_root, final_state_root, status, attempts, next_attempt_at)
		 VALUES ($1, $2, $3, $4, $5, 'pending', 0, now())
		 RETURNING id`,
		j.MatchID, j.WinnerWallet, j.Payouts, j.ActionLogRoot, j.FinalStateRoot,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("settlement enqueue insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("settlement enqueue commit: %w", err)
	}
	return id, nil
}

// ClaimDue fetches up to limit jobs whose next_attempt_at has passed and
// marks them "processing" so a concurrent worker pool member can't double
// claim them.
func (r *SettlementRepo) ClaimDue(ctx context.Context, limit int) ([]SettlementJob, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("settlement claim begin: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT id, match_id, winner_wallet, payouts, action_log_root, final_state_root, status, attempts, next_attempt_at
		 FROM settlement_jobs
		 WHERE status = 'pending' AND next_attempt_at <= now()
		 ORDER BY next_attempt_at ASC
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("settlement claim select: %w", err)
	}

	var jobs []SettlementJob
	var ids []int64
	for rows.Next() {
		var j SettlementJob
		if err := rows.Scan(&j.ID, &j.MatchID, &j.WinnerWallet, &j.Payouts, &j.ActionLogRoot, &j.FinalStateRoot, &j.Status, &j.Attempts, &j.NextAttemptAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("settlement claim scan: %w", err)
		}
		jobs = append(jobs, j)
		ids = append(ids, j.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("settlement claim rows: %w", err)
	}

	if len(ids) > 0 {
		if _, err := tx.Exec(ctx, `UPDATE settlement_jobs SET status = 'processing', claimed_at = now() WHERE id = ANY($1)`, ids); err != nil {
			return nil, fmt.Errorf("settlement claim mark processing: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("settlement claim commit: %w", err)
	}
	return jobs, nil
}

// MarkCompleted finalizes a job once the SettlementBackend confirms the
// payout transaction.
func (r *SettlementRepo) MarkCompleted(ctx context.Context, id int64, txID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE settlement_jobs SET status = 'completed', tx_id = $2 WHERE id = $1`,
		id, txID,
	)
	return err
}

// MarkDisputed finalizes a job that exhausted its retry budget or hit a
// non-retryable backend error.
func (r *SettlementRepo) MarkDisputed(ctx context.Context, id int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE settlement_jobs SET status = 'disputed' WHERE id = $1`,
		id,
	)
	return err
}

// Retry returns a job to 'pending' with one more attempt counted and a new
// next_attempt_at, clearing its lease so a future ClaimDue can pick it up
// again. Its caller is the pipeline's stale-lease reclaim sweep.
func (r *SettlementRepo) Retry(ctx context.Context, id int64, nextAttemptAt time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE settlement_jobs SET status = 'pending', attempts = attempts + 1, next_attempt_at = $2, claimed_at = NULL WHERE id = $1`,
		id, nextAttemptAt,
	)
	return err
}

// FindStaleProcessing returns jobs stuck in 'processing' whose claim lease
// has expired — the worker that claimed them crashed or was killed before
// reaching a terminal MarkCompleted/MarkDisputed call. Without this sweep
// such a row is orphaned forever, since ClaimDue only ever looks at
// 'pending' rows (spec.md §4.7 crash-recovery guarantee; SPEC_FULL.md
// §4.15).
func (r *SettlementRepo) FindStaleProcessing(ctx context.Context, olderThan time.Duration) ([]SettlementJob, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, match_id, winner_wallet, payouts, action_log_root, final_state_root, status, attempts, next_attempt_at
		 FROM settlement_jobs
		 WHERE status = 'processing' AND claimed_at < now() - $1::interval`,
		fmt.Sprintf("%f seconds", olderThan.Seconds()),
	)
	if err != nil {
		return nil, fmt.Errorf("settlement find stale processing: %w", err)
	}
	defer rows.Close()

	var jobs []SettlementJob
	for rows.Next() {
		var j SettlementJob
		if err := rows.Scan(&j.ID, &j.MatchID, &j.WinnerWallet, &j.Payouts, &j.ActionLogRoot, &j.FinalStateRoot, &j.Status, &j.Attempts, &j.NextAttemptAt); err != nil {
			return nil, fmt.Errorf("settlement find stale processing scan: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("settlement find stale processing rows: %w", err)
	}
	return jobs, nil
}
