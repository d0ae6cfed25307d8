package settlement

import (
	"encoding/json"
	"fmt"

	"github.com/duelforge/matchengine/internal/component"
	"github.com/duelforge/matchengine/internal/persist"
)

// Job is the pipeline's in-memory settlement work item, built from a
// terminated match and durably enqueued before any backend call is made
// (spec.md §4.7).
type Job struct {
	RowID          int64
	MatchID        string
	Winner         *component.PublicKey
	Payouts        []Payout
	ActionLogRoot  [32]byte
	FinalStateRoot [32]byte
	Attempts       int
}

// toPersistRow marshals a Job into the durable row shape (internal/persist
// stores payouts as JSON since Postgres has no fixed Go-struct column).
func (j Job) toPersistRow() (persist.SettlementJob, error) {
	payoutsJSON, err := json.Marshal(j.Payouts)
	if err != nil {
		return persist.SettlementJob{}, fmt.Errorf("settlement: marshal payouts: %w", err)
	}
	var winner []byte
	if j.Winner != nil {
		winner = j.Winner[:]
	}
	return persist.SettlementJob{
		MatchID:        j.MatchID,
		WinnerWallet:   winner,
		Payouts:        payoutsJSON,
		ActionLogRoot:  j.ActionLogRoot[:],
		FinalStateRoot: j.FinalStateRoot[:],
	}, nil
}

// fromPersistRow reconstructs a Job from a claimed durable row.
func fromPersistRow(row persist.SettlementJob) (Job, error) {
	var payouts []Payout
	if err := json.Unmarshal(row.Payouts, &payouts); err != nil {
		return Job{}, fmt.Errorf("settlement: unmarshal payouts: %w", err)
	}
	var winner *component.PublicKey
	if len(row.WinnerWallet) == 32 {
		var w component.PublicKey
		copy(w[:], row.WinnerWallet)
		winner = &w
	}
	var alr, fsr [32]byte
	copy(alr[:], row.ActionLogRoot)
	copy(fsr[:], row.FinalStateRoot)
	return Job{
		RowID:          row.ID,
		MatchID:        row.MatchID,
		Winner:         winner,
		Payouts:        payouts,
		ActionLogRoot:  alr,
		FinalStateRoot: fsr,
		Attempts:       row.Attempts,
	}, nil
}
