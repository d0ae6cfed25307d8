// Package settlement implements SettlementPipeline (spec.md §4.7): the
// durable queue and worker pool that turn a terminated match into a
// payout split, a signed request against an abstract SettlementBackend,
// and a terminal Completed/Disputed record.
package settlement

import "github.com/duelforge/matchengine/internal/component"

// Payload is the deterministic settlement request sent to the backend
// (spec.md §4.7 step 2): canonical in (match_id, winner, splits,
// action_log_root, final_state_root). Signature authenticates this
// payload as coming from this operator process (SPEC_FULL.md §4.13).
type Payload struct {
	MatchID        string
	Winner         *component.PublicKey
	Payouts        []Payout
	ActionLogRoot  [32]byte
	FinalStateRoot [32]byte
	Signature      []byte
}

// CanonicalBytes returns the deterministic byte encoding that is signed
// and that a backend verifies against the operator's public key. Field
// order is fixed; payouts are serialized in slice order, which callers
// must keep stable (winner-then-loser, or p1-then-p2 for a draw).
func (p Payload) CanonicalBytes() []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, []byte(p.MatchID)...)
	buf = append(buf, 0)
	if p.Winner != nil {
		buf = append(buf, p.Winner[:]...)
	}
	for _, payout := range p.Payouts {
		buf = append(buf, payout.Wallet[:]...)
		amt := make([]byte, 8)
		for i := 0; i < 8; i++ {
			amt[7-i] = byte(payout.Amount >> (8 * i))
		}
		buf = append(buf, amt...)
	}
	buf = append(buf, p.ActionLogRoot[:]...)
	buf = append(buf, p.FinalStateRoot[:]...)
	return buf
}

// BackendErrKind classifies a SettlementBackend failure (spec.md §4.7,
// §7 "Settlement: Retryable, NonRetryable, Exhausted").
type BackendErrKind int

const (
	ErrNetworkBusy BackendErrKind = iota
	ErrCongested
	ErrTransient
	ErrNonRetryable
)

// Retryable reports whether the pipeline should back off and retry.
func (k BackendErrKind) Retryable() bool {
	return k == ErrNetworkBusy || k == ErrCongested || k == ErrTransient
}

type BackendError struct {
	Kind BackendErrKind
	Msg  string
}

func (e *BackendError) Error() string { return e.Msg }

// Confirmation is the backend's success result.
type Confirmation struct {
	TxID string
}

// Status is the backend's async state for a match, used by an operator
// reconciliation sweep (not required for the happy-path retry loop, but
// part of the interface per spec.md §6).
type Status int

const (
	StatusNotFound Status = iota
	StatusPending
	StatusConfirmed
	StatusFailed
)

// Backend is the external settlement substrate's interface (spec.md §1,
// §6) — out of scope to implement; the pipeline only depends on this
// abstraction. It MUST dedupe on match_id: a retry that lands after a
// prior success returns the original tx_id (spec.md §4.7 Idempotency).
type Backend interface {
	Submit(payload Payload) (Confirmation, error)
	Status(matchID string) (Status, string, error) // status, tx_id if Confirmed
}
