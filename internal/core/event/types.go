package event

import "github.com/duelforge/matchengine/internal/core/ecs"

// Egress event types (spec.md §6). MatchRuntime and OptimisticManager emit
// these onto the Bus; whatever transport a caller wires in drains them.

type OptimisticApplied struct {
	MatchID  string
	UpdateID uint64
	Entity   ecs.EntityID
	Tick     uint64
}

type OptimisticConfirmed struct {
	MatchID  string
	UpdateID uint64
	Tick     uint64
}

type OptimisticRejected struct {
	MatchID  string
	UpdateID uint64
	Reason   string
	Tick     uint64
}

type OptimisticExpired struct {
	MatchID  string
	UpdateID uint64
	Tick     uint64
}

type StateDelta struct {
	MatchID string
	Entity  ecs.EntityID
	Tick    uint64
}

type MatchEnded struct {
	MatchID string
	Reason  string
	Winner  *ecs.EntityID
}

type MatchSettled struct {
	MatchID string
	TxID    string
}

type MatchDisputed struct {
	MatchID string
	Reason  string
}
